package recorder

import "fmt"

// Metric names a tracked time series. The string value is used in output
// file names.
type Metric string

const (
	Settlement     Metric = "settlement"
	Force          Metric = "force"
	SettlementRate Metric = "settlement_rate"
	KineticEnergy  Metric = "kinetic_energy"
	Porosity       Metric = "porosity"
)

// AllMetrics lists every metric in export order.
var AllMetrics = []Metric{Settlement, Force, SettlementRate, KineticEnergy, Porosity}

var labels = map[Metric]string{
	Settlement:     "Settlement",
	Force:          "Force",
	SettlementRate: "SettlementRate",
	KineticEnergy:  "KineticEnergy",
	Porosity:       "Porosity",
}

// Label returns the CSV column header of the metric.
func (m Metric) Label() string {
	return labels[m]
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	_, ok := labels[m]
	return ok
}

// ParseMetric converts a metric name into a Metric.
func ParseMetric(name string) (Metric, error) {
	m := Metric(name)
	if !m.Valid() {
		return "", fmt.Errorf("unknown metric %q", name)
	}
	return m, nil
}
