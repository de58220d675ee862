// Package recorder samples the derived metrics of a run and buffers them in
// time order. A Recorder belongs to exactly one harness instance; its
// previous-sample state is never shared between runs.
package recorder

import (
	"github.com/specialistvlad/shakegrid/internal/engine"
)

// Sample is one (time, value) point of a metric series.
type Sample struct {
	Time  float64
	Value float64
}

// SettlementSample is the top-layer settlement at a point in time and its
// backward-difference rate.
type SettlementSample struct {
	Time       float64
	Settlement float64
	Rate       float64
}

// RunResult holds every series recorded during one run.
type RunResult struct {
	ScenarioName string
	RunID        string
	Series       map[Metric][]Sample
}

// Len returns the number of samples of a metric.
func (r *RunResult) Len(m Metric) int {
	return len(r.Series[m])
}

// Recorder computes and buffers metric samples.
type Recorder struct {
	height    float64
	threshold float64

	hasPrev        bool
	prevTime       float64
	prevSettlement float64

	series map[Metric][]Sample
}

// New creates a recorder for a domain of the given height. Particles above
// threshold·height form the top layer used for settlement.
func New(domainHeight, threshold float64) *Recorder {
	return &Recorder{
		height:    domainHeight,
		threshold: threshold,
		series:    make(map[Metric][]Sample),
	}
}

// SampleSettlement measures the settlement of the top layer, appends the
// settlement and rate samples and returns them.
//
// Settlement is the domain height minus the mean elevation of the particles
// above the threshold, clamped at zero, and zero when no particle is above
// it. The rate is zero for the first sample and whenever no time elapsed.
func (r *Recorder) SampleSettlement(t float64, positions []engine.Vec3) SettlementSample {
	cut := r.threshold * r.height
	var sum float64
	var n int
	for _, p := range positions {
		if p[engine.Z] > cut {
			sum += p[engine.Z]
			n++
		}
	}

	var settlement float64
	if n > 0 {
		settlement = max(r.height-sum/float64(n), 0)
	}

	var rate float64
	if r.hasPrev {
		if dt := t - r.prevTime; dt != 0 {
			rate = (settlement - r.prevSettlement) / dt
		}
	}
	r.hasPrev, r.prevTime, r.prevSettlement = true, t, settlement

	r.append(Settlement, t, settlement)
	r.append(SettlementRate, t, rate)
	return SettlementSample{Time: t, Settlement: settlement, Rate: rate}
}

// SampleEnergyPorosity appends and returns the kinetic energy and the
// porosity 1 − Σ(particle volume)/domainVolume.
func (r *Recorder) SampleEnergyPorosity(t, kineticEnergy float64, radii []float64, domainVolume float64) (float64, float64) {
	porosity := PorosityOf(radii, domainVolume)
	r.append(KineticEnergy, t, kineticEnergy)
	r.append(Porosity, t, porosity)
	return kineticEnergy, porosity
}

// RecordForce appends a load sample.
func (r *Recorder) RecordForce(t, force float64) {
	r.append(Force, t, force)
}

// PorosityOf returns 1 − Σ(4/3·π·r³)/domainVolume.
func PorosityOf(radii []float64, domainVolume float64) float64 {
	var solid float64
	for _, radius := range radii {
		solid += engine.SphereVolume(radius)
	}
	return 1 - solid/domainVolume
}

func (r *Recorder) append(m Metric, t, v float64) {
	r.series[m] = append(r.series[m], Sample{Time: t, Value: v})
}

// Len returns the number of buffered samples of a metric.
func (r *Recorder) Len(m Metric) int {
	return len(r.series[m])
}

// Result returns a copy of the buffered series, labelled with the scenario
// name and run id. Later samples do not change the returned result.
func (r *Recorder) Result(scenarioName, runID string) *RunResult {
	series := make(map[Metric][]Sample, len(r.series))
	for m, samples := range r.series {
		series[m] = append([]Sample(nil), samples...)
	}
	return &RunResult{ScenarioName: scenarioName, RunID: runID, Series: series}
}

// Reset clears every buffer and forgets the previous settlement sample.
func (r *Recorder) Reset() {
	r.series = make(map[Metric][]Sample)
	r.hasPrev = false
	r.prevTime, r.prevSettlement = 0, 0
}
