// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/shakegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// translateSoil converts a `soil` block into the agnostic model.
func translateSoil(s *soilBlock) *config.Soil {
	return &config.Soil{
		Name:             s.Name,
		Density:          s.Density,
		FrictionAngleDeg: s.FrictionAngleDeg,
		YoungModulus:     s.YoungModulus,
		PoissonRatio:     s.PoissonRatio,
		MeanRadius:       s.MeanRadius,
		RadiusFuzz:       s.RadiusFuzz,
	}
}

// translateScenario converts a `scenario` block into the agnostic model.
func translateScenario(s *scenarioBlock, source string) (*config.Scenario, error) {
	out := &config.Scenario{
		Name:                s.Name,
		Source:              source,
		Soil:                s.Soil,
		Engine:              s.Engine,
		EngineURL:           s.EngineURL,
		DomainSize:          s.DomainSize,
		ParticleCount:       s.ParticleCount,
		PackingDensity:      s.PackingDensity,
		GrainDistribution:   s.GrainDistribution,
		Seed:                s.Seed,
		Density:             s.Density,
		FrictionAngleDeg:    s.FrictionAngleDeg,
		YoungModulus:        s.YoungModulus,
		PoissonRatio:        s.PoissonRatio,
		MeanRadius:          s.MeanRadius,
		RadiusFuzz:          s.RadiusFuzz,
		DurationSeconds:     s.DurationSeconds,
		StepsPerCycle:       s.StepsPerCycle,
		SampleEvery:         s.SampleEvery,
		SettlementThreshold: s.SettlementThreshold,
		TimeStep:            s.TimeStep,
		Damping:             s.Damping,
		Gravity:             s.Gravity,
		MaxWallClock:        s.MaxWallClock,
		Metrics:             s.Metrics,
	}
	if s.Load != nil {
		out.Load = &config.Load{
			Policy:         s.Load.Policy,
			FrequencyHz:    s.Load.FrequencyHz,
			Amplitude:      s.Load.Amplitude,
			ShearThreshold: s.Load.ShearThreshold,
		}
	}

	sweep, err := decodeSweep(s.Sweep)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	out.Sweep = sweep
	return out, nil
}

// decodeSweep converts the `sweep` object into typed axes. Each attribute
// must be a list (or tuple) convertible to the axis element type.
func decodeSweep(val cty.Value) (*config.Sweep, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("sweep must be known at load time")
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("sweep must be an object of lists, got %s", ty.FriendlyName())
	}

	sweep := &config.Sweep{}
	attrs := val.AsValueMap()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := attrs[k]
		var err error
		switch k {
		case "grain_distribution":
			err = decodeList(v, cty.String, &sweep.GrainDistributions)
		case "packing_density":
			err = decodeList(v, cty.String, &sweep.PackingDensities)
		case "load_policy":
			err = decodeList(v, cty.String, &sweep.LoadPolicies)
		case "frequency_hz":
			err = decodeList(v, cty.Number, &sweep.FrequenciesHz)
		case "amplitude":
			err = decodeList(v, cty.Number, &sweep.Amplitudes)
		case "seed":
			err = decodeList(v, cty.Number, &sweep.Seeds)
		default:
			return nil, fmt.Errorf("unknown sweep axis %q", k)
		}
		if err != nil {
			return nil, fmt.Errorf("sweep axis %q: %w", k, err)
		}
	}
	return sweep, nil
}

// decodeList converts v to list(elem) and binds it to the Go slice at target.
func decodeList(v cty.Value, elem cty.Type, target any) error {
	converted, err := convert.Convert(v, cty.List(elem))
	if err != nil {
		return fmt.Errorf("cannot convert %s to list of %s: %w", v.Type().FriendlyName(), elem.FriendlyName(), err)
	}
	return gocty.FromCtyValue(converted, target)
}
