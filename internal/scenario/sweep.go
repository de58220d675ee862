package scenario

import (
	"strconv"
	"strings"

	"github.com/specialistvlad/shakegrid/internal/config"
)

// axis is one swept dimension: the name suffix of each value and a setter
// that writes the value into a scenario copy.
type axis struct {
	suffixes []string
	apply    []func(s *config.Scenario)
}

func stringAxis(values []string, apply func(s *config.Scenario, v string)) axis {
	var a axis
	for _, v := range values {
		a.suffixes = append(a.suffixes, v)
		a.apply = append(a.apply, func(s *config.Scenario) { apply(s, v) })
	}
	return a
}

func floatAxis(prefix string, values []float64, apply func(s *config.Scenario, v float64)) axis {
	var a axis
	for _, v := range values {
		a.suffixes = append(a.suffixes, prefix+strconv.FormatFloat(v, 'g', -1, 64))
		a.apply = append(a.apply, func(s *config.Scenario) { apply(s, v) })
	}
	return a
}

// Expand returns the runs declared by a scenario: the scenario itself when it
// has no sweep, otherwise one copy per combination of swept values. Copies
// are named `{name}_{suffix}...` with suffixes in axis order grain
// distribution, packing density, load policy, frequency (`f`), amplitude
// (`a`), seed (`s`).
func Expand(decl *config.Scenario) []*config.Scenario {
	if decl.Sweep.IsEmpty() {
		return []*config.Scenario{decl}
	}
	sw := decl.Sweep

	axes := []axis{
		stringAxis(sw.GrainDistributions, func(s *config.Scenario, v string) { s.GrainDistribution = &v }),
		stringAxis(sw.PackingDensities, func(s *config.Scenario, v string) { s.PackingDensity = &v }),
		stringAxis(sw.LoadPolicies, func(s *config.Scenario, v string) {
			s.Load = cloneLoad(s.Load)
			s.Load.Policy = &v
		}),
		floatAxis("f", sw.FrequenciesHz, func(s *config.Scenario, v float64) {
			s.Load = cloneLoad(s.Load)
			s.Load.FrequencyHz = &v
		}),
		floatAxis("a", sw.Amplitudes, func(s *config.Scenario, v float64) {
			s.Load = cloneLoad(s.Load)
			s.Load.Amplitude = &v
		}),
	}
	seeds := axis{}
	for _, v := range sw.Seeds {
		seeds.suffixes = append(seeds.suffixes, "s"+strconv.FormatInt(v, 10))
		seeds.apply = append(seeds.apply, func(s *config.Scenario) { s.Seed = &v })
	}
	axes = append(axes, seeds)

	base := *decl
	base.Sweep = nil
	runs := []*config.Scenario{&base}
	suffixes := [][]string{nil}

	for _, a := range axes {
		if len(a.apply) == 0 {
			continue
		}
		var nextRuns []*config.Scenario
		var nextSuffixes [][]string
		for i, run := range runs {
			for j, apply := range a.apply {
				clone := *run
				apply(&clone)
				nextRuns = append(nextRuns, &clone)
				nextSuffixes = append(nextSuffixes, append(append([]string(nil), suffixes[i]...), a.suffixes[j]))
			}
		}
		runs, suffixes = nextRuns, nextSuffixes
	}

	for i, run := range runs {
		run.Name = decl.Name + "_" + strings.Join(suffixes[i], "_")
	}
	return runs
}

func cloneLoad(l *config.Load) *config.Load {
	if l == nil {
		return &config.Load{}
	}
	c := *l
	return &c
}
