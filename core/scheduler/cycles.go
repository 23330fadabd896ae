package scheduler

import "github.com/kilianp07/prosumer/core/model"

// DetectCycles returns the runs of samples strictly above idle. A run still
// active at the last sample ends at len(power).
func DetectCycles(power model.TimeSeries, idle float64) []model.ApplianceCycle {
	var cycles []model.ApplianceCycle
	start := -1
	for i, x := range power {
		active := x > idle
		switch {
		case active && start < 0:
			start = i
		case !active && start >= 0:
			cycles = append(cycles, model.ApplianceCycle{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		cycles = append(cycles, model.ApplianceCycle{Start: start, End: len(power)})
	}
	return cycles
}
