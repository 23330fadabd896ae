package scheduler

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/infra/logger"
)

// Scheduler shifts appliance cycles greedily into admissible slots.
type Scheduler struct {
	Config Config
	log    logger.Logger
}

// New returns a Scheduler. A nil logger disables logging.
func New(cfg Config, log logger.Logger) *Scheduler {
	return &Scheduler{Config: cfg, log: logger.OrNop(log)}
}

// Result is the outcome of shifting one appliance trace.
type Result struct {
	Power     model.TimeSeries      `json:"power"`
	Stats     model.ShiftStats      `json:"stats"`
	Decisions []model.ShiftDecision `json:"decisions"`
}

// Shift relocates the cycles of power that start in inadmissible slots. Each
// such cycle is moved with probability shiftProbability to the nearest free
// admissible slot. rng drives the draws; the same seed gives the same output.
func (s *Scheduler) Shift(power model.TimeSeries, adm model.Mask, shiftProbability float64, rng *rand.Rand, timestep float64) (model.TimeSeries, model.ShiftStats, error) {
	res, err := s.ShiftDetailed(power, adm, shiftProbability, rng, timestep)
	if err != nil {
		return nil, model.ShiftStats{}, err
	}
	return res.Power, res.Stats, nil
}

// ShiftDetailed is Shift with the per-cycle decisions.
//
//nolint:gocyclo
func (s *Scheduler) ShiftDetailed(power model.TimeSeries, adm model.Mask, shiftProbability float64, rng *rand.Rand, timestep float64) (*Result, error) {
	if len(power) != len(adm) {
		return nil, fmt.Errorf("%w: power has %d samples, admissibility %d", model.ErrInputShape, len(power), len(adm))
	}
	if math.IsNaN(shiftProbability) || shiftProbability < 0 || shiftProbability > 1 {
		return nil, fmt.Errorf("%w: shift probability must be in [0,1], got %g", model.ErrDomain, shiftProbability)
	}
	if timestep <= 0 {
		return nil, fmt.Errorf("%w: timestep must be positive, got %g", model.ErrDomain, timestep)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(s.Config.Seed, 0))
	}

	n := len(power)
	cycles := DetectCycles(power, s.Config.IdleLevel)
	out := make(model.TimeSeries, n)
	placed := make([]bool, n)
	decisions := make([]model.ShiftDecision, len(cycles))

	put := func(c model.ApplianceCycle, at int) {
		for k := 0; k < c.Len() && at+k < n; k++ {
			out[at+k] += power[c.Start+k]
			placed[at+k] = true
		}
	}

	for i, c := range cycles {
		decisions[i] = model.ShiftDecision{Cycle: c, ChosenStart: c.Start}
		if adm[c.Start] {
			put(c, c.Start)
		}
	}

	slots := adm.Indices()
	var stats model.ShiftStats
	var attempted int
	var total float64
	for i, c := range cycles {
		if adm[c.Start] {
			continue
		}
		d := &decisions[i]
		if rng.Float64() >= shiftProbability {
			put(c, c.Start)
			continue
		}
		attempted++
		d.Shifted = true
		at, ok := nearestFree(slots, placed, c)
		if !ok {
			d.UnableToShift = true
			stats.UnableToShiftCount++
			at = c.Start
		}
		d.ChosenStart = at
		d.ShiftMagnitude = abs(at - c.Start)
		put(c, at)

		h := float64(d.ShiftMagnitude) * timestep
		stats.MaxShiftHours = math.Max(stats.MaxShiftHours, h)
		total += h
	}

	stats.CycleCount = len(cycles)
	stats.NetShiftedCount = attempted - stats.UnableToShiftCount
	if len(cycles) > 0 {
		stats.AvgShiftHours = total / float64(len(cycles))
	}

	s.finish(out, stats.UnableToShiftCount)
	s.log.Debugw("appliance shifted", map[string]any{
		"cycles":    stats.CycleCount,
		"shifted":   stats.NetShiftedCount,
		"unable":    stats.UnableToShiftCount,
		"max_shift": stats.MaxShiftHours,
	})
	return &Result{Power: out, Stats: stats, Decisions: decisions}, nil
}

// nearestFree returns the admissible slot closest to the cycle start whose
// window does not overlap energy already placed. Ties go to the earlier slot.
func nearestFree(slots []int, placed []bool, c model.ApplianceCycle) (int, bool) {
	cand := make([]int, len(slots))
	copy(cand, slots)
	sort.SliceStable(cand, func(a, b int) bool {
		return abs(cand[a]-c.Start) < abs(cand[b]-c.Start)
	})
	for _, at := range cand {
		if !overlaps(placed, at, at+c.Len()) {
			return at, true
		}
	}
	return 0, false
}

func overlaps(placed []bool, from, to int) bool {
	if to > len(placed) {
		to = len(placed)
	}
	for i := from; i < to; i++ {
		if placed[i] {
			return true
		}
	}
	return false
}

// finish raises zero samples to the floor. When some cycles could not be
// moved, the highest level is folded into the second highest, matching the
// legacy post-processing of shifted traces.
func (s *Scheduler) finish(out model.TimeSeries, unable int) {
	for i, x := range out {
		if x == 0 {
			out[i] = s.Config.Floor
		}
	}
	if unable == 0 {
		return
	}
	levels := distinct(out)
	if len(levels) <= 2 {
		return
	}
	top, second := levels[len(levels)-1], levels[len(levels)-2]
	for i, x := range out {
		if x == top {
			out[i] = second
		}
	}
}

func distinct(s model.TimeSeries) []float64 {
	seen := make(map[float64]struct{}, len(s))
	var vals []float64
	for _, x := range s {
		if _, ok := seen[x]; !ok {
			seen[x] = struct{}{}
			vals = append(vals, x)
		}
	}
	sort.Float64s(vals)
	return vals
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
