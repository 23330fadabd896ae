package scheduler

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/kilianp07/prosumer/core/model"
	"golang.org/x/sync/errgroup"
)

// ShiftAll shifts several appliance traces against the same admissibility
// mask. Traces run concurrently, each with its own PCG stream derived from
// seed and the appliance's rank in name order, so results do not depend on
// goroutine scheduling.
func (s *Scheduler) ShiftAll(ctx context.Context, appliances map[string]model.TimeSeries, adm model.Mask, shiftProbability float64, seed uint64, timestep float64) (map[string]*Result, error) {
	names := make([]string, 0, len(appliances))
	for name := range appliances {
		names = append(names, name)
	}
	sort.Strings(names)

	var mu sync.Mutex
	out := make(map[string]*Result, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seed, uint64(i)))
			res, err := s.ShiftDetailed(appliances[name], adm, shiftProbability, rng, timestep)
			if err != nil {
				return &ApplianceError{Appliance: name, Err: err}
			}
			mu.Lock()
			out[name] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplianceError ties a shifting failure to its appliance.
type ApplianceError struct {
	Appliance string
	Err       error
}

func (e *ApplianceError) Error() string { return e.Appliance + ": " + e.Err.Error() }

func (e *ApplianceError) Unwrap() error { return e.Err }
