package check

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newtron-network/bgpsum/pkg/bgp"
	"github.com/newtron-network/bgpsum/pkg/util"
)

// Learner returns learned BGP state for a device.
type Learner interface {
	LearnBGP(ctx context.Context) (bgp.BGPState, error)
}

// LearnerFunc adapts a function to Learner.
type LearnerFunc func(ctx context.Context) (bgp.BGPState, error)

// LearnBGP calls f(ctx).
func (f LearnerFunc) LearnBGP(ctx context.Context) (bgp.BGPState, error) {
	return f(ctx)
}

// Runner executes the BGP checks.
type Runner struct {
	// StateFilter is the session state counted as up. Empty means
	// bgp.DefaultStateFilter.
	StateFilter string

	// MinEstablished enables the bgp-established check when > 0.
	MinEstablished int

	// now is replaceable in tests.
	now func() time.Time
}

// NewRunner creates a runner.
func NewRunner(stateFilter string, minEstablished int) *Runner {
	return &Runner{
		StateFilter:    stateFilter,
		MinEstablished: minEstablished,
		now:            time.Now,
	}
}

// Run learns BGP state through l and evaluates every check for device.
// A learn or extraction failure is reported as ERROR and the remaining
// checks are skipped.
func (r *Runner) Run(ctx context.Context, device string, l Learner) *DeviceResult {
	now := r.now
	if now == nil {
		now = time.Now
	}
	start := now()
	result := &DeviceResult{Device: device, Status: StatusPassed}
	defer func() { result.Duration = now().Sub(start) }()

	t0 := now()
	state, err := l.LearnBGP(ctx)
	var summary *bgp.NeighborSummary
	if err == nil {
		summary, err = bgp.ExtractNeighbors(state, r.StateFilter)
	}
	if err != nil {
		util.WithCheck(device, CheckLearnBGP).Errorf("%v", err)
		result.add(Result{Name: CheckLearnBGP, Status: StatusError, Message: err.Error(), Duration: now().Sub(t0)})
		r.skipRemaining(result, fmt.Sprintf("requires '%s' which errored", CheckLearnBGP))
		return result
	}
	result.add(Result{
		Name:     CheckLearnBGP,
		Status:   StatusPassed,
		Message:  fmt.Sprintf("learned %d neighbors", summary.Len()),
		Duration: now().Sub(t0),
	})
	result.Neighbors = summary.Len()
	result.Matching = summary.FilteredCount
	result.States = summary.StateCounts()

	result.add(hasNeighbors(state))
	if r.MinEstablished > 0 {
		result.add(minMatching(summary, r.MinEstablished))
	}

	for _, c := range result.Checks {
		util.WithFields(map[string]interface{}{
			"device": device,
			"check":  c.Name,
			"filter": summary.StateFilter,
		}).Debugf("%s: %s", c.Status, c.Message)
	}
	return result
}

func (r *Runner) skipRemaining(result *DeviceResult, reason string) {
	result.add(Result{Name: CheckHasNeighbors, Status: StatusSkipped, Message: reason})
	if r.MinEstablished > 0 {
		result.add(Result{Name: CheckEstablishedMin, Status: StatusSkipped, Message: reason})
	}
}

func hasNeighbors(state bgp.BGPState) Result {
	n, err := bgp.CountNeighbors(state)
	switch {
	case err != nil:
		return Result{Name: CheckHasNeighbors, Status: StatusError, Message: err.Error()}
	case n == 0:
		return Result{Name: CheckHasNeighbors, Status: StatusFailed, Message: "BGP neighbors are missing!"}
	}
	return Result{Name: CheckHasNeighbors, Status: StatusPassed, Message: fmt.Sprintf("We have %d neighbors", n)}
}

func minMatching(s *bgp.NeighborSummary, min int) Result {
	if s.FilteredCount < min {
		msg := fmt.Sprintf("%d of %d neighbors %s, want at least %d", s.FilteredCount, s.Len(), s.StateFilter, min)
		if up := s.Matching(); len(up) > 0 {
			names := make([]string, len(up))
			for i, row := range up {
				names[i] = row.VRF + "/" + row.Neighbor
			}
			msg += " (" + strings.Join(names, ", ") + ")"
		}
		return Result{
			Name:    CheckEstablishedMin,
			Status:  StatusFailed,
			Message: msg,
		}
	}
	return Result{
		Name:    CheckEstablishedMin,
		Status:  StatusPassed,
		Message: fmt.Sprintf("%d of %d neighbors %s", s.FilteredCount, s.Len(), s.StateFilter),
	}
}
