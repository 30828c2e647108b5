package provider

import (
	"context"
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

// Static serves fixed in-memory data. It implements every provider
// interface and ignores the user id.
type Static struct {
	CommitmentList []model.Commitment
	Tasks          []model.Task
	Morning        *model.Routine
	Evening        *model.Routine
	Exits          []model.ExitTime
}

// Commitments returns the commitments overlapping [from, to).
func (s *Static) Commitments(_ context.Context, _ string, from, to time.Time) ([]model.Commitment, error) {
	var out []model.Commitment
	for _, c := range s.CommitmentList {
		if c.StartTime.Before(to) && c.EndTime.After(from) {
			out = append(out, c)
		}
	}
	return out, nil
}

// PendingTasks returns at most limit tasks in stored order.
func (s *Static) PendingTasks(_ context.Context, _ string, limit int) ([]model.Task, error) {
	if limit <= 0 || limit > len(s.Tasks) {
		limit = len(s.Tasks)
	}
	out := make([]model.Task, limit)
	copy(out, s.Tasks[:limit])
	return out, nil
}

// Routine returns the morning or evening routine.
func (s *Static) Routine(_ context.Context, _ string, slot model.RoutineSlot) (*model.Routine, error) {
	if slot == model.RoutineMorning {
		return s.Morning, nil
	}
	return s.Evening, nil
}

// ExitTimes returns the stored exit times for the given commitments.
func (s *Static) ExitTimes(_ context.Context, commitments []model.Commitment, _ string) ([]model.ExitTime, error) {
	want := make(map[string]bool, len(commitments))
	for _, c := range commitments {
		want[c.ID] = true
	}
	var out []model.ExitTime
	for _, e := range s.Exits {
		if want[e.CommitmentID] {
			out = append(out, e)
		}
	}
	return out, nil
}

var (
	_ CommitmentProvider = (*Static)(nil)
	_ TaskProvider       = (*Static)(nil)
	_ RoutineProvider    = (*Static)(nil)
	_ ExitTimeCalculator = (*Static)(nil)
)
