package planner

import (
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

// FixedBlocks materializes the commitment blocks of acts, each preceded by
// its travel block when exits has a matching entry. The result is sorted by
// start time and carries no ids yet. Commitments that overlap an earlier one
// are left out; see FixedLayout.
func FixedBlocks(acts []model.Activity, exits []model.ExitTime) []model.TimeBlock {
	fixed, _ := FixedLayout(acts, exits)
	return fixed
}

// FixedLayout is FixedBlocks that also returns the commitments it left out.
// A commitment starting before an earlier kept commitment ends is skipped
// and loses its travel block. Travel that runs into another commitment is
// clipped to start after it.
func FixedLayout(acts []model.Activity, exits []model.ExitTime) (fixed, clashes []model.TimeBlock) {
	return resolveClashes(materialize(acts, exits))
}

func materialize(acts []model.Activity, exits []model.ExitTime) []model.TimeBlock {
	byCommitment := make(map[string]model.ExitTime, len(exits))
	for _, e := range exits {
		byCommitment[e.CommitmentID] = e
	}

	var out []model.TimeBlock
	for _, a := range acts {
		if a.Type != model.ActivityCommitment || !a.Fixed || !a.Anchored() {
			continue
		}
		if e, ok := byCommitment[a.SourceID]; ok && a.SourceID != "" {
			end := a.StartTime.Add(minutes(-e.PreparationTimeMinutes))
			if end.After(e.ExitTime) {
				out = append(out, model.TimeBlock{
					StartTime:    e.ExitTime,
					EndTime:      end,
					ActivityType: model.ActivityTravel,
					Name:         "Travel to " + a.Name,
					SourceID:     a.SourceID,
					Fixed:        true,
					Status:       model.BlockPending,
				})
			}
		}
		out = append(out, model.TimeBlock{
			StartTime:    a.StartTime,
			EndTime:      a.StartTime.Add(a.Duration()),
			ActivityType: model.ActivityCommitment,
			Name:         a.Name,
			SourceID:     a.SourceID,
			Fixed:        true,
			Status:       model.BlockPending,
		})
	}
	model.SortBlocks(out)
	return out
}

func resolveClashes(blocks []model.TimeBlock) (kept, skipped []model.TimeBlock) {
	var (
		commits   []model.TimeBlock
		busyUntil time.Time
		clash     = make(map[int]bool)
		lost      = make(map[string]bool)
	)
	for i, b := range blocks {
		if b.ActivityType != model.ActivityCommitment {
			continue
		}
		if b.StartTime.Before(busyUntil) {
			clash[i] = true
			if b.SourceID != "" {
				lost[b.SourceID] = true
			}
			continue
		}
		commits = append(commits, b)
		busyUntil = maxTime(busyUntil, b.EndTime)
	}

	for i, b := range blocks {
		switch {
		case clash[i]:
			b.Skip(model.SkipOverlapsCommitment)
			skipped = append(skipped, b)
		case b.ActivityType == model.ActivityTravel:
			if lost[b.SourceID] {
				continue
			}
			for _, c := range commits {
				if c.SourceID != b.SourceID && b.Overlaps(c) {
					b.StartTime = c.EndTime
				}
			}
			if b.EndTime.After(b.StartTime) {
				kept = append(kept, b)
			}
		default:
			kept = append(kept, b)
		}
	}
	model.SortBlocks(kept)
	return kept, skipped
}

func conflicts(start, end time.Time, fixed []model.TimeBlock) bool {
	probe := model.TimeBlock{StartTime: start, EndTime: end}
	for _, f := range fixed {
		if probe.Overlaps(f) {
			return true
		}
	}
	return false
}
