package model

import (
	"fmt"
	"sort"
	"time"
)

// BlockStatus tracks the lifecycle of a time block.
type BlockStatus string

const (
	BlockPending   BlockStatus = "pending"
	BlockCompleted BlockStatus = "completed"
	BlockSkipped   BlockStatus = "skipped"
)

// Valid reports whether s is a known block status.
func (s BlockStatus) Valid() bool {
	switch s {
	case BlockPending, BlockCompleted, BlockSkipped:
		return true
	}
	return false
}

// ParseBlockStatus converts s to a BlockStatus.
func ParseBlockStatus(s string) (BlockStatus, error) {
	st := BlockStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown block status %q", s)
	}
	return st, nil
}

// PlacementReason records which rule set produced a meal's target time.
type PlacementReason string

const (
	PlacementAnchorAware PlacementReason = "anchor-aware"
	PlacementDefault     PlacementReason = "default"
)

// Valid reports whether r is a known placement reason.
func (r PlacementReason) Valid() bool {
	return r == PlacementAnchorAware || r == PlacementDefault
}

// BlockMetadata carries meal placement details.
type BlockMetadata struct {
	TargetTime      time.Time       `json:"targetTime"`
	PlacementReason PlacementReason `json:"placementReason"`
}

// Skip reasons written by the engine.
const (
	SkipPastMealWindow     = "Past meal window"
	SkipSpacing            = "Spacing constraint"
	SkipNoValidSlot        = "No valid slot"
	SkipExceedsSleep       = "Would exceed sleep time"
	SkipBeforePlanStart    = "Occurred before plan start"
	SkipDroppedDegraded    = "Dropped during degradation"
	SkipOverlapsCommitment = "Overlaps another commitment"
	SkipByUser             = "Skipped by user"
)

// TimeBlock is a persisted, scheduled slice of the day.
type TimeBlock struct {
	ID            string         `json:"id"`
	PlanID        string         `json:"planId"`
	StartTime     time.Time      `json:"startTime"`
	EndTime       time.Time      `json:"endTime"`
	ActivityType  ActivityType   `json:"activityType"`
	Name          string         `json:"name"`
	SourceID      string         `json:"sourceId,omitempty"`
	Fixed         bool           `json:"fixed"`
	SequenceOrder int            `json:"sequenceOrder"`
	Status        BlockStatus    `json:"status"`
	SkipReason    string         `json:"skipReason,omitempty"`
	Metadata      *BlockMetadata `json:"metadata,omitempty"`
}

// Duration returns the block length.
func (b TimeBlock) Duration() time.Duration { return b.EndTime.Sub(b.StartTime) }

// Overlaps reports whether the half-open intervals of b and o intersect.
func (b TimeBlock) Overlaps(o TimeBlock) bool {
	return b.StartTime.Before(o.EndTime) && o.StartTime.Before(b.EndTime)
}

// IsEssential reports whether the block survives degradation.
func (b TimeBlock) IsEssential() bool {
	if b.Fixed {
		return true
	}
	switch b.ActivityType {
	case ActivityRoutine, ActivityMeal, ActivityTravel:
		return true
	}
	return false
}

// Skip marks the block skipped with reason.
func (b *TimeBlock) Skip(reason string) {
	b.Status = BlockSkipped
	b.SkipReason = reason
}

// SortBlocks orders blocks by start time, keeping insertion order for ties.
func SortBlocks(blocks []TimeBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].StartTime.Before(blocks[j].StartTime)
	})
}

// Renumber assigns sequence orders following slice order, starting at 1.
func Renumber(blocks []TimeBlock) {
	for i := range blocks {
		blocks[i].SequenceOrder = i + 1
	}
}

// BySequence returns a copy of blocks ordered by SequenceOrder.
func BySequence(blocks []TimeBlock) []TimeBlock {
	out := make([]TimeBlock, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SequenceOrder < out[j].SequenceOrder })
	return out
}
