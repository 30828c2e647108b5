package store

import (
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

// timeLayout is the text encoding of instants in SQLite.
const timeLayout = time.RFC3339Nano

func encTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func decTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

// planDate rebuilds the plan date from its key in the location of wake.
func planDate(key string, wake time.Time) (time.Time, error) {
	loc := wake.Location()
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(model.DateLayout, key, loc)
}

// metadataColumns splits optional meal metadata into nullable columns.
func metadataColumns(md *model.BlockMetadata) (target time.Time, reason string) {
	if md == nil {
		return time.Time{}, ""
	}
	return md.TargetTime, string(md.PlacementReason)
}

func metadataFrom(target time.Time, reason string) *model.BlockMetadata {
	if reason == "" && target.IsZero() {
		return nil
	}
	return &model.BlockMetadata{TargetTime: target, PlacementReason: model.PlacementReason(reason)}
}

// attach groups blocks and exit times under their plans.
func attach(plans []model.DailyPlan, blocks map[string][]model.TimeBlock, exits map[string][]model.ExitTime) {
	for i := range plans {
		plans[i].Blocks = model.BySequence(blocks[plans[i].ID])
		plans[i].ExitTimes = exits[plans[i].ID]
	}
}
