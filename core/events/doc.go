// Package events defines the plan lifecycle events emitted on the event bus.
//
// Available event types:
//   - PlanGeneratedEvent: a plan was created or replaced
//   - PlanDegradedEvent: a plan was reduced to its essentials
//   - BlockUpdatedEvent: a block was completed or skipped
//   - BehindScheduleEvent: the watcher detected a late current block
package events
