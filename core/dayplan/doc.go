// Package dayplan orchestrates plan generation, degradation and block
// updates around the pure planner engine. It fetches collaborator data,
// persists results through a store.PlanStore and reports what happened on
// the event bus and to the metrics sink.
package dayplan
