// Package connectors adapts external data sources to the provider
// contracts of core/provider.
package connectors

import "github.com/kilianp07/dayplan/core/provider"

// Providers bundles the collaborators a plan manager consumes. Exits may be
// nil when no exit-time calculator is configured.
type Providers struct {
	Commitments provider.CommitmentProvider
	Tasks       provider.TaskProvider
	Routines    provider.RoutineProvider
	Exits       provider.ExitTimeCalculator
}

// FromStatic exposes s for every provider role.
func FromStatic(s *provider.Static) Providers {
	return Providers{Commitments: s, Tasks: s, Routines: s, Exits: s}
}
