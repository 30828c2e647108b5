package metrics

// MultiSink fans out events to multiple sinks. Optional recorders are only
// called on sinks that implement them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlanGenerated forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPlanGenerated(ev PlanGeneratedEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPlanGenerated(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordMealPlacement forwards meal placement outcomes.
func (m *MultiSink) RecordMealPlacement(ev MealPlacementEvent) error {
	return forward(m.Sinks, func(r MealPlacementRecorder) error { return r.RecordMealPlacement(ev) })
}

// RecordDegradation forwards degradation events.
func (m *MultiSink) RecordDegradation(ev DegradationEvent) error {
	return forward(m.Sinks, func(r DegradationRecorder) error { return r.RecordDegradation(ev) })
}

// RecordBehindSchedule forwards behind-schedule detections.
func (m *MultiSink) RecordBehindSchedule(ev BehindScheduleEvent) error {
	return forward(m.Sinks, func(r BehindScheduleRecorder) error { return r.RecordBehindSchedule(ev) })
}

// RecordBlockTransition forwards block status changes.
func (m *MultiSink) RecordBlockTransition(ev BlockTransitionEvent) error {
	return forward(m.Sinks, func(r BlockTransitionRecorder) error { return r.RecordBlockTransition(ev) })
}

func forward[R any](sinks []MetricsSink, call func(R) error) error {
	for _, s := range sinks {
		if r, ok := s.(R); ok {
			if err := call(r); err != nil {
				return err
			}
		}
	}
	return nil
}
