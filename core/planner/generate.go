package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/dayplan/core/model"
)

// GenerateInput carries everything a generation pass needs. Now is captured
// once by the caller.
type GenerateInput struct {
	PlanID      string
	UserID      string
	Wake        time.Time
	Sleep       time.Time
	Energy      model.EnergyState
	Now         time.Time
	Commitments []model.Commitment
	Tasks       []model.Task
	Morning     *model.Routine
	Evening     *model.Routine
	ExitTimes   []model.ExitTime
	NewID       func() string
}

// Result is the generated plan plus the intermediate decisions, which
// callers use for logging and metrics.
type Result struct {
	Plan     model.DailyPlan
	Meals    []MealPlacement
	Assembly Assembly
}

// ValidateWindow rejects missing wake/sleep times and sleep not after wake.
func ValidateWindow(wake, sleep time.Time) error {
	switch {
	case wake.IsZero():
		return fmt.Errorf("%w: missing wake time", ErrInvalidInput)
	case sleep.IsZero():
		return fmt.Errorf("%w: missing sleep time", ErrInvalidInput)
	case !sleep.After(wake):
		return fmt.Errorf("%w: sleep %s is not after wake %s", ErrInvalidInput,
			sleep.Format(time.RFC3339), wake.Format(time.RFC3339))
	}
	return nil
}

// PlanStart returns max(wake, now rounded up to the rounding step).
func PlanStart(wake, now time.Time, r Rules) time.Time {
	return maxTime(wake, roundUp(now, r.PlanStartRounding))
}

// Generate builds the activity list, places meals and assembles the day.
func Generate(in GenerateInput, r Rules) (Result, error) {
	if err := ValidateWindow(in.Wake, in.Sleep); err != nil {
		return Result{}, err
	}
	if !in.Energy.Valid() {
		return Result{}, fmt.Errorf("%w: energy state %q", ErrInvalidInput, in.Energy)
	}
	if in.NewID == nil {
		in.NewID = uuid.NewString
	}
	if in.PlanID == "" {
		in.PlanID = in.NewID()
	}

	start := PlanStart(in.Wake, in.Now, r)
	list := BuildActivities(BuildInput{
		Commitments: in.Commitments,
		Tasks:       in.Tasks,
		Morning:     in.Morning,
		Evening:     in.Evening,
		Energy:      in.Energy,
	}, r)

	meals := PlaceMeals(MealInput{
		Wake:        in.Wake,
		Sleep:       in.Sleep,
		PlanStart:   start,
		Commitments: in.Commitments,
		Fixed:       FixedBlocks(list.Activities, in.ExitTimes),
	}, r)

	asm := Assemble(AssembleInput{
		PlanID:     in.PlanID,
		Activities: ApplyMealPlacements(list.Activities, meals),
		Evening:    list.Evening,
		ExitTimes:  in.ExitTimes,
		Wake:       in.Wake,
		Sleep:      in.Sleep,
		PlanStart:  start,
		Energy:     in.Energy,
		NewID:      in.NewID,
	}, r)

	plan := model.DailyPlan{
		ID:                in.PlanID,
		UserID:            in.UserID,
		Date:              model.Day(in.Wake),
		WakeTime:          in.Wake,
		SleepTime:         in.Sleep,
		EnergyState:       in.Energy,
		Status:            model.PlanActive,
		GeneratedAt:       in.Now,
		GeneratedAfterNow: start.After(in.Wake),
		PlanStart:         start,
		Blocks:            asm.Blocks,
		ExitTimes:         in.ExitTimes,
	}
	return Result{Plan: plan, Meals: meals, Assembly: asm}, nil
}
