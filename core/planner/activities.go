package planner

import "github.com/kilianp07/dayplan/core/model"

// Names used for synthesized activities.
const (
	MorningRoutineName = "Morning Routine"
	EveningRoutineName = "Evening Routine"
	FocusBlockName     = "Primary Focus Block"
	ResetAdminName     = "Reset/Admin"
)

// MealKind identifies one of the three daily meals.
type MealKind int

const (
	Breakfast MealKind = iota
	Lunch
	Dinner
	mealCount
)

// Meals lists the meal kinds in placement order.
var Meals = [mealCount]MealKind{Breakfast, Lunch, Dinner}

func (k MealKind) String() string {
	switch k {
	case Breakfast:
		return "Breakfast"
	case Lunch:
		return "Lunch"
	case Dinner:
		return "Dinner"
	}
	return "Unknown"
}

// mealKindOf maps a meal activity back to its kind.
func mealKindOf(name string) (MealKind, bool) {
	for _, k := range Meals {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// BuildInput gathers the collaborator data for one generation pass.
type BuildInput struct {
	Commitments []model.Commitment
	// Tasks are expected sorted by deadline ascending.
	Tasks   []model.Task
	Morning *model.Routine
	Evening *model.Routine
	Energy  model.EnergyState
}

// ActivityList is the candidate list handed to meal placement and assembly.
// The evening routine is kept apart since the assembler places it last.
type ActivityList struct {
	Activities []model.Activity
	Evening    model.Activity
}

// BuildActivities turns raw collaborator data into the ordered candidate list.
func BuildActivities(in BuildInput, r Rules) ActivityList {
	var acts []model.Activity

	acts = append(acts, routineActivity(in.Morning, MorningRoutineName, r.MorningRoutineMinutes))

	for _, c := range in.Commitments {
		acts = append(acts, model.Activity{
			Type:            model.ActivityCommitment,
			Name:            c.Title,
			DurationMinutes: c.DurationMinutes(),
			Fixed:           true,
			StartTime:       c.StartTime,
			Location:        c.Location,
			SourceID:        c.ID,
		})
	}

	for _, k := range Meals {
		acts = append(acts, model.Activity{
			Type:            model.ActivityMeal,
			Name:            k.String(),
			DurationMinutes: r.Meals[k].Duration,
		})
	}

	if len(in.Tasks) == 0 {
		acts = append(acts, focusBlock(r))
	} else {
		limit := r.TaskLimit(in.Energy)
		for i, t := range in.Tasks {
			if i >= limit {
				break
			}
			d := t.EstimatedDurationMinutes
			if d <= 0 {
				d = r.DefaultTaskMinutes
			}
			acts = append(acts, model.Activity{
				Type:            model.ActivityTask,
				Name:            t.Title,
				DurationMinutes: d,
				SourceID:        t.ID,
			})
		}
	}

	return ActivityList{
		Activities: acts,
		Evening:    routineActivity(in.Evening, EveningRoutineName, r.EveningRoutineMinutes),
	}
}

func routineActivity(rt *model.Routine, fallback string, minutes int) model.Activity {
	a := model.Activity{Type: model.ActivityRoutine, Name: fallback, DurationMinutes: minutes}
	if rt == nil {
		return a
	}
	if rt.Name != "" {
		a.Name = rt.Name
	}
	if rt.EstimatedDurationMinutes > 0 {
		a.DurationMinutes = rt.EstimatedDurationMinutes
	}
	a.SourceID = rt.ID
	return a
}

func focusBlock(r Rules) model.Activity {
	return model.Activity{Type: model.ActivityTask, Name: FocusBlockName, DurationMinutes: r.DefaultTaskMinutes}
}
