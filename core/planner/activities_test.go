package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dayplan/core/model"
)

func TestBuildActivitiesOrder(t *testing.T) {
	r := DefaultRules()
	in := BuildInput{
		Commitments: []model.Commitment{{ID: "c1", Title: "Standup", StartTime: at(9, 0), EndTime: at(9, 30)}},
		Tasks: []model.Task{
			{ID: "t1", Title: "Report", EstimatedDurationMinutes: 45},
			{ID: "t2", Title: "Inbox"},
			{ID: "t3", Title: "Taxes"},
		},
		Energy: model.EnergyMedium,
	}
	list := BuildActivities(in, r)

	var types []model.ActivityType
	var names []string
	for _, a := range list.Activities {
		types = append(types, a.Type)
		names = append(names, a.Name)
	}
	assert.Equal(t, []model.ActivityType{
		model.ActivityRoutine, model.ActivityCommitment,
		model.ActivityMeal, model.ActivityMeal, model.ActivityMeal,
		model.ActivityTask, model.ActivityTask,
	}, types)
	assert.Equal(t, []string{MorningRoutineName, "Standup", "Breakfast", "Lunch", "Dinner", "Report", "Inbox"}, names)

	commit := list.Activities[1]
	assert.True(t, commit.Fixed)
	assert.Equal(t, at(9, 0), commit.StartTime)
	assert.Equal(t, 30, commit.DurationMinutes)

	assert.Equal(t, 15, list.Activities[2].DurationMinutes)
	assert.Equal(t, 30, list.Activities[3].DurationMinutes)
	assert.Equal(t, 45, list.Activities[4].DurationMinutes)
	assert.Equal(t, 45, list.Activities[5].DurationMinutes)
	assert.Equal(t, 60, list.Activities[6].DurationMinutes, "missing estimate defaults to an hour")

	assert.Equal(t, EveningRoutineName, list.Evening.Name)
	assert.Equal(t, 20, list.Evening.DurationMinutes)
	for _, a := range list.Activities {
		assert.NotEqual(t, EveningRoutineName, a.Name, "evening routine is kept out of the list")
	}
}

func TestBuildActivitiesTaskLimits(t *testing.T) {
	r := DefaultRules()
	tasks := []model.Task{{ID: "1", Title: "a"}, {ID: "2", Title: "b"}, {ID: "3", Title: "c"}, {ID: "4", Title: "d"}}
	cases := map[model.EnergyState]int{model.EnergyLow: 1, model.EnergyMedium: 2, model.EnergyHigh: 3}
	for energy, want := range cases {
		list := BuildActivities(BuildInput{Tasks: tasks, Energy: energy}, r)
		n := 0
		for _, a := range list.Activities {
			if a.Type == model.ActivityTask {
				n++
			}
		}
		assert.Equal(t, want, n, "energy %s", energy)
	}
}

func TestBuildActivitiesFallbacks(t *testing.T) {
	r := DefaultRules()
	list := BuildActivities(BuildInput{
		Energy:  model.EnergyLow,
		Morning: &model.Routine{ID: "r1", Name: "Stretch", EstimatedDurationMinutes: 15},
	}, r)

	require.NotEmpty(t, list.Activities)
	assert.Equal(t, "Stretch", list.Activities[0].Name)
	assert.Equal(t, 15, list.Activities[0].DurationMinutes)
	assert.Equal(t, "r1", list.Activities[0].SourceID)

	last := list.Activities[len(list.Activities)-1]
	assert.Equal(t, FocusBlockName, last.Name)
	assert.Equal(t, model.ActivityTask, last.Type)
	assert.Equal(t, 60, last.DurationMinutes)
}
