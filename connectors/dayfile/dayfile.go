// Package dayfile reads a single day's inputs from a YAML file. Times are
// wall-clock "HH:MM" values on the file's date and timezone.
//
//	user_id: u1
//	date: 2025-03-04
//	timezone: Europe/Paris
//	wake: "07:00"
//	sleep: "23:00"
//	energy: medium
//	location: home
//	commitments:
//	  - {id: c1, title: Standup, start: "10:00", end: "11:00", location: office}
//	tasks:
//	  - {id: t1, title: Report, estimated_duration_minutes: 45}
//	morning_routine: {id: r1, name: Stretch, estimated_duration_minutes: 20}
//	exits:
//	  - {commitment_id: c1, exit: "09:20", travel_minutes: 30, preparation_minutes: 10, method: bike}
package dayfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dayplan/core/dayplan"
	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/planner"
	"github.com/kilianp07/dayplan/core/provider"
)

type file struct {
	UserID         string         `yaml:"user_id"`
	Date           string         `yaml:"date"`
	Timezone       string         `yaml:"timezone"`
	Wake           string         `yaml:"wake"`
	Sleep          string         `yaml:"sleep"`
	Energy         string         `yaml:"energy"`
	Location       string         `yaml:"location"`
	Commitments    []commitment   `yaml:"commitments"`
	Tasks          []model.Task   `yaml:"tasks"`
	MorningRoutine *model.Routine `yaml:"morning_routine"`
	EveningRoutine *model.Routine `yaml:"evening_routine"`
	Exits          []exit         `yaml:"exits"`
}

type commitment struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Location string `yaml:"location"`
}

type exit struct {
	CommitmentID       string `yaml:"commitment_id"`
	Exit               string `yaml:"exit"`
	TravelMinutes      int    `yaml:"travel_minutes"`
	PreparationMinutes int    `yaml:"preparation_minutes"`
	Method             string `yaml:"method"`
}

// Day is a parsed day file.
type Day struct {
	UserID   string
	Date     time.Time
	Wake     time.Time
	Sleep    time.Time
	Energy   model.EnergyState
	Location string
	// Data serves the file's commitments, tasks, routines and exits.
	Data *provider.Static
}

// Load reads the day file at path.
func Load(path string) (*Day, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a day file.
func Parse(r io.Reader) (*Day, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty day file")
		}
		return nil, err
	}
	if f.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	loc := time.UTC
	if f.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(f.Timezone); err != nil {
			return nil, fmt.Errorf("timezone: %w", err)
		}
	}
	date, err := time.ParseInLocation(model.DateLayout, f.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	at := func(field, s string) (time.Time, error) {
		c, err := planner.ParseClock(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", field, err)
		}
		return c.On(date), nil
	}

	d := &Day{UserID: f.UserID, Date: date, Location: f.Location, Data: &provider.Static{
		Tasks:   f.Tasks,
		Morning: f.MorningRoutine,
		Evening: f.EveningRoutine,
	}}
	if d.Wake, err = at("wake", f.Wake); err != nil {
		return nil, err
	}
	if d.Sleep, err = at("sleep", f.Sleep); err != nil {
		return nil, err
	}
	energy := f.Energy
	if energy == "" {
		energy = string(model.EnergyMedium)
	}
	if d.Energy, err = model.ParseEnergyState(energy); err != nil {
		return nil, err
	}

	for i, c := range f.Commitments {
		cm := model.Commitment{ID: c.ID, Title: c.Title, Location: c.Location}
		if cm.ID == "" {
			cm.ID = fmt.Sprintf("commitment-%d", i+1)
		}
		if cm.StartTime, err = at("commitments["+cm.ID+"].start", c.Start); err != nil {
			return nil, err
		}
		if cm.EndTime, err = at("commitments["+cm.ID+"].end", c.End); err != nil {
			return nil, err
		}
		if !cm.EndTime.After(cm.StartTime) {
			return nil, fmt.Errorf("commitment %s ends before it starts", cm.ID)
		}
		d.Data.CommitmentList = append(d.Data.CommitmentList, cm)
	}
	for _, e := range f.Exits {
		et := model.ExitTime{
			CommitmentID:           e.CommitmentID,
			TravelDurationMinutes:  e.TravelMinutes,
			PreparationTimeMinutes: e.PreparationMinutes,
			TravelMethod:           e.Method,
		}
		if et.ExitTime, err = at("exits["+e.CommitmentID+"].exit", e.Exit); err != nil {
			return nil, err
		}
		d.Data.Exits = append(d.Data.Exits, et)
	}
	return d, nil
}

// Request returns the generation request described by the file.
func (d *Day) Request(replace bool) dayplan.GenerateRequest {
	return dayplan.GenerateRequest{
		UserID:   d.UserID,
		Date:     d.Date,
		Wake:     d.Wake,
		Sleep:    d.Sleep,
		Energy:   d.Energy,
		Location: d.Location,
		Replace:  replace,
	}
}
