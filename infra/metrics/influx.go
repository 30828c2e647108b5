package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dayplan/core/metrics"
	"github.com/kilianp07/dayplan/infra/logger"
)

// InfluxConfig addresses an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes plan events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPlanGenerated writes one plan_generated point.
func (s *InfluxSink) RecordPlanGenerated(ev coremetrics.PlanGeneratedEvent) error {
	p := write.NewPointWithMeasurement("plan_generated").
		AddTag("plan_id", ev.PlanID).
		AddTag("user_id", ev.UserID).
		AddTag("energy", string(ev.Energy)).
		AddTag("tail_plan", strconv.FormatBool(ev.TailPlan)).
		AddField("blocks", ev.Blocks).
		AddField("skipped", ev.Skipped).
		AddField("unplaced", ev.Unplaced).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordMealPlacement writes one meal_placement point.
func (s *InfluxSink) RecordMealPlacement(ev coremetrics.MealPlacementEvent) error {
	p := write.NewPointWithMeasurement("meal_placement").
		AddTag("plan_id", ev.PlanID).
		AddTag("meal", ev.Meal).
		AddTag("placed", strconv.FormatBool(ev.Placed)).
		AddTag("reason", string(ev.Reason)).
		AddField("skip_reason", ev.SkipReason).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordDegradation writes one plan_degraded point.
func (s *InfluxSink) RecordDegradation(ev coremetrics.DegradationEvent) error {
	p := write.NewPointWithMeasurement("plan_degraded").
		AddTag("plan_id", ev.PlanID).
		AddTag("user_id", ev.UserID).
		AddField("dropped", ev.Dropped).
		AddField("deleted", ev.Deleted).
		AddField("created", ev.Created).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordBehindSchedule writes one behind_schedule point.
func (s *InfluxSink) RecordBehindSchedule(ev coremetrics.BehindScheduleEvent) error {
	p := write.NewPointWithMeasurement("behind_schedule").
		AddTag("plan_id", ev.PlanID).
		AddTag("user_id", ev.UserID).
		AddTag("block_id", ev.BlockID).
		AddTag("activity_type", string(ev.Type)).
		AddField("overdue_min", round3(ev.Overdue.Minutes())).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordBlockTransition writes one block_transition point.
func (s *InfluxSink) RecordBlockTransition(ev coremetrics.BlockTransitionEvent) error {
	p := write.NewPointWithMeasurement("block_transition").
		AddTag("plan_id", ev.PlanID).
		AddTag("activity_type", string(ev.Type)).
		AddTag("status", string(ev.Status)).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.write(p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
