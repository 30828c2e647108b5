package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/dayplan/app"
	"github.com/kilianp07/dayplan/config"
	"github.com/kilianp07/dayplan/core/factory"
	"github.com/kilianp07/dayplan/core/model"
)

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
	apiToken     = "e2e-api"
)

// junitReport is a minimal representation of a JUnit XML report. The E2E
// suite writes such a report so CI systems can display the results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// startInflux starts an InfluxDB 2.7 container initialised with the e2e
// org, bucket and token.
func startInflux(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

// startMosquitto spins up a basic Mosquitto broker for tests.
func startMosquitto(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:1.6",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("dayplan"),
		postgrescontainer.WithUsername("dayplan"),
		postgrescontainer.WithPassword("dayplan"),
		tc.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("unable to start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })
	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func call(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+apiToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Test_E2E_PlanLifecycle runs the service against Postgres, InfluxDB and
// Mosquitto, generates and degrades a plan over HTTP and checks every
// side channel.
func Test_E2E_PlanLifecycle(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	influxURL := startInflux(ctx, t)
	broker := startMosquitto(ctx, t)
	dsn := startPostgres(ctx, t)

	cfg := config.Default()
	cfg.Store = config.StoreConfig{Backend: "postgres", DSN: dsn}
	cfg.Journal.Backend = "sqlite"
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	cfg.HTTP.Addr = freeAddr(t)
	cfg.HTTP.Token = apiToken
	cfg.Watch.Disabled = true
	cfg.MQTT.Broker = broker
	cfg.MQTT.ClientID = "e2e-service"
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "influx", Conf: map[string]any{
		"url": influxURL, "token": influxToken, "org": influxOrg, "bucket": influxBucket,
	}}}
	require.NoError(t, cfg.Validate())

	svc, err := app.New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	runCtx, stop := context.WithCancel(ctx)
	runErr := make(chan error, 1)
	go func() { runErr <- svc.Run(runCtx) }()

	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-sub"))
	tok := sub.Connect()
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())
	defer sub.Disconnect(100)
	snapshots := make(chan model.DailyPlan, 8)
	tok = sub.Subscribe("dayplan/users/e2e-user/plan", 1, func(_ paho.Client, m paho.Message) {
		var p model.DailyPlan
		if json.Unmarshal(m.Payload(), &p) == nil {
			snapshots <- p
		}
	})
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())

	base := "http://" + cfg.HTTP.Addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/metrics")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 100*time.Millisecond)

	d := time.Now().UTC().Add(24 * time.Hour)
	wake := time.Date(d.Year(), d.Month(), d.Day(), 7, 0, 0, 0, time.UTC)
	resp := call(t, http.MethodPost, base+"/api/plans", map[string]any{
		"user_id":      "e2e-user",
		"wake_time":    wake,
		"sleep_time":   wake.Add(16 * time.Hour),
		"energy_state": "medium",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var plan model.DailyPlan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plan))
	_ = resp.Body.Close()

	select {
	case p := <-snapshots:
		assert.Equal(t, plan.ID, p.ID)
	case <-time.After(10 * time.Second):
		t.Fatal("plan snapshot not published")
	}

	resp = call(t, http.MethodPost, base+"/api/plans/"+plan.ID+"/degrade", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = call(t, http.MethodGet, base+"/api/plans/"+plan.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stored model.DailyPlan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	_ = resp.Body.Close()
	assert.Equal(t, model.PlanDegraded, stored.Status)

	influx := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer influx.Close()
	require.NoError(t, influx.SetupBucket(ctx))
	assert.Eventually(t, func() bool {
		n, err := influx.CountPoints(ctx, "plan_generated", "user_id", "e2e-user")
		return err == nil && n > 0
	}, 10*time.Second, 200*time.Millisecond)

	assert.Eventually(t, func() bool {
		resp := call(t, http.MethodGet, base+"/api/journal?plan_id="+plan.ID, nil)
		defer func() { _ = resp.Body.Close() }()
		var recs []map[string]any
		return json.NewDecoder(resp.Body).Decode(&recs) == nil && len(recs) >= 2
	}, 5*time.Second, 100*time.Millisecond)

	stop()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("service did not stop")
	}

	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{
		Name: "Test_E2E_PlanLifecycle", Time: time.Since(started).Seconds(),
	}}}
	if err := writeJUnit(filepath.Join(t.TempDir(), "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
