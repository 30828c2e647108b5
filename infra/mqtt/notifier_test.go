package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/notify"
)

func TestNotifyBehindPublishesAlert(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883", QoS: map[string]byte{"alert": 1}})
	require.NoError(t, err)

	alert := notify.Alert{UserID: "u1", PlanID: "p1", BlockID: "b3", BlockName: "Report", Overdue: 45 * time.Minute}
	require.NoError(t, n.NotifyBehind(context.Background(), alert))

	msgs := mc.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "dayplan/users/u1/alerts/behind", msgs[0].topic)
	assert.Equal(t, byte(1), msgs[0].qos)
	assert.False(t, msgs[0].retained)

	var got notify.Alert
	require.NoError(t, json.Unmarshal(msgs[0].payload, &got))
	assert.Equal(t, alert.BlockID, got.BlockID)
	assert.Equal(t, alert.Overdue, got.Overdue)
}

func TestPublishPlanIsRetained(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883", TopicPrefix: "home"})
	require.NoError(t, err)

	plan := model.DailyPlan{ID: "p1", UserID: "u1", Status: model.PlanActive}
	require.NoError(t, n.PublishPlan(context.Background(), plan))

	msgs := mc.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "home/users/u1/plan", msgs[0].topic)
	assert.True(t, msgs[0].retained)
}

func TestPublishRetries(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	useMock(t, mc)
	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)

	require.NoError(t, n.NotifyBehind(context.Background(), notify.Alert{UserID: "u1"}))
	assert.Len(t, mc.messages(), 2)
}

func TestPublishHonorsContext(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("down"), fmt.Errorf("down"), fmt.Errorf("down")}}
	useMock(t, mc)
	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 10_000})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = n.NotifyBehind(ctx, notify.Alert{UserID: "u1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, mc.messages(), 1)
}
