package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/monitoring"
	"github.com/kilianp07/dayplan/core/notify"
	"github.com/kilianp07/dayplan/infra/logger"
)

// Notifier publishes behind-schedule alerts and plan snapshots to per-user
// topics:
//
//	<prefix>/users/<user>/alerts/behind
//	<prefix>/users/<user>/plan            (retained)
type Notifier struct {
	cli        pahoClient
	prefix     string
	qos        map[string]byte
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewNotifier connects to the broker.
func NewNotifier(cfg Config) (*Notifier, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_notifier")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Notifier{
		cli:        c,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}, nil
}

// AlertTopic is the topic behind-schedule alerts for user are sent to.
func (n *Notifier) AlertTopic(userID string) string {
	return fmt.Sprintf("%s/users/%s/alerts/behind", n.prefix, userID)
}

// PlanTopic is the retained topic holding the user's latest plan.
func (n *Notifier) PlanTopic(userID string) string {
	return fmt.Sprintf("%s/users/%s/plan", n.prefix, userID)
}

// NotifyBehind publishes the alert as JSON.
func (n *Notifier) NotifyBehind(ctx context.Context, a notify.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	err = n.publish(ctx, n.AlertTopic(a.UserID), n.qos["alert"], false, payload)
	if err != nil {
		monitoring.CaptureException(err, map[string]string{"module": "mqtt", "user_id": a.UserID, "plan_id": a.PlanID})
	}
	return err
}

// PublishPlan publishes the plan as a retained JSON message.
func (n *Notifier) PublishPlan(ctx context.Context, plan model.DailyPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	err = n.publish(ctx, n.PlanTopic(plan.UserID), n.qos["plan"], true, payload)
	if err != nil {
		monitoring.CaptureException(err, map[string]string{"module": "mqtt", "user_id": plan.UserID, "plan_id": plan.ID})
	}
	return err
}

// publish retries with exponential backoff until ctx is done.
func (n *Notifier) publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	var publishErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		token := n.cli.Publish(topic, qos, retained, payload)
		select {
		case <-token.Done():
			publishErr = token.Error()
		case <-ctx.Done():
			return ctx.Err()
		}
		if publishErr == nil {
			n.log.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		n.log.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt == n.maxRetries {
			break
		}
		select {
		case <-time.After(n.backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (n *Notifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}

var _ notify.Notifier = (*Notifier)(nil)
