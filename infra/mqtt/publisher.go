package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/arbitrage/core/model"
	coremon "github.com/kilianp07/arbitrage/core/monitoring"
	"github.com/kilianp07/arbitrage/infra/logger"
)

// RunReport is the payload published for every completed run.
type RunReport struct {
	RunID       string                `json:"run_id"`
	MarketID    string                `json:"market_id"`
	Profile     string                `json:"profile"`
	Time        time.Time             `json:"time"`
	Intervals   int                   `json:"intervals"`
	TotalCycles int                   `json:"total_cycles"`
	Revenue     int                   `json:"revenue"`
	Schedule    []model.ScheduleEntry `json:"data,omitempty"`
}

// ResultPublisher sends run reports to downstream consumers.
type ResultPublisher interface {
	PublishResult(ctx context.Context, r RunReport) error
	Close()
}

// NopPublisher drops every report. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishResult(context.Context, RunReport) error { return nil }
func (NopPublisher) Close()                                         {}

// Publisher publishes run reports on an MQTT broker.
type Publisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	status     string
	log        logger.Logger
}

// NewPublisher connects to the broker described by cfg.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	p := &Publisher{
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		status:     cfg.StatusTopic(),
		log:        log,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		c.Publish(p.status, 1, true, "online")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	p.cli = c
	return p, nil
}

// Topic returns the topic a report for market and profile is published on.
func (p *Publisher) Topic(market, profile string) string {
	return fmt.Sprintf("%s/%s/%s", p.prefix, segment(market, "adhoc"), segment(profile, "custom"))
}

// segment makes s usable as a single topic level.
func segment(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}

// PublishResult publishes r, retrying with exponential backoff. Failures are
// reported to the monitor.
func (p *Publisher) PublishResult(ctx context.Context, r RunReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	topic := p.Topic(r.MarketID, r.Profile)

	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			p.log.Debugf("published run %s to %s", r.RunID, topic)
			return nil
		}
		p.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			publishErr = errors.Join(publishErr, ctx.Err())
			attempt = p.maxRetries
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	coremon.CaptureException(publishErr, map[string]string{"module": "mqtt", "market": r.MarketID, "profile": r.Profile})
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Close publishes the offline status and disconnects.
func (p *Publisher) Close() {
	if p.cli == nil || !p.cli.IsConnected() {
		return
	}
	p.cli.Publish(p.status, 1, true, "offline").WaitTimeout(time.Second)
	p.cli.Disconnect(250)
}
