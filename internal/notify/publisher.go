// Package notify publishes generation progress to an MQTT broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rtm0/solargrid/internal/pipeline"
)

// Config configures the publisher.
type Config struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Timeout     time.Duration
}

// Publisher sends one retained message per written day and one per run.
// A disabled publisher accepts every call and sends nothing.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	timeout     time.Duration
	enabled     bool
}

var _ pipeline.Observer = (*Publisher)(nil)

// NewPublisher connects to the broker when cfg.Enabled is set.
func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{enabled: false}, nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Warn("MQTT connection lost", "err", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Info("MQTT connected", "broker", cfg.Broker)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, err)
	}
	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		timeout:     cfg.Timeout,
		enabled:     true,
	}, nil
}

// DayMessage is the payload announcing a written day.
type DayMessage struct {
	Day              string  `json:"day"`
	File             string  `json:"file"`
	Worker           int     `json:"worker"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	MaxIrradiance    float64 `json:"max_irradiance_w_m2"`
	MeanIrradiance   float64 `json:"mean_irradiance_w_m2"`
	DaylightFraction float64 `json:"daylight_fraction"`
}

// RunMessage is the payload announcing the end of a run.
type RunMessage struct {
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Written     int      `json:"written"`
	Failed      []string `json:"failed"`
	Unprocessed []string `json:"unprocessed"`
}

// Observe implements pipeline.Observer.
func (p *Publisher) Observe(_ context.Context, res pipeline.DayResult) error {
	if !p.enabled {
		return nil
	}
	topic, payload, err := dayMessage(p.topicPrefix, res)
	if err != nil {
		return err
	}
	return p.publish(topic, payload)
}

// PublishSummary announces the outcome of a run.
func (p *Publisher) PublishSummary(sum pipeline.Summary) error {
	if !p.enabled {
		return nil
	}
	topic, payload, err := runMessage(p.topicPrefix, sum)
	if err != nil {
		return err
	}
	return p.publish(topic, payload)
}

func (p *Publisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}

func dayMessage(prefix string, res pipeline.DayResult) (string, []byte, error) {
	payload, err := json.Marshal(DayMessage{
		Day:              res.Day.Format(time.DateOnly),
		File:             res.Path,
		Worker:           res.Worker,
		ElapsedSeconds:   res.Elapsed.Seconds(),
		MaxIrradiance:    res.Stats.MaxIrradiance,
		MeanIrradiance:   res.Stats.MeanIrradiance,
		DaylightFraction: res.Stats.DaylightFraction,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal day: %w", err)
	}
	return fmt.Sprintf("%s/day/%s", prefix, res.Day.Format("20060102")), payload, nil
}

func runMessage(prefix string, sum pipeline.Summary) (string, []byte, error) {
	msg := RunMessage{
		Start:       sum.Start.Format(time.DateOnly),
		End:         sum.End.Format(time.DateOnly),
		Written:     len(sum.Written),
		Failed:      []string{},
		Unprocessed: []string{},
	}
	for _, f := range sum.Failed {
		msg.Failed = append(msg.Failed, f.Day.Format(time.DateOnly))
	}
	for _, d := range sum.Unprocessed {
		msg.Unprocessed = append(msg.Unprocessed, d.Format(time.DateOnly))
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal run summary: %w", err)
	}
	return prefix + "/run", payload, nil
}
