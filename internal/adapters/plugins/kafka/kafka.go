// Package kafka publishes alert groups to a Kafka topic keyed by group key.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
)

// Type is the plugin type name used in declarations.
const Type = "kafka"

const (
	defaultWriteTimeout = 10 * time.Second
	defaultDialTimeout  = 5 * time.Second
)

// Config is the type-specific block of a kafka declaration.
type Config struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// RequiredAcks is one of "none", "one" (default) or "all".
	RequiredAcks string `yaml:"required_acks"`
	// CreateTopic creates the topic on Initialize when it does not exist.
	CreateTopic bool `yaml:"create_topic"`
	Partitions  int  `yaml:"partitions"`
}

// Validate checks required settings.
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return apperrors.ValidationField("brokers", "at least one broker is required")
	}
	for _, b := range c.Brokers {
		if strings.TrimSpace(b) == "" {
			return apperrors.ValidationField("brokers", "broker address must not be empty")
		}
	}
	if c.Topic == "" {
		return apperrors.ValidationField("topic", "topic is required")
	}
	if _, err := parseAcks(c.RequiredAcks); err != nil {
		return apperrors.ValidationField("required_acks", err.Error())
	}
	return nil
}

func parseAcks(s string) (kafkago.RequiredAcks, error) {
	switch strings.ToLower(s) {
	case "", "one":
		return kafkago.RequireOne, nil
	case "all":
		return kafkago.RequireAll, nil
	case "none":
		return kafkago.RequireNone, nil
	default:
		return 0, fmt.Errorf("unknown required_acks %q", s)
	}
}

// messageWriter is the subset of *kafka.Writer the plugin uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Plugin is the Kafka sink.
type Plugin struct {
	id     model.PluginIdentity
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	writer messageWriter
}

var _ core.Plugin = (*Plugin)(nil)

// New validates cfg and returns an uninitialized plugin.
func New(id model.PluginIdentity, cfg Config, logger *slog.Logger) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 3
	}
	for i := range cfg.Brokers {
		cfg.Brokers[i] = strings.TrimSpace(cfg.Brokers[i])
	}
	return &Plugin{
		id:     id,
		cfg:    cfg,
		logger: logger.With("component", "plugin", "plugin_type", Type, "plugin_name", id.Name),
		now:    time.Now,
	}, nil
}

// Meta implements core.Plugin.
func (p *Plugin) Meta() model.PluginIdentity { return p.id }

// Initialize checks the topic exists, creating it when configured, and builds
// a synchronous writer.
func (p *Plugin) Initialize(ctx context.Context) error {
	partitions, err := p.readPartitions(ctx)
	if err != nil {
		if !p.cfg.CreateTopic {
			return err
		}
		if createErr := p.createTopic(ctx); createErr != nil {
			return errors.Join(err, createErr)
		}
		p.logger.InfoContext(ctx, "created topic", "topic", p.cfg.Topic, "partitions", p.cfg.Partitions)
	} else {
		p.logger.InfoContext(ctx, "topic available", "topic", p.cfg.Topic, "partitions", partitions)
	}

	acks, _ := parseAcks(p.cfg.RequiredAcks)
	p.setWriter(&kafkago.Writer{
		Addr:         kafkago.TCP(p.cfg.Brokers...),
		Topic:        p.cfg.Topic,
		Balancer:     &kafkago.Hash{},
		WriteTimeout: p.cfg.WriteTimeout,
		RequiredAcks: acks,
		MaxAttempts:  1,
		Async:        false,
	})
	return nil
}

func (p *Plugin) setWriter(w messageWriter) {
	p.mu.Lock()
	p.writer = w
	p.mu.Unlock()
}

func (p *Plugin) dial(ctx context.Context) (*kafkago.Conn, error) {
	dialer := &kafkago.Dialer{Timeout: defaultDialTimeout}
	var errs []error
	for _, broker := range p.cfg.Brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn, nil
		}
		errs = append(errs, fmt.Errorf("dial %s: %w", broker, err))
	}
	return nil, errors.Join(errs...)
}

func (p *Plugin) readPartitions(ctx context.Context) (int, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	parts, err := conn.ReadPartitions(p.cfg.Topic)
	if err != nil {
		return 0, fmt.Errorf("read partitions of %s: %w", p.cfg.Topic, err)
	}
	if len(parts) == 0 {
		return 0, fmt.Errorf("topic %s has no partitions", p.cfg.Topic)
	}
	return len(parts), nil
}

// createTopic issues CreateTopics against the controller broker.
func (p *Plugin) createTopic(ctx context.Context) error {
	conn, err := p.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}
	addr := net.JoinHostPort(controller.Host, fmt.Sprint(controller.Port))
	cc, err := (&kafkago.Dialer{Timeout: defaultDialTimeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", addr, err)
	}
	defer func() { _ = cc.Close() }()

	if err := cc.CreateTopics(kafkago.TopicConfig{
		Topic:             p.cfg.Topic,
		NumPartitions:     p.cfg.Partitions,
		ReplicationFactor: 1,
	}); err != nil {
		return fmt.Errorf("create topic %s: %w", p.cfg.Topic, err)
	}
	return nil
}

// Health dials a broker and reads the topic's partitions.
func (p *Plugin) Health(ctx context.Context) error {
	if _, err := p.currentWriter(); err != nil {
		return err
	}
	_, err := p.readPartitions(ctx)
	return err
}

func (p *Plugin) currentWriter() (messageWriter, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.writer == nil {
		return nil, core.ErrPluginNotInitialized
	}
	return p.writer, nil
}

// Push writes one message keyed by the group key and waits for the ack.
func (p *Plugin) Push(ctx context.Context, group *model.AlertGroup) error {
	w, err := p.currentWriter()
	if err != nil {
		return err
	}
	msg, err := p.message(group)
	if err != nil {
		return err
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", p.cfg.Topic, err)
	}
	return nil
}

func (p *Plugin) message(group *model.AlertGroup) (kafkago.Message, error) {
	payload, err := group.Payload()
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(group.GroupKey),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(group.Status)},
			{Key: "receiver", Value: []byte(group.Receiver)},
			{Key: "plugin", Value: []byte(p.id.Name)},
		},
		Time: p.now().UTC(),
	}, nil
}

// Close flushes and closes the writer.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}
