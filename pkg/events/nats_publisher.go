package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	internalnats "github.com/wehubfusion/Fabula/internal/nats"
)

// NATSPublisher publishes play events to a JetStream stream, one subject per
// session.
type NATSPublisher struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	stream  string
	subject string
	logger  *zap.Logger
}

// NATSConfig assembles a NATSPublisher.
type NATSConfig struct {
	// URL is the NATS server URL.
	URL string
	// Stream is the JetStream stream name. Defaults to "FABULA".
	Stream string
	// Subject is the publish subject. Defaults to "fabula.play".
	Subject string
	// Logger is the zap logger. Required.
	Logger *zap.Logger
}

// NewNATSPublisher connects to NATS, ensures the event stream exists and
// returns a publisher.
func NewNATSPublisher(ctx context.Context, cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.Stream == "" {
		cfg.Stream = "FABULA"
	}
	if cfg.Subject == "" {
		cfg.Subject = "fabula.play"
	}

	conn, err := internalnats.Connect(ctx, internalnats.DefaultConnectionConfig(cfg.URL), cfg.Logger)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		_ = internalnats.Close(conn)
		return nil, fmt.Errorf("JetStream context is not available: %w", err)
	}

	if err := ensureStream(js, cfg.Stream, cfg.Subject, cfg.Logger); err != nil {
		_ = internalnats.Close(conn)
		return nil, fmt.Errorf("failed to ensure stream '%s' exists: %w", cfg.Stream, err)
	}

	return &NATSPublisher{
		conn:    conn,
		js:      js,
		stream:  cfg.Stream,
		subject: cfg.Subject,
		logger:  cfg.Logger,
	}, nil
}

func ensureStream(js nats.JetStreamContext, streamName, subject string, logger *zap.Logger) error {
	_, err := js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if err != nats.ErrStreamNotFound {
		return fmt.Errorf("failed to get stream info for '%s': %w", streamName, err)
	}

	logger.Info("Creating JetStream stream", zap.String("stream", streamName))
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{fmt.Sprintf("%s.>", subject)},
		Storage:  nats.FileStorage,
		Replicas: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream '%s': %w", streamName, err)
	}
	return nil
}

// Publish implements Publisher. Events are serialized to JSON and published
// under the session's subject.
func (p *NATSPublisher) Publish(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", p.subject, ev.SessionID)
	if _, err := p.js.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish play event",
			zap.String("subject", subject),
			zap.String("type", string(ev.Type)),
			zap.Error(err))
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Close drains the underlying connection.
func (p *NATSPublisher) Close() error {
	return internalnats.Close(p.conn)
}
