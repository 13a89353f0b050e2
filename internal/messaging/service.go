// Package messaging publishes lane configuration updates over NATS.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/lionsgate-lanes/internal/lanes"
)

// Options holds the connection settings.
type Options struct {
	URL            string
	Subject        string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

type Service struct {
	conn    *nats.Conn
	subject string
}

func NewService(opts Options) (*Service, error) {
	if opts.Subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}
	natsOpts := []nats.Option{
		nats.Name("lionsgate-lanes"),
		nats.Timeout(opts.ConnectTimeout),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", opts.URL, err)
	}

	log.Info().Str("url", opts.URL).Str("subject", opts.Subject).Msg("NATS connection established")

	return &Service{
		conn:    conn,
		subject: opts.Subject,
	}, nil
}

// Subject returns the subject updates are published on.
func (s *Service) Subject() string { return s.subject }

// RefreshSubject is where other services can request an immediate cycle.
func (s *Service) RefreshSubject() string { return s.subject + ".refresh" }

// Publish sends cfg as JSON on the configured subject.
func (s *Service) Publish(_ context.Context, cfg lanes.LaneConfig) error {
	payload, err := Encode(cfg)
	if err != nil {
		return err
	}
	return s.conn.Publish(s.subject, payload)
}

// SubscribeRefresh calls handler for every message on RefreshSubject.
// Handlers run on the NATS delivery goroutine.
func (s *Service) SubscribeRefresh(handler func()) (*nats.Subscription, error) {
	return s.conn.Subscribe(s.RefreshSubject(), func(msg *nats.Msg) {
		log.Debug().Str("subject", msg.Subject).Msg("Refresh requested over NATS")
		handler()
	})
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	done := make(chan struct{})
	s.conn.SetClosedHandler(func(*nats.Conn) { close(done) })

	// Try graceful drain, fall back to immediate close
	if err := s.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		s.conn.Close()
		return nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		s.conn.Close()
	}
	return nil
}

// Encode is the wire form of a lane configuration update.
func Encode(cfg lanes.LaneConfig) ([]byte, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode lane config: %w", err)
	}
	return payload, nil
}
