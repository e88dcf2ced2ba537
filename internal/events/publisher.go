// Package events publishes verdict notifications so downstream consumers
// (leaderboards, notification fan-out) learn about finished evaluations
// without polling the database.
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// VerdictEvent is the message emitted when a submission reaches a terminal
// status.
type VerdictEvent struct {
	SubmissionID    uint      `json:"submission_id"`
	ProblemID       uint      `json:"problem_id"`
	UserID          uint      `json:"user_id"`
	Status          string    `json:"status"`
	PassedTestCases int       `json:"passed_test_cases"`
	TotalTestCases  int       `json:"total_test_cases"`
	RuntimeMs       int64     `json:"runtime_ms"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Publisher emits verdict events over NATS. A nil connection disables
// publishing, so callers never need to branch on configuration.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewPublisher constructs a publisher. conn may be nil when messaging is not
// configured.
func NewPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "verdict_publisher").Logger(),
	}
}

// PublishVerdict emits the event best-effort. Failures are logged, never
// propagated; a broken broker must not affect verdict persistence.
func (p *Publisher) PublishVerdict(event VerdictEvent) {
	if p == nil || p.conn == nil || p.subject == "" {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to encode verdict event")
		return
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to publish verdict event")
	}
}
