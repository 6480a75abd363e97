// Package webhook delivers a run's report to an HTTP endpoint as JSON.
package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-lint/internal/report"
)

// Payload is the body posted on Flush.
type Payload struct {
	RunID       string       `json:"run_id"`
	Tool        string       `json:"tool"`
	CreatedAt   time.Time    `json:"created_at"`
	Markdown    []string     `json:"markdown,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation is the wire form of report.Annotation.
type Annotation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Level   string `json:"level"`
	RuleID  string `json:"rule_id,omitempty"`
}

// Sink buffers everything and posts one payload on Flush.
type Sink struct {
	mu      sync.Mutex
	client  *resty.Client
	url     string
	payload Payload
	logger  hclog.Logger
}

// NewSink returns a sink posting to url through client.
func NewSink(client *resty.Client, url, toolName string, logger hclog.Logger) *Sink {
	return &Sink{
		client: client,
		url:    url,
		payload: Payload{
			RunID: uuid.New().String(),
			Tool:  toolName,
		},
		logger: logger,
	}
}

// RunID identifies the payload this sink will send.
func (s *Sink) RunID() string {
	return s.payload.RunID
}

func (s *Sink) Markdown(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload.Markdown = append(s.payload.Markdown, text)
	return nil
}

func (s *Sink) Annotate(_ context.Context, a report.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload.Annotations = append(s.payload.Annotations, Annotation{
		Message: a.Message,
		File:    a.File,
		Line:    a.Line,
		Level:   string(a.Level),
		RuleID:  a.RuleID,
	})
	return nil
}

func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payload.CreatedAt = time.Now().UTC()
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Scanio-Run-Id", s.payload.RunID).
		SetBody(s.payload).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("failed to post report to webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode())
	}

	s.logger.Debug("report posted to webhook", "run_id", s.payload.RunID, "status", resp.StatusCode())
	return nil
}
