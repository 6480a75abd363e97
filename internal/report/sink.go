package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/scan-io-git/scanio-lint/internal/issues"
)

// Level is how strongly an annotation is reported.
type Level string

const (
	LevelWarn Level = "warn"
	LevelFail Level = "fail"
)

// Annotation is a message attached to a file line. File is empty for messages that
// belong to the change as a whole.
type Annotation struct {
	Message  string
	File     string
	Line     int
	Level    Level
	RuleID   string
	Reason   string
	Severity issues.Severity
}

// Anchored reports whether the annotation points at a file line.
func (a Annotation) Anchored() bool {
	return a.File != "" && a.Line > 0
}

// Sink receives rendered output.
type Sink interface {
	Markdown(ctx context.Context, text string) error
	Annotate(ctx context.Context, a Annotation) error
	// Flush is called once, after everything has been sent.
	Flush(ctx context.Context) error
}

// ConsoleSink writes output for a terminal or CI log.
type ConsoleSink struct {
	Out io.Writer
}

func (c *ConsoleSink) Markdown(_ context.Context, text string) error {
	_, err := fmt.Fprintln(c.Out, text)
	return err
}

func (c *ConsoleSink) Annotate(_ context.Context, a Annotation) error {
	paint := color.New(color.FgYellow)
	if a.Level == LevelFail {
		paint = color.New(color.FgRed, color.Bold)
	}

	tag := paint.Sprintf("[%s]", a.Level)
	if a.Anchored() {
		_, err := fmt.Fprintf(c.Out, "%s %s:%d %s\n", tag, a.File, a.Line, a.Message)
		return err
	}
	_, err := fmt.Fprintf(c.Out, "%s %s\n", tag, a.Message)
	return err
}

func (c *ConsoleSink) Flush(context.Context) error { return nil }

// Recorder keeps everything it receives in memory.
type Recorder struct {
	mu          sync.Mutex
	Markdowns   []string
	Annotations []Annotation
	Flushed     int
}

func (r *Recorder) Markdown(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Markdowns = append(r.Markdowns, text)
	return nil
}

func (r *Recorder) Annotate(_ context.Context, a Annotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Annotations = append(r.Annotations, a)
	return nil
}

func (r *Recorder) Flush(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Flushed++
	return nil
}

// Messages returns the annotation messages at level.
func (r *Recorder) Messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, a := range r.Annotations {
		if a.Level == level {
			out = append(out, a.Message)
		}
	}
	return out
}

// MultiSink fans out to every sink. All sinks are tried; errors are joined.
type MultiSink []Sink

func (m MultiSink) Markdown(ctx context.Context, text string) error {
	return m.each(func(s Sink) error { return s.Markdown(ctx, text) })
}

func (m MultiSink) Annotate(ctx context.Context, a Annotation) error {
	return m.each(func(s Sink) error { return s.Annotate(ctx, a) })
}

func (m MultiSink) Flush(ctx context.Context) error {
	return m.each(func(s Sink) error { return s.Flush(ctx) })
}

func (m MultiSink) each(fn func(Sink) error) error {
	var errs []error
	for _, s := range m {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
