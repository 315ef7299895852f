// Package cli runs the intake questionnaire on a terminal.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"

	"github.com/PabloGalante/medibot/internal/app/conversation"
	"github.com/PabloGalante/medibot/internal/domain"
	"github.com/PabloGalante/medibot/internal/observability"
)

const AnalysisHeading = "## Disease Analysis Report"

type Shell struct {
	svc *conversation.Service
	in  io.Reader
	out io.Writer
}

func NewShell(svc *conversation.Service, in io.Reader, out io.Writer) *Shell {
	return &Shell{svc: svc, in: in, out: out}
}

// Run holds one session from greeting to analysis. It returns nil when the
// questionnaire completes or the input ends early, and ctx.Err() when ctx is
// done while waiting for input.
func (s *Shell) Run(ctx context.Context) error {
	start, err := s.svc.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	id := start.Session.ID
	log := observability.LoggerFromContext(observability.WithSessionID(ctx, string(id)))
	defer func() {
		if err := s.svc.EndSession(context.WithoutCancel(ctx), id); err != nil {
			log.Warn("failed to end session", "error", err)
		}
	}()

	s.printMessages(start.Messages)

	done := make(chan struct{})
	defer close(done)

	lines, readErr := s.readLines(done)
	for {
		fmt.Fprint(s.out, "You: ")

		var text string
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				return <-readErr
			}
			text = line
		}

		out, err := s.svc.SendMessage(ctx, conversation.SendMessageInput{
			SessionID: id,
			Text:      text,
		})
		if err != nil {
			return err
		}
		if !out.Accepted {
			continue
		}

		s.printMessages(out.NewMessages)

		if out.Session.Complete {
			s.printReport(out.Session.Record, out.Analysis, out.AnalysisErr)
			return nil
		}
	}
}

// readLines scans s.in on its own goroutine so Run can stop on ctx while a
// read is blocked. lines is closed at EOF, then readErr yields the scan error.
func (s *Shell) readLines(done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	return lines, readErr
}

// printMessages prints System lines. Patient lines are already on screen.
func (s *Shell) printMessages(msgs []*domain.Message) {
	for _, m := range msgs {
		if m.Author == domain.RoleSystem {
			fmt.Fprintf(s.out, "System: %s\n", m.Text)
		}
	}
}

func (s *Shell) printReport(rec domain.PatientRecord, res *domain.AnalysisResult, genErr error) {
	fmt.Fprintln(s.out)
	fmt.Fprint(s.out, FormatRecord(rec))

	if genErr != nil {
		fmt.Fprintf(s.out, "\nContent generation error: %v\n", genErr)
	}

	fmt.Fprintf(s.out, "\n%s\n\n", AnalysisHeading)
	if res != nil {
		fmt.Fprintln(s.out, res.Text)
	}
}

// FormatRecord renders the record as a markdown table.
func FormatRecord(rec domain.PatientRecord) string {
	var buf bytes.Buffer
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Answer")
	for _, f := range domain.FieldOrder {
		v, _ := rec.Value(f)
		_ = table.Append(f.Label(), v)
	}
	_ = table.Render()
	return buf.String()
}
