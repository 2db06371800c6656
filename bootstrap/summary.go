package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/workflow"
)

// Step statuses recorded by the summary middleware.
const (
	StatusEvaluated = "evaluated"
	StatusCached    = "cached"
	StatusFailed    = "failed"
)

// StepRecord is the last evaluation of one pipeline step.
type StepRecord struct {
	Index       int
	Description string
	Status      string
	Duration    time.Duration
	Groups      int
	Error       string
}

// GroupInfo describes one group of the final Dataset.
type GroupInfo struct {
	Name   string
	Arrays []string
}

// Summary tracks and displays one run.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	runDuration     time.Duration

	mu     sync.Mutex
	steps  []StepRecord
	output []GroupInfo
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	sectionStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
)

// NewSummary creates a new run summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
	}
}

// SetStartupDuration records the time spent before the task started.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// SetRunDuration records the task's run time.
func (s *Summary) SetRunDuration(d time.Duration) {
	s.runDuration = d
}

// TrackStep records a step evaluation. A later record for the same step
// replaces the earlier one.
func (s *Summary) TrackStep(rec StepRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.steps {
		if r.Index == rec.Index && r.Description == rec.Description {
			s.steps[i] = rec
			return
		}
	}
	s.steps = append(s.steps, rec)
}

// Steps returns the recorded steps in the order they were first seen.
func (s *Summary) Steps() []StepRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StepRecord(nil), s.steps...)
}

// SetOutput records the groups of the final Dataset.
func (s *Summary) SetOutput(ds *dataset.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = s.output[:0]
	for _, name := range ds.GroupNames() {
		g, _ := ds.Group(name)
		s.output = append(s.output, GroupInfo{Name: name, Arrays: g.ArrayNames()})
	}
}

// Middleware records every step evaluation in the summary.
func (s *Summary) Middleware() workflow.Middleware {
	return func(next workflow.Evaluator) workflow.Evaluator {
		return func(ctx context.Context, index int, step *workflow.Step, in *dataset.Dataset) (*dataset.Dataset, error) {
			cached := step.Evaluated(in)
			start := time.Now()
			out, err := next(ctx, index, step, in)
			rec := StepRecord{
				Index:       index,
				Description: step.Describe(),
				Status:      StatusEvaluated,
				Duration:    time.Since(start),
			}
			switch {
			case err != nil:
				rec.Status = StatusFailed
				rec.Error = err.Error()
			case cached:
				rec.Status = StatusCached
			}
			if out != nil {
				rec.Groups = out.Len()
			}
			s.TrackStep(rec)
			return out, err
		}
	}
}

// Render formats the summary.
func (s *Summary) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s %s ran in %.2fs", s.serviceName, s.version, s.runDuration.Seconds())))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" (startup %.2fs)", s.startupDuration.Seconds())))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Steps (%d)", len(s.steps))))
	b.WriteString("\n")
	if len(s.steps) == 0 {
		b.WriteString("   └── No steps evaluated\n")
	}
	for i, r := range s.steps {
		prefix := "├──"
		if i == len(s.steps)-1 {
			prefix = "└──"
		}
		fmt.Fprintf(&b, "   %s %s %d: %s ", prefix, statusIcon(r.Status), r.Index, r.Description)
		switch r.Status {
		case StatusFailed:
			b.WriteString(errorStyle.Render(r.Error))
		case StatusCached:
			b.WriteString(dimStyle.Render("cached"))
		default:
			b.WriteString(dimStyle.Render(fmt.Sprintf("%s, %d groups", r.Duration.Round(time.Microsecond), r.Groups)))
		}
		b.WriteString("\n")
	}

	if len(s.output) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(fmt.Sprintf("Output (%d groups)", len(s.output))))
		b.WriteString("\n")
		for i, g := range s.output {
			prefix := "├──"
			if i == len(s.output)-1 {
				prefix = "└──"
			}
			fmt.Fprintf(&b, "   %s %s %s\n", prefix, g.Name, dimStyle.Render(strings.Join(g.Arrays, ", ")))
		}
	}
	return b.String()
}

// Display writes the rendered summary to w.
func (s *Summary) Display(w io.Writer) error {
	_, err := io.WriteString(w, "\n"+s.Render()+"\n")
	return err
}

func statusIcon(status string) string {
	switch status {
	case StatusEvaluated:
		return "✅"
	case StatusCached:
		return "⚡"
	case StatusFailed:
		return "❌"
	default:
		return "⚠️"
	}
}
