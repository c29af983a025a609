package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/generate"
)

// Progress styles
var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
	listDimStyle  = lipgloss.NewStyle().Foreground(colorDim)
)

const barWidth = 24

// =============================================================================
// JobModel - Live generation progress
// =============================================================================

// jobEventMsg carries one event from the job stream.
type jobEventMsg generate.Event

// tickMsg advances the spinner.
type tickMsg time.Time

// JobModel is the bubbletea model showing a running generation job.
// Pressing "a" asks the job to stop before its next image.
type JobModel struct {
	Job      *generate.Job
	Images   []string
	State    generate.State
	Err      error
	Aborting bool
	frame    int
	start    time.Time
}

// NewJobModel creates a model following job.
func NewJobModel(job *generate.Job) JobModel {
	return JobModel{Job: job, State: generate.StateRunning, start: time.Now()}
}

func (m JobModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.Job), tick())
}

func waitForEvent(job *generate.Job) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-job.Events()
		if !ok {
			return jobEventMsg{Kind: generate.EventDone, JobID: job.ID, State: job.State(), Err: job.Err()}
		}
		return jobEventMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m JobModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "a", "q", "esc", "ctrl+c":
			// The job finishes its current image; results are kept.
			m.Job.Abort()
			m.Aborting = true
		}
	case jobEventMsg:
		switch msg.Kind {
		case generate.EventImage:
			m.Images = append(m.Images, msg.Path)
			return m, waitForEvent(m.Job)
		case generate.EventDone:
			m.State, m.Err = msg.State, msg.Err
			return m, tea.Quit
		}
	case tickMsg:
		if m.State.Terminal() {
			return m, nil
		}
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m JobModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Generating artwork for " + m.Job.Card.Name))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("a abort"))
	b.WriteString("\n\n")

	done := len(m.Images)
	filled := barWidth * done / m.Job.Count
	b.WriteString(barFullStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(barEmptyStyle.Render(strings.Repeat("░", barWidth-filled)))
	b.WriteString(fmt.Sprintf(" %d/%d", done, m.Job.Count))

	if !m.State.Terminal() {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		status := "working"
		if m.Aborting {
			status = "stopping after current image"
		}
		b.WriteString("  " + styleIconSpinner.Render(frames[m.frame%len(frames)]) + " " + StyleDim.Render(status))
	}
	b.WriteString("  " + StyleDim.Render(time.Since(m.start).Round(time.Second).String()))
	b.WriteString("\n\n")

	for _, p := range m.Images {
		b.WriteString("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(filepath.Base(p)) + "\n")
	}
	if m.State == generate.StateFailed && m.Err != nil {
		b.WriteString("\n" + styleIconError.Render(iconError) + " " + errors.UserMessage(m.Err) + "\n")
	}
	return b.String()
}
