package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/generate"
)

func startJob(t *testing.T, count int) *generate.Job {
	t.Helper()
	orch := generate.NewOrchestrator(generate.PlaceholderBackend{}, t.TempDir(), generate.WithSize(8, 12))
	job, err := orch.Start(context.Background(), card.New("Scout", card.TypeUnit, 1, "supply", nil), count)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return job
}

func TestJobModelFollowsEvents(t *testing.T) {
	job := startJob(t, 3)
	m := NewJobModel(job)

	var quit bool
	for ev := range job.Events() {
		next, cmd := m.Update(jobEventMsg(ev))
		m = next.(JobModel)
		if ev.Kind == generate.EventDone {
			quit = cmd != nil
		}
	}

	if len(m.Images) != 3 || m.State != generate.StateCompleted {
		t.Errorf("model has %d images in state %v, want 3 completed", len(m.Images), m.State)
	}
	if !quit {
		t.Error("done event did not quit the program")
	}
	if view := m.View(); !strings.Contains(view, "3/3") || !strings.Contains(view, "Scout") {
		t.Errorf("view lacks progress or card name:\n%s", view)
	}
}

func TestJobModelAbortKey(t *testing.T) {
	job := startJob(t, 2)
	m := NewJobModel(job)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	m = next.(JobModel)
	if !m.Aborting || !job.AbortRequested() {
		t.Error("a key did not abort the job")
	}
	if err := job.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if s := job.State(); s != generate.StateAborted && s != generate.StateCompleted {
		t.Errorf("state = %v, want aborted or completed", s)
	}
}
