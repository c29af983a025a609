package generate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/observability"
)

// State is the lifecycle state of a job.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateFailed
}

// EventKind discriminates job events.
type EventKind int

const (
	// EventImage is sent after each produced image.
	EventImage EventKind = iota
	// EventDone is sent once, when the job reaches a terminal state.
	EventDone
)

// Event reports job progress.
type Event struct {
	Kind  EventKind
	JobID string
	// Index is the 0-based image index (EventImage).
	Index int
	// Path is where the image was saved (EventImage).
	Path string
	// State and Err describe the outcome (EventDone).
	State State
	Err   error
}

// Job is one generation request. Its methods are safe for concurrent use.
type Job struct {
	ID    string
	Card  card.Card
	Count int

	abort atomic.Bool

	mu      sync.Mutex
	state   State
	results []string
	err     error

	events chan Event
	done   chan struct{}
}

// Abort asks the job to stop before its next image.
func (j *Job) Abort() { j.abort.Store(true) }

// AbortRequested reports whether Abort was called.
func (j *Job) AbortRequested() bool { return j.abort.Load() }

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Results returns the saved image paths so far, in production order.
func (j *Job) Results() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.results...)
}

// Err returns the failure of a Failed job.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Events returns the event stream. It carries one EventImage per image and a
// final EventDone, then is closed. The buffer holds every event of the job,
// so a slow reader never stalls generation.
func (j *Job) Events() <-chan Event { return j.events }

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job ends or ctx is done, and returns the job error.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) add(path string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, path)
	return len(j.results) - 1
}

func (j *Job) finish(s State, err error) {
	j.mu.Lock()
	j.state, j.err = s, err
	j.mu.Unlock()
	j.events <- Event{Kind: EventDone, JobID: j.ID, State: s, Err: err}
	close(j.events)
	close(j.done)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSize sets the generated image size.
func WithSize(width, height int) Option {
	return func(o *Orchestrator) { o.width, o.height = width, height }
}

// WithSteps sets the sampling steps passed to the backend.
func WithSteps(n int) Option { return func(o *Orchestrator) { o.steps = n } }

// WithStyle sets the prompt style.
func WithStyle(s Style) Option { return func(o *Orchestrator) { o.style = s } }

// WithUnitTimeout bounds each backend call. Zero means no limit.
func WithUnitTimeout(d time.Duration) Option { return func(o *Orchestrator) { o.unitTimeout = d } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// Orchestrator runs generation jobs one at a time.
type Orchestrator struct {
	backend     Backend
	outDir      string
	width       int
	height      int
	steps       int
	style       Style
	unitTimeout time.Duration
	logger      *log.Logger

	mu      sync.Mutex
	current *Job
}

// NewOrchestrator returns an orchestrator saving images under outDir.
func NewOrchestrator(backend Backend, outDir string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend: backend,
		outDir:  outDir,
		width:   DefaultWidth,
		height:  DefaultHeight,
		steps:   DefaultSteps,
		style:   DefaultStyle,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches a job producing count images for c and returns at once.
// It fails with errors.ErrBusy while another job is running. Cancelling ctx
// stops the job like Abort.
func (o *Orchestrator) Start(ctx context.Context, c card.Card, count int) (*Job, error) {
	if count < 1 {
		return nil, errors.Invalid(errors.ErrCodeInvalidInput, "count", "must be at least 1, got %d", count)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != nil && o.current.State() == StateRunning {
		return nil, errors.ErrBusy
	}

	job := &Job{
		ID:     uuid.NewString(),
		Card:   c,
		Count:  count,
		state:  StateRunning,
		events: make(chan Event, count+1),
		done:   make(chan struct{}),
	}
	o.current = job
	go o.run(ctx, job)
	return job, nil
}

// Abort aborts the running job, if any, and reports whether there was one.
func (o *Orchestrator) Abort() bool {
	o.mu.Lock()
	job := o.current
	o.mu.Unlock()
	if job == nil || job.State() != StateRunning {
		return false
	}
	job.Abort()
	return true
}

// Current returns the most recently started job, or nil.
func (o *Orchestrator) Current() *Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *Orchestrator) run(ctx context.Context, job *Job) {
	start := time.Now()
	hooks := observability.Generation()
	ctx = hooks.OnJobStart(ctx, job.ID, job.Count)
	logger := o.logger.With("job", shortID(job.ID), "card", job.Card.Name)

	req := Request{
		Prompt:         Prompt(job.Card, o.style),
		NegativePrompt: NegativePrompt,
		Count:          1,
		Width:          o.width,
		Height:         o.height,
		Steps:          o.steps,
	}
	logger.Debug("generation started", "count", job.Count, "prompt", req.Prompt)

	end := func(s State, err error) {
		produced := len(job.Results())
		switch s {
		case StateFailed:
			logger.Error("generation failed", "produced", produced, "err", err)
		default:
			logger.Info("generation "+s.String(), "produced", produced, "took", time.Since(start).Round(time.Millisecond))
		}
		hooks.OnJobComplete(ctx, job.ID, s.String(), produced, time.Since(start))
		job.finish(s, err)
	}

	for i := 0; i < job.Count; i++ {
		if job.AbortRequested() || ctx.Err() != nil {
			end(StateAborted, nil)
			return
		}

		unitStart := time.Now()
		path, err := o.unit(ctx, job, req, i)
		hooks.OnUnitComplete(ctx, job.ID, i, time.Since(unitStart), err)
		switch {
		case err == errAbortObserved:
			end(StateAborted, nil)
			return
		case err != nil:
			end(StateFailed, err)
			return
		}

		idx := job.add(path)
		job.events <- Event{Kind: EventImage, JobID: job.ID, Index: idx, Path: path}
		logger.Debug("image saved", "index", idx, "path", path)
	}
	end(StateCompleted, nil)
}

var errAbortObserved = errors.New(errors.ErrCodeInternal, "abort observed by backend")

// unit produces and saves image i.
func (o *Orchestrator) unit(ctx context.Context, job *Job, req Request, i int) (string, error) {
	unitCtx, cancel := ctx, context.CancelFunc(func() {})
	if o.unitTimeout > 0 {
		unitCtx, cancel = context.WithTimeout(ctx, o.unitTimeout)
	}
	defer cancel()

	imgs, err := o.backend.Generate(unitCtx, req, job.AbortRequested)
	switch {
	case err != nil && ctx.Err() != nil:
		return "", errAbortObserved
	case err != nil && unitCtx.Err() == context.DeadlineExceeded:
		return "", errors.Wrap(errors.ErrCodeGeneration, errors.Wrap(errors.ErrCodeTimeout, err, "timed out after %s", o.unitTimeout), "image %d", i+1)
	case err != nil:
		return "", errors.Wrap(errors.ErrCodeGeneration, err, "image %d", i+1)
	case len(imgs) == 0 && job.AbortRequested():
		return "", errAbortObserved
	case len(imgs) == 0:
		return "", errors.New(errors.ErrCodeGeneration, "image %d: backend returned no image", i+1)
	}

	if err := os.MkdirAll(o.outDir, 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodeGeneration, err, "create %s", o.outDir)
	}
	path := filepath.Join(o.outDir, fmt.Sprintf("ai_%s_%d.png", shortID(job.ID), i+1))
	if err := imaging.Save(imgs[0], path); err != nil {
		return "", errors.Wrap(errors.ErrCodeGeneration, err, "save %s", path)
	}
	return path, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
