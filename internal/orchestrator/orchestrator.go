package orchestrator

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicetasks/internal/capture"
	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/utils"
)

//go:generate mockgen -source=orchestrator.go -destination=mocks/mocks.go -package=mocks

type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateReviewing    State = "reviewing"
	StateSubmitting   State = "submitting"
	StateError        State = "error"
)

// Capturer is the audio capture session; *capture.Recorder implements it.
type Capturer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (capture.Blob, error)
	Abort()
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio capture.Blob) (string, error)
}

type Extractor interface {
	Extract(ctx context.Context, transcript string) ([]models.TaskRecord, error)
}

// TaskSink receives each confirmed batch, ex: the visible task list.
type TaskSink interface {
	AddTasks(ctx context.Context, tasks []models.TaskRecord) error
}

// TranscriberFunc adapts a function to Transcriber.
type TranscriberFunc func(ctx context.Context, audio capture.Blob) (string, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, audio capture.Blob) (string, error) {
	return f(ctx, audio)
}

// Event reports a state change. Transcript is set on entering reviewing,
// Tasks on a successful submit, Err on entering error.
type Event struct {
	State      State               `json:"state"`
	Transcript string              `json:"transcript,omitempty"`
	Tasks      []models.TaskRecord `json:"tasks,omitempty"`
	Notice     *Notice             `json:"notice,omitempty"`
	Err        error               `json:"-"`
}

// Orchestrator sequences capture, transcription, review and extraction for
// one user. Only one pipeline runs at a time.
type Orchestrator struct {
	capture     Capturer
	transcriber Transcriber
	extractor   Extractor
	sink        TaskSink
	log         *logrus.Logger
	emit        func(Event)

	mu         sync.Mutex
	state      State
	transcript string
	lastErr    error
	// gen changes whenever Cancel or Dismiss abandons the current pipeline;
	// results from an older generation are dropped.
	gen       uint64
	interrupt context.CancelFunc
}

type Option func(*Orchestrator)

// WithListener receives every Event. Calls are made without internal locks
// held, in transition order for a single caller.
func WithListener(fn func(Event)) Option {
	return func(o *Orchestrator) { o.emit = fn }
}

func WithLogger(log *logrus.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

func New(c Capturer, t Transcriber, e Extractor, sink TaskSink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		capture:     c,
		transcriber: t,
		extractor:   e,
		sink:        sink,
		state:       StateIdle,
		emit:        func(Event) {},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logrus.New()
	}
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Transcript returns the text awaiting review, if any.
func (o *Orchestrator) Transcript() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript
}

// Err returns the failure that moved the pipeline to error.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// transition moves from -> to and returns the current generation. It fails
// with CodeConflict, leaving everything untouched, when the pipeline is not
// in from.
func (o *Orchestrator) transition(op, action string, from, to State) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != from {
		return 0, utils.E(utils.CodeConflict, op, "cannot "+action+" while "+string(o.state), nil)
	}
	o.state = to
	return o.gen, nil
}

// advance moves to `to` only if the pipeline was not abandoned meanwhile.
func (o *Orchestrator) advance(gen uint64, to State, apply func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		return false
	}
	o.state = to
	if apply != nil {
		apply()
	}
	return true
}

// current reports whether gen is still the live pipeline.
func (o *Orchestrator) current(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen == gen
}

// bind derives the context for one pipeline step; Cancel interrupts it.
func (o *Orchestrator) bind(ctx context.Context, gen uint64) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	if o.gen == gen {
		o.interrupt = cancel
	}
	o.mu.Unlock()
	return ctx, cancel
}

// Start begins recording. It is rejected with CodeConflict unless idle.
func (o *Orchestrator) Start(ctx context.Context) error {
	const op = "Orchestrator.Start"

	gen, err := o.transition(op, "start", StateIdle, StateRecording)
	if err != nil {
		return err
	}

	if err := o.capture.Start(ctx); err != nil {
		o.fail(gen, op, err)
		return err
	}
	if !o.advance(gen, StateRecording, nil) {
		// cancelled while the device was opening
		o.capture.Abort()
		return utils.E(utils.CodeConflict, op, "pipeline cancelled", nil)
	}
	n := noticeRecording
	o.emit(Event{State: StateRecording, Notice: &n})
	return nil
}

// Stop ends recording and transcribes it. On success the pipeline waits in
// reviewing for Confirm.
func (o *Orchestrator) Stop(ctx context.Context) (string, error) {
	const op = "Orchestrator.Stop"

	gen, err := o.transition(op, "stop", StateRecording, StateTranscribing)
	if err != nil {
		return "", err
	}
	ctx, cancel := o.bind(ctx, gen)
	defer cancel()
	n := noticeStopped
	o.emit(Event{State: StateTranscribing, Notice: &n})

	blob, err := o.capture.Stop(ctx)
	if err != nil {
		o.fail(gen, op, err)
		return "", err
	}
	if blob.Empty() {
		err := utils.E(utils.CodeInvalidArgument, op, "no audio captured", nil)
		o.fail(gen, op, err)
		return "", err
	}

	text, err := o.transcriber.Transcribe(ctx, blob)
	if err != nil {
		o.fail(gen, op, err)
		return "", err
	}

	if !o.advance(gen, StateReviewing, func() { o.transcript = text }) {
		return "", utils.E(utils.CodeConflict, op, "pipeline cancelled", nil)
	}
	r := noticeReview
	o.emit(Event{State: StateReviewing, Transcript: text, Notice: &r})
	return text, nil
}

// Confirm extracts tasks from the reviewed transcript, or from edited when
// the user changed it, and hands the whole batch to the sink. Nothing is
// delivered on failure.
func (o *Orchestrator) Confirm(ctx context.Context, edited string) ([]models.TaskRecord, error) {
	const op = "Orchestrator.Confirm"

	gen, err := o.transition(op, "confirm", StateReviewing, StateSubmitting)
	if err != nil {
		return nil, err
	}
	ctx, cancel := o.bind(ctx, gen)
	defer cancel()
	o.emit(Event{State: StateSubmitting})

	text := edited
	if strings.TrimSpace(text) == "" {
		text = o.Transcript()
	}

	tasks, err := o.extractor.Extract(ctx, text)
	if err != nil {
		o.fail(gen, op, err)
		return nil, err
	}
	// a batch extracted after Cancel is never delivered
	if !o.current(gen) {
		return nil, utils.E(utils.CodeConflict, op, "pipeline cancelled", nil)
	}
	if err := o.sink.AddTasks(ctx, tasks); err != nil {
		o.fail(gen, op, err)
		return nil, err
	}

	if !o.advance(gen, StateIdle, func() { o.transcript = "" }) {
		return nil, utils.E(utils.CodeConflict, op, "pipeline cancelled", nil)
	}
	n := noticeCreated
	if len(tasks) == 0 {
		n = noticeNoTasks
	}
	o.log.WithField("tasks", len(tasks)).Info("voice tasks submitted")
	o.emit(Event{State: StateIdle, Tasks: tasks, Notice: &n})
	return tasks, nil
}

// Cancel abandons whatever is in progress and returns to idle. Results of
// in-flight calls are dropped.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	prev := o.state
	o.state = StateIdle
	o.transcript = ""
	o.lastErr = nil
	o.gen++
	interrupt := o.interrupt
	o.interrupt = nil
	o.mu.Unlock()

	if interrupt != nil {
		interrupt()
	}
	if prev == StateIdle {
		return
	}
	o.capture.Abort()
	o.emit(Event{State: StateIdle})
}

// Dismiss acknowledges an error and returns to idle. No-op in other states.
func (o *Orchestrator) Dismiss() {
	o.mu.Lock()
	if o.state != StateError {
		o.mu.Unlock()
		return
	}
	o.state = StateIdle
	o.lastErr = nil
	o.gen++
	o.mu.Unlock()

	o.emit(Event{State: StateIdle})
}

// fail moves the pipeline to error and releases capture.
func (o *Orchestrator) fail(gen uint64, op string, err error) {
	if !o.advance(gen, StateError, func() {
		o.lastErr = err
		o.transcript = ""
	}) {
		return
	}
	o.capture.Abort()

	o.log.WithError(err).WithFields(logrus.Fields{
		"op":   op,
		"code": utils.CodeOf(err),
	}).Error("voice pipeline failed")

	n := errorNotice(err)
	o.emit(Event{State: StateError, Notice: &n, Err: err})
}
