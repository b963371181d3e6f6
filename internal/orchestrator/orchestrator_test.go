package orchestrator_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/yoockh/voicetasks/internal/capture"
	"github.com/yoockh/voicetasks/internal/logger"
	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/orchestrator"
	"github.com/yoockh/voicetasks/internal/orchestrator/mocks"
	"github.com/yoockh/voicetasks/internal/utils"
)

type fixture struct {
	capture     *mocks.MockCapturer
	transcriber *mocks.MockTranscriber
	extractor   *mocks.MockExtractor
	sink        *mocks.MockTaskSink
	o           *orchestrator.Orchestrator

	mu     sync.Mutex
	events []orchestrator.Event
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		capture:     mocks.NewMockCapturer(ctrl),
		transcriber: mocks.NewMockTranscriber(ctrl),
		extractor:   mocks.NewMockExtractor(ctrl),
		sink:        mocks.NewMockTaskSink(ctrl),
	}
	f.o = orchestrator.New(f.capture, f.transcriber, f.extractor, f.sink,
		orchestrator.WithLogger(logger.Discard()),
		orchestrator.WithListener(func(e orchestrator.Event) {
			f.mu.Lock()
			f.events = append(f.events, e)
			f.mu.Unlock()
		}),
	)
	return f
}

func (f *fixture) states() []orchestrator.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]orchestrator.State, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.State)
	}
	return out
}

func (f *fixture) last() orchestrator.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

var (
	ctx  = context.Background()
	blob = capture.Blob{Data: []byte("webm-bytes"), MIMEType: "audio/webm"}
)

const transcript = "Mañana reunión a las 10 con el equipo"

func TestPipeline_HappyPath(t *testing.T) {
	f := newFixture(t)
	tasks := []models.TaskRecord{{Title: "Reunión con el equipo", Time: "10:00", Priority: models.PriorityMedium}}

	gomock.InOrder(
		f.capture.EXPECT().Start(gomock.Any()).Return(nil),
		f.capture.EXPECT().Stop(gomock.Any()).Return(blob, nil),
		f.transcriber.EXPECT().Transcribe(gomock.Any(), blob).Return(transcript, nil),
		f.extractor.EXPECT().Extract(gomock.Any(), transcript).Return(tasks, nil),
		f.sink.EXPECT().AddTasks(gomock.Any(), tasks).Return(nil),
	)

	if err := f.o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	text, err := f.o.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if text != transcript || f.o.State() != orchestrator.StateReviewing {
		t.Fatalf("text=%q state=%s", text, f.o.State())
	}
	got, err := f.o.Confirm(ctx, "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !reflect.DeepEqual(got, tasks) {
		t.Fatalf("tasks = %+v", got)
	}

	want := []orchestrator.State{
		orchestrator.StateRecording,
		orchestrator.StateTranscribing,
		orchestrator.StateReviewing,
		orchestrator.StateSubmitting,
		orchestrator.StateIdle,
	}
	if !reflect.DeepEqual(f.states(), want) {
		t.Fatalf("states = %v", f.states())
	}
	if n := f.last().Notice; n == nil || n.Title != "Tareas creadas" {
		t.Fatalf("final notice = %+v", n)
	}
}

func TestStart_RejectedWhenBusy(t *testing.T) {
	f := newFixture(t)
	f.capture.EXPECT().Start(gomock.Any()).Return(nil).Times(1)

	if err := f.o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := f.o.Start(ctx)
	if !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.o.State() != orchestrator.StateRecording {
		t.Fatalf("state = %s", f.o.State())
	}
	if len(f.states()) != 1 {
		t.Fatalf("rejected start emitted events: %v", f.states())
	}
}

func TestStart_PermissionDenied(t *testing.T) {
	f := newFixture(t)
	denied := utils.E(utils.CodePermissionDenied, "Recorder.Start", "microphone access denied or no input device", nil)
	f.capture.EXPECT().Start(gomock.Any()).Return(denied)
	f.capture.EXPECT().Abort()

	if err := f.o.Start(ctx); !errors.Is(err, denied) {
		t.Fatalf("err = %v", err)
	}
	if f.o.State() != orchestrator.StateError {
		t.Fatalf("state = %s", f.o.State())
	}
	e := f.last()
	if e.Notice == nil || e.Notice.Variant != orchestrator.NoticeDestructive || e.Notice.Description != orchestrator.UserMessage(denied) {
		t.Fatalf("notice = %+v", e.Notice)
	}

	f.o.Dismiss()
	if f.o.State() != orchestrator.StateIdle || f.o.Err() != nil {
		t.Fatalf("state=%s err=%v after dismiss", f.o.State(), f.o.Err())
	}
}

func TestStop_TranscriptionFailureReleasesCapture(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"timeout", utils.E(utils.CodeTimeout, "AssemblyAI.poll", "Transcription timeout - no result after 60 attempts", nil)},
		{"backend", utils.E(utils.CodeTranscriptionBackend, "AssemblyAI.Transcribe", "Transcription failed: bad audio", nil)},
		{"empty", utils.E(utils.CodeEmptyTranscription, "GoogleSpeech.Transcribe", "No transcription returned from Google Speech", nil)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			gomock.InOrder(
				f.capture.EXPECT().Start(gomock.Any()).Return(nil),
				f.capture.EXPECT().Stop(gomock.Any()).Return(blob, nil),
				f.transcriber.EXPECT().Transcribe(gomock.Any(), blob).Return("", tc.err),
				f.capture.EXPECT().Abort(),
			)

			_ = f.o.Start(ctx)
			if _, err := f.o.Stop(ctx); !errors.Is(err, tc.err) {
				t.Fatalf("err = %v", err)
			}
			if f.o.State() != orchestrator.StateError || !errors.Is(f.o.Err(), tc.err) {
				t.Fatalf("state=%s err=%v", f.o.State(), f.o.Err())
			}
			if e := f.last(); e.State != orchestrator.StateError || e.Notice == nil {
				t.Fatalf("last event = %+v", e)
			}
		})
	}
}

func TestStop_EmptyRecording(t *testing.T) {
	f := newFixture(t)
	f.capture.EXPECT().Start(gomock.Any()).Return(nil)
	f.capture.EXPECT().Stop(gomock.Any()).Return(capture.Blob{MIMEType: "audio/webm"}, nil)
	f.capture.EXPECT().Abort()

	_ = f.o.Start(ctx)
	if _, err := f.o.Stop(ctx); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestConfirm_ExtractionFailureDeliversNothing(t *testing.T) {
	f := newFixture(t)
	parseErr := utils.E(utils.CodeExtractionParse, "ParseTasks", "Failed to parse tasks from AI response", nil)

	f.capture.EXPECT().Start(gomock.Any()).Return(nil)
	f.capture.EXPECT().Stop(gomock.Any()).Return(blob, nil)
	f.transcriber.EXPECT().Transcribe(gomock.Any(), blob).Return(transcript, nil)
	f.extractor.EXPECT().Extract(gomock.Any(), "Reunión mañana a las 11").Return(nil, parseErr)
	f.capture.EXPECT().Abort()
	// no AddTasks expectation: any call fails the test

	_ = f.o.Start(ctx)
	_, _ = f.o.Stop(ctx)
	if _, err := f.o.Confirm(ctx, "Reunión mañana a las 11"); !errors.Is(err, parseErr) {
		t.Fatalf("err = %v", err)
	}
	if f.o.State() != orchestrator.StateError {
		t.Fatalf("state = %s", f.o.State())
	}
}

func TestConfirm_ZeroTasks(t *testing.T) {
	f := newFixture(t)
	f.capture.EXPECT().Start(gomock.Any()).Return(nil)
	f.capture.EXPECT().Stop(gomock.Any()).Return(blob, nil)
	f.transcriber.EXPECT().Transcribe(gomock.Any(), blob).Return("qué buen día", nil)
	f.extractor.EXPECT().Extract(gomock.Any(), "qué buen día").Return([]models.TaskRecord{}, nil)
	f.sink.EXPECT().AddTasks(gomock.Any(), []models.TaskRecord{}).Return(nil)

	_ = f.o.Start(ctx)
	_, _ = f.o.Stop(ctx)
	tasks, err := f.o.Confirm(ctx, "")
	if err != nil || len(tasks) != 0 {
		t.Fatalf("tasks=%v err=%v", tasks, err)
	}
	if f.o.State() != orchestrator.StateIdle {
		t.Fatalf("state = %s", f.o.State())
	}
	if n := f.last().Notice; n == nil || n.Title != "Sin tareas" {
		t.Fatalf("notice = %+v", n)
	}
}

func TestConfirm_OnlyFromReviewing(t *testing.T) {
	f := newFixture(t)
	if _, err := f.o.Confirm(ctx, "algo"); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := f.o.Stop(ctx); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.o.State() != orchestrator.StateIdle {
		t.Fatalf("state = %s", f.o.State())
	}
}

func TestCancel_DuringTranscriptionDropsResult(t *testing.T) {
	f := newFixture(t)
	f.capture.EXPECT().Start(gomock.Any()).Return(nil)
	f.capture.EXPECT().Stop(gomock.Any()).Return(blob, nil)
	f.transcriber.EXPECT().Transcribe(gomock.Any(), blob).DoAndReturn(
		func(c context.Context, _ capture.Blob) (string, error) {
			f.o.Cancel()
			if c.Err() == nil {
				t.Errorf("step context not cancelled")
			}
			return transcript, nil
		})
	f.capture.EXPECT().Abort()

	_ = f.o.Start(ctx)
	if _, err := f.o.Stop(ctx); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("expected cancelled pipeline, got %v", err)
	}
	if f.o.State() != orchestrator.StateIdle || f.o.Transcript() != "" {
		t.Fatalf("state=%s transcript=%q", f.o.State(), f.o.Transcript())
	}
}

func TestCancel_DuringExtractionDeliversNothing(t *testing.T) {
	f := newFixture(t)
	f.capture.EXPECT().Start(gomock.Any()).Return(nil)
	f.capture.EXPECT().Stop(gomock.Any()).Return(blob, nil)
	f.transcriber.EXPECT().Transcribe(gomock.Any(), blob).Return(transcript, nil)
	// the extractor ignores the cancelled context and still answers
	f.extractor.EXPECT().Extract(gomock.Any(), transcript).DoAndReturn(
		func(context.Context, string) ([]models.TaskRecord, error) {
			f.o.Cancel()
			return []models.TaskRecord{{Title: "Reunión con el equipo", Time: "10:00", Priority: models.PriorityMedium}}, nil
		})
	f.capture.EXPECT().Abort()
	// no AddTasks expectation: any delivery fails the test

	_ = f.o.Start(ctx)
	_, _ = f.o.Stop(ctx)
	tasks, err := f.o.Confirm(ctx, "")
	if !utils.IsCode(err, utils.CodeConflict) || tasks != nil {
		t.Fatalf("tasks=%v err=%v", tasks, err)
	}
	if f.o.State() != orchestrator.StateIdle {
		t.Fatalf("state = %s", f.o.State())
	}
}

func TestCancel_FromReviewing(t *testing.T) {
	f := newFixture(t)
	f.capture.EXPECT().Start(gomock.Any()).Return(nil)
	f.capture.EXPECT().Stop(gomock.Any()).Return(blob, nil)
	f.transcriber.EXPECT().Transcribe(gomock.Any(), blob).Return(transcript, nil)
	f.capture.EXPECT().Abort()

	_ = f.o.Start(ctx)
	_, _ = f.o.Stop(ctx)
	f.o.Cancel()

	if f.o.State() != orchestrator.StateIdle || f.o.Transcript() != "" {
		t.Fatalf("state=%s transcript=%q", f.o.State(), f.o.Transcript())
	}
}

func TestTranscriberFunc(t *testing.T) {
	var got capture.Blob
	tr := orchestrator.TranscriberFunc(func(_ context.Context, b capture.Blob) (string, error) {
		got = b
		return "ok", nil
	})
	text, err := tr.Transcribe(ctx, blob)
	if err != nil || text != "ok" || !reflect.DeepEqual(got, blob) {
		t.Fatalf("text=%q err=%v got=%+v", text, err, got)
	}
}
