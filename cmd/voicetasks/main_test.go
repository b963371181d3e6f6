package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yoockh/voicetasks/internal/capture"
	"github.com/yoockh/voicetasks/internal/client"
	"github.com/yoockh/voicetasks/internal/logger"
	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/utils"
)

// fakeServer answers both adapter endpoints and records the text sent to
// extraction.
func fakeServer(t *testing.T, transcript string, extracted *string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe-audio", func(w http.ResponseWriter, r *http.Request) {
		var req models.TranscribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Audio == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "No audio data provided", Code: "INVALID_ARGUMENT"})
			return
		}
		_ = json.NewEncoder(w).Encode(models.TranscribeResponse{Text: transcript})
	})
	mux.HandleFunc("/extract-tasks", func(w http.ResponseWriter, r *http.Request) {
		var req models.ExtractRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		*extracted = req.Text
		_ = json.NewEncoder(w).Encode(models.ExtractResponse{Tasks: []models.TaskRecord{
			{Title: "Reunión con el equipo", Time: "10:00", Priority: models.PriorityMedium},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nota.webm")
	if err := os.WriteFile(path, []byte("fake webm bytes"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestRun_ReviewAndConfirm(t *testing.T) {
	var extracted string
	srv := fakeServer(t, "Mañana reunión a las 10 con el equipo", &extracted)

	var out bytes.Buffer
	err := run(context.Background(), runOptions{
		client: client.New(srv.URL),
		device: &capture.FileDevice{Path: audioFile(t), MIMEType: "audio/webm"},
		review: true,
		in:     strings.NewReader("\n"),
		out:    &out,
		log:    logger.Discard(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if extracted != "Mañana reunión a las 10 con el equipo" {
		t.Fatalf("extracted from %q", extracted)
	}
	got := out.String()
	for _, want := range []string{"Mañana reunión a las 10 con el equipo", "10:00  [medium]  Reunión con el equipo", "Tareas creadas"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRun_EditedTranscript(t *testing.T) {
	var extracted string
	srv := fakeServer(t, "manana reunion", &extracted)

	err := run(context.Background(), runOptions{
		client: client.New(srv.URL),
		device: &capture.FileDevice{Path: audioFile(t), MIMEType: "audio/webm"},
		review: true,
		in:     strings.NewReader("Mañana reunión a las 10\n"),
		out:    &bytes.Buffer{},
		log:    logger.Discard(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if extracted != "Mañana reunión a las 10" {
		t.Fatalf("extracted from %q", extracted)
	}
}

func TestRun_MissingAudio(t *testing.T) {
	var extracted string
	srv := fakeServer(t, "x", &extracted)

	err := run(context.Background(), runOptions{
		client: client.New(srv.URL),
		device: &capture.FileDevice{Path: filepath.Join(t.TempDir(), "missing.webm")},
		out:    &bytes.Buffer{},
		log:    logger.Discard(),
	})
	if !utils.IsCode(err, utils.CodePermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if extracted != "" {
		t.Fatalf("extraction should not run")
	}
}

func TestCancelOnDone(t *testing.T) {
	var calls atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	stop := cancelOnDone(ctx, func() { calls.Add(1) })
	stop()
	cancel()
	if n := calls.Load(); n != 0 {
		t.Fatalf("cancel called %d times after stop", n)
	}

	ctx, cancel = context.WithCancel(context.Background())
	called := make(chan struct{})
	stop = cancelOnDone(ctx, func() { close(called) })
	cancel()
	select {
	case <-called:
	case <-time.After(5 * time.Second):
		t.Fatalf("cancel not called after ctx was done")
	}
	stop()
}
