package stt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yoockh/voicetasks/internal/logger"
	"github.com/yoockh/voicetasks/internal/utils"
)

// assemblyServer mimics the three AssemblyAI endpoints. status decides the
// body of the n-th GET /transcript/{id} (1-based).
type assemblyServer struct {
	t       *testing.T
	polls   atomic.Int32
	status  func(n int) (code int, body string)
	upload  func() (code int, body string)
	lastReq transcriptRequest
}

func (s *assemblyServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if got := r.Header.Get("Authorization"); got != "test-key" {
		s.t.Errorf("Authorization = %q", got)
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/upload":
		if ct := r.Header.Get("Content-Type"); ct != "application/octet-stream" {
			s.t.Errorf("upload Content-Type = %q", ct)
		}
		if s.upload != nil {
			code, body := s.upload()
			w.WriteHeader(code)
			_, _ = io.WriteString(w, body)
			return
		}
		_, _ = io.WriteString(w, `{"upload_url":"https://cdn.example/abc"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/transcript":
		if err := json.NewDecoder(r.Body).Decode(&s.lastReq); err != nil {
			s.t.Errorf("decode submit: %v", err)
		}
		_, _ = io.WriteString(w, `{"id":"tx-1","status":"queued"}`)
	case r.Method == http.MethodGet && r.URL.Path == "/transcript/tx-1":
		n := int(s.polls.Add(1))
		code, body := s.status(n)
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	default:
		s.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newAssemblyTranscriber(t *testing.T, srv *httptest.Server, maxAttempts int) *JobTranscriber {
	t.Helper()
	backend, err := NewAssemblyAI(srv.URL, "test-key", "es", 5*time.Second)
	if err != nil {
		t.Fatalf("NewAssemblyAI: %v", err)
	}
	return NewJobTranscriber(backend, time.Millisecond, maxAttempts, logger.Discard())
}

func TestAssemblyAI_CompletedAfterPolling(t *testing.T) {
	s := &assemblyServer{t: t, status: func(n int) (int, string) {
		if n < 3 {
			return http.StatusOK, `{"id":"tx-1","status":"processing"}`
		}
		return http.StatusOK, `{"id":"tx-1","status":"completed","text":"Mañana reunión a las 10 con el equipo"}`
	}}
	srv := httptest.NewServer(s)
	defer srv.Close()

	text, err := newAssemblyTranscriber(t, srv, 60).Transcribe(context.Background(), testAudio)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if text != "Mañana reunión a las 10 con el equipo" {
		t.Fatalf("text = %q", text)
	}
	if got := s.polls.Load(); got != 3 {
		t.Fatalf("polls = %d", got)
	}
	if s.lastReq.AudioURL != "https://cdn.example/abc" || s.lastReq.LanguageCode != "es" {
		t.Fatalf("submit body = %+v", s.lastReq)
	}
}

func TestAssemblyAI_PollCeiling(t *testing.T) {
	s := &assemblyServer{t: t, status: func(int) (int, string) {
		return http.StatusOK, `{"id":"tx-1","status":"processing"}`
	}}
	srv := httptest.NewServer(s)
	defer srv.Close()

	_, err := newAssemblyTranscriber(t, srv, 60).Transcribe(context.Background(), testAudio)
	if !utils.IsCode(err, utils.CodeTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if got := s.polls.Load(); got != 60 {
		t.Fatalf("expected exactly 60 polls, got %d", got)
	}
}

func TestAssemblyAI_Failures(t *testing.T) {
	tests := []struct {
		name        string
		upload      func() (int, string)
		status      func(int) (int, string)
		wantCode    utils.Code
		wantMessage string
	}{
		{
			name:        "upload rejected carries raw body",
			upload:      func() (int, string) { return http.StatusUnauthorized, `{"error":"Invalid API key"}` },
			wantCode:    utils.CodeTranscriptionBackend,
			wantMessage: `Upload error: {"error":"Invalid API key"}`,
		},
		{
			name: "job error",
			status: func(int) (int, string) {
				return http.StatusOK, `{"id":"tx-1","status":"error","error":"File does not appear to contain audio"}`
			},
			wantCode:    utils.CodeTranscriptionBackend,
			wantMessage: "Transcription failed: File does not appear to contain audio",
		},
		{
			name: "poll transport failure",
			status: func(int) (int, string) {
				return http.StatusInternalServerError, "upstream down"
			},
			wantCode:    utils.CodeTranscriptionBackend,
			wantMessage: "Polling error: upstream down",
		},
		{
			name: "completed without text",
			status: func(int) (int, string) {
				return http.StatusOK, `{"id":"tx-1","status":"completed","text":""}`
			},
			wantCode:    utils.CodeEmptyTranscription,
			wantMessage: "No transcription returned from AssemblyAI",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &assemblyServer{t: t, upload: tc.upload, status: tc.status}
			if s.status == nil {
				s.status = func(int) (int, string) { return http.StatusOK, `{"status":"processing"}` }
			}
			srv := httptest.NewServer(s)
			defer srv.Close()

			_, err := newAssemblyTranscriber(t, srv, 60).Transcribe(context.Background(), testAudio)
			if !utils.IsCode(err, tc.wantCode) {
				t.Fatalf("code = %s, err = %v", utils.CodeOf(err), err)
			}
			if got := utils.MessageOf(err); !strings.HasPrefix(got, tc.wantMessage) {
				t.Fatalf("message = %q, want prefix %q", got, tc.wantMessage)
			}
		})
	}
}

func TestNewAssemblyAI_RequiresKey(t *testing.T) {
	_, err := NewAssemblyAI("", "", "es", 0)
	if !utils.IsCode(err, utils.CodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
