package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/yoockh/voicetasks/internal/capture"
	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/utils"
)

func TestClient_Transcribe(t *testing.T) {
	var got models.TranscribeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions/v1/transcribe-audio" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer anon" || r.Header.Get("apikey") != "anon" {
			t.Errorf("missing credentials: %v", r.Header)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"text":"comprar pan"}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/functions/v1/", WithAPIKey("anon"))
	text, err := c.Transcribe(context.Background(), capture.Blob{Data: []byte("abc"), MIMEType: "audio/webm"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "comprar pan" {
		t.Fatalf("text = %q", text)
	}
	if got.Audio != base64.StdEncoding.EncodeToString([]byte("abc")) || got.MIMEType != "audio/webm" {
		t.Fatalf("request = %+v", got)
	}
}

func TestClient_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in models.ExtractRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Text != "llamar a Ana" {
			t.Errorf("text = %q", in.Text)
		}
		_, _ = io.WriteString(w, `{"tasks":[{"title":"Llamar a Ana","time":"09:00","priority":"medium"}]}`)
	}))
	defer srv.Close()

	tasks, err := New(srv.URL).Extract(context.Background(), "llamar a Ana")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []models.TaskRecord{{Title: "Llamar a Ana", Time: "09:00", Priority: models.PriorityMedium}}
	if !reflect.DeepEqual(tasks, want) {
		t.Fatalf("tasks = %+v", tasks)
	}
}

func TestClient_RemoteErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode utils.Code
		wantMsg  string
	}{
		{"coded", http.StatusGatewayTimeout, `{"error":"Transcription timeout - no result after 60 attempts","code":"TIMEOUT"}`, utils.CodeTimeout, "Transcription timeout - no result after 60 attempts"},
		{"uncoded json", http.StatusBadRequest, `{"error":"No text provided"}`, utils.CodeInvalidArgument, "No text provided"},
		{"plain text", http.StatusBadGateway, "upstream failure", utils.CodeUnavailable, "upstream failure"},
		{"empty body", http.StatusInternalServerError, "", utils.CodeInternal, "Internal Server Error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL).Extract(context.Background(), "x")
			if !utils.IsCode(err, tc.wantCode) {
				t.Fatalf("code = %s, err = %v", utils.CodeOf(err), err)
			}
			if utils.MessageOf(err) != tc.wantMsg {
				t.Fatalf("message = %q", utils.MessageOf(err))
			}
		})
	}
}

func TestClient_EmptyAudio(t *testing.T) {
	_, err := New("http://127.0.0.1:0").Transcribe(context.Background(), capture.Blob{})
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
