package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicetasks/internal/capture"
	"github.com/yoockh/voicetasks/internal/metrics"
	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/orchestrator"
	"github.com/yoockh/voicetasks/internal/providers/stt"
	"github.com/yoockh/voicetasks/internal/services"
	"github.com/yoockh/voicetasks/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingEvery    = 25 * time.Second
)

// VoiceWSHandler drives one voice pipeline per WebSocket. Binary frames are
// audio chunks; text frames are JSON commands.
type VoiceWSHandler struct {
	transcription services.TranscriptionService
	extraction    services.ExtractionService
	metrics       *metrics.Metrics
	log           *logrus.Logger
	upgrader      websocket.Upgrader
}

func NewVoiceWSHandler(ts services.TranscriptionService, es services.ExtractionService, m *metrics.Metrics, log *logrus.Logger) *VoiceWSHandler {
	return &VoiceWSHandler{
		transcription: ts,
		extraction:    es,
		metrics:       m,
		log:           log,
		upgrader: websocket.Upgrader{
			// same open policy as the CORS middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type voiceClientMsg struct {
	Type     string `json:"type"` // start|stop|confirm|cancel|dismiss
	MIMEType string `json:"mime_type"`
	Text     string `json:"text"`
}

type voiceServerMsg struct {
	Type       string               `json:"type"` // state|tasks|error
	State      orchestrator.State   `json:"state,omitempty"`
	Transcript string               `json:"transcript,omitempty"`
	Tasks      []models.TaskRecord  `json:"tasks,omitempty"`
	Notice     *orchestrator.Notice `json:"notice,omitempty"`
	Code       string               `json:"code,omitempty"`
	Message    string               `json:"message,omitempty"`
	Detail     string               `json:"detail,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.c.WriteJSON(v)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

func (w *wsConn) writeErr(err error) {
	_ = w.writeJSON(voiceServerMsg{
		Type:    "error",
		Code:    string(utils.CodeOf(err)),
		Message: orchestrator.UserMessage(err),
		Detail:  utils.MessageOf(err),
	})
}

// wsSink delivers confirmed tasks to the client's list.
type wsSink struct{ wc *wsConn }

func (s wsSink) AddTasks(_ context.Context, tasks []models.TaskRecord) error {
	if err := s.wc.writeJSON(voiceServerMsg{Type: "tasks", Tasks: tasks}); err != nil {
		return utils.E(utils.CodeUnavailable, "wsSink.AddTasks", "client went away", err)
	}
	return nil
}

// Voice handles GET /ws/voice.
func (h *VoiceWSHandler) Voice(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response
		return
	}
	defer conn.Close()

	h.metrics.ActiveSessions.Inc()
	defer h.metrics.ActiveSessions.Dec()

	// in-flight commands finish after cancel below interrupts them
	var wg sync.WaitGroup
	defer wg.Wait()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	device := capture.NewPushDevice(services.DefaultAudioMIMEType)
	rec := capture.NewRecorder(device, h.log)
	transcribe := orchestrator.TranscriberFunc(func(ctx context.Context, b capture.Blob) (string, error) {
		return h.transcription.TranscribeAudio(ctx, stt.Audio{Data: b.Data, MIMEType: b.MIMEType})
	})
	pipe := orchestrator.New(rec, transcribe, h.extraction, wsSink{wc: wc},
		orchestrator.WithLogger(h.log),
		orchestrator.WithListener(func(ev orchestrator.Event) {
			msg := voiceServerMsg{Type: "state", State: ev.State, Transcript: ev.Transcript, Notice: ev.Notice}
			if ev.Err != nil {
				msg.Type = "error"
				msg.Code = string(utils.CodeOf(ev.Err))
				msg.Message = orchestrator.UserMessage(ev.Err)
			}
			_ = wc.writeJSON(msg)
		}),
	)
	// releases capture and interrupts in-flight calls
	defer pipe.Cancel()

	entry := h.log.WithField("request_id", c.GetString("request_id"))
	entry.Info("voice session opened")
	defer entry.Info("voice session closed")

	_ = wc.writeJSON(voiceServerMsg{Type: "state", State: pipe.State()})

	go func() {
		t := time.NewTicker(wsPingEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := wc.ping(); err != nil {
					return
				}
			}
		}
	}()

	// stop and confirm wait on the network; run them off the read loop so
	// cancel stays responsive
	async := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		kind, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if kind == websocket.BinaryMessage {
			if err := device.Push(data); err != nil {
				wc.writeErr(err)
			}
			continue
		}

		var msg voiceClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			wc.writeErr(utils.E(utils.CodeInvalidArgument, "VoiceWSHandler.Voice", "invalid json", err))
			continue
		}

		switch msg.Type {
		case "start":
			if msg.MIMEType != "" {
				device.SetMIMEType(msg.MIMEType)
			} else {
				device.SetMIMEType(services.DefaultAudioMIMEType)
			}
			if err := pipe.Start(ctx); err != nil && utils.IsCode(err, utils.CodeConflict) {
				wc.writeErr(err)
			}

		case "stop":
			async(func() {
				if _, err := pipe.Stop(ctx); err != nil && utils.IsCode(err, utils.CodeConflict) {
					wc.writeErr(err)
				}
			})

		case "confirm":
			text := msg.Text
			async(func() {
				if _, err := pipe.Confirm(ctx, text); err != nil && utils.IsCode(err, utils.CodeConflict) {
					wc.writeErr(err)
				}
			})

		case "cancel":
			pipe.Cancel()

		case "dismiss":
			pipe.Dismiss()

		default:
			wc.writeErr(utils.E(utils.CodeInvalidArgument, "VoiceWSHandler.Voice", "unknown message type", nil))
		}
	}
}
