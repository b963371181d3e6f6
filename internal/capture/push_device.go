package capture

import (
	"context"
	"io"
	"sync"

	"github.com/yoockh/voicetasks/internal/utils"
)

// PushDevice is fed by a transport (a WebSocket, a test) instead of
// hardware. Only one stream can be open at a time.
type PushDevice struct {
	mu       sync.Mutex
	mimeType string
	current  *pushStream
}

var _ Device = (*PushDevice)(nil)

func NewPushDevice(mimeType string) *PushDevice {
	return &PushDevice{mimeType: mimeType}
}

// SetMIMEType changes the encoding tag used by streams opened afterwards.
func (d *PushDevice) SetMIMEType(mimeType string) {
	d.mu.Lock()
	d.mimeType = mimeType
	d.mu.Unlock()
}

func (d *PushDevice) Open(context.Context) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil && !d.current.isClosed() {
		return nil, utils.E(utils.CodeConflict, "PushDevice.Open", "input already in use", nil)
	}
	d.current = &pushStream{mimeType: d.mimeType, notify: make(chan struct{}, 1)}
	return d.current, nil
}

// Push queues one chunk on the open stream. It fails when no stream is
// open.
func (d *PushDevice) Push(chunk []byte) error {
	d.mu.Lock()
	s := d.current
	d.mu.Unlock()

	if s == nil {
		return utils.E(utils.CodeConflict, "PushDevice.Push", "not recording", nil)
	}
	return s.push(chunk)
}

type pushStream struct {
	mu       sync.Mutex
	queue    [][]byte
	closed   bool
	mimeType string
	notify   chan struct{}
}

func (s *pushStream) push(chunk []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return utils.E(utils.CodeConflict, "PushDevice.Push", "not recording", nil)
	}
	s.queue = append(s.queue, append([]byte(nil), chunk...))
	s.mu.Unlock()

	s.wake()
	return nil
}

func (s *pushStream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *pushStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *pushStream) Next(ctx context.Context) ([]byte, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			chunk := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return chunk, nil
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return nil, io.EOF
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.notify:
		}
	}
}

func (s *pushStream) MIMEType() string { return s.mimeType }

func (s *pushStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
	return nil
}
