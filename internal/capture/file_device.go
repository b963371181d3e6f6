package capture

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/yoockh/voicetasks/internal/utils"
)

const DefaultChunkSize = 16 * 1024

// FileDevice replays a recording from disk as if it came from a
// microphone: the file is split into ChunkSize pieces, then the stream
// stays open and silent until closed.
type FileDevice struct {
	Path      string
	ChunkSize int
	MIMEType  string // sniffed from the content when empty
}

var _ Device = (*FileDevice)(nil)

func (d *FileDevice) Open(context.Context) (Stream, error) {
	const op = "FileDevice.Open"

	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, utils.E(utils.CodePermissionDenied, op, "cannot open input "+d.Path, err)
	}

	size := d.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	mimeType := d.MIMEType
	if mimeType == "" {
		mimeType = utils.SniffAudioType(data)
	}

	s := &fileStream{mimeType: mimeType, closed: make(chan struct{})}
	for len(data) > 0 {
		n := min(size, len(data))
		s.chunks = append(s.chunks, data[:n])
		data = data[n:]
	}
	return s, nil
}

type fileStream struct {
	mu       sync.Mutex
	chunks   [][]byte
	mimeType string
	closed   chan struct{}
	once     sync.Once
}

func (s *fileStream) Next(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if len(s.chunks) > 0 {
		c := s.chunks[0]
		s.chunks = s.chunks[1:]
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	select {
	case <-s.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fileStream) MIMEType() string { return s.mimeType }

func (s *fileStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
