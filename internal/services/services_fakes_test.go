package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/yoockh/voicetasks/internal/providers/stt"
)

type fakeModel struct {
	answer string
	err    error

	calls      int
	lastSystem string
	lastUser   string
}

func (f *fakeModel) Name() string { return "fake-model" }
func (f *fakeModel) Close() error { return nil }

func (f *fakeModel) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.lastSystem, f.lastUser = system, user
	return f.answer, f.err
}

type fakeSTT struct {
	text  string
	err   error
	calls int
	last  stt.Audio
}

func (f *fakeSTT) Close() error { return nil }

func (f *fakeSTT) Transcribe(_ context.Context, audio stt.Audio) (string, error) {
	f.calls++
	f.last = audio
	return f.text, f.err
}

// memCache is an in-memory cache.Cache.
type memCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemCache() *memCache { return &memCache{m: map[string][]byte{}} }

func (c *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.m[key] = b
	c.mu.Unlock()
	return nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.m, k)
	}
	return nil
}
