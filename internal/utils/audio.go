package utils

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffAudioType detects the container of an encoded recording from its
// leading bytes. It returns "" when the content is not recognisable audio.
func SniffAudioType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	m := mimetype.Detect(data)
	switch {
	// WebM and Ogg are detected as video/application containers; recordings
	// here are always audio only.
	case m.Is("video/webm"), m.Is("audio/webm"):
		return "audio/webm"
	case m.Is("audio/ogg"), m.Is("application/ogg"):
		return "audio/ogg"
	case m.Is("audio/wav"):
		return "audio/wav"
	}
	if base, _, _ := strings.Cut(m.String(), ";"); strings.HasPrefix(base, "audio/") {
		return base
	}
	return ""
}
