package utils

import "testing"

func TestSniffAudioType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "empty", data: nil, want: ""},
		{name: "webm", data: []byte{0x1a, 0x45, 0xdf, 0xa3, 0x9f, 0x42, 0x86, 0x81, 0x01, 0x42, 0xf7, 0x81, 0x01, 0x42, 0xf2, 0x81, 0x04, 0x42, 0xf3, 0x81, 0x08, 0x42, 0x82, 0x84, 'w', 'e', 'b', 'm'}, want: "audio/webm"},
		{name: "wav", data: append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 16)...), want: "audio/wav"},
		{name: "flac", data: append([]byte("fLaC"), make([]byte, 34)...), want: "audio/flac"},
		{name: "text", data: []byte("hola, esto no es audio"), want: ""},
	}
	for _, tc := range tests {
		if got := SniffAudioType(tc.data); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
