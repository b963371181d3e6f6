package cache

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

const keyPrefix = "voicetasks:"

// Key derives a content-addressed key: same payload, same key.
// ex: Key("transcript", audio) -> "voicetasks:transcript:<64 hex chars>"
func Key(kind string, payload ...[]byte) string {
	h := blake3.New(32, nil)
	for _, p := range payload {
		_, _ = h.Write(p)
		// separator so ("ab","c") and ("a","bc") differ
		_, _ = h.Write([]byte{0})
	}
	return keyPrefix + kind + ":" + hex.EncodeToString(h.Sum(nil))
}
