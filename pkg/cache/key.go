package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Key derives a deterministic cache key from an operation name and its
// inputs. Each part is length-prefixed before hashing so that inputs sharing
// a prefix, or splitting the same text differently across parts, never collide.
func Key(operation string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strconv.Itoa(len(p))))
		h.Write([]byte{':'})
		h.Write([]byte(p))
	}
	return operation + ":" + hex.EncodeToString(h.Sum(nil))
}
