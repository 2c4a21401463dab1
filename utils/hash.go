package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// CreateSHA256Hash returns the hex digest of the concatenated data.
func CreateSHA256Hash(data ...[]byte) string {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	return hex.EncodeToString(h.Sum(nil))
}
