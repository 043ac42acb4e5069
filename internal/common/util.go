package common

import (
	"crypto/rand"
)

// GenerateRandByteArray returns size bytes from crypto/rand.
// crypto/rand.Read never fails on supported platforms, so the error is dropped.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	_, _ = rand.Read(b)
	return b
}

// WipeByteArray overwrites b with zeros. Nil slices are ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
