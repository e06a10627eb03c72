package common

import "crypto/rand"

// GenerateRandByteArray returns size bytes read from the system CSPRNG.
// crypto/rand.Read does not fail on supported platforms, so no error is
// returned.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	_, _ = rand.Read(b)
	return b
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// This is useful for removing sensitive data such as passwords read from a
// terminal once they have been hashed or verified.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
