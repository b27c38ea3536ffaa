package cipher

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// HexRandomBytes returns n bytes from crypto/rand, hex-encoded.
func HexRandomBytes(n int) (string, error) {
	return HexRandomBytesFrom(rand.Reader, n)
}

// HexRandomBytesFrom is HexRandomBytes over an explicit source.
func HexRandomBytesFrom(r io.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// RandomString returns n symbols from alphabet. Bytes at or above the
// largest multiple of len(alphabet) are discarded so every symbol is equally
// likely.
func RandomString(r io.Reader, alphabet string, n int) (string, error) {
	if alphabet == "" || len(alphabet) > 256 {
		return "", fmt.Errorf("alphabet size %d out of range", len(alphabet))
	}
	limit := 256 - 256%len(alphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		chunk := buf[:n-len(out)]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range chunk {
			if int(b) < limit {
				out = append(out, alphabet[int(b)%len(alphabet)])
			}
		}
	}
	return string(out), nil
}
