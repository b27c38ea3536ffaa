package cipher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"
)

var digests = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// Digest computes the named digest over input.
func Digest(algorithm string, input []byte) ([]byte, error) {
	newHash, ok := digests[strings.ToLower(strings.TrimSpace(algorithm))]
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
	h := newHash()
	h.Write(input)
	return h.Sum(nil), nil
}

// DigestAlgorithms lists the names accepted by Digest.
func DigestAlgorithms() []string {
	names := make([]string, 0, len(digests))
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HashEncrypt digests text and renders the sum with the given output encoding
// ("hex" or "base64"). Login endpoints use it to pre-hash passwords.
func HashEncrypt(text, algorithm, encoding string) (string, error) {
	sum, err := Digest(algorithm, []byte(text))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "hex":
		return hex.EncodeToString(sum), nil
	case "base64":
		return base64.StdEncoding.EncodeToString(sum), nil
	default:
		return "", fmt.Errorf("unsupported output encoding %q", encoding)
	}
}
