// Package integrity checks downloaded artifacts against server-declared digests.
//
// Two legacy algorithms are understood. When a file declares both, SHA-1 wins.
// When it declares neither, verification is skipped and the outcome counts as
// a pass.
package integrity

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithm is the numeric hash tag used by the API.
type Algorithm int

const (
	SHA1 Algorithm = 1
	MD5  Algorithm = 2
)

func (a Algorithm) String() string {
	switch a {
	case SHA1:
		return "sha1"
	case MD5:
		return "md5"
	default:
		return fmt.Sprintf("algo(%d)", int(a))
	}
}

// ParseAlgorithm maps "sha1" or "md5" (any case) back to its tag.
func ParseAlgorithm(s string) (Algorithm, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sha1":
		return SHA1, true
	case "md5":
		return MD5, true
	}
	return 0, false
}

// Supported reports whether a digest with this tag can be recomputed.
func (a Algorithm) Supported() bool { return a == SHA1 || a == MD5 }

// New returns a fresh hash for a, or nil for unsupported tags.
func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA1:
		return sha1.New()
	case MD5:
		return md5.New()
	default:
		return nil
	}
}

// Digest is one declared fingerprint of a file.
type Digest struct {
	Value string    `json:"value"`
	Algo  Algorithm `json:"algo"`
}

// preference lists algorithms strongest first.
var preference = []Algorithm{SHA1, MD5}

// Select picks the digest to verify against. ok is false when nothing usable is declared.
func Select(declared []Digest) (d Digest, ok bool) {
	for _, a := range preference {
		for _, cand := range declared {
			if cand.Algo == a && strings.TrimSpace(cand.Value) != "" {
				return cand, true
			}
		}
	}
	return Digest{}, false
}

// Outcome is the result of one verification. Performed=false means no usable
// digest was declared; Matched is meaningless then.
type Outcome struct {
	Performed bool
	Matched   bool
	Algo      Algorithm
	Expected  string
	Actual    string
}

// OK is the caller-facing boolean: skipped verification counts as success.
func (o Outcome) OK() bool { return !o.Performed || o.Matched }

// VerificationError reports that a file could not be read back for hashing.
// A digest mismatch is not an error.
type VerificationError struct {
	Path string
	Err  error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify %s: %v", e.Path, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// VerifyFile re-reads path and compares it to the preferred declared digest.
func VerifyFile(path string, declared []Digest) (Outcome, error) {
	d, ok := Select(declared)
	if !ok {
		return Outcome{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Outcome{}, &VerificationError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	actual, err := HashReader(d.Algo, f)
	if err != nil {
		return Outcome{}, &VerificationError{Path: path, Err: err}
	}
	return Compare(d, actual), nil
}

// Compare builds the Outcome for an already computed hex digest.
func Compare(d Digest, actual string) Outcome {
	return Outcome{
		Performed: true,
		Matched:   EqualHex(d.Value, actual),
		Algo:      d.Algo,
		Expected:  strings.ToLower(strings.TrimSpace(d.Value)),
		Actual:    actual,
	}
}

// HashReader streams r through algorithm a using a 1 MiB buffer.
func HashReader(a Algorithm, r io.Reader) (string, error) {
	h := a.New()
	if h == nil {
		return "", fmt.Errorf("unsupported hash algorithm %s", a)
	}
	buf := make([]byte, 1<<20)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile is HashReader over the contents of path.
func HashFile(a Algorithm, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return HashReader(a, f)
}

// EqualHex compares two hex strings ignoring case and surrounding space.
func EqualHex(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
