package integrity

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sha1Hex(b []byte) string { s := sha1.Sum(b); return hex.EncodeToString(s[:]) }
func md5Hex(b []byte) string  { s := md5.Sum(b); return hex.EncodeToString(s[:]) }

func writeTemp(t *testing.T, b []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "artifact.jar")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSelectPrefersSHA1(t *testing.T) {
	d, ok := Select([]Digest{{Value: "aa", Algo: MD5}, {Value: "bb", Algo: SHA1}})
	if !ok || d.Algo != SHA1 || d.Value != "bb" {
		t.Fatalf("Select=%+v ok=%v", d, ok)
	}
	d, ok = Select([]Digest{{Value: "aa", Algo: MD5}})
	if !ok || d.Algo != MD5 {
		t.Fatalf("md5 fallback: %+v ok=%v", d, ok)
	}
	if _, ok := Select([]Digest{{Value: "cc", Algo: Algorithm(7)}, {Value: "", Algo: SHA1}}); ok {
		t.Fatalf("unsupported and empty digests must not be selected")
	}
	if _, ok := Select(nil); ok {
		t.Fatalf("nil digests must not be selected")
	}
}

func TestVerifyFileSHA1TakesPrecedence(t *testing.T) {
	body := []byte("hello mod")
	p := writeTemp(t, body)
	declared := []Digest{
		{Value: strings.Repeat("0", 32), Algo: MD5},
		{Value: strings.ToUpper(sha1Hex(body)), Algo: SHA1},
	}
	o, err := VerifyFile(p, declared)
	if err != nil {
		t.Fatalf("VerifyFile: %v", err)
	}
	if !o.Performed || !o.Matched || o.Algo != SHA1 || !o.OK() {
		t.Fatalf("unexpected outcome: %+v", o)
	}
}

func TestVerifyFileMismatchIsNotError(t *testing.T) {
	p := writeTemp(t, []byte("payload"))
	o, err := VerifyFile(p, []Digest{{Value: md5Hex([]byte("other")), Algo: MD5}})
	if err != nil {
		t.Fatalf("mismatch must not be an error: %v", err)
	}
	if !o.Performed || o.Matched || o.OK() {
		t.Fatalf("expected performed mismatch, got %+v", o)
	}
	if o.Actual != md5Hex([]byte("payload")) {
		t.Fatalf("actual=%s", o.Actual)
	}
}

func TestVerifyFileNoDigestSkips(t *testing.T) {
	o, err := VerifyFile(filepath.Join(t.TempDir(), "missing"), nil)
	if err != nil {
		t.Fatalf("skip must not touch the file: %v", err)
	}
	if o.Performed || !o.OK() {
		t.Fatalf("expected skipped outcome, got %+v", o)
	}
}

func TestVerifyFileUnreadable(t *testing.T) {
	_, err := VerifyFile(filepath.Join(t.TempDir(), "missing"), []Digest{{Value: "ab", Algo: SHA1}})
	var ve *VerificationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected VerificationError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("VerificationError should unwrap to ErrNotExist: %v", err)
	}
}

func TestVerifyFileIdempotent(t *testing.T) {
	body := []byte{0x01, 0x02, 0x03}
	p := writeTemp(t, body)
	declared := []Digest{{Value: sha1Hex(body), Algo: SHA1}}
	a, err := VerifyFile(p, declared)
	if err != nil {
		t.Fatal(err)
	}
	b, err := VerifyFile(p, declared)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("outcomes differ: %+v vs %+v", a, b)
	}
}

func TestAccumulatorMatchesFilePass(t *testing.T) {
	body := []byte(strings.Repeat("abc", 1000))
	declared := []Digest{{Value: sha1Hex(body), Algo: SHA1}}
	acc := NewAccumulator(declared)
	if acc == nil {
		t.Fatal("expected accumulator")
	}
	_, _ = acc.Write(body[:10])
	_, _ = acc.Write(body[10:])
	o1 := acc.Outcome()
	o2, err := VerifyFile(writeTemp(t, body), declared)
	if err != nil {
		t.Fatal(err)
	}
	if o1 != o2 {
		t.Fatalf("single pass %+v != two pass %+v", o1, o2)
	}

	var none *Accumulator
	if NewAccumulator(nil) != nil || none.Outcome().Performed {
		t.Fatalf("nil accumulator should report skipped")
	}
}

func TestParseAlgorithmRoundTrip(t *testing.T) {
	for _, a := range []Algorithm{SHA1, MD5} {
		got, ok := ParseAlgorithm(" " + strings.ToUpper(a.String()))
		if !ok || got != a {
			t.Fatalf("ParseAlgorithm(%s)=%v,%v", a, got, ok)
		}
	}
	if _, ok := ParseAlgorithm("sha256"); ok {
		t.Fatalf("sha256 should not parse")
	}
}
