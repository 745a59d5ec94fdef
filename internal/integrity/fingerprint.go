package integrity

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
)

const (
	murmurM    = 0x5bd1e995
	murmurSeed = 1
)

func isFingerprintSpace(b byte) bool { return b == 9 || b == 10 || b == 13 || b == 32 }

// Fingerprint computes the CurseForge file fingerprint: 32-bit MurmurHash2
// (seed 1) over the file with tab, LF, CR and space bytes removed.
func Fingerprint(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &VerificationError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	// the normalized length seeds the hash, so count it first
	n, err := normalizedLen(f)
	if err != nil {
		return 0, &VerificationError{Path: path, Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, &VerificationError{Path: path, Err: err}
	}
	h, err := murmur2(f, n)
	if err != nil {
		return 0, &VerificationError{Path: path, Err: err}
	}
	return h, nil
}

// FingerprintBytes is Fingerprint for in-memory content.
func FingerprintBytes(b []byte) uint32 {
	var n uint32
	for _, c := range b {
		if !isFingerprintSpace(c) {
			n++
		}
	}
	h, _ := murmur2(bytes.NewReader(b), n)
	return h
}

func normalizedLen(r io.Reader) (uint32, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	var n uint32
	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
		if !isFingerprintSpace(c) {
			n++
		}
	}
}

func murmur2(r io.Reader, length uint32) (uint32, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	h := uint32(murmurSeed) ^ length
	var block [4]byte
	fill := 0
	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		if isFingerprintSpace(c) {
			continue
		}
		block[fill] = c
		fill++
		if fill == 4 {
			k := binary.LittleEndian.Uint32(block[:])
			k *= murmurM
			k ^= k >> 24
			k *= murmurM
			h *= murmurM
			h ^= k
			fill = 0
		}
	}
	switch fill {
	case 3:
		h ^= uint32(block[2]) << 16
		fallthrough
	case 2:
		h ^= uint32(block[1]) << 8
		fallthrough
	case 1:
		h ^= uint32(block[0])
		h *= murmurM
	}
	h ^= h >> 13
	h *= murmurM
	h ^= h >> 15
	return h, nil
}
