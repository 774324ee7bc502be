package chunk

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"sync"

	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

// Default digest names: a fast 128-bit digest and a strong 256-bit one.
const (
	DefaultFastDigest   = "md5"
	DefaultStrongDigest = "sha256"
)

// Accumulator is an incremental digest over a byte stream. Finalize may be
// called once; Update after Finalize is an error.
type Accumulator interface {
	Name() string
	Update(p []byte) error
	Finalize() (string, error)
}

var (
	digestMu  sync.RWMutex
	digestReg = map[string]func() hash.Hash{
		"md5":    md5.New,
		"sha1":   sha1.New,
		"sha256": sha256.New,
		"sha512": sha512.New,
		"xxh3":   func() hash.Hash { return xxh128{xxh3.New()} },
		"blake3": func() hash.Hash { return blake3.New() },
	}
)

// RegisterDigest makes a hash constructor available under name, replacing
// any previous registration.
func RegisterDigest(name string, fn func() hash.Hash) {
	digestMu.Lock()
	defer digestMu.Unlock()
	digestReg[name] = fn
}

// DigestNames lists the registered digests in sorted order.
func DigestNames() []string {
	digestMu.RLock()
	defer digestMu.RUnlock()
	names := make([]string, 0, len(digestReg))
	for n := range digestReg {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewAccumulator returns a fresh accumulator for the named digest.
func NewAccumulator(name string) (Accumulator, error) {
	digestMu.RLock()
	fn, ok := digestReg[name]
	digestMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown digest %q: %w", name, ErrInvalidOptions)
	}
	return &hashAccumulator{name: name, h: fn()}, nil
}

// xxh128 exposes the 128-bit XXH3 variant through hash.Hash.
type xxh128 struct{ *xxh3.Hasher }

func (h xxh128) Size() int { return 16 }

func (h xxh128) Sum(b []byte) []byte {
	s := h.Sum128()
	b = binary.BigEndian.AppendUint64(b, s.Hi)
	return binary.BigEndian.AppendUint64(b, s.Lo)
}

type hashAccumulator struct {
	name string
	h    hash.Hash
	done bool
}

func (a *hashAccumulator) Name() string { return a.name }

func (a *hashAccumulator) Update(p []byte) error {
	if a.done {
		return fmt.Errorf("%s: update after finalize: %w", a.name, ErrDigest)
	}
	if _, err := a.h.Write(p); err != nil {
		return fmt.Errorf("%s: %w: %w", a.name, ErrDigest, err)
	}
	return nil
}

func (a *hashAccumulator) Finalize() (string, error) {
	if a.done {
		return "", fmt.Errorf("%s: finalized twice: %w", a.name, ErrDigest)
	}
	a.done = true
	return hex.EncodeToString(a.h.Sum(nil)), nil
}
