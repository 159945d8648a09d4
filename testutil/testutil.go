package testutil

import (
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Kind is the width of a generated field.
type Kind uint8

const (
	KindLong Kind = iota
	KindInt
	KindShort
	KindChar
	KindByte
	KindString
	numKinds
)

// Field is one generated field. Only the member matching Kind is set.
type Field struct {
	Kind  Kind
	Long  int64
	Int   int32
	Short int16
	Char  uint16
	Byte  int8
	Str   string
}

// Record is a generated record.
type Record struct {
	Type    uint8
	Version uint8
	Fields  []Field
}

// Words returns the encoded length of rec in 64-bit words, header included.
func (rec Record) Words() int {
	var bytes int
	put := func(n int) {
		if rem := bytes % 8; rem != 0 && 8-rem < n {
			bytes += 8 - rem
		}
		if rem := bytes % n; rem != 0 {
			bytes += n - rem
		}
		bytes += n
	}
	for _, f := range rec.Fields {
		switch f.Kind {
		case KindLong:
			put(8)
		case KindInt:
			put(4)
		case KindShort, KindChar:
			put(2)
		case KindByte:
			put(1)
		case KindString:
			put(2)
			for range utf16Len(f.Str) {
				put(2)
			}
		}
	}
	return 1 + (bytes+7)/8
}

func utf16Len(s string) int {
	n := 0
	for _, c := range s {
		if c >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// runes mixes ASCII, BMP and supplementary characters.
var runes = []rune("abcxyz019 _-äöüß€中文😀🎉")

// String returns a random string of up to maxLen runes.
func (r *RNG) String(maxLen int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stringLocked(maxLen)
}

func (r *RNG) stringLocked(maxLen int) string {
	n := r.rand.Intn(maxLen + 1)
	out := make([]rune, n)
	for i := range out {
		out[i] = runes[r.rand.Intn(len(runes))]
	}
	return string(out)
}

// Records returns n random records with up to maxFields fields each. Types
// and versions stay within 0..127.
func (r *RNG) Records(n, maxFields int) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs := make([]Record, n)
	for i := range recs {
		rec := Record{
			Type:    uint8(r.rand.Intn(128)),
			Version: uint8(r.rand.Intn(128)),
			Fields:  make([]Field, r.rand.Intn(maxFields+1)),
		}
		for j := range rec.Fields {
			f := Field{Kind: Kind(r.rand.Intn(int(numKinds)))}
			switch f.Kind {
			case KindLong:
				f.Long = int64(r.rand.Uint64())
			case KindInt:
				f.Int = int32(r.rand.Uint32())
			case KindShort:
				f.Short = int16(r.rand.Uint32())
			case KindChar:
				f.Char = uint16(r.rand.Uint32())
			case KindByte:
				f.Byte = int8(r.rand.Uint32())
			case KindString:
				f.Str = r.stringLocked(12)
			}
			rec.Fields[j] = f
		}
		recs[i] = rec
	}
	return recs
}
