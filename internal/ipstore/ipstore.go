package ipstore

import (
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"
)

const (
	TotalIPs    = 1 << 32
	Words       = TotalIPs >> 6
	BitmapBytes = Words * 8 // 512 MiB
)

// ErrAlloc is returned when the backing memory of a store cannot be reserved.
var ErrAlloc = errors.New("cannot reserve presence storage")

// Store tracks which 32-bit addresses have been seen.
type Store interface {
	Insert(ip uint32)
	Contains(ip uint32) bool
	Count() uint64
	Clear()
	// SizeInBytes is the memory the store holds for its bits.
	SizeInBytes() uint64
	Close() error
}

type Kind string

const (
	KindBitmap  Kind = "bitmap"
	KindRoaring Kind = "roaring"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindBitmap, KindRoaring:
		return k, nil
	default:
		return "", fmt.Errorf("unknown store %q, expected %q or %q", s, KindBitmap, KindRoaring)
	}
}

func New(kind Kind) (Store, error) {
	switch kind {
	case KindBitmap:
		return NewBitmap()
	case KindRoaring:
		return NewRoaring(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}

// Bitmap holds one bit for every IPv4 address. Insert is safe for concurrent use;
// Count and Clear are not and must run once inserts are done.
type Bitmap struct {
	words   []uint64
	release func() error
}

func NewBitmap() (*Bitmap, error) {
	words, release, err := allocWords(Words)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes: %v", ErrAlloc, BitmapBytes, err)
	}

	return &Bitmap{words: words, release: release}, nil
}

func (b *Bitmap) Insert(ip uint32) {
	atomic.OrUint64(&b.words[ip>>6], 1<<(ip&63))
}

func (b *Bitmap) Contains(ip uint32) bool {
	return atomic.LoadUint64(&b.words[ip>>6])&(1<<(ip&63)) != 0
}

func (b *Bitmap) Count() uint64 {
	var total uint64
	for _, w := range b.words {
		if w != 0 {
			total += uint64(bits.OnesCount64(w))
		}
	}

	return total
}

// Clear only writes the words that are set so untouched pages stay unbacked.
func (b *Bitmap) Clear() {
	for i, w := range b.words {
		if w != 0 {
			b.words[i] = 0
		}
	}
}

// SizeInBytes is always the full reservation, however few pages are resident.
func (b *Bitmap) SizeInBytes() uint64 {
	return BitmapBytes
}

func (b *Bitmap) Close() error {
	if b.release == nil {
		return nil
	}
	err := b.release()
	b.words, b.release = nil, nil

	return err
}
