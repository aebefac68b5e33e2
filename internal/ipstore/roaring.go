package ipstore

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// Roaring is an exact compressed store. Its memory follows the number of distinct
// addresses rather than the size of the address space.
type Roaring struct {
	sync.Mutex
	bm *roaring.Bitmap
}

func NewRoaring() *Roaring {
	return &Roaring{bm: roaring.New()}
}

func (r *Roaring) Insert(ip uint32) {
	r.Lock()
	r.bm.Add(ip)
	r.Unlock()
}

func (r *Roaring) Contains(ip uint32) bool {
	r.Lock()
	defer r.Unlock()

	return r.bm.Contains(ip)
}

func (r *Roaring) Count() uint64 {
	r.Lock()
	defer r.Unlock()

	return r.bm.GetCardinality()
}

func (r *Roaring) Clear() {
	r.Lock()
	r.bm.Clear()
	r.Unlock()
}

// SizeInBytes grows with the number of distinct addresses.
func (r *Roaring) SizeInBytes() uint64 {
	r.Lock()
	defer r.Unlock()

	return r.bm.GetSizeInBytes()
}

func (r *Roaring) Close() error {
	return nil
}
