// Package presence counts distinct IPv4 addresses by keeping one presence bit
// per possible address.
//
// An address a.b.c.d is identified by a*256^3 + b*256^2 + c*256 + d, so
// 0.0.0.0 is bit 0 and 255.255.255.255 is bit 2^32-1. Textual forms that
// decode to the same value are the same address.
//
// Add and AddAddr may be called from several goroutines at once. Count must
// only be called after they have returned, and Clear must not overlap with
// any other call.
package presence

import (
	"github.com/Veckatimest/uniqipgo/internal/ipstore"
	"github.com/Veckatimest/uniqipgo/internal/util"
)

var newStore = ipstore.New

type Counter struct {
	store ipstore.Store
}

// New builds a counter on a fresh store of the given kind. For the bitmap kind
// this reserves 512 MiB up front and fails with ipstore.ErrAlloc if it cannot.
func New(kind ipstore.Kind) (*Counter, error) {
	store, err := newStore(kind)
	if err != nil {
		return nil, err
	}

	return &Counter{store: store}, nil
}

// NewWithStore wraps an existing store. The counter takes ownership of it.
func NewWithStore(store ipstore.Store) *Counter {
	return &Counter{store: store}
}

// Add marks the address written in dotted-decimal text as seen. Malformed text
// yields a *util.FormatError and leaves the counter unchanged.
func (c *Counter) Add(text string) error {
	ip, err := util.ParseToUint(text)
	if err != nil {
		return err
	}
	c.store.Insert(ip)

	return nil
}

func (c *Counter) AddAddr(ip uint32) {
	c.store.Insert(ip)
}

func (c *Counter) Contains(text string) (bool, error) {
	ip, err := util.ParseToUint(text)
	if err != nil {
		return false, err
	}

	return c.store.Contains(ip), nil
}

// Count returns the number of distinct addresses added since construction or
// the last Clear.
func (c *Counter) Count() uint64 {
	return c.store.Count()
}

func (c *Counter) SizeInBytes() uint64 {
	return c.store.SizeInBytes()
}

func (c *Counter) Clear() {
	c.store.Clear()
}

func (c *Counter) Close() error {
	return c.store.Close()
}
