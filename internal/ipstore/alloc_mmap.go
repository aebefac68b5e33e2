//go:build linux || darwin || freebsd

package ipstore

import (
	"syscall"
	"unsafe"
)

var allocWords = mmapWords

// mmapWords maps anonymous memory so that a failed reservation comes back as an
// error. Pages are only backed once a bit in them is set.
func mmapWords(n int) ([]uint64, func() error, error) {
	b, err := syscall.Mmap(-1, 0, n*8, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}

	words := unsafe.Slice((*uint64)(unsafe.Pointer(unsafe.SliceData(b))), n)
	return words, func() error { return syscall.Munmap(b) }, nil
}
