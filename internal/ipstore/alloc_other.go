//go:build !(linux || darwin || freebsd)

package ipstore

var allocWords = heapWords

func heapWords(n int) ([]uint64, func() error, error) {
	return make([]uint64, n), nil, nil
}
