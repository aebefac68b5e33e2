package fanout

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"sync"

	"github.com/Veckatimest/uniqipgo/internal/presence"
)

const (
	RAW_BATCH_SIZE = 2000
	BYTES_500K     = 500 * 1024
	MAX_LOGGED     = 10
)

// Policy decides what happens to a line that is not a valid address.
type Policy int

const (
	// PolicySkip logs the line, counts it as malformed and carries on.
	PolicySkip Policy = iota
	// PolicyFail stops the run and returns a *LineError.
	PolicyFail
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "skip":
		return PolicySkip, nil
	case "fail":
		return PolicyFail, nil
	default:
		return 0, fmt.Errorf("unknown error policy %q, expected skip or fail", s)
	}
}

func (p Policy) String() string {
	switch p {
	case PolicySkip:
		return "skip"
	case PolicyFail:
		return "fail"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

type Options struct {
	Workers   int
	BatchSize int
	// MaxLine is the longest line the scanner accepts, in bytes.
	MaxLine   int
	Policy    Policy
	MaxLogged int
	Logger    *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.BatchSize < 1 {
		o.BatchSize = RAW_BATCH_SIZE
	}
	if o.MaxLine < 1 {
		o.MaxLine = BYTES_500K
	}
	if o.MaxLogged < 0 {
		o.MaxLogged = 0
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Stats describes the lines seen during a run. Lines counts every line read,
// including blank and malformed ones.
type Stats struct {
	Lines     uint64
	Blank     uint64
	Malformed uint64
}

// Run reads r line by line and adds every address to target. The distinct
// count is read from target once Run returns.
//
// Cancelling ctx is only noticed between reads. A caller reading from a pipe
// or terminal should close r when ctx is done so a pending Read returns.
func Run(ctx context.Context, r io.Reader, target *presence.Counter, opts Options) (Stats, error) {
	opts = opts.withDefaults()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	batchPool := sync.Pool{
		New: func() any {
			return &lineBatch{lines: make([]string, 0, opts.BatchSize)}
		},
	}
	batchCh := make(chan *lineBatch, opts.Workers*2)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		if err := readToChan(ctx, r, batchCh, &batchPool, opts); err != nil {
			cancel(fmt.Errorf("reading input: %w", err))
		}
	}()

	var t tally
	var wg sync.WaitGroup
	wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go func() {
			defer wg.Done()
			if err := batchParser(ctx, batchCh, target, &batchPool, &t, opts); err != nil {
				cancel(err)
			}
		}()
	}

	wg.Wait()
	<-readDone

	stats := t.snapshot()
	if err := context.Cause(ctx); err != nil {
		return stats, err
	}

	return stats, nil
}
