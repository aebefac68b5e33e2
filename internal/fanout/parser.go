package fanout

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Veckatimest/uniqipgo/internal/presence"
)

// LineError is a malformed line together with its 1-based position in the input.
type LineError struct {
	Line uint64
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

const asciiSpace = " \t\r\n\v\f"

type lineBatch struct {
	first uint64
	lines []string
}

func readToChan(
	ctx context.Context,
	r io.Reader,
	batchCh chan<- *lineBatch,
	batchPool *sync.Pool,
	opts Options,
) error {
	defer close(batchCh)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, min(64*1024, opts.MaxLine)), opts.MaxLine)

	send := func(b *lineBatch) bool {
		select {
		case <-ctx.Done():
			return false
		case batchCh <- b:
			return true
		}
	}

	var lineNo uint64
	batch := batchPool.Get().(*lineBatch)
	batch.first = 1
	for scanner.Scan() {
		lineNo++
		batch.lines = append(batch.lines, scanner.Text())

		if len(batch.lines) == opts.BatchSize {
			if !send(batch) {
				return nil
			}
			batch = batchPool.Get().(*lineBatch)
			batch.first = lineNo + 1
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			// input closed on cancel
			return nil
		}
		return fmt.Errorf("after line %d: %w", lineNo, err)
	}
	if len(batch.lines) != 0 {
		send(batch)
	}

	return nil
}

func batchParser(
	ctx context.Context,
	batchCh <-chan *lineBatch,
	target *presence.Counter,
	batchPool *sync.Pool,
	t *tally,
	opts Options,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-batchCh:
			if !ok {
				return nil
			}
			err := parseBatch(batch, target, t, opts)

			batch.lines = batch.lines[:0]
			batchPool.Put(batch)

			if err != nil {
				return err
			}
		}
	}
}

func parseBatch(batch *lineBatch, target *presence.Counter, t *tally, opts Options) error {
	var lines, blank, malformed uint64
	defer func() { t.add(lines, blank, malformed) }()

	for i, raw := range batch.lines {
		lines++

		line := strings.Trim(raw, asciiSpace)
		if line == "" {
			blank++
			continue
		}

		if err := target.Add(line); err != nil {
			lerr := &LineError{Line: batch.first + uint64(i), Text: raw, Err: err}
			if opts.Policy == PolicyFail {
				return lerr
			}

			malformed++
			if t.logged.Add(1) <= int64(opts.MaxLogged) {
				opts.Logger.Printf("skipping %v", lerr)
			}
		}
	}

	return nil
}
