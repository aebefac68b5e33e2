package report

import (
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"

	"github.com/Veckatimest/uniqipgo/internal/fanout"
)

type Report struct {
	Source     string        `json:"source"`
	Store      string        `json:"store"`
	StoreBytes uint64        `json:"store_bytes"`
	Unique     uint64        `json:"unique"`
	Lines      uint64        `json:"lines"`
	Blank      uint64        `json:"blank"`
	Malformed  uint64        `json:"malformed"`
	Elapsed    time.Duration `json:"-"`
	ElapsedMs  int64         `json:"elapsed_ms"`
}

func New(source, store string, storeBytes, unique uint64, stats fanout.Stats, elapsed time.Duration) Report {
	return Report{
		Source:     source,
		Store:      store,
		StoreBytes: storeBytes,
		Unique:     unique,
		Lines:      stats.Lines,
		Blank:      stats.Blank,
		Malformed:  stats.Malformed,
		Elapsed:    elapsed,
		ElapsedMs:  elapsed.Milliseconds(),
	}
}

// Write renders r as "text" or "json".
func (r Report) Write(w io.Writer, format string) error {
	switch format {
	case "json":
		return json.NewEncoder(w).Encode(r)
	case "text":
		_, err := fmt.Fprintf(w,
			"Number of distinct IP addresses: %d\nTime spent: %v\nLines read: %d (blank %d, malformed %d)\nStore: %s, %d bytes\n",
			r.Unique, r.Elapsed, r.Lines, r.Blank, r.Malformed, r.Store, r.StoreBytes,
		)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
