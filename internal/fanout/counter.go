package fanout

import "sync/atomic"

// tally is shared by all parser goroutines of one run.
type tally struct {
	lines     atomic.Uint64
	blank     atomic.Uint64
	malformed atomic.Uint64
	logged    atomic.Int64
}

func (t *tally) add(lines, blank, malformed uint64) {
	t.lines.Add(lines)
	if blank != 0 {
		t.blank.Add(blank)
	}
	if malformed != 0 {
		t.malformed.Add(malformed)
	}
}

func (t *tally) snapshot() Stats {
	return Stats{
		Lines:     t.lines.Load(),
		Blank:     t.blank.Load(),
		Malformed: t.malformed.Load(),
	}
}
