package fanout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/Veckatimest/uniqipgo/internal/ipstore"
	"github.com/Veckatimest/uniqipgo/internal/presence"
	"github.com/Veckatimest/uniqipgo/internal/util"
)

func quietOptions(o Options) Options {
	o.Logger = log.New(io.Discard, "", 0)
	return o
}

func newCounter(t *testing.T) *presence.Counter {
	t.Helper()
	c, err := presence.New(ipstore.KindBitmap)
	if err != nil {
		t.Fatalf("presence.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRun_Table(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      uint64
		wantStats Stats
	}{
		{
			name:      "empty_input",
			input:     "",
			want:      0,
			wantStats: Stats{},
		},
		{
			name:      "single_valid_ip",
			input:     "1.2.3.4\n",
			want:      1,
			wantStats: Stats{Lines: 1},
		},
		{
			name:      "no_trailing_newline",
			input:     "5.6.7.8",
			want:      1,
			wantStats: Stats{Lines: 1},
		},
		{
			name:      "duplicates",
			input:     "1.2.3.4\n8.8.8.8\n1.2.3.4\n",
			want:      2,
			wantStats: Stats{Lines: 3},
		},
		{
			name:      "noise_is_skipped",
			input:     "1.2.3.4\n999.2.3.4\n1.2.3.4.5\n1.a.3.4\n255.255.255.255\n",
			want:      2,
			wantStats: Stats{Lines: 5, Malformed: 3},
		},
		{
			name:      "blank_lines_and_crlf",
			input:     "0.0.0.0\r\n\r\n  \n10.0.0.1 \r\n\t10.0.0.1\n",
			want:      2,
			wantStats: Stats{Lines: 5, Blank: 2},
		},
		{
			name:      "corner_cases",
			input:     "255.255.255.255\n255.255.255.254\n255.0.0.0\n0.0.0.0\n1.1.1.1\n",
			want:      5,
			wantStats: Stats{Lines: 5},
		},
		{
			name:      "unicode_space_is_malformed",
			input:     "\u00a01.2.3.4\n1.2.3.4\u2003\n\u00851.2.3.4\n5.6.7.8\n",
			want:      1,
			wantStats: Stats{Lines: 4, Malformed: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCounter(t)
			stats, err := Run(context.Background(), strings.NewReader(tt.input), c, quietOptions(Options{Workers: 3, BatchSize: 2}))
			if err != nil {
				t.Fatalf("Run error: %v", err)
			}
			if got := c.Count(); got != tt.want {
				t.Fatalf("Count() = %d, want %d", got, tt.want)
			}
			if stats != tt.wantStats {
				t.Fatalf("stats = %+v, want %+v", stats, tt.wantStats)
			}
		})
	}
}

func TestRun_ManyBatches(t *testing.T) {
	r := rand.New(rand.NewPCG(11, 12))
	var b bytes.Buffer
	distinct := make(map[uint32]struct{})
	const n = 50000
	for i := 0; i < n; i++ {
		ip := r.Uint32N(1 << 20)
		distinct[ip] = struct{}{}
		b.WriteString(util.FormatUint(ip))
		b.WriteByte('\n')
	}

	for _, workers := range []int{1, 4, 16} {
		t.Run(fmt.Sprintf("workers_%d", workers), func(t *testing.T) {
			c := newCounter(t)
			stats, err := Run(context.Background(), bytes.NewReader(b.Bytes()), c, quietOptions(Options{Workers: workers, BatchSize: 333}))
			if err != nil {
				t.Fatalf("Run error: %v", err)
			}
			if stats.Lines != n {
				t.Fatalf("Lines = %d, want %d", stats.Lines, n)
			}
			if got := c.Count(); got != uint64(len(distinct)) {
				t.Fatalf("Count() = %d, want %d", got, len(distinct))
			}
		})
	}
}

func TestRun_FailPolicy(t *testing.T) {
	input := "1.1.1.1\n2.2.2.2\n3.3.3\n4.4.4.4\n"
	c := newCounter(t)

	_, err := Run(context.Background(), strings.NewReader(input), c, quietOptions(Options{Workers: 1, BatchSize: 10, Policy: PolicyFail}))
	if err == nil {
		t.Fatalf("expected error")
	}
	var lerr *LineError
	if !errors.As(err, &lerr) {
		t.Fatalf("error %v is not a LineError", err)
	}
	if lerr.Line != 3 || lerr.Text != "3.3.3" {
		t.Fatalf("LineError = %+v, want line 3 text 3.3.3", lerr)
	}
	if !errors.Is(err, util.ErrFormat) {
		t.Fatalf("error %v does not match ErrFormat", err)
	}
}

func TestRun_FailPolicyLineNumberAcrossBatches(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString("10.0.0.1\n")
	}
	b.WriteString("bad\n")

	c := newCounter(t)
	_, err := Run(context.Background(), strings.NewReader(b.String()), c, quietOptions(Options{Workers: 2, BatchSize: 4, Policy: PolicyFail}))
	var lerr *LineError
	if !errors.As(err, &lerr) || lerr.Line != 26 {
		t.Fatalf("error = %v, want LineError at line 26", err)
	}
}

func TestRun_SkipPolicyLogsLimited(t *testing.T) {
	var logBuf bytes.Buffer
	input := strings.Repeat("nope\n", 20) + "1.2.3.4\n"

	c := newCounter(t)
	stats, err := Run(context.Background(), strings.NewReader(input), c, Options{
		Workers:   2,
		BatchSize: 3,
		MaxLogged: 4,
		Logger:    log.New(&logBuf, "", 0),
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if stats.Malformed != 20 {
		t.Fatalf("Malformed = %d, want 20", stats.Malformed)
	}
	if got := strings.Count(logBuf.String(), "skipping"); got != 4 {
		t.Fatalf("logged %d lines, want 4", got)
	}
	if c.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", c.Count())
	}
}

func TestRun_ReaderError(t *testing.T) {
	boom := errors.New("boom")
	c := newCounter(t)

	_, err := Run(context.Background(), iotest.ErrReader(boom), c, quietOptions(Options{Workers: 2}))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
}

func TestRun_LineTooLong(t *testing.T) {
	c := newCounter(t)
	input := strings.Repeat("1", 200) + "\n1.2.3.4\n"

	_, err := Run(context.Background(), strings.NewReader(input), c, quietOptions(Options{MaxLine: 64}))
	if err == nil {
		t.Fatalf("expected error for oversized line")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newCounter(t)
	_, err := Run(ctx, strings.NewReader(strings.Repeat("1.2.3.4\n", 10000)), c, quietOptions(Options{Workers: 2}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{PolicySkip, PolicyFail} {
		got, err := ParsePolicy(p.String())
		if err != nil || got != p {
			t.Fatalf("ParsePolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParsePolicy("ignore"); err == nil {
		t.Fatalf("ParsePolicy(ignore) expected error")
	}
}
