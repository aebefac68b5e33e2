package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/Veckatimest/uniqipgo/internal/config"
	"github.com/Veckatimest/uniqipgo/internal/fanout"
	"github.com/Veckatimest/uniqipgo/internal/ipstore"
	"github.com/Veckatimest/uniqipgo/internal/presence"
	"github.com/Veckatimest/uniqipgo/internal/report"
)

var (
	logger      = log.Default()
	configPath  = flag.String("config", "", "Config file (yaml, json, toml)")
	file        = flag.String("f", "ip-list.txt", "Input file, - for stdin")
	store       = flag.String("store", string(ipstore.KindBitmap), "Presence store: bitmap or roaring")
	workers     = flag.Int("w", 0, "Number of parser goroutines (default GOMAXPROCS)")
	batchSize   = flag.Int("batch", fanout.RAW_BATCH_SIZE, "Lines per batch handed to a parser")
	maxLine     = flag.Int("maxline", fanout.BYTES_500K, "Longest accepted line in bytes")
	onError     = flag.String("onerror", fanout.PolicySkip.String(), "Malformed lines: skip or fail")
	maxLogged   = flag.Int("maxlogged", fanout.MAX_LOGGED, "How many skipped lines to log")
	format      = flag.String("format", "text", "Report format: text or json")
	progress    = flag.Bool("progress", false, "Show a progress bar on stderr")
	cpuprofile  = flag.String("cpuprofile", "", "Write CPU profile to file")
	heapprofile = flag.String("heapprofile", "", "Write heap profile to file")
)

func die(m string, a ...interface{}) {
	message := "error: " + fmt.Sprintf(m, a...)
	fmt.Fprintln(os.Stderr, message)
	os.Exit(1)
}

func main() {
	flag.Parse()

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Printf)); err != nil {
		logger.Printf("failed to set GOMAXPROCS: %v", err)
	}

	if err := run(); err != nil {
		die("%v", err)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.CPUProfile != "" {
		cpuf, err := os.Create(cfg.CPUProfile)
		if err != nil {
			return err
		}
		defer cpuf.Close()
		if err := pprof.StartCPUProfile(cpuf); err != nil {
			return fmt.Errorf("starting cpu profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := countIPs(ctx, cfg)
	if err != nil {
		return err
	}
	if err := rep.Write(os.Stdout, cfg.Format); err != nil {
		return err
	}

	if cfg.HeapProfile != "" {
		heapf, err := os.Create(cfg.HeapProfile)
		if err != nil {
			return err
		}
		defer heapf.Close()
		if err := pprof.WriteHeapProfile(heapf); err != nil {
			return err
		}
	}

	return nil
}

// applyFlags lets flags given on the command line win over config and env.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "f":
			cfg.File = *file
		case "store":
			cfg.Store = *store
		case "w":
			cfg.Workers = *workers
		case "batch":
			cfg.BatchSize = *batchSize
		case "maxline":
			cfg.MaxLine = *maxLine
		case "onerror":
			cfg.OnError = *onError
		case "maxlogged":
			cfg.MaxLogged = *maxLogged
		case "format":
			cfg.Format = *format
		case "progress":
			cfg.Progress = *progress
		case "cpuprofile":
			cfg.CPUProfile = *cpuprofile
		case "heapprofile":
			cfg.HeapProfile = *heapprofile
		}
	})
}

func countIPs(ctx context.Context, cfg config.Config) (report.Report, error) {
	start := time.Now()

	kind, err := ipstore.ParseKind(cfg.Store)
	if err != nil {
		return report.Report{}, err
	}
	counter, err := presence.New(kind)
	if err != nil {
		return report.Report{}, err
	}
	defer counter.Close()

	in, size, err := openInput(cfg.File)
	if err != nil {
		return report.Report{}, err
	}
	defer in.Close()
	defer closeOnDone(ctx, in)()

	var r io.Reader = in
	if cfg.Progress {
		bar := progressbar.DefaultBytes(size, "counting")
		defer bar.Finish()
		r = io.TeeReader(in, bar)
	}

	opts := cfg.Options()
	opts.Logger = logger
	logger.Printf("counting %s with %d workers into %s store", cfg.File, opts.Workers, kind)

	stats, err := fanout.Run(ctx, r, counter, opts)
	if err != nil {
		return report.Report{}, err
	}

	return report.New(cfg.File, cfg.Store, counter.SizeInBytes(), counter.Count(), stats, time.Since(start)), nil
}

// closeOnDone closes c once ctx is cancelled so a read blocked on a slow pipe
// or terminal returns. The returned func detaches it.
func closeOnDone(ctx context.Context, c io.Closer) func() bool {
	return context.AfterFunc(ctx, func() { c.Close() })
}

// openInput returns size -1 when the length is unknown.
func openInput(path string) (io.ReadCloser, int64, error) {
	if path == "-" {
		return os.Stdin, -1, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}

	return f, st.Size(), nil
}
