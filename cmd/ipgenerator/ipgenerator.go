package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	rand "math/rand/v2"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/Veckatimest/uniqipgo/internal/util"
)

var (
	logger = log.Default()
	count  = flag.Int("n", 100, "Number of ip-addresses")
	file   = flag.String("f", "ip-list.txt", "Target file")
	seed   = flag.Uint64("seed", 0, "Random seed, 0 picks one")
	dup    = flag.Float64("dup", 0, "Fraction of lines repeating an earlier address")
)

// generateIpList writes size addresses to w and returns how many were fresh draws.
func generateIpList(w io.Writer, r *rand.Rand, size int, dupRatio float64, bar *progressbar.ProgressBar) (int, error) {
	bw := bufio.NewWriterSize(w, 1<<16)
	written := make([]uint32, 0, min(size, 1<<20))
	fresh := 0

	for i := 0; i < size; i++ {
		var ip uint32
		if len(written) > 0 && r.Float64() < dupRatio {
			ip = written[r.IntN(len(written))]
		} else {
			ip = r.Uint32()
			fresh++
			if len(written) < cap(written) {
				written = append(written, ip)
			}
		}

		if _, err := bw.WriteString(util.FormatUint(ip)); err != nil {
			return fresh, err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fresh, err
		}
		if bar != nil && i%10000 == 0 {
			bar.Add(min(10000, size-i))
		}
	}

	return fresh, bw.Flush()
}

func main() {
	flag.Parse()

	if *count < 0 {
		logger.Fatalf("Invalid number parameter %d", *count)
	}
	if *dup < 0 || *dup >= 1 {
		logger.Fatalf("dup must be in [0, 1), got %v", *dup)
	}

	s := *seed
	if s == 0 {
		s = rand.Uint64()
	}
	r := rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))

	f, err := os.Create(*file)
	if err != nil {
		logger.Fatal(err)
	}
	defer f.Close()

	bar := progressbar.Default(int64(*count), "writing")
	fresh, err := generateIpList(f, r, *count, *dup, bar)
	bar.Finish()
	if err != nil {
		f.Close()
		logger.Fatal(err)
	}

	fmt.Printf("wrote %d addresses (%d fresh draws, seed %d) to %s\n", *count, fresh, s, *file)
}
