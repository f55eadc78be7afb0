package main

// dataset_gen.go generates deterministic field-write workloads for
// standalone benchmarking of overlay bubbling (outside `go test`). Each
// line is "<tick> <field_index>", modelling a sequence of leaf writes
// against a fixed-width bundle: which field gets touched at each engine
// tick. A zipf distribution over field_index produces a hot/cold field
// mix, closer to a real node graph than a uniform one.
//
// Usage:
//   go run ./tools/dataset_gen -n 1000000 -fields 64 -dist=zipf -seed=42 -out ticks.txt
//
// Flags:
//   -n       number of (tick, field_index) pairs to generate (default 1e6)
//   -fields  number of fields the simulated bundle has (default 64)
//   -dist    distribution over field_index: "uniform" or "zipf" (default uniform)
//   -zipfs   Zipf s parameter (>1)  (default 1.2)
//   -zipfv   Zipf v parameter (>=1) (default 1.0)
//   -seed    RNG seed (default current time)
//   -out     output file (default stdout)
//
// © 2025 tscore authors. MIT License.

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

func main() {
	var (
		n       = flag.Int("n", 1_000_000, "number of (tick, field_index) pairs to generate")
		fields  = flag.Int("fields", 64, "number of fields in the simulated bundle")
		dist    = flag.String("dist", "uniform", "distribution over field_index: uniform or zipf")
		zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>=1)")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	if *fields <= 0 {
		fmt.Fprintln(os.Stderr, "fields must be >0")
		os.Exit(1)
	}

	rnd := rand.New(rand.NewSource(*seedVal))

	var gen func() uint64
	switch *dist {
	case "uniform":
		gen = func() uint64 { return uint64(rnd.Intn(*fields)) }
	case "zipf":
		if *zipfS <= 1.0 || *zipfV < 1.0 {
			fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >=1")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, uint64(*fields-1))
		gen = z.Uint64
	default:
		fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
		os.Exit(1)
	}

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	for tick := 0; tick < *n; tick++ {
		fmt.Fprintln(w, tick, gen())
	}
}
