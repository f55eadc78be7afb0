package main

// main.go implements the tscore inspector CLI: it parses command-line
// flags, fetches the graph introspection snapshot from a target process,
// and prints it either as pretty text or JSON. It also supports periodic
// watch mode.
//
// The target Go service is expected to expose:
//   • GET /debug/tscore/snapshot — JSON payload from graph.Graph.Snapshot().
//
// The snapshot object is intentionally generic; we decode into
// map[string]any to avoid version skew between CLI and library.
//
// © 2025 tscore authors. MIT License.

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var version = "dev"

type options struct {
	target   string
	json     bool
	watch    bool
	interval time.Duration
	version  bool
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVar(&opts.target, "target", "http://localhost:6060", "base URL of the process to inspect")
	flag.BoolVar(&opts.json, "json", false, "emit raw JSON instead of a pretty summary")
	flag.BoolVar(&opts.watch, "watch", false, "poll the target repeatedly instead of one shot")
	flag.DurationVar(&opts.interval, "interval", 2*time.Second, "poll interval in watch mode")
	flag.BoolVar(&opts.version, "version", false, "print version and exit")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	if opts.version {
		fmt.Println(version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if opts.watch {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		for {
			if err := dumpOnce(ctx, opts); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return
			}
		}
	}

	if err := dumpOnce(ctx, opts); err != nil {
		fatal(err)
	}
}

func dumpOnce(ctx context.Context, opts *options) error {
	snap, err := fetchSnapshot(ctx, opts.target)
	if err != nil {
		return err
	}
	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return prettyPrint(snap)
}

func fetchSnapshot(ctx context.Context, base string) (map[string]any, error) {
	url := base + "/debug/tscore/snapshot"
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}
	var data map[string]any
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func prettyPrint(data map[string]any) error {
	fmt.Printf("Registry size: %v\n", data["registry_size"])
	fmt.Printf("Arena bytes:   %.2f KB\n", toFloat(data["arena_bytes"])/1024)
	if byKind, ok := data["live_by_kind"].(map[string]any); ok {
		fmt.Println("Live TSValues by kind:")
		for k, v := range byKind {
			fmt.Printf("  %-8s %v\n", k, v)
		}
	}
	return nil
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "tscore-inspect:", err)
	os.Exit(1)
}
