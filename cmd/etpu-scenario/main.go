// Command etpu-scenario runs SoC scenarios.
//
// Each scenario composes a fresh SoC and drives it through scripted bus,
// reset and clock steps, checking the outputs of every step.
//
// Usage:
//
//	etpu-scenario [flags] [id-pattern]
//
// Flags:
//
//	-dir string       Scenario directory (default "./scenarios")
//	-format string    Report format: text, json, junit (default "text")
//	-verbose          Show every step and expectation
//	-tags string      Comma-separated tags; run scenarios carrying any
//	-trace string     Trace file (CBOR) for every scenario's SoC
//	-stop-on-fail     Stop after the first failed scenario
//	-timeout duration Per-scenario timeout (default 30s)
//	-db string        Record the run in this SQLite database
//	-history          List the runs recorded in -db and exit
//
// Examples:
//
//	# All accelerator scenarios
//	etpu-scenario -dir internal/scenario/testdata "SOC-ACC-*"
//
//	# JUnit for CI, keeping history
//	etpu-scenario -format junit -db runs.db > report.xml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/etpu-project/etpu-go/internal/scenario/engine"
	"github.com/etpu-project/etpu-go/internal/scenario/loader"
	"github.com/etpu-project/etpu-go/internal/scenario/reporter"
	"github.com/etpu-project/etpu-go/internal/scenario/store"
	"github.com/etpu-project/etpu-go/pkg/log"
)

var (
	dir        = flag.String("dir", "./scenarios", "Scenario directory")
	format     = flag.String("format", "text", "Report format: text, json, junit")
	verbose    = flag.Bool("verbose", false, "Show every step and expectation")
	tags       = flag.String("tags", "", "Comma-separated tags; run scenarios carrying any")
	traceFile  = flag.String("trace", "", "Trace file (CBOR) for every scenario's SoC")
	stopOnFail = flag.Bool("stop-on-fail", false, "Stop after the first failed scenario")
	timeout    = flag.Duration("timeout", 30*time.Second, "Per-scenario timeout")
	dbPath     = flag.String("db", "", "Record the run in this SQLite database")
	history    = flag.Bool("history", false, "List the runs recorded in -db and exit")
)

func main() {
	flag.Parse()

	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run() (int, error) {
	var db *store.Store
	if *dbPath != "" {
		var err error
		if db, err = store.Open(*dbPath); err != nil {
			return 1, err
		}
		defer db.Close()
	}

	if *history {
		if db == nil {
			return 1, fmt.Errorf("-history needs -db")
		}
		return 0, printHistory(db)
	}

	scenarios, err := selectScenarios()
	if err != nil {
		return 1, err
	}
	if len(scenarios) == 0 {
		return 1, fmt.Errorf("no scenarios in %s", *dir)
	}

	rep, err := reporter.New(*format, os.Stdout, *verbose)
	if err != nil {
		return 1, err
	}

	cfg := engine.DefaultConfig()
	cfg.DefaultTimeout = *timeout
	cfg.StopOnFirstFailure = *stopOnFail
	if *traceFile != "" {
		fl, err := log.NewFileLogger(*traceFile)
		if err != nil {
			return 1, err
		}
		defer fl.Close()
		cfg.Trace = fl
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	suite := engine.NewWithConfig(cfg).RunSuite(ctx, filepath.Base(*dir), scenarios)
	rep.ReportSuite(suite)

	if db != nil {
		r, err := db.RecordSuite(suite, *dir)
		if err != nil {
			return 1, fmt.Errorf("record run: %w", err)
		}
		fmt.Fprintf(os.Stderr, "recorded run %s\n", r.ID)
	}

	if suite.FailCount > 0 {
		return 1, nil
	}
	return 0, nil
}

func selectScenarios() ([]*loader.Scenario, error) {
	all, err := loader.LoadDirectory(*dir)
	if err != nil {
		return nil, err
	}

	var tagList []string
	if *tags != "" {
		for _, t := range strings.Split(*tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tagList = append(tagList, t)
			}
		}
	}
	all = loader.Filter(all, tagList)

	if flag.NArg() == 0 {
		return all, nil
	}
	pattern := flag.Arg(0)
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	var out []*loader.Scenario
	for _, sc := range all {
		if ok, _ := filepath.Match(pattern, sc.ID); ok {
			out = append(out, sc)
		}
	}
	return out, nil
}

func printHistory(db *store.Store) error {
	runs, err := db.ListRuns(20, 0)
	if err != nil {
		return err
	}
	failing, err := db.FailingScenarios()
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-20s  %-16s  %5s %5s %5s\n", "run", "started", "suite", "pass", "fail", "skip")
	for _, r := range runs {
		fmt.Printf("%-36s  %-20s  %-16s  %5d %5d %5d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Suite, r.PassCount, r.FailCount, r.SkipCount)
	}
	if len(failing) > 0 {
		fmt.Println("\nFailures per scenario:")
		for id, n := range failing {
			fmt.Printf("  %-20s %d\n", id, n)
		}
	}
	return nil
}
