// Morph CLI - runs the reference object-model scenarios and a randomized
// cache equivalence workload against a configured engine.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/morph/config"
	"github.com/chazu/morph/inspect"
	"github.com/chazu/morph/vm"
)

func main() {
	configDir := flag.String("config", "", "Directory containing morph.toml (default: search upward from the working directory)")
	verbosity := flag.Int("v", -1, "Log verbosity (overrides morph.toml; -1 keeps the configured value)")
	which := flag.String("scenario", "all", "Scenario to run: a, b, c, d, all or none")
	equivSteps := flag.Int("equiv", 0, "Randomized cache equivalence steps (0 disables)")
	seed := flag.Uint64("seed", 1, "Seed for the equivalence workload")
	snapshotPath := flag.String("snapshot", "", "Write a CBOR snapshot of the engine to this file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: morph [options]\n\n")
		fmt.Fprintf(os.Stderr, "Exercises shapes, property storage and lookup caches.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  morph                        # Run every scenario\n")
		fmt.Fprintf(os.Stderr, "  morph -scenario c -v 2       # Run scenario C with debug logging\n")
		fmt.Fprintf(os.Stderr, "  morph -equiv 100000 -snapshot out.cbor\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	commonlog.Configure(cfg.Log.Verbosity, cfg.LogPath())

	e := vm.NewEngine(cfg.EngineOptions())
	tbl := vm.NewLookupTable()

	failed := 0
	if *which != "none" {
		run, err := findScenarios(*which)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		for _, s := range run {
			if err := s.run(e, tbl); err != nil {
				fmt.Printf("FAIL scenario %s (%s): %v\n", s.name, s.desc, err)
				failed++
				continue
			}
			fmt.Printf("ok   scenario %s (%s)\n", s.name, s.desc)
		}
	}

	if *equivSteps > 0 {
		if err := equivalence(e, tbl, *equivSteps, *seed); err != nil {
			fmt.Printf("FAIL equivalence: %v\n", err)
			failed++
		} else {
			fmt.Printf("ok   equivalence (%d steps, seed %d)\n", *equivSteps, *seed)
		}
	}

	snap := inspect.Take(e, tbl)
	fmt.Println()
	fmt.Print(snap.Summary())

	if *snapshotPath != "" {
		if err := inspect.WriteFile(*snapshotPath, snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshot written to %s\n", *snapshotPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// loadConfig loads morph.toml from dir, or searches upward from the
// working directory when dir is empty. Missing files yield defaults.
func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}
