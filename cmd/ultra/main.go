// Command ultra runs ULTRA's parallel ALPS evolutionary search against a
// built-in demonstration problem (OneMax) and reports the result. Real
// problems are expected to be driven through the library packages
// directly; this binary exists to exercise the engine end to end and to
// double as a smoke test of a full run's plumbing: config loading,
// parameter watching, concurrent search, and snapshot reporting.
package main

import (
	"context"
	"encoding/xml"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/morinim/ultra/alps"
	"github.com/morinim/ultra/cache"
	"github.com/morinim/ultra/config"
	"github.com/morinim/ultra/evaluator"
	"github.com/morinim/ultra/evolution"
	"github.com/morinim/ultra/internal/demo"
	"github.com/morinim/ultra/search"
)

func main() {
	os.Exit(run())
}

func run() int {
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")
	configPath := flag.String("config", "", "path to an ultra.toml parameters file (default: "+defaultConfigDescription()+")")
	runs := flag.Int("runs", 4, "number of independent runs to execute")
	genomeLen := flag.Int("length", 64, "OneMax bit-string length")
	debugLog := flag.Bool("debug", false, "enable debug logging to ultra-debug.log")
	snapshot := flag.String("snapshot", "", "write a summary XML snapshot to this file")
	flag.Parse()

	if *cpuprofile != "" {
		stop := setupCPUProfile(*cpuprofile)
		defer stop()
	}

	var logger *log.Logger
	if *debugLog {
		f, err := os.Create("ultra-debug.log")
		if err != nil {
			log.Printf("failed to create debug log: %v", err)
			return 1
		}
		defer f.Close()
		logger = log.New(f, "", log.Ltime|log.Lmicroseconds)
	}

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}
	params, err := config.Load(path)
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}
	if err := params.Validate(false); err != nil {
		log.Printf("invalid config: %v", err)
		return 1
	}
	shared := config.NewShared(params)

	watcher, err := config.NewWatcher(path, shared, logger)
	if err == nil {
		defer watcher.Close()
	} // a missing parameters file just means no live reload is available

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		fmt.Println("\nstopping early, finishing in-flight generations...")
		cancel()
	}()

	factory := func() *evolution.Driver {
		proxy := evaluator.New(demo.Evaluate, nil, cache.New(params.CacheBits))
		strategy := evolution.Strategy{Crossover: demo.Crossover{}, Mutator: demo.Mutator{}}
		alpsParams := alps.Parameters{AgeGap: params.AgeGap, PMainLayer: params.PMainLayer}
		return evolution.New(proxy, strategy, shared, alpsParams, demo.Seed(*genomeLen), logger, uint64(time.Now().UnixNano()))
	}

	s := search.New(factory, logger, 0)

	fmt.Printf("running %d independent search(es), population=%d, layers=%d...\n",
		*runs, params.PopulationSize, params.NumLayers)

	start := time.Now()
	stats, err := s.Run(ctx, *runs)
	if err != nil {
		log.Printf("search failed: %v", err)
		return 1
	}

	printSummary(stats, time.Since(start))

	if *snapshot != "" {
		if err := writeSnapshot(*snapshot, stats); err != nil {
			log.Printf("failed to write snapshot: %v", err)
			return 1
		}
	}

	return 0
}

func defaultConfigDescription() string {
	return "./ultra.toml, falling back to ~/.config/ultra/config.toml"
}

func printSummary(stats search.Statistics, elapsed time.Duration) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "run\tstatus\tgenerations\tbest")
	fmt.Fprintln(w, "---\t------\t-----------\t----")

	for i, r := range stats.Runs {
		best := "-"
		if !r.Best.Empty() {
			best = fmt.Sprintf("%.4f", r.Best.Fit.Value())
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i, r.Status, r.Generations, best)
	}
	w.Flush()

	fmt.Printf("\nbest run: %d, mean best: %.4f, variance: %.4f, elapsed: %v\n",
		stats.BestRun, stats.MeanBest, stats.Variance, elapsed.Round(time.Millisecond))
}

// snapshotXML is the on-disk shape of a search summary snapshot.
type snapshotXML struct {
	XMLName  xml.Name `xml:"search"`
	BestRun  int      `xml:"best_run,attr"`
	MeanBest float64  `xml:"mean_best"`
	Variance float64  `xml:"variance"`
	Runs     []runXML `xml:"run"`
}

type runXML struct {
	Tag         string  `xml:"tag,attr"`
	Status      string  `xml:"status,attr"`
	Generations uint64  `xml:"generations"`
	Best        float64 `xml:"best"`
}

func writeSnapshot(path string, stats search.Statistics) error {
	doc := snapshotXML{
		BestRun:  stats.BestRun,
		MeanBest: stats.MeanBest,
		Variance: stats.Variance,
	}
	for _, r := range stats.Runs {
		var best float64
		if !r.Best.Empty() {
			best = r.Best.Fit.Value()
		}
		doc.Runs = append(doc.Runs, runXML{
			Tag:         r.RunTag,
			Status:      r.Status.String(),
			Generations: r.Generations,
			Best:        best,
		})
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func setupCPUProfile(filename string) func() {
	f, err := os.Create(filename)
	if err != nil {
		log.Fatalf("could not create CPU profile: %v", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		log.Fatalf("could not start CPU profile: %v", err)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}
}
