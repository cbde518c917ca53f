// bench-detect measures detection latency and heap usage over a synthetic
// seasonal series, with and without long-term windowing.
//
// Usage:
//
//	go run ./scripts/bench-detect --points 100000 --period 1440 \
//	  --longterm-period 20160 --profile-dir docs/profiles/detect
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/Sumatoshi-tech/spikefang/pkg/anomaly"
)

const seed = 42

func main() {
	points := flag.Int("points", 100000, "Number of observations to generate")
	period := flag.Int("period", 1440, "Seasonal period of the generated series")
	longtermPeriod := flag.Int("longterm-period", 0, "Window length in points (0 = whole series)")
	spikeEvery := flag.Int("spike-every", 5000, "Inject a spike every N points")
	runs := flag.Int("runs", 5, "Number of detection runs to time")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles")
	cpuProfile := flag.Bool("cpu-profile", false, "Write CPU profile to profile-dir/cpu.prof")
	useBreakout := flag.Bool("breakout", false, "Use piecewise median baselines")

	flag.Parse()

	if *profileDir == "" {
		log.Fatal("--profile-dir is required")
	}

	if err := os.MkdirAll(*profileDir, 0o755); err != nil {
		log.Fatalf("mkdir profile-dir: %v", err)
	}

	if *cpuProfile {
		cpuPath := filepath.Join(*profileDir, "cpu.prof")

		cpuFile, cpuErr := os.Create(cpuPath)
		if cpuErr != nil {
			log.Fatalf("create cpu profile: %v", cpuErr)
		}
		defer cpuFile.Close()

		if startErr := pprof.StartCPUProfile(cpuFile); startErr != nil {
			log.Fatalf("start cpu profile: %v", startErr)
		}

		defer pprof.StopCPUProfile()

		log.Printf("CPU profiling enabled -> %s", cpuPath)
	}

	series := generateSeries(*points, *period, *spikeEvery)
	log.Printf("generated %d points (period %d, spike every %d)", len(series), *period, *spikeEvery)

	opts := anomaly.DefaultOptions()
	opts.LongtermPeriod = *longtermPeriod

	if *useBreakout {
		cfg := anomaly.DefaultBreakoutConfig()
		opts.Breakout = &cfg
	}

	type heapSnapshot struct {
		label     string
		heapInUse uint64
		heapSys   uint64
		numGC     uint32
	}

	var snapshots []heapSnapshot

	takeSnapshot := func(label string) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		snapshots = append(snapshots, heapSnapshot{
			label:     label,
			heapInUse: m.HeapInuse,
			heapSys:   m.HeapSys,
			numGC:     m.NumGC,
		})
		log.Printf("  [heap] %-30s inuse=%6.1f MB  sys=%6.1f MB",
			label, float64(m.HeapInuse)/1e6, float64(m.HeapSys)/1e6)
	}

	writeHeapProfile := func(name string) {
		runtime.GC()
		runtime.GC()

		path := filepath.Join(*profileDir, name)

		f, ferr := os.Create(path)
		if ferr != nil {
			log.Printf("warning: create heap profile %s: %v", path, ferr)

			return
		}
		defer f.Close()

		if perr := pprof.WriteHeapProfile(f); perr != nil {
			log.Printf("warning: write heap profile %s: %v", path, perr)
		}
	}

	takeSnapshot("before_runs")
	writeHeapProfile("heap_before_runs.prof")

	ctx := context.Background()
	detector := anomaly.New()

	var (
		total    time.Duration
		fastest  time.Duration = math.MaxInt64
		slowest  time.Duration
		detected int
		windows  int
	)

	for i := range *runs {
		startedAt := time.Now()

		result, err := detector.Detect(ctx, series, *period, opts)
		if err != nil {
			log.Fatalf("detect run %d: %v", i+1, err)
		}

		elapsed := time.Since(startedAt)
		total += elapsed
		fastest = min(fastest, elapsed)
		slowest = max(slowest, elapsed)
		detected = len(result.Indices)
		windows = result.Windows

		log.Printf("run %d/%d: %s, %d anomalies in %d windows", i+1, *runs, elapsed.Round(time.Millisecond), detected, windows)
	}

	takeSnapshot("after_runs")
	writeHeapProfile("heap_after_runs.prof")

	fmt.Println()
	fmt.Println("=== Detection Latency ===")
	fmt.Printf("%-10s %12s\n", "Metric", "Value")
	fmt.Println("----------+------------")
	fmt.Printf("%-10s %12s\n", "mean", (total / time.Duration(*runs)).Round(time.Millisecond))
	fmt.Printf("%-10s %12s\n", "fastest", fastest.Round(time.Millisecond))
	fmt.Printf("%-10s %12s\n", "slowest", slowest.Round(time.Millisecond))
	fmt.Printf("%-10s %12d\n", "anomalies", detected)
	fmt.Printf("%-10s %12d\n", "windows", windows)

	fmt.Println()
	fmt.Println("=== Heap Memory Timeline ===")
	fmt.Printf("%-30s %10s %10s %8s\n", "Phase", "InUse(MB)", "Sys(MB)", "GCs")
	fmt.Println("------------------------------+----------+----------+--------")

	for _, s := range snapshots {
		fmt.Printf("%-30s %10.1f %10.1f %8d\n",
			s.label, float64(s.heapInUse)/1e6, float64(s.heapSys)/1e6, s.numGC)
	}
}

// generateSeries builds a noisy sinusoidal series with a gentle trend and a
// large spike every spikeEvery points.
func generateSeries(points, period, spikeEvery int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	series := make([]float64, points)

	for i := range series {
		seasonal := 100 * math.Sin(2*math.Pi*float64(i)/float64(period))
		trend := 0.001 * float64(i)
		noise := rng.NormFloat64() * 5

		series[i] = 1000 + seasonal + trend + noise

		if spikeEvery > 0 && i > 0 && i%spikeEvery == 0 {
			series[i] += 500
		}
	}

	return series
}
