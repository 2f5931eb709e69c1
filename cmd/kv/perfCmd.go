package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meridiankv/meridian-go/cmd/util"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for Meridian clusters",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfOpsPerTest       = 10000
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. upsert,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the upsert-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("How many operations to run per test"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfOpsPerTest = viper.GetInt("ops")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfResult holds the latency distribution and throughput of one benchmark.
type perfResult struct {
	histogram metrics.Histogram
	opsPerSec float64
	skipped   bool
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for Meridian clusters")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	conf := util.GetClientConfig()
	fmt.Println(conf.String())
	fmt.Printf("Threads: %d, Ops per test: %d\n", perfNumThreads, perfOpsPerTest)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]perfResult)
	value := []byte("test")
	largeValue := make([]byte, perfLargeValueSizeKB*1024)

	results["upsert"] = runBenchmark("upsert", func(key string) error {
		_, err := collection.Upsert(key, value, nil)
		return err
	}, nil)

	results["upsert-large"] = runBenchmark("upsert-large", func(key string) error {
		_, err := collection.Upsert(key, largeValue, nil)
		return err
	}, nil)

	results["get"] = runBenchmark("get", func(key string) error {
		_, err := collection.Get(key)
		return err
	}, seedKeys)

	results["exists"] = runBenchmark("exists", func(key string) error {
		_, err := collection.Exists(key)
		return err
	}, seedKeys)

	results["mixed"] = runBenchmarkCounted("mixed", func(key string, counter int) error {
		switch counter % 3 {
		case 0:
			_, err := collection.Upsert(key, value, nil)
			return err
		case 1:
			_, err := collection.Get(key)
			return err
		default:
			_, err := collection.Exists(key)
			return err
		}
	}, seedKeys)

	for name, result := range results {
		printResult(name, result)
	}

	cleanupKeys()

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

func perfKey(test string, i int) string {
	return fmt.Sprintf("%s-%s-%d", perfKeyPrefix, test, i%perfKeySpread)
}

// seedKeys writes the test keys so read benchmarks hit existing documents
func seedKeys(test string) {
	for i := 0; i < perfKeySpread; i++ {
		if _, err := collection.Upsert(perfKey(test, i), []byte("test"), nil); err != nil {
			log.Printf("(%s) - error seeding key: %v\n", test, err)
		}
	}
}

// cleanupKeys removes everything the benchmarks wrote
func cleanupKeys() {
	for _, test := range []string{"upsert", "upsert-large", "get", "exists", "mixed"} {
		for i := 0; i < perfKeySpread; i++ {
			_ = collection.Remove(perfKey(test, i), nil)
		}
	}
}

func runBenchmark(test string, op func(key string) error, seed func(test string)) perfResult {
	return runBenchmarkCounted(test, func(key string, _ int) error { return op(key) }, seed)
}

// runBenchmarkCounted runs one benchmark with perfNumThreads workers and
// records every operation latency in a histogram.
func runBenchmarkCounted(test string, op func(key string, counter int) error, seed func(test string)) perfResult {
	if shouldSkip(test) {
		return perfResult{skipped: true}
	}

	if seed != nil {
		seed(test)
	}

	histogram := metrics.NewHistogram(metrics.NewExpDecaySample(1028, 0.015))

	var wg sync.WaitGroup
	opsPerThread := perfOpsPerTest / perfNumThreads

	start := time.Now()
	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			for i := 0; i < opsPerThread; i++ {
				counter := thread*opsPerThread + i
				opStart := time.Now()
				if err := op(perfKey(test, counter), counter); err != nil {
					log.Printf("(%s) - operation error: %v\n", test, err)
					continue
				}
				histogram.Update(time.Since(opStart).Nanoseconds())
			}
		}(t)
	}
	wg.Wait()
	elapsed := time.Since(start)

	return perfResult{
		histogram: histogram,
		opsPerSec: float64(perfOpsPerTest) / elapsed.Seconds(),
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.skipped {
		fmt.Printf("%-16sskipped\n", test)
		return
	}

	ps := result.histogram.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-16s%8.0f ops/sec\tp50=%s p95=%s p99=%s mean=%s\n",
		test,
		result.opsPerSec,
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		time.Duration(result.histogram.Mean()),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	conf := util.GetClientConfig()

	// Write header
	header := []string{
		"Test", "OpsPerSec", "P50Ns", "P95Ns", "P99Ns", "MeanNs", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "NumKvConnections", "MaxKvConnections",
		"Serializer", "Transport", "Threads", "LargeValueSizeKB", "KeysCount", "OpsPerTest",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		row := []string{test}

		if result.skipped {
			row = append(row, "0", "0", "0", "0", "0", "true")
		} else {
			ps := result.histogram.Percentiles([]float64{0.5, 0.95, 0.99})
			row = append(row,
				fmt.Sprintf("%.0f", result.opsPerSec),
				fmt.Sprintf("%.0f", ps[0]),
				fmt.Sprintf("%.0f", ps[1]),
				fmt.Sprintf("%.0f", ps[2]),
				fmt.Sprintf("%.0f", result.histogram.Mean()),
				"false",
			)
		}

		row = append(row,
			strings.Join(conf.Endpoints, ";"),
			strconv.Itoa(conf.TimeoutSecond),
			strconv.Itoa(conf.Pool.RetryCount),
			strconv.Itoa(conf.Pool.NumKvConnections),
			strconv.Itoa(conf.Pool.MaxKvConnections),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
			strconv.Itoa(perfOpsPerTest),
		)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
