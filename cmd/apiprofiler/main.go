package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/PentesterFlow/APIProfiler/pkg/profiler"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	// Analyze flags
	discoveryMethod string
	outputFile      string
	prettyOutput    bool
	cacheDir        string
	cacheTTL        time.Duration
	endpoints       bool
	sourceType      string
	validated       bool
)

// evidenceFile is the on-disk input format for the analyze command. Only
// discovery_method and data are required.
type evidenceFile struct {
	DiscoveryMethod string                     `json:"discovery_method"`
	Data            any                        `json:"data"`
	Spec            profiler.SpecDocument      `json:"openapi_spec,omitempty"`
	Interactions    []profiler.HTTPInteraction `json:"http_interactions,omitempty"`
	Metadata        *profiler.Metadata         `json:"metadata,omitempty"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "apiprofiler",
		Short: "APIProfiler - API Discovery Evidence Analyzer",
		Long: `APIProfiler - Analyze raw API discovery evidence.

Takes the output of discovery tools (OpenAPI specs, captured HTTP traffic,
directory brute-forcing results) and produces a structured report with a
confidence score and the API's observed conventions.`,
		Version: version,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [evidence-file]",
		Short: "Analyze an evidence file",
		Long:  "Analyze a JSON evidence file and print the resulting report.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}

	cacheClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached results",
		RunE:  runCacheClear,
	}

	cacheClearStaleCmd := &cobra.Command{
		Use:   "clear-stale",
		Short: "Remove expired cached results",
		RunE:  runCacheClearStale,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Result cache directory")

	// Analyze flags
	analyzeCmd.Flags().StringVarP(&discoveryMethod, "method", "m", "", "Discovery method (overrides the evidence file)")
	analyzeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	analyzeCmd.Flags().BoolVar(&prettyOutput, "pretty", false, "Indent the JSON output")
	analyzeCmd.Flags().DurationVar(&cacheTTL, "ttl", 7*24*time.Hour, "Result cache TTL (0 disables caching)")
	analyzeCmd.Flags().BoolVar(&endpoints, "endpoints", false, "Print a deduplicated endpoint summary after the report")
	analyzeCmd.Flags().StringVar(&sourceType, "source-type", "", "Evidence source type for confidence scoring")
	analyzeCmd.Flags().BoolVar(&validated, "validated", false, "Mark the evidence as cross-validated")

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheClearStaleCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildConfig() (*profiler.Config, error) {
	var config *profiler.Config
	if configFile != "" {
		fileConfig, err := profiler.LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = fileConfig
	} else {
		config = profiler.BatchConfig()
	}

	if cacheDir != "" {
		config.CacheDir = cacheDir
	}
	config.Verbose = verbose
	config.Debug = debug
	if debug {
		config.LogLevel = "debug"
	} else if verbose {
		config.LogLevel = "info"
	} else if configFile == "" {
		// Quiet by default: the report goes to stdout, logs to stderr.
		config.LogLevel = "warn"
	}
	config.PrettyLogs = verbose || debug

	return config, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read evidence file: %w", err)
	}

	var input evidenceFile
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to parse evidence file: %w", err)
	}
	if discoveryMethod != "" {
		input.DiscoveryMethod = discoveryMethod
	}

	config, err := buildConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("ttl") {
		config.CacheTTL = cacheTTL
	}

	p, err := profiler.New(config)
	if err != nil {
		return fmt.Errorf("failed to create profiler: %w", err)
	}
	defer p.Close()

	md := input.Metadata
	if sourceType != "" || validated {
		if md == nil {
			md = &profiler.Metadata{DiscoveredAt: time.Now()}
		}
		if sourceType != "" {
			md.SourceType = sourceType
		}
		if validated {
			md.Validated = true
		}
	}

	runID := uuid.NewString()
	startTime := time.Now()
	report, err := p.ProcessWithMetadata(input.DiscoveryMethod, input.Data, input.Spec, input.Interactions, md)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	duration := time.Since(startTime)

	out, err := encodeReport(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, out, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
	} else {
		fmt.Println(string(out))
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Run:        %s\n", runID)
		fmt.Fprintf(os.Stderr, "Duration:   %v\n", duration.Round(time.Millisecond))
		fmt.Fprintf(os.Stderr, "Confidence: %.2f\n", report.AnalysisSummary.ConfidenceScore)
	}

	if endpoints {
		printEndpointSummary(p.SummarizeEndpoints(input.Spec, input.Interactions))
	}

	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	return clearCache(func(p *profiler.Processor) (int, error) {
		return p.ClearCache()
	})
}

func runCacheClearStale(cmd *cobra.Command, args []string) error {
	return clearCache(func(p *profiler.Processor) (int, error) {
		return p.ClearStaleCache()
	})
}

func clearCache(clear func(*profiler.Processor) (int, error)) error {
	config, err := buildConfig()
	if err != nil {
		return err
	}

	p, err := profiler.New(config)
	if err != nil {
		return fmt.Errorf("failed to create profiler: %w", err)
	}
	defer p.Close()

	removed, err := clear(p)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	fmt.Printf("Removed %d cached result(s) from %s\n", removed, p.CachePath())
	return nil
}

func encodeReport(report *profiler.AnalysisReport) ([]byte, error) {
	if prettyOutput {
		return json.MarshalIndent(report, "", "  ")
	}
	return json.Marshal(report)
}

func printEndpointSummary(summary profiler.EndpointSummary) {
	fmt.Println()
	fmt.Println("Endpoint Summary")
	fmt.Printf("  Total: %d\n", summary.Total)
	printCountMap("By Method", summary.ByMethod)
	printCountMap("By Category", summary.ByCategory)
	printCountMap("By Source", summary.BySource)
}

func printCountMap(label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("  %s:\n", label)
	for _, k := range keys {
		fmt.Printf("    %-12s %d\n", k, counts[k])
	}
}
