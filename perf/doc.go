// Package perf runs vuload load tests from Go code.
//
// # Quick Start
//
//	cfg := perf.DefaultConfig()
//	cfg.BaseURL = "http://localhost:3000"
//	cfg.VUs = 50
//	cfg.Duration = perf.Duration(30 * time.Second)
//
//	summary, err := perf.Run(context.Background(), cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Requests: %d\n", summary.Metrics.TotalRequests)
//	fmt.Printf("P95: %v\n", summary.Metrics.Latency.P95)
//	fmt.Printf("Passed: %v\n", summary.Passed)
//
// # Configuration Files
//
// LoadConfig reads the same YAML/JSON files as "vuload run --config",
// applying BASE_URL from the environment:
//
//	cfg, err := perf.LoadConfig("load.yaml")
//
// # Reports
//
// WriteSummary renders a summary the way the CLI does:
//
//	perf.WriteSummary(os.Stdout, summary, perf.FormatJUnit)
package perf
