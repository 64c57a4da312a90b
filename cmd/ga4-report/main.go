// Command ga4-report runs a pre-built or ad-hoc analytics report across
// every configured property and writes the combined table as CSV.
//
// Usage:
//
//	ga4-report -list
//	ga4-report -report traffic -start 7daysAgo -end yesterday
//	ga4-report -dimensions date -metrics sessions,transactions -labels US,UK
//	ga4-report -report ecommerce -out - > ecommerce.csv
//	ga4-report -report summary -s3
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ignite/ga4-reporter/internal/config"
	"github.com/ignite/ga4-reporter/internal/ga4"
	"github.com/ignite/ga4-reporter/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		list       = flag.Bool("list", false, "List available reports and exit")
		report     = flag.String("report", "", "Pre-built report name")
		dimensions = flag.String("dimensions", "", "Comma-separated dimensions for an ad-hoc query")
		metrics    = flag.String("metrics", "", "Comma-separated metrics for an ad-hoc query")
		start      = flag.String("start", "", "Start date (YYYY-MM-DD, today, yesterday, NdaysAgo)")
		end        = flag.String("end", "", "End date (YYYY-MM-DD, today, yesterday, NdaysAgo)")
		labels     = flag.String("labels", "", "Comma-separated source labels (default: all)")
		limit      = flag.Int64("limit", 0, "Per-source row limit (default from config)")
		policy     = flag.String("policy", "", "Failure policy: best_effort or fail_fast (default from config)")
		out        = flag.String("out", "", "Output: '-' for stdout, a file path, or empty for the configured export directory")
		s3         = flag.Bool("s3", false, "Upload the CSV to the configured S3 bucket instead of writing locally")
	)
	flag.Parse()

	if *list {
		for _, name := range ga4.ReportNames() {
			spec, _ := ga4.ReportByName(name)
			fmt.Printf("%-16s %s\n", spec.Name, spec.Description)
		}
		return
	}

	if *report == "" && *metrics == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *report != "" && *metrics != "" {
		log.Fatal("use either -report or -dimensions/-metrics, not both")
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sources, err := ga4.LoadSources(cfg.GA4.PropertiesPath)
	if err != nil {
		log.Fatalf("Failed to load property mapping: %v", err)
	}

	ctx := context.Background()
	client, err := ga4.NewClient(ctx, cfg.GA4)
	if err != nil {
		log.Fatalf("Failed to initialize analytics client: %v", err)
	}

	policyName := cfg.GA4.FailurePolicy
	if *policy != "" {
		policyName = *policy
	}
	failurePolicy, err := ga4.ParseFailurePolicy(policyName)
	if err != nil {
		log.Fatalf("Invalid failure policy: %v", err)
	}
	rowLimit := cfg.GA4.RowLimit
	if *limit > 0 {
		rowLimit = *limit
	}

	table, name, err := runQuery(ctx, client, sources, queryArgs{
		report:     *report,
		dimensions: splitList(*dimensions),
		metrics:    splitList(*metrics),
		start:      *start,
		end:        *end,
		labels:     splitList(*labels),
		rowLimit:   rowLimit,
		policy:     failurePolicy,
		workers:    cfg.GA4.Concurrency,
	})

	// Best-effort runs can return usable rows alongside failures.
	var partial *ga4.PartialFailure
	if err != nil && !errors.As(err, &partial) {
		log.Fatalf("Query failed: %v", err)
	}
	if partial != nil {
		for _, f := range partial.Failures {
			log.Printf("WARNING: source %q failed: %v", f.Label, f.Err)
		}
	}
	if table.Truncated {
		log.Printf("WARNING: one or more sources hit the %d row limit", rowLimit)
	}

	if err := writeOutput(ctx, cfg, name, table, *out, *s3); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
}

type queryArgs struct {
	report     string
	dimensions []string
	metrics    []string
	start      string
	end        string
	labels     []string
	rowLimit   int64
	policy     ga4.FailurePolicy
	workers    int
}

func runQuery(ctx context.Context, client *ga4.Client, sources ga4.SourceMap, args queryArgs) (*ga4.Table, string, error) {
	if args.report != "" {
		table, err := client.RunReport(ctx, sources, args.report, ga4.ReportOptions{
			StartDate:   args.start,
			EndDate:     args.end,
			OnlyLabels:  args.labels,
			RowLimit:    args.rowLimit,
			Policy:      args.policy,
			Concurrency: args.workers,
		})
		return table, args.report, err
	}

	start := args.start
	if start == "" {
		start = "30daysAgo"
	}
	end := args.end
	if end == "" {
		end = "yesterday"
	}
	table, err := client.QueryAll(ctx, sources, ga4.MultiQuerySpec{
		StartDate:   start,
		EndDate:     end,
		Dimensions:  args.dimensions,
		Metrics:     args.metrics,
		RowLimit:    args.rowLimit,
		OnlyLabels:  args.labels,
		Policy:      args.policy,
		Concurrency: args.workers,
	})
	return table, "query", err
}

func writeOutput(ctx context.Context, cfg *config.Config, name string, table *ga4.Table, out string, toS3 bool) error {
	if out == "-" {
		return table.WriteCSV(os.Stdout)
	}
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := table.WriteCSV(f); err != nil {
			return err
		}
		log.Printf("Wrote %d rows to %s", len(table.Rows), out)
		return nil
	}

	exporter, err := storage.New(ctx, cfg.Export)
	if err != nil {
		return err
	}
	var dest string
	if toS3 {
		dest, err = exporter.ExportS3(ctx, name, table)
	} else {
		dest, err = exporter.ExportLocal(name, table)
	}
	if err != nil {
		return err
	}
	log.Printf("Wrote %d rows to %s", len(table.Rows), dest)
	return nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
