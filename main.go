package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"trend-go/internal/app"
	"trend-go/internal/config"
	"trend-go/pkg/logger"
	"trend-go/pkg/model"
)

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault returns environment variable as bool or default
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault returns environment variable as duration or default
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("CRITICAL ERROR: populate panic recovered: %v\n", r)
			os.Exit(1)
		}
	}()

	var (
		configPath = flag.String("config", getEnvOrDefault("TREND_CONFIG", ""), "Configuration file path (env: TREND_CONFIG)")
		driver     = flag.String("driver", getEnvOrDefault("TREND_STORAGE_DRIVER", ""), "Storage driver: sqlite, postgres or memory (env: TREND_STORAGE_DRIVER)")
		dsn        = flag.String("dsn", getEnvOrDefault("TREND_STORAGE_DSN", ""), "Storage DSN (env: TREND_STORAGE_DSN)")
		timeout    = flag.Duration("timeout", getEnvDurationOrDefault("POPULATE_TIMEOUT", 10*time.Minute), "Overall timeout (env: POPULATE_TIMEOUT)")
		debug      = flag.Bool("debug", getEnvBoolOrDefault("DEBUG", false), "Enable debug logging (env: DEBUG)")
		help       = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		printUsage()
		return
	}

	cfg, err := config.NewManager().Load(*configPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	if *driver != "" {
		cfg.Storage.Driver = *driver
	}
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	}
	if *debug {
		cfg.Logger.Level = "debug"
	}
	logger.SetLogger(logger.New(cfg.Logger))
	log := logger.Component("populate")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	services, err := app.NewBuilder(cfg).Build(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to build application")
	}
	defer func() {
		if err := services.Close(); err != nil {
			log.WithError(err).Warn("Failed to close application cleanly")
		}
	}()

	log.Info("Running one refresh cycle")
	startTime := time.Now()
	saved := services.Coordinator.RunRefresh(ctx)
	duration := time.Since(startTime)

	log.WithFields(map[string]interface{}{
		"batches":  len(saved),
		"duration": duration.String(),
	}).Info("Population completed")

	printBatches(os.Stdout, saved, duration)
}

// printBatches renders one table per refresh key in refresh order.
func printBatches(w io.Writer, saved map[string]*model.TrendBatch, duration time.Duration) {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintf(w, "\n=== Trend Population Results ===\n")
	fmt.Fprintf(w, "Batches: %d\n", len(saved))
	fmt.Fprintf(w, "Duration: %s\n", duration.String())

	for _, category := range model.RefreshKeys() {
		batch, ok := saved[category]
		if !ok {
			color.New(color.FgYellow).Fprintf(w, "\n[%s] not written\n", category)
			continue
		}

		title.Fprintf(w, "\n[%s] %s\n", category, batch.CreatedAt.Format(time.RFC3339))
		rows := make([][]string, 0, len(batch.Items))
		for _, item := range batch.Items {
			rows = append(rows, []string{strconv.Itoa(item.Rank), item.Keyword, string(item.Source)})
		}
		table := tablewriter.NewTable(w,
			tablewriter.WithConfig(tablewriter.Config{
				Row: tw.CellConfig{
					Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
					Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				},
			}),
			tablewriter.WithRendition(tw.Rendition{Borders: tw.BorderNone}),
		)
		table.Header([]string{"Rank", "Keyword", "Source"})
		table.Bulk(rows)
		table.Render()
	}
}

func printUsage() {
	fmt.Println("Trend-Go Population Script")
	fmt.Println("")
	fmt.Println("Collects every category once and writes the batches to the configured store.")
	fmt.Println("")
	fmt.Println("USAGE:")
	fmt.Println("    ./trend-go [OPTIONS]")
	fmt.Println("")
	fmt.Println("OPTIONS:")
	fmt.Println("    -config string     Configuration file (env: TREND_CONFIG)")
	fmt.Println("    -driver string     sqlite, postgres or memory (env: TREND_STORAGE_DRIVER)")
	fmt.Println("    -dsn string        Storage DSN (env: TREND_STORAGE_DSN)")
	fmt.Println("    -timeout duration  Overall timeout (default: 10m, env: POPULATE_TIMEOUT)")
	fmt.Println("    -debug             Enable debug logging (env: DEBUG)")
	fmt.Println("    -help              Show this help message")
	fmt.Println("")
	fmt.Println("EXAMPLES:")
	fmt.Println("    ./trend-go -driver sqlite -dsn data/trends.db")
	fmt.Println("    TREND_STORAGE_DRIVER=postgres TREND_STORAGE_DSN=postgres://... ./trend-go")
}
