// auto-process picks the newest file from the staging directory and runs a
// reconciliation batch against it, printing the summary report to stdout.
package main

import (
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/username/reconhub/backend/src/database"
	"github.com/username/reconhub/backend/src/logger"
	"github.com/username/reconhub/backend/src/models"
	"github.com/username/reconhub/backend/src/services"
)

func main() {
	uploadDir := flag.String("dir", envOr("UPLOAD_DIR", "uploads"), "directory to scan for input files")
	dbPath := flag.String("db", envOr("DATABASE_PATH", "./reconhub.db"), "path to the sqlite database")
	flag.Parse()

	logger.InitLogger(envOr("LOG_LEVEL", "info"))

	latest, err := newestFile(*uploadDir)
	if err != nil {
		stdlog.Fatalf("scanning %s: %v", *uploadDir, err)
	}
	if latest == "" {
		fmt.Printf("No files found in %q.\nPlace a CSV or spreadsheet there and run again.\n", *uploadDir)
		return
	}
	fmt.Printf("Processing latest file: %s\n", latest)

	database.InitDB(*dbPath)
	database.RunMigrations(*dbPath)

	summaryCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	engine := services.NewReconcileService(database.DB, summaryCache)

	_, summary := engine.ProcessFile(latest, "")
	printSummary(summary)

	if summary.Error != "" || summary.ErrorFatal != "" {
		os.Exit(1)
	}
}

// newestFile returns the most recently modified regular file in dir,
// skipping dotfiles. Empty string means the directory held no candidates.
func newestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	type candidate struct {
		path    string
		modTime int64
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}
	if len(candidates) == 0 {
		return "", nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime > candidates[j].modTime
	})
	return candidates[0].path, nil
}

func printSummary(summary *models.ReconciliationSummary) {
	fmt.Println("\n=== Reconciliation Summary ===")

	if summary.Error != "" {
		fmt.Println("ERROR: Failed to process file.")
		fmt.Printf("Reason: %s\n", summary.Error)
		return
	}
	if summary.ErrorFatal != "" {
		fmt.Println("CRITICAL ERROR: Transaction rolled back.")
		fmt.Printf("Reason: %s\n", summary.ErrorFatal)
		return
	}

	fmt.Printf("Batch ID:            %s\n", summary.BatchID)
	fmt.Printf("Total rows in file:  %d\n", summary.TotalRows)
	fmt.Printf("Matched & processed: %d\n", summary.Matched)
	fmt.Printf("Skipped:             %d\n", summary.Skipped)
	fmt.Printf("Price updates:       %d\n", summary.UpdatedPrice)
	fmt.Printf("Quantity updates:    %d\n", summary.UpdatedQuantity)

	if len(summary.Errors) > 0 {
		fmt.Println("\nWarnings:")
		for _, warning := range summary.Errors {
			fmt.Printf(" - %s\n", warning)
		}
	}

	fmt.Println("\nStatus: SUCCESS (committed to database)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
