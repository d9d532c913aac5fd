package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/a3tai/declaration-signer/internal/config"
	"github.com/a3tai/declaration-signer/internal/declaration"
)

var (
	outputFormat = pflag.String("format", "text", "Output format: text, json")
	query        = pflag.String("query", "", "Only list files whose name matches the query")
	maxFileSize  = pflag.Int64("maxfilesize", config.DefaultMaxFileSize, "Maximum PDF file size in bytes")
	verbose      = pflag.BoolP("verbose", "v", false, "Log every detection step to stderr")
	help         = pflag.BoolP("help", "h", false, "Show help message")
)

// ScanResult is the JSON output of a scan
type ScanResult struct {
	Directory string                       `json:"directory"`
	Query     string                       `json:"query,omitempty"`
	Count     int                          `json:"count"`
	Counts    map[declaration.Category]int `json:"counts"`
	Documents []declaration.ListedDocument `json:"documents"`
	Failed    int                          `json:"failed"`
	ScanTime  string                       `json:"scan_time"`
}

func main() {
	pflag.Parse()

	if *help {
		printHelp()
		return
	}

	dir := "."
	if pflag.NArg() > 0 {
		dir = pflag.Arg(0)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "scan: ", log.LstdFlags)
	}

	result, err := scan(absDir, *query, *maxFileSize, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", absDir, err)
		os.Exit(1)
	}

	if err := outputResults(os.Stdout, *outputFormat, result); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

// scan detects the category of every PDF under dir
func scan(dir, query string, maxFileSize int64, logger *log.Logger) (*ScanResult, error) {
	start := time.Now()
	service := declaration.NewService(declaration.Options{MaxFileSize: maxFileSize, Logger: logger})

	docs, err := service.ListDirectory(context.Background(), dir, query)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		Directory: dir,
		Query:     query,
		Count:     len(docs),
		Counts:    map[declaration.Category]int{},
		Documents: docs,
	}
	for _, doc := range docs {
		if doc.Error != "" {
			result.Failed++
			continue
		}
		result.Counts[doc.Category]++
	}
	result.ScanTime = time.Since(start).Round(time.Millisecond).String()
	return result, nil
}

func outputResults(w io.Writer, format string, result *ScanResult) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		return outputText(w, result)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func outputText(w io.Writer, result *ScanResult) error {
	fmt.Fprintf(w, "Scanned %s: %d declarations\n", result.Directory, result.Count)
	for i, doc := range result.Documents {
		if doc.Error != "" {
			fmt.Fprintf(w, "[%d] %s\n    Error: %s\n", i+1, doc.Path, doc.Error)
			continue
		}
		fmt.Fprintf(w, "[%d] %s\n    Type: %s\n", i+1, doc.Path, doc.Category)
	}

	fmt.Fprintln(w)
	for _, c := range declaration.Categories {
		fmt.Fprintf(w, "%-10s %d\n", c, result.Counts[c])
	}
	if result.Failed > 0 {
		fmt.Fprintf(w, "%-10s %d\n", "failed", result.Failed)
	}
	_, err := fmt.Fprintf(w, "Scan time: %s\n", result.ScanTime)
	return err
}

func printHelp() {
	fmt.Println("declaration-scan - List declaration PDFs with their detected type")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  declaration-scan [options] [directory]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	pflag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  declaration-scan ./incoming")
	fmt.Println("  declaration-scan --format json --query acme ./incoming")
}
