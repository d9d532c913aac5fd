package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/a3tai/declaration-signer/internal/config"
	"github.com/a3tai/declaration-signer/internal/declaration"
	"github.com/a3tai/declaration-signer/internal/mcp"
	"github.com/a3tai/declaration-signer/internal/pdf"
	"github.com/a3tai/declaration-signer/internal/pdf/security"
	"github.com/a3tai/declaration-signer/internal/web"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 5 * time.Second

// setupLogging configures logging based on the front end
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// stdout carries the MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	} else {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// newService builds the declaration service from the configuration,
// installing the configured font first. A missing font file, like a missing
// signature image, only fails signing.
func newService(cfg *config.Config) (*declaration.Service, error) {
	fontName := cfg.FontName
	if fontPath := cfg.FontPath(); fontPath != "" {
		if _, err := os.Stat(fontPath); err != nil {
			log.Printf("Warning: font file not found: %s", fontPath)
		} else {
			name, err := pdf.InstallFont(fontPath)
			if err != nil {
				return nil, err
			}
			// an explicit --font wins over the installed name
			if fontName == "" {
				fontName = name
			}
		}
	}

	opts := declaration.Options{
		SignaturePath: cfg.SignaturePath(),
		StampPath:     cfg.StampPath(),
		FontFile:      cfg.FontPath(),
		FontName:      fontName,
		NormalizeA4:   cfg.NormalizeA4,
		Flatten:       cfg.Flatten,
		RendererPath:  cfg.RendererPath,
		MaxFileSize:   cfg.MaxFileSize,
	}
	if cfg.IsDebug() {
		opts.Logger = log.Default()
	}

	service := declaration.NewService(opts)
	if err := service.CheckAssets(); err != nil {
		// signing reports this again per request
		log.Printf("Warning: %v", err)
	}
	return service, nil
}

// newWebServer wires the signing form onto an http.Server
func newWebServer(cfg *config.Config, service *declaration.Service) (*http.Server, error) {
	if !cfg.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	paths, err := security.NewPathValidator(cfg.WorkDirectory)
	if err != nil {
		return nil, err
	}

	h := web.NewHandler(service, config.NewPrefsStore(cfg.PrefsFile), paths, cfg.OutputDir(), cfg.Version)
	return &http.Server{
		Addr:              cfg.Address(),
		Handler:           web.Setup(h, log.Default()),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// runWebMode serves the signing form until a shutdown signal arrives
func runWebMode(srv *http.Server) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		log.Printf("Signing form listening on http://%s", srv.Addr)
		serverErrCh <- srv.ListenAndServe()
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

// runStdioMode serves MCP until the parent process closes stdin
func runStdioMode(ctx context.Context, server *mcp.Server) {
	if err := server.Run(ctx); err != nil {
		log.Printf("Server error: %v", err)
		os.Exit(1)
	}
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	service, err := newService(cfg)
	if err != nil {
		log.Fatalf("Failed to create declaration service: %v", err)
	}

	if cfg.IsWebMode() {
		srv, err := newWebServer(cfg, service)
		if err != nil {
			log.Fatalf("Failed to create web server: %v", err)
		}
		runWebMode(srv)
		return
	}

	server, err := mcp.NewServer(cfg, service)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runStdioMode(ctx, server)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Declaration Signer\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
