package main

import (
	"bytes"
	"image/color"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/declaration-signer/internal/config"
	"github.com/a3tai/declaration-signer/internal/pdf"
	pdferrors "github.com/a3tai/declaration-signer/internal/pdf/errors"
	"github.com/a3tai/declaration-signer/internal/pdf/pdftest"
)

const testVersion = "1.2.3"

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version = testVersion
	buildTime = "2026-01-01_10:30:00"
	gitCommit = "abc123"
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	output := captureStdout(t, printVersion)

	for _, expected := range []string{
		"Declaration Signer",
		"Version: " + testVersion,
		"Build Time: 2026-01-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		assert.Contains(t, output, expected)
	}
}

func TestSetupLogging(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	t.Run("stdio debug logs to stderr", func(t *testing.T) {
		setupLogging(&config.Config{Mode: config.ModeStdio, LogLevel: "debug"})
		assert.Equal(t, os.Stderr, log.Writer())
	})

	t.Run("stdio info is silent", func(t *testing.T) {
		setupLogging(&config.Config{Mode: config.ModeStdio, LogLevel: "info"})
		assert.Equal(t, io.Discard, log.Writer())
	})

	t.Run("web mode adds file and line", func(t *testing.T) {
		setupLogging(&config.Config{Mode: config.ModeWeb, LogLevel: "info"})
		assert.Equal(t, log.LstdFlags|log.Lshortfile, log.Flags())
		assert.Equal(t, os.Stderr, log.Writer())
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WorkDirectory = t.TempDir()
	cfg.OutputDirectory = cfg.WorkDirectory
	cfg.SignaturesDirectory = t.TempDir()
	cfg.PrefsFile = filepath.Join(t.TempDir(), "app_data.json")
	cfg.Mode = config.ModeWeb
	return cfg
}

func TestNewService(t *testing.T) {
	if testing.Short() {
		t.Skip("installs a full TrueType font")
	}

	cfg := testConfig(t)
	pdftest.WritePNG(t, cfg.SignaturePath(), 10, 10, color.Black)
	pdftest.WritePNG(t, cfg.StampPath(), 10, 10, color.Black)
	copyFile(t, pdftest.HebrewFont(t), cfg.FontPath())

	service, err := newService(cfg)
	require.NoError(t, err)

	opts := service.Options()
	assert.Equal(t, cfg.SignaturePath(), opts.SignaturePath)
	assert.Equal(t, cfg.StampPath(), opts.StampPath)
	assert.Equal(t, cfg.FontPath(), opts.FontFile)
	assert.NotEqual(t, "Arial", opts.FontName)
	assert.NotEqual(t, pdf.DefaultFontName, opts.FontName)
	assert.True(t, opts.NormalizeA4)
	assert.NoError(t, service.CheckAssets())
}

func TestNewService_MissingFontFile(t *testing.T) {
	cfg := testConfig(t)
	pdftest.WritePNG(t, cfg.SignaturePath(), 10, 10, color.Black)
	pdftest.WritePNG(t, cfg.StampPath(), 10, 10, color.Black)

	service, err := newService(cfg)
	require.NoError(t, err)
	assert.Equal(t, pdf.DefaultFontName, service.Options().FontName)

	err = service.CheckAssets()
	require.Error(t, err)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeAssetMissing))
	assert.Contains(t, err.Error(), "font file not found")
}

func TestNewService_BrokenFontFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.FontPath(), []byte("not a font"), 0o644))

	_, err := newService(cfg)
	require.Error(t, err)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeAssetMissing))
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o644))
}

func TestNewService_MissingAssetsStillStarts(t *testing.T) {
	cfg := testConfig(t)

	service, err := newService(cfg)
	require.NoError(t, err)
	assert.Error(t, service.CheckAssets())
}

func TestNewWebServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Port = 18080

	service, err := newService(cfg)
	require.NoError(t, err)

	srv, err := newWebServer(cfg, service)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:18080", srv.Addr)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), cfg.WorkDirectory)
}
