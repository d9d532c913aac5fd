package mcp

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/declaration-signer/internal/config"
	"github.com/a3tai/declaration-signer/internal/declaration"
	"github.com/a3tai/declaration-signer/internal/pdf"
	"github.com/a3tai/declaration-signer/internal/pdf/pdftest"
)

const companyPhrase = "פרטי החברה השוכרת"

var (
	fontOnce sync.Once
	fontName string
	fontErr  error
)

// hebrewFont installs a Hebrew TrueType font once per test binary
func hebrewFont(t *testing.T) string {
	t.Helper()
	path := pdftest.HebrewFont(t)
	fontOnce.Do(func() { fontName, fontErr = pdf.InstallFont(path) })
	require.NoError(t, fontErr)
	return fontName
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	return newTestServerWithFont(t, "")
}

func newTestServerWithFont(t *testing.T, font string) (*Server, string) {
	t.Helper()
	workDir := t.TempDir()
	assets := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.WorkDirectory = workDir
	cfg.OutputDirectory = workDir
	cfg.SignaturesDirectory = assets
	cfg.Version = "1.0.0"
	cfg.ServerName = "test-server"
	cfg.MaxFileSize = 1024 * 1024

	pdftest.WritePNG(t, cfg.SignaturePath(), 60, 30, color.Black)
	pdftest.WritePNG(t, cfg.StampPath(), 60, 60, color.RGBA{B: 255, A: 255})

	service := declaration.NewService(declaration.Options{
		SignaturePath: cfg.SignaturePath(),
		StampPath:     cfg.StampPath(),
		FontName:      font,
		NormalizeA4:   true,
		MaxFileSize:   cfg.MaxFileSize,
	})

	server, err := NewServer(cfg, service)
	require.NoError(t, err)
	return server, workDir
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	service := declaration.NewService(declaration.Options{})

	tests := []struct {
		name        string
		config      *config.Config
		service     *declaration.Service
		expectError bool
	}{
		{
			name: "valid stdio config",
			config: &config.Config{
				Mode:          config.ModeStdio,
				WorkDirectory: t.TempDir(),
				Version:       "1.0.0",
				ServerName:    "test-server",
			},
			service: service,
		},
		{
			name:        "nil config",
			service:     service,
			expectError: true,
		},
		{
			name: "nil service",
			config: &config.Config{
				Mode:          config.ModeStdio,
				WorkDirectory: t.TempDir(),
			},
			expectError: true,
		},
		{
			name: "empty work directory",
			config: &config.Config{
				Mode: config.ModeStdio,
			},
			service:     service,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.config, tt.service)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.config, server.config)
			assert.Same(t, tt.service, server.service)
			assert.NotNil(t, server.mcpServer)
			assert.Equal(t, tt.config.WorkDirectory, server.paths.Root())
		})
	}
}

func TestServer_HandleDetect(t *testing.T) {
	server, workDir := newTestServer(t)
	pdftest.WriteTextPDF(t, workDir, "company.pdf", "טופס הצהרה", companyPhrase)
	pdftest.WriteTextPDF(t, workDir, "plain.pdf", "הצהרה של תושב ישראל")

	tests := []struct {
		name     string
		path     string
		wantErr  bool
		contains []string
	}{
		{
			name:     "company keyword on page 2",
			path:     "company.pdf",
			contains: []string{"Declaration type: company", "page 2"},
		},
		{
			name:     "default type",
			path:     filepath.Join(workDir, "plain.pdf"),
			contains: []string{"Declaration type: israeli", "No keyword matched"},
		},
		{
			name:     "missing file",
			path:     "missing.pdf",
			wantErr:  true,
			contains: []string{"SOURCE_UNREADABLE"},
		},
		{
			name:     "outside working directory",
			path:     "../../etc/passwd.pdf",
			wantErr:  true,
			contains: []string{"outside configured directory"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleDetect(context.Background(), toolRequest(map[string]interface{}{
				"path": tt.path,
			}))
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantErr, result.IsError)

			text := extractTextFromResult(result)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
		})
	}
}

func TestServer_HandleDetect_MissingPath(t *testing.T) {
	server, _ := newTestServer(t)

	result, err := server.handleDetect(context.Background(), toolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServer_HandleSign_InvalidInput(t *testing.T) {
	server, workDir := newTestServer(t)
	pdftest.WriteTextPDF(t, workDir, "decl.pdf", "הצהרה")

	base := map[string]interface{}{
		"name":   "Dana Levi",
		"id":     "123456789",
		"gender": "female",
		"path":   "decl.pdf",
	}

	tests := []struct {
		name     string
		override map[string]interface{}
		remove   string
		contains string
	}{
		{name: "missing name", remove: "name", contains: "name"},
		{name: "blank id", override: map[string]interface{}{"id": "  "}, contains: "INVALID_INPUT"},
		{name: "unknown type", override: map[string]interface{}{"type": "martian"}, contains: "unknown declaration type"},
		{name: "output outside working directory", override: map[string]interface{}{"output_dir": "/"}, contains: "outside configured directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{}
			for k, v := range base {
				if k != tt.remove {
					args[k] = v
				}
			}
			for k, v := range tt.override {
				args[k] = v
			}

			result, err := server.handleSign(context.Background(), toolRequest(args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractTextFromResult(result), tt.contains)
		})
	}

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "failed requests must not leave output files")
}

func TestServer_HandleSign(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full signing pipeline in short mode")
	}

	server, workDir := newTestServerWithFont(t, hebrewFont(t))
	pdftest.WriteTextPDF(t, workDir, "foreign.pdf", "הצהרת תושב זר", "עמוד שני")

	result, err := server.handleSign(context.Background(), toolRequest(map[string]interface{}{
		"name":   "John Smith",
		"id":     "P1234567",
		"gender": "male",
		"path":   "foreign.pdf",
	}))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	require.False(t, result.IsError, text)

	assert.Contains(t, text, "Declaration type: foreigner (detected)")
	assert.Contains(t, text, "Pages: 2")

	want := filepath.Join(workDir, declaration.OutputName("foreign.pdf", declaration.Signer{
		Name: "John Smith", ID: "P1234567",
	}, declaration.CategoryForeigner))
	assert.Contains(t, text, want)
	assert.FileExists(t, want)
}

func TestServer_HandleList(t *testing.T) {
	server, workDir := newTestServer(t)
	pdftest.WriteTextPDF(t, workDir, "acme-company.pdf", companyPhrase)
	pdftest.WriteTextPDF(t, workDir, "tourist.pdf", "תושב זר")
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "notes.txt"), []byte("x"), 0o644))

	result, err := server.handleList(context.Background(), toolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := extractTextFromResult(result)
	assert.Contains(t, text, ": 2\n")
	assert.Contains(t, text, "acme-company.pdf: company")
	assert.Contains(t, text, "tourist.pdf: foreigner")
	assert.NotContains(t, text, "notes.txt")

	result, err = server.handleList(context.Background(), toolRequest(map[string]interface{}{
		"query": "acme",
	}))
	require.NoError(t, err)
	text = extractTextFromResult(result)
	assert.Contains(t, text, `matching "acme": 1`)
	assert.NotContains(t, text, "tourist.pdf")
}

func TestServer_HandleServerInfo(t *testing.T) {
	if testing.Short() {
		t.Skip("installs a full TrueType font")
	}
	server, workDir := newTestServerWithFont(t, hebrewFont(t))

	result, err := server.handleServerInfo(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := extractTextFromResult(result)
	assert.Contains(t, text, "test-server v1.0.0")
	assert.Contains(t, text, "Working directory: "+workDir)
	assert.Contains(t, text, "Status: ready")
	for _, name := range []string{"declaration_detect", "declaration_list", "declaration_server_info", "declaration_sign"} {
		assert.Contains(t, text, name)
	}
}

func TestServer_HandleServerInfo_MissingAssets(t *testing.T) {
	server, _ := newTestServer(t)
	require.NoError(t, os.Remove(server.config.StampPath()))

	result, err := server.handleServerInfo(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Problem:")
	assert.Contains(t, text, "ASSET_MISSING")
}

func TestServer_HandleServerInfo_CoreFont(t *testing.T) {
	server, _ := newTestServer(t)

	result, err := server.handleServerInfo(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Problem:")
	assert.Contains(t, text, "Helvetica has no glyph")
	assert.NotContains(t, text, "Status: ready")
}

// extractTextFromResult joins the text content of a tool result
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			parts = append(parts, textContent.Text)
		}
	}
	return strings.Join(parts, "\n")
}
