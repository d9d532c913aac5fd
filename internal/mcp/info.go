package mcp

import (
	"fmt"
	"strings"

	"github.com/a3tai/declaration-signer/internal/declaration"
	"github.com/a3tai/declaration-signer/internal/descriptions"
)

// ServerInfo describes the running server and its assets
type ServerInfo struct {
	ServerName      string
	Version         string
	WorkDirectory   string
	OutputDirectory string
	SignaturePath   string
	StampPath       string
	FontName        string
	Flatten         bool
	NormalizeA4     bool
	MaxFileSize     int64
	AssetsError     string // empty when the assets are usable
	Tools           []string
}

func (s *Server) serverInfo() ServerInfo {
	opts := s.service.Options()
	info := ServerInfo{
		ServerName:      s.config.ServerName,
		Version:         s.config.Version,
		WorkDirectory:   s.config.WorkDirectory,
		OutputDirectory: s.config.OutputDir(),
		SignaturePath:   opts.SignaturePath,
		StampPath:       opts.StampPath,
		FontName:        opts.FontName,
		Flatten:         opts.Flatten,
		NormalizeA4:     opts.NormalizeA4,
		MaxFileSize:     s.config.MaxFileSize,
		Tools:           descriptions.GetAllToolNames(),
	}
	if err := s.service.CheckAssets(); err != nil {
		info.AssetsError = err.Error()
	}
	return info
}

func formatDetection(det *declaration.Detection) string {
	text := fmt.Sprintf("Declaration type: %s\n", det.Category)
	text += fmt.Sprintf("File: %s\n", det.Path)
	text += fmt.Sprintf("Pages: %d\n", det.Pages)
	if det.Matched() {
		text += fmt.Sprintf("Matched keyword %q on page %d\n", det.Keyword, det.Page)
	} else {
		text += "No keyword matched, using the default type\n"
	}
	return text
}

func formatSignResult(result *declaration.SignResult, det *declaration.Detection) string {
	text := fmt.Sprintf("Signed declaration written to: %s\n", result.OutputPath)
	text += fmt.Sprintf("Declaration type: %s", result.Category)
	if det != nil {
		text += " (detected)"
	}
	text += "\n"
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	if result.Flattened {
		text += "Page 1 was flattened to an image\n"
	}
	return text
}

func formatListing(directory, query string, docs []declaration.ListedDocument) string {
	text := fmt.Sprintf("Declarations in %s", directory)
	if query != "" {
		text += fmt.Sprintf(" matching %q", query)
	}
	text += fmt.Sprintf(": %d\n", len(docs))

	for i, doc := range docs {
		if doc.Error != "" {
			text += fmt.Sprintf("%d. %s: %s\n", i+1, doc.Name, doc.Error)
			continue
		}
		text += fmt.Sprintf("%d. %s: %s (%d bytes)\n", i+1, doc.Name, doc.Category, doc.Size)
	}
	return text
}

func formatServerInfo(info ServerInfo) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s v%s\n", info.ServerName, info.Version)
	fmt.Fprintf(&b, "Working directory: %s\n", info.WorkDirectory)
	fmt.Fprintf(&b, "Output directory: %s\n", info.OutputDirectory)
	fmt.Fprintf(&b, "Max file size: %d MB\n\n", info.MaxFileSize/(1024*1024))

	b.WriteString("Assets:\n")
	fmt.Fprintf(&b, "  Signature: %s\n", info.SignaturePath)
	fmt.Fprintf(&b, "  Second signature: %s\n", info.StampPath)
	fmt.Fprintf(&b, "  Font: %s\n", info.FontName)
	fmt.Fprintf(&b, "  Flatten page 1: %t\n", info.Flatten)
	fmt.Fprintf(&b, "  Resize page 1 to A4: %t\n", info.NormalizeA4)
	if info.AssetsError != "" {
		fmt.Fprintf(&b, "  Problem: %s\n", info.AssetsError)
	} else {
		b.WriteString("  Status: ready\n")
	}

	b.WriteString("\nAvailable tools:\n")
	for _, name := range info.Tools {
		fmt.Fprintf(&b, "  • %s\n", name)
	}
	return b.String()
}
