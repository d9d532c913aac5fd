package mcp

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/declaration-signer/internal/config"
	"github.com/a3tai/declaration-signer/internal/declaration"
	"github.com/a3tai/declaration-signer/internal/descriptions"
	"github.com/a3tai/declaration-signer/internal/pdf/security"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *declaration.Service
	paths     *security.PathValidator
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *declaration.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	paths, err := security.NewPathValidator(cfg.WorkDirectory)
	if err != nil {
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		service:   service,
		paths:     paths,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	detectTool := mcp.NewTool(
		"declaration_detect",
		mcp.WithDescription(descriptions.GetToolDescription("declaration_detect")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the declaration PDF, relative to the working directory or absolute inside it"),
		),
	)
	s.mcpServer.AddTool(detectTool, s.handleDetect)

	signTool := mcp.NewTool(
		"declaration_sign",
		mcp.WithDescription(descriptions.GetToolDescription("declaration_sign")),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Full name of the signer"),
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Identity number of the signer"),
		),
		mcp.WithString("gender",
			mcp.Required(),
			mcp.Description("Grammatical gender of the notary text"),
			mcp.Enum("male", "female"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the declaration PDF"),
		),
		mcp.WithString("type",
			mcp.Description("Declaration type; detected from the text when omitted"),
			mcp.Enum("company", "foreigner", "israeli"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Folder for the signed copy (uses the configured output folder if empty)"),
		),
	)
	s.mcpServer.AddTool(signTool, s.handleSign)

	listTool := mcp.NewTool(
		"declaration_list",
		mcp.WithDescription(descriptions.GetToolDescription("declaration_list")),
		mcp.WithString("directory",
			mcp.Description("Directory to list (uses the working directory if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional file name filter"),
		),
	)
	s.mcpServer.AddTool(listTool, s.handleList)

	infoTool := mcp.NewTool(
		"declaration_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("declaration_server_info")),
	)
	s.mcpServer.AddTool(infoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleDetect(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err = s.paths.NormalizePath(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	det, err := s.service.DetectFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDetection(det)), nil
}

func (s *Server) handleSign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	gender, err := request.RequireString("gender")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	typeArg, _ := args["type"].(string)
	outputDir, _ := args["output_dir"].(string)

	source, err := s.paths.NormalizePath(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if outputDir == "" {
		outputDir = s.config.OutputDir()
	} else if outputDir, err = s.paths.NormalizePath(outputDir); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var detected *declaration.Detection
	category := declaration.CategoryUnknown
	if strings.TrimSpace(typeArg) != "" {
		if category, err = declaration.ParseCategory(typeArg); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	} else {
		if detected, err = s.service.DetectFile(source); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		category = detected.Category
	}

	result, err := s.service.Sign(ctx, declaration.SignRequest{
		Signer: declaration.Signer{
			Name:   name,
			ID:     id,
			Gender: declaration.ParseGender(gender),
		},
		Category:   category,
		SourcePath: source,
		OutputDir:  outputDir,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSignResult(result, detected)), nil
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	directory, _ := args["directory"].(string)
	query, _ := args["query"].(string)

	if directory == "" {
		directory = s.paths.Root()
	} else {
		var err error
		if directory, err = s.paths.NormalizePath(directory); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	docs, err := s.service.ListDirectory(ctx, directory, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatListing(directory, query, docs)), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info := s.serverInfo()
	return mcp.NewToolResultText(formatServerInfo(info)), nil
}

// Run serves MCP over stdio until the client disconnects
func (s *Server) Run(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting declaration MCP server in stdio mode")
		log.Printf("Working directory: %s", s.config.WorkDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
