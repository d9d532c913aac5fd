package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio = "stdio"
	ModeWeb   = "web"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 100 * 1024 * 1024 // 100MB
	DefaultSignatureFile = "placeholder_signature_1.png"
	DefaultStampFile     = "placeholder_signature_2.png"
	DefaultFontFile      = "Arial.ttf"
	DefaultPrefsFile     = "app_data.json"

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "SIGNDOC"
)

// Config holds all configuration for the declaration signer
type Config struct {
	// Front end configuration
	Mode string // "stdio" or "web"
	Host string
	Port int

	// Document locations
	WorkDirectory   string // root that source paths are resolved against
	OutputDirectory string // default folder for signed copies

	// Assets
	SignaturesDirectory string
	SignatureFile       string
	StampFile           string
	FontFile            string // TrueType font with Hebrew glyphs, relative to SignaturesDirectory
	FontName            string // overrides the name the installed font registers under

	// Rendering
	RendererPath string // pdftoppm executable or poppler bin directory
	Flatten      bool
	NormalizeA4  bool

	// Application configuration
	PrefsFile   string
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:                ModeStdio,
		Host:                DefaultHost,
		Port:                DefaultPort,
		WorkDirectory:       currentDir,
		SignaturesDirectory: filepath.Join(executableDir(), "signatures"),
		SignatureFile:       DefaultSignatureFile,
		StampFile:           DefaultStampFile,
		FontFile:            DefaultFontFile,
		NormalizeA4:         true,
		PrefsFile:           DefaultPrefsFile,
		Version:             "1.0.0",
		ServerName:          "declaration-signer",
		LogLevel:            DefaultLogLevel,
		MaxFileSize:         DefaultMaxFileSize,
	}
}

// executableDir returns the directory holding the running binary, falling
// back to the working directory
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "."
	}
	return filepath.Dir(exe)
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.WorkDirectory)
	viper.SetDefault("output", "")
	viper.SetDefault("signatures", cfg.SignaturesDirectory)
	viper.SetDefault("signature-file", cfg.SignatureFile)
	viper.SetDefault("stamp-file", cfg.StampFile)
	viper.SetDefault("font-file", cfg.FontFile)
	viper.SetDefault("font", cfg.FontName)
	viper.SetDefault("renderer", "")
	viper.SetDefault("flatten", cfg.Flatten)
	viper.SetDefault("a4", cfg.NormalizeA4)
	viper.SetDefault("prefs", cfg.PrefsFile)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)

	// Environment names kept from the deployment scripts of the desktop tool
	_ = viper.BindEnv("renderer", envPrefix+"_RENDERER", "POPPLER_PATH")
	_ = viper.BindEnv("signatures", envPrefix+"_SIGNATURES", "SIGNATURES_DIR")
	_ = viper.BindEnv("signature-file", envPrefix+"_SIGNATURE_FILE")
	_ = viper.BindEnv("stamp-file", envPrefix+"_STAMP_FILE")
	_ = viper.BindEnv("font-file", envPrefix+"_FONT_FILE")
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Front end: 'stdio' for MCP standard I/O, 'web' for the local form")
	pflag.String("host", cfg.Host, "Web form host address (web mode only)")
	pflag.Int("port", cfg.Port, "Web form port (web mode only)")
	pflag.String("dir", cfg.WorkDirectory, "Directory containing declaration PDFs")
	pflag.String("output", "", "Directory for signed copies (defaults to --dir)")
	pflag.String("signatures", cfg.SignaturesDirectory, "Directory containing the placeholder signature images")
	pflag.String("signature-file", cfg.SignatureFile, "File name of the notary placeholder signature")
	pflag.String("stamp-file", cfg.StampFile, "File name of the second placeholder signature")
	pflag.String("font-file", cfg.FontFile, "TrueType font with Hebrew glyphs for the notary text (relative to --signatures)")
	pflag.String("font", cfg.FontName, "Font name used for the notary text (defaults to the installed font's name)")
	pflag.String("renderer", "", "pdftoppm executable or poppler bin directory (flatten mode)")
	pflag.Bool("flatten", cfg.Flatten, "Rasterise the signed page instead of stamping vector images")
	pflag.Bool("a4", cfg.NormalizeA4, "Scale the signed page to A4")
	pflag.String("prefs", cfg.PrefsFile, "File storing the last used form values")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "output", "signatures", "signature-file", "stamp-file",
		"font-file", "font", "renderer", "flatten", "a4", "prefs", "loglevel", "maxfilesize",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nDeclaration Signer - detects declaration types and stamps notary signatures\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                   # MCP over stdio, current directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=web --dir=/path/to/pdfs    # local web form\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --flatten --renderer=/usr/bin     # rasterise the signed page\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  SIGNDOC_MODE, SIGNDOC_HOST, SIGNDOC_PORT, SIGNDOC_DIR, SIGNDOC_OUTPUT\n")
		fmt.Fprintf(os.Stderr, "  SIGNDOC_SIGNATURES (or SIGNATURES_DIR)  Placeholder image directory\n")
		fmt.Fprintf(os.Stderr, "  SIGNDOC_RENDERER (or POPPLER_PATH)      Renderer location\n")
		fmt.Fprintf(os.Stderr, "  SIGNDOC_FONT_FILE, SIGNDOC_FONT, SIGNDOC_FLATTEN, SIGNDOC_A4\n")
		fmt.Fprintf(os.Stderr, "  SIGNDOC_PREFS, SIGNDOC_LOGLEVEL, SIGNDOC_MAXFILESIZE\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.WorkDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("output")
	cfg.SignaturesDirectory = viper.GetString("signatures")
	cfg.SignatureFile = viper.GetString("signature-file")
	cfg.StampFile = viper.GetString("stamp-file")
	cfg.FontFile = viper.GetString("font-file")
	cfg.FontName = viper.GetString("font")
	cfg.RendererPath = viper.GetString("renderer")
	cfg.Flatten = viper.GetBool("flatten")
	cfg.NormalizeA4 = viper.GetBool("a4")
	cfg.PrefsFile = viper.GetString("prefs")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// expandPaths makes directory paths absolute and defaults the output folder
func (c *Config) expandPaths() {
	if c.WorkDirectory != "" {
		if abs, err := filepath.Abs(c.WorkDirectory); err == nil {
			c.WorkDirectory = abs
		}
	}
	if c.OutputDirectory == "" {
		c.OutputDirectory = c.WorkDirectory
	} else if abs, err := filepath.Abs(c.OutputDirectory); err == nil {
		c.OutputDirectory = abs
	}
	if c.SignaturesDirectory != "" {
		if abs, err := filepath.Abs(c.SignaturesDirectory); err == nil {
			c.SignaturesDirectory = abs
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeWeb {
		return errors.New("mode must be either 'stdio' or 'web'")
	}

	if c.Mode == ModeWeb && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.WorkDirectory == "" {
		return errors.New("work directory cannot be empty")
	}

	if _, err := os.Stat(c.WorkDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.WorkDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create work directory %s: %w", c.WorkDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access work directory %s: %w", c.WorkDirectory, err)
	}

	if c.SignatureFile == "" || c.StampFile == "" {
		return errors.New("signature file names cannot be empty")
	}

	if c.FontFile == "" && c.FontName == "" {
		return errors.New("a font with Hebrew glyphs is required (--font-file or --font)")
	}

	if c.Flatten && c.RendererPath == "" {
		return errors.New("flatten mode requires a renderer path (--renderer or POPPLER_PATH)")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// SignaturePath returns the absolute path of the notary placeholder
func (c *Config) SignaturePath() string {
	return filepath.Join(c.SignaturesDirectory, c.SignatureFile)
}

// StampPath returns the absolute path of the second placeholder
func (c *Config) StampPath() string {
	return filepath.Join(c.SignaturesDirectory, c.StampFile)
}

// FontPath returns the absolute path of the notary text font, or "" when no
// font file is configured
func (c *Config) FontPath() string {
	if c.FontFile == "" || filepath.IsAbs(c.FontFile) {
		return c.FontFile
	}
	return filepath.Join(c.SignaturesDirectory, c.FontFile)
}

// OutputDir returns the output directory, falling back to the work directory
func (c *Config) OutputDir() string {
	if c.OutputDirectory != "" {
		return c.OutputDirectory
	}
	return c.WorkDirectory
}

// Address returns the web form address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, WorkDirectory: %s, OutputDirectory: %s, "+
		"Signatures: %s, Font: %s, Renderer: %s, Flatten: %t, A4: %t, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.WorkDirectory, c.OutputDir(), c.SignaturesDirectory,
		c.FontPath(), c.RendererPath, c.Flatten, c.NormalizeA4, c.LogLevel, c.MaxFileSize)
}

// IsWebMode returns true if the local web form is served
func (c *Config) IsWebMode() bool {
	return c.Mode == ModeWeb
}

// IsStdioMode returns true if the MCP server runs over stdio
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
