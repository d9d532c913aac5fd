package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pdferrors "github.com/a3tai/declaration-signer/internal/pdf/errors"
)

// PathValidator confines the paths accepted from front ends to a root directory
type PathValidator struct {
	root string
}

// NewPathValidator creates a new path validator for the given directory
func NewPathValidator(root string) (*PathValidator, error) {
	if root == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	return &PathValidator{root: abs}, nil
}

// Root returns the configured directory path
func (v *PathValidator) Root() string {
	return v.root
}

// NormalizePath resolves path against the root when relative and checks
// that the result stays inside the root
func (v *PathValidator) NormalizePath(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", pdferrors.New(pdferrors.ErrorTypeInvalidInput, "path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, "failed to resolve path", err).WithPath(path)
	}

	if !v.IsWithin(abs) {
		return "", pdferrors.New(pdferrors.ErrorTypeInvalidInput, "path is outside configured directory").WithPath(path)
	}

	return abs, nil
}

// IsWithin reports whether path, after resolving symlinks of both sides,
// lies inside the root
func (v *PathValidator) IsWithin(path string) bool {
	cleanPath := filepath.Clean(path)
	cleanRoot := filepath.Clean(v.root)

	realPath := cleanPath
	if resolved, err := filepath.EvalSymlinks(cleanPath); err == nil {
		realPath = resolved
	}
	realRoot := cleanRoot
	if resolved, err := filepath.EvalSymlinks(cleanRoot); err == nil {
		realRoot = resolved
	}

	return within(cleanPath, cleanRoot, realRoot) && within(realPath, cleanRoot, realRoot)
}

func within(path string, roots ...string) bool {
	for _, root := range roots {
		if path == root {
			return true
		}
		prefix := root
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// EnsureWritableDir checks that dir exists, is a directory and accepts new
// files. The probe file is removed before returning.
func EnsureWritableDir(dir string) error {
	if dir == "" {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "output directory cannot be empty")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeOutputNotWritable, "output directory is not accessible", err).WithPath(dir)
	}
	if !info.IsDir() {
		return pdferrors.New(pdferrors.ErrorTypeOutputNotWritable, "output path is not a directory").WithPath(dir)
	}

	probe, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeOutputNotWritable, "output directory is not writable", err).WithPath(dir)
	}
	name := probe.Name()
	probe.Close()
	_ = os.Remove(name)

	return nil
}
