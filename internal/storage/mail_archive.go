// Package storage archives raw captured mail on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Security errors
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrFileNotFound  = errors.New("file not found")
	ErrFileTooLarge  = errors.New("file exceeds size limit")
)

// MaxMessageSize is the largest message the archive accepts (25 MB)
const MaxMessageSize = 25 * 1024 * 1024

// ArchiveExt is the extension of archived messages
const ArchiveExt = ".eml"

// MailArchive defines the interface for raw message storage
type MailArchive interface {
	Save(content io.Reader) (string, error)
	Get(filePath string) (io.ReadCloser, error)
	Delete(filePath string) error
}

// localArchive implements MailArchive using local filesystem
type localArchive struct {
	basePath string
}

// NewLocalArchive creates a new localArchive instance
func NewLocalArchive(basePath string) (MailArchive, error) {
	// Ensure base directory exists
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &localArchive{basePath: basePath}, nil
}

// validatePath ensures path is within basePath (prevents traversal)
func (s *localArchive) validatePath(filePath string) (string, error) {
	cleanPath := filepath.Clean(filePath)

	if filepath.IsAbs(cleanPath) || strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, cleanPath))
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	// Security check: ensure file is within allowed directory
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return absPath, nil
}

// Save stores one message under a uuid name, sharded by the first two
// characters, and returns the path relative to the archive root.
func (s *localArchive) Save(content io.Reader) (string, error) {
	uniqueName := uuid.New().String() + ArchiveExt

	subDir := uniqueName[:2]
	if err := os.MkdirAll(filepath.Join(s.basePath, subDir), 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	filePath := filepath.Join(subDir, uniqueName)
	fullPath := filepath.Join(s.basePath, filePath)

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// Read one byte past the limit to detect oversized input
	n, err := io.Copy(file, io.LimitReader(content, MaxMessageSize+1))
	if err == nil && n > MaxMessageSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		os.Remove(fullPath)
		if errors.Is(err, ErrFileTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filePath, nil
}

// Get opens an archived message by its path
func (s *localArchive) Get(filePath string) (io.ReadCloser, error) {
	fullPath, err := s.validatePath(filePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Delete removes an archived message by its path
func (s *localArchive) Delete(filePath string) error {
	fullPath, err := s.validatePath(filePath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			// File already doesn't exist, not an error
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}
