package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMinFileSize is the size below which an episode file is treated as
// partial or corrupted
const DefaultMinFileSize int64 = 20 * 1024 * 1024

var separatorRuns = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Manager owns the destination directory and decides episode file names
type Manager struct {
	outputDir string
	extension string
	minSize   int64
}

// NewManager creates the output directory (recursively) if it is missing
func NewManager(outputDir, extension string, minSize int64) (*Manager, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if extension == "" {
		extension = ".mp4"
	}
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}

	return &Manager{
		outputDir: outputDir,
		extension: extension,
		minSize:   minSize,
	}, nil
}

// PathFor returns <dir>/<normalized name><ext>
func (m *Manager) PathFor(episodeName string) string {
	return filepath.Join(m.outputDir, NormalizeFileName(episodeName)+m.extension)
}

// IsDownloaded reports whether path already holds a complete episode
func (m *Manager) IsDownloaded(path string) bool {
	return IsDownloaded(path, m.minSize)
}

// MinFileSize returns the completeness threshold in bytes
func (m *Manager) MinFileSize() int64 {
	return m.minSize
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Create opens path for a fresh attempt, truncating whatever a previous
// attempt left behind
func (m *Manager) Create(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination file: %w", err)
	}
	return f, nil
}

// FileSize returns the size of path, or 0 if it does not exist
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}

// IsDownloaded is false for a missing file or one smaller than minSize
func IsDownloaded(path string, minSize int64) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Size() >= minSize
}

// NormalizeFileName strips diacritics and collapses every run of
// non-alphanumeric characters into a single "-"
func NormalizeFileName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	out := separatorRuns.ReplaceAllString(folded, "-")
	if strings.Trim(out, "-") == "" {
		return "untitled"
	}
	return out
}
