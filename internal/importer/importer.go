package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tally-dev/tally/internal/category"
	"github.com/tally-dev/tally/internal/extract"
	"github.com/tally-dev/tally/internal/model"
)

// Parser converts statement text into Transactions. Malformed rows are
// skipped, so the error only reports failures to read r.
type Parser interface {
	Parse(r io.Reader, userTag string) ([]model.Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes an importable file in the import directory.
type FileInfo struct {
	Name   string
	Path   string
	Format string
	Size   int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Options configure the built-in parsers.
type Options struct {
	Categories *category.Table // nil uses category.Default()
	DateOrder  DateOrder
}

// DefaultRegistry returns a registry with the CSV and PDF-text parsers.
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	r.Register(&CSVParser{Categories: opts.Categories, DateOrder: opts.DateOrder})
	r.Register(&PDFTextParser{Categories: opts.Categories, DateOrder: opts.DateOrder})
	return r
}

// FormatForFile returns the parser format for a file name, or "" if the
// extension is not importable. XLSX workbooks are converted to CSV text first.
func FormatForFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return "csv"
	case ".pdf", ".txt":
		return "pdf"
	default:
		return ""
	}
}

// ImportFile extracts the text of the statement at path and parses it with
// the registry's parser for its extension.
func (r *Registry) ImportFile(path, userTag string) ([]model.Transaction, error) {
	format := FormatForFile(path)
	if format == "" {
		return nil, fmt.Errorf("unsupported statement file %s", filepath.Base(path))
	}
	p := r.Get(format)
	if p == nil {
		return nil, fmt.Errorf("no parser registered for %s", format)
	}

	text, err := extract.Text(path)
	if err != nil {
		return nil, err
	}

	txns, err := p.Parse(strings.NewReader(text), userTag)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return txns, nil
}

// importDir is the subdirectory for statements waiting to be imported.
const importDir = "import"

// processedDir is the subdirectory for imported statements.
const processedDir = "import/processed"

// Scan returns importable statement files in <repoRoot>/import/.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		format := FormatForFile(e.Name())
		if format == "" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:   e.Name(),
			Path:   filepath.Join(dir, e.Name()),
			Format: format,
			Size:   info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
