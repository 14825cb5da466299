package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tally-dev/tally/internal/model"
)

const (
	transactionsFile = "transactions.csv"
	templatesFile    = "recurring/templates.yaml"
)

// FileStore keeps transactions in <root>/<YYYY>/<MM>/transactions.csv and
// templates in <root>/recurring/templates.yaml, so the data root can be a
// plain git repository.
type FileStore struct {
	root string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore rooted at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// templateFile is the on-disk layout of templates.yaml.
type templateFile struct {
	Templates []model.RecurringTemplate `yaml:"templates"`
}

// AppendTransactions appends each transaction to its month's file, creating
// the directory and header when the file is new.
func (s *FileStore) AppendTransactions(ctx context.Context, txns []model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMonth := make(map[string][]model.Transaction)
	var order []string
	for _, txn := range txns {
		path := s.monthPath(txn.Date.Year(), int(txn.Date.Month()))
		if _, seen := byMonth[path]; !seen {
			order = append(order, path)
		}
		byMonth[path] = append(byMonth[path], txn)
	}

	for _, path := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := appendMonth(path, byMonth[path]); err != nil {
			return err
		}
	}
	return nil
}

func appendMonth(path string, txns []model.Transaction) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating month dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening transactions: %w", err)
	}
	defer f.Close()

	if isNew {
		err = WriteTransactions(f, txns)
	} else {
		err = AppendTransactions(f, txns)
	}
	if err != nil {
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return nil
}

// Transactions reads every month file under the root.
func (s *FileStore) Transactions(ctx context.Context) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := s.monthFiles()
	if err != nil {
		return nil, err
	}

	var all []model.Transaction
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txns, err := readMonth(path)
		if err != nil {
			return nil, err
		}
		all = append(all, txns...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.Before(all[j].Date)
	})
	return all, nil
}

func readMonth(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transactions %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading transactions %s: %w", path, err)
	}
	return txns, nil
}

// monthFiles lists <root>/<YYYY>/<MM>/transactions.csv in chronological order.
func (s *FileStore) monthFiles() ([]string, error) {
	years, err := numberedDirs(s.root, 4)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, year := range years {
		months, err := numberedDirs(filepath.Join(s.root, year), 2)
		if err != nil {
			return nil, err
		}
		for _, month := range months {
			path := filepath.Join(s.root, year, month, transactionsFile)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}
	return paths, nil
}

// numberedDirs returns the sorted names of subdirectories of dir whose names
// are all digits of the given width.
func numberedDirs(dir string, width int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() || len(e.Name()) != width {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// SaveTemplates merges templates into templates.yaml by ID.
func (s *FileStore) SaveTemplates(ctx context.Context, templates []model.RecurringTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	existing, err := s.readTemplates()
	if err != nil {
		return err
	}

	index := make(map[string]int, len(existing))
	for i, t := range existing {
		index[t.ID] = i
	}
	for _, t := range templates {
		if i, ok := index[t.ID]; ok {
			existing[i] = t
			continue
		}
		index[t.ID] = len(existing)
		existing = append(existing, t)
	}
	sortTemplates(existing)

	data, err := yaml.Marshal(templateFile{Templates: existing})
	if err != nil {
		return fmt.Errorf("marshaling templates: %w", err)
	}

	path := filepath.Join(s.root, templatesFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating recurring dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing templates: %w", err)
	}
	return nil
}

// Templates reads templates.yaml. A missing file means no templates.
func (s *FileStore) Templates(ctx context.Context) ([]model.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.readTemplates()
}

func (s *FileStore) readTemplates() ([]model.RecurringTemplate, error) {
	data, err := os.ReadFile(filepath.Join(s.root, templatesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading templates: %w", err)
	}

	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return tf.Templates, nil
}

// Close is a no-op; files are opened per call.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) monthPath(year, month int) string {
	return filepath.Join(s.root, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), transactionsFile)
}

func sortTemplates(templates []model.RecurringTemplate) {
	slices.SortFunc(templates, func(a, b model.RecurringTemplate) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
