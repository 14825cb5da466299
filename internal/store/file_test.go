package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/model"
)

func TestCSVRoundTrip(t *testing.T) {
	txns := sampleTransactions()

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, txns))

	// Verify header is present.
	assert.True(t, strings.HasPrefix(buf.String(), Header+"\n"))

	got, err := ReadTransactions(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(txns))
	for i := range txns {
		assertSameTransaction(t, txns[i], got[i])
	}
}

func TestMarshalTransaction(t *testing.T) {
	row := MarshalTransaction(sampleTransactions()[0])
	assert.Equal(t, []string{"txn_1", "2024-02-03", "Walmart", "-45.67", "Groceries", "alex"}, row)
}

func TestUnmarshalTransaction_Errors(t *testing.T) {
	tests := []struct {
		name   string
		record []string
		want   string
	}{
		{"short row", []string{"a", "b"}, "expected 6 fields"},
		{"bad date", []string{"id", "03/02/2024", "d", "1.00", "", ""}, "parsing date"},
		{"bad amount", []string{"id", "2024-02-03", "d", "lots", "", ""}, "parsing amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalTransaction(tt.record)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestReadTransactions_Empty(t *testing.T) {
	got, err := ReadTransactions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStore_Layout(t *testing.T) {
	root := t.TempDir()
	s := NewFileStore(root)
	ctx := context.Background()

	require.NoError(t, s.AppendTransactions(ctx, sampleTransactions()))
	require.NoError(t, s.AppendTransactions(ctx, sampleTransactions()[:1]))

	feb, err := os.ReadFile(filepath.Join(root, "2024", "02", "transactions.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(feb)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, 1, strings.Count(string(feb), Header))

	assert.FileExists(t, filepath.Join(root, "2024", "01", "transactions.csv"))
}

func TestFileStore_IgnoresOtherDirs(t *testing.T) {
	root := t.TempDir()
	s := NewFileStore(root)
	ctx := context.Background()
	require.NoError(t, s.AppendTransactions(ctx, sampleTransactions()))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "import", "processed"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "logs"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024", "notes"), 0o755))

	got, err := s.Transactions(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestFileStore_CorruptMonth(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "2024", "05")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transactions.csv"), []byte(Header+"\nonly,three,fields\n"), 0o644))

	_, err := NewFileStore(root).Transactions(context.Background())
	assert.ErrorContains(t, err, "transactions.csv")
}

func TestFileStore_TemplatesYAML(t *testing.T) {
	root := t.TempDir()
	s := NewFileStore(root)
	require.NoError(t, s.SaveTemplates(context.Background(), []model.RecurringTemplate{sampleTemplate()}))

	data, err := os.ReadFile(filepath.Join(root, "recurring", "templates.yaml"))
	require.NoError(t, err)
	contents := string(data)
	assert.Contains(t, contents, "templates:")
	assert.Contains(t, contents, "id: rec_rent")
	assert.Contains(t, contents, "frequency: monthly")
	assert.Contains(t, contents, "is_active: true")
	assert.NotContains(t, contents, "end_date")
}

func TestFileStore_BadTemplatesFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "recurring"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "recurring", "templates.yaml"), []byte("templates: {not: [a list"), 0o644))

	_, err := NewFileStore(root).Templates(context.Background())
	assert.ErrorContains(t, err, "parsing templates")
}
