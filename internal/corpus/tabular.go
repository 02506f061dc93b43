package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/errors"
)

// Row is one tabular record keyed by column name.
type Row map[string]string

// Table is a loaded tabular corpus for one domain.
type Table struct {
	Domain Domain
	Rows   []Row
}

// LoadTable reads the domain's CSV file from dir. The first line names the
// columns. A missing file is reported as ErrMissingData.
func LoadTable(dir string, domain Domain) (*Table, error) {
	path := filepath.Join(dir, domain.File)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: file not found: %s", apperrors.ErrMissingData, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &Table{Domain: domain, Rows: rows}, nil
}

// ReadRows decodes CSV with a header line into rows. Short rows leave the
// missing columns empty; a UTF-8 byte-order mark on the header is dropped.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return []Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([]Row, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(rows)+1, err)
		}
		row := make(Row, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Documents flattens every row into its search text: the domain's search
// fields, in order, joined by single spaces.
func (t *Table) Documents() []string {
	docs := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		parts := make([]string, len(t.Domain.SearchFields))
		for j, field := range t.Domain.SearchFields {
			parts[j] = row[field]
		}
		docs[i] = strings.Join(parts, " ")
	}
	return docs
}

// Project maps row i to a presentable record holding the domain's output
// fields. Fields absent from the file's header are left out.
func (t *Table) Project(i int, score float64) Record {
	row := t.Rows[i]
	fields := make([]Field, 0, len(t.Domain.OutputFields))
	for _, name := range t.Domain.OutputFields {
		if value, ok := row[name]; ok {
			fields = append(fields, Field{Name: name, Value: value})
		}
	}
	return Record{Fields: fields, Score: score}
}
