package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// sheet is a header-addressed table of string cells read from CSV or XLSX.
type sheet struct {
	index map[string]int
	rows  [][]string
}

func newSheet(records [][]string) (*sheet, error) {
	if len(records) == 0 {
		return nil, errors.New("missing header row")
	}
	s := &sheet{index: make(map[string]int, len(records[0]))}
	for i, name := range records[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := s.index[strings.ToLower(name)]; !dup {
			s.index[strings.ToLower(name)] = i
		}
	}
	s.rows = records[1:]
	return s, nil
}

// require fails when any of the named columns is absent.
func (s *sheet) require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := s.index[strings.ToLower(c)]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// get returns the trimmed cell of a column, empty when the column or cell is absent.
func (s *sheet) get(row []string, column string) string {
	i, ok := s.index[strings.ToLower(column)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// readSheet reads a CSV file, or the first worksheet of an .xlsx workbook.
func readSheet(path string) (*sheet, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path)
	}
	return readCSV(path)
}

func readCSV(path string) (*sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		records = append(records, rec)
	}
	return newSheet(records)
}

func readXLSX(path string) (*sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in xlsx %s", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheets[0], err)
	}
	return newSheet(rows)
}
