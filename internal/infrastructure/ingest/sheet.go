package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/scout-scoring/internal/usecase"
	"github.com/xuri/excelize/v2"
)

const (
	extXLSX = ".xlsx"
	extCSV  = ".csv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sheet is the first worksheet of a file as header plus text rows. Cells are
// raw values: dates come through as Excel serial numbers.
type sheet struct {
	header []string
	rows   [][]string
}

// supported reports whether path is a spreadsheet this package can read.
// Office lock files ("~$name.xlsx") are ignored.
func supported(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case extXLSX, extCSV:
		return true
	}
	return false
}

func readSheet(path string) (sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case extXLSX:
		return readXLSX(path)
	case extCSV:
		return readCSV(path)
	}
	return sheet{}, fmt.Errorf("%w: unsupported spreadsheet %s", usecase.ErrInvalidInput, path)
}

func readXLSX(path string) (sheet, error) {
	f, err := excelize.OpenFile(path, excelize.Options{RawCellValue: true})
	if err != nil {
		return sheet{}, crerr.Wrapf(err, "open workbook %s", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return sheet{}, fmt.Errorf("%w: workbook %s has no sheets", usecase.ErrInvalidInput, path)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return sheet{}, crerr.Wrapf(err, "read sheet %s of %s", sheets[0], path)
	}
	defer rows.Close()

	out := sheet{}
	first := true
	for rows.Next() {
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return sheet{}, crerr.Wrapf(err, "read row of %s", path)
		}
		if first {
			out.header = cols
			first = false
			continue
		}
		out.rows = append(out.rows, cols)
	}
	if err := rows.Error(); err != nil {
		return sheet{}, crerr.Wrapf(err, "iterate rows of %s", path)
	}
	return out, nil
}

func readCSV(path string) (sheet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sheet{}, crerr.Wrapf(err, "read %s", path)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = sniffDelimiter(raw)

	out := sheet{}
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sheet{}, crerr.Wrapf(err, "parse %s", path)
		}
		if first {
			out.header = record
			first = false
			continue
		}
		out.rows = append(out.rows, record)
	}
	return out, nil
}

// sniffDelimiter picks ';' when the header line has more semicolons than
// commas, as spreadsheets saved in pt-BR locales do.
func sniffDelimiter(raw []byte) rune {
	line := raw
	if idx := bytes.IndexByte(raw, '\n'); idx >= 0 {
		line = raw[:idx]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

// columnIndex maps trimmed header names to positions. Blank headers are
// dropped and the first of repeated names wins.
func columnIndex(header []string) ([]string, map[string]int) {
	names := make([]string, 0, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if _, ok := index[name]; ok {
			continue
		}
		index[name] = i
		names = append(names, name)
	}
	return names, index
}

// rowCells builds a column -> value map, skipping empty cells. ok is false
// for a row with no values at all.
func rowCells(row []string, names []string, index map[string]int) (map[string]string, bool) {
	cells := make(map[string]string, len(names))
	for _, name := range names {
		i := index[name]
		if i >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[i])
		if value == "" {
			continue
		}
		cells[name] = value
	}
	return cells, len(cells) > 0
}
