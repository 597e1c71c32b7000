package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/scout-scoring/internal/domain/report"
	"github.com/riskibarqy/scout-scoring/internal/platform/fsutil"
	"github.com/riskibarqy/scout-scoring/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// NewWriter returns the table writer for format, rooted at dir.
func NewWriter(format, dir string) (report.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV, "":
		return &CSVWriter{dir: dir}, nil
	case FormatXLSX:
		return &XLSXWriter{dir: dir}, nil
	}
	return nil, fmt.Errorf("%w: export format %q", usecase.ErrInvalidInput, format)
}

// CSVWriter writes one comma-separated file per table.
type CSVWriter struct {
	dir string
}

func (w *CSVWriter) WriteTable(ctx context.Context, table report.Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	cw := csv.NewWriter(buf)
	if err := cw.Write(table.Columns); err != nil {
		return "", crerr.Wrapf(err, "encode %s header", table.Name)
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = FormatCell(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return "", crerr.Wrapf(err, "encode %s row", table.Name)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", crerr.Wrapf(err, "encode %s", table.Name)
	}

	path := filepath.Join(w.dir, table.Name+".csv")
	if err := fsutil.WriteFileAtomic(path, buf.B); err != nil {
		return "", crerr.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// XLSXWriter writes one workbook per table, the sheet named after the table.
type XLSXWriter struct {
	dir string
}

func (w *XLSXWriter) WriteTable(ctx context.Context, table report.Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(table.Name)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return "", crerr.Wrapf(err, "name sheet %s", sheet)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return "", crerr.Wrapf(err, "open sheet %s", sheet)
	}

	header := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return "", crerr.Wrapf(err, "write %s header", table.Name)
	}
	for r, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return "", err
		}
		values := make([]any, len(table.Columns))
		for i := range values {
			if i < len(row) {
				values[i] = row[i]
			}
		}
		if err := sw.SetRow(cell, values); err != nil {
			return "", crerr.Wrapf(err, "write %s row %d", table.Name, r+1)
		}
	}
	if err := sw.Flush(); err != nil {
		return "", crerr.Wrapf(err, "flush %s", table.Name)
	}

	path := filepath.Join(w.dir, table.Name+".xlsx")
	err = fsutil.WriteWithAtomic(path, func(tmp string) error {
		out, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if _, err := f.WriteTo(out); err != nil {
			_ = out.Close()
			return err
		}
		return out.Close()
	})
	if err != nil {
		return "", crerr.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// FormatCell renders a table cell as CSV text. nil is empty.
func FormatCell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case bool:
		if value {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(value)
	}
}

// sheetName fits Excel's 31 character sheet name limit.
func sheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}
