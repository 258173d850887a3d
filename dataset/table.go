// Package dataset reads observation tables and posterior draw files,
// and writes them back out.  Observation tables may be CSV or XLSX
// files; draws follow the CSV layout of CmdStan output files.  CSV files
// may be gzip or zstd compressed.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/xuri/excelize/v2"
)

// table is a rectangular block of text cells below a header row.
type table struct {
	header []string
	rows   [][]string
}

// pos returns the position of every header name.
func (tab *table) pos() map[string]int {
	p := make(map[string]int)
	for j, h := range tab.header {
		p[h] = j
	}
	return p
}

// column parses column j as floating point values.
func (tab *table) column(j int) ([]float64, error) {
	x := make([]float64, len(tab.rows))
	for i, row := range tab.rows {
		if j >= len(row) || row[j] == "" {
			return nil, fmt.Errorf("row %d: missing value for '%s'", i+1, tab.header[j])
		}
		v, err := strconv.ParseFloat(row[j], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: value '%s' for '%s' is not a number", i+1, row[j], tab.header[j])
		}
		x[i] = v
	}
	return x, nil
}

func isExcel(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".xlsx"
}

func newTable(rows [][]string) (*table, error) {
	if len(rows) < 1 {
		return nil, fmt.Errorf("file has no header row")
	}
	header := make([]string, len(rows[0]))
	for j, h := range rows[0] {
		header[j] = strings.TrimSpace(h)
	}
	body := rows[1:]
	for _, row := range body {
		for j := range row {
			row[j] = strings.TrimSpace(row[j])
		}
	}
	return &table{header: header, rows: body}, nil
}

// readTable reads a CSV file, or the named sheet of an XLSX file (the
// first sheet if sheet is empty).  Lines of a CSV file starting with #
// are skipped.  CSV files ending in .gz or .zst are decompressed.
func readTable(path, sheet string) (*table, error) {
	if isExcel(path) {
		return readExcel(path, sheet)
	}
	return readCSV(path)
}

func readCSV(path string) (*table, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fid.Close()

	var r io.Reader = fid
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(fid)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	case ".zst":
		dec, err := zstd.NewReader(fid, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}

	rdr := csv.NewReader(r)
	rdr.Comment = '#'
	rows, err := rdr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return newTable(rows)
}

func readExcel(path, sheet string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: workbook has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return newTable(rows)
}

// writeTable writes the header and columns to a CSV or XLSX file,
// according to the extension of path.
func writeTable(path string, header []string, cols [][]float64) error {

	var n int
	if len(cols) > 0 {
		n = len(cols[0])
	}

	if isExcel(path) {
		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(f.GetActiveSheetIndex())
		hdr := make([]interface{}, len(header))
		for j, h := range header {
			hdr[j] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			row := make([]interface{}, len(cols))
			for j := range cols {
				row[j] = cols[j][i]
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
		}
		return f.SaveAs(path)
	}

	fid, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fid.Close()

	var w io.WriteCloser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		w = gzip.NewWriter(fid)
	case ".zst":
		if w, err = zstd.NewWriter(fid); err != nil {
			return err
		}
	default:
		w = nopCloser{fid}
	}

	wtr := csv.NewWriter(w)
	if err := wtr.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(cols))
	for i := 0; i < n; i++ {
		for j := range cols {
			rec[j] = strconv.FormatFloat(cols[j][i], 'g', -1, 64)
		}
		if err := wtr.Write(rec); err != nil {
			return err
		}
	}
	wtr.Flush()
	if err := wtr.Error(); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return fid.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
