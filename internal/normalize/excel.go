package normalize

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmptyWorkbook marks an upload whose first sheet has no data rows.
var ErrEmptyWorkbook = errors.New("workbook has no data rows")

// columnKeys are tried in order when guessing which column holds the archive
// numbers. Matched as substrings against the lowercased header.
var columnKeys = []string{"nummer", "objekt", "id", "arkiv"}

// Workbook is a rewritten spreadsheet with the normalized column appended.
type Workbook struct {
	Data    []byte
	Sheet   string
	Column  string // header of the column the numbers were read from
	Guessed bool   // false when no header matched and the first column was used
	Rows    int    // data rows processed
}

// GuessColumn picks the header most likely to hold archive numbers. When no
// header matches any key the first column is used.
func GuessColumn(headers []string) (int, bool) {
	for _, key := range columnKeys {
		for i, h := range headers {
			if strings.Contains(strings.ToLower(h), key) {
				return i, true
			}
		}
	}
	return 0, false
}

// NormalizeWorkbook reads the first sheet of an uploaded .xlsx, guesses the
// archive-number column and writes a new workbook with a
// "{column}_normaliseret" column appended. With addMapping a second "Mapping"
// sheet lists every value before and after. Only cell values survive the
// rewrite; formatting does not.
func NormalizeWorkbook(r io.Reader, addMapping bool) (*Workbook, error) {
	src, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	defer src.Close()

	sheet := src.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyWorkbook
	}
	rows, err := src.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyWorkbook
	}

	headers := rows[0]
	col, guessed := GuessColumn(headers)
	header := ""
	if col < len(headers) {
		header = headers[col]
	}

	out := excelize.NewFile()
	defer out.Close()
	if sheet != "Sheet1" {
		if err := out.SetSheetName("Sheet1", sheet); err != nil {
			return nil, err
		}
	}

	newCol := len(headers)
	outHeaders := make([]any, newCol+1)
	for i, h := range headers {
		outHeaders[i] = h
	}
	outHeaders[newCol] = header + "_normaliseret"
	if err := out.SetSheetRow(sheet, "A1", &outHeaders); err != nil {
		return nil, err
	}

	type pair struct{ before, after string }
	mapping := make([]pair, 0, len(rows)-1)
	for i, row := range rows[1:] {
		val := ""
		if col < len(row) {
			val = row[col]
		}
		norm := ""
		if strings.TrimSpace(val) != "" {
			norm = Token(val)
		}

		cells := make([]any, newCol+1)
		for j := 0; j < newCol; j++ {
			if j < len(row) {
				cells[j] = row[j]
			}
		}
		cells[newCol] = norm

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := out.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, err
		}
		mapping = append(mapping, pair{before: val, after: norm})
	}

	if addMapping {
		if _, err := out.NewSheet("Mapping"); err != nil {
			return nil, err
		}
		if err := out.SetSheetRow("Mapping", "A1", &[]any{"Før", "Efter"}); err != nil {
			return nil, err
		}
		for i, m := range mapping {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, err
			}
			if err := out.SetSheetRow("Mapping", cell, &[]any{m.before, m.after}); err != nil {
				return nil, err
			}
		}
	}

	buf, err := out.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return &Workbook{
		Data:    buf.Bytes(),
		Sheet:   sheet,
		Column:  header,
		Guessed: guessed,
		Rows:    len(rows) - 1,
	}, nil
}
