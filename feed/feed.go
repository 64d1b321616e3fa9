// Package feed fetches and parses the external stock spreadsheet: a zip
// archive holding one workbook whose first 17 rows are supplier preamble.
package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"
)

// headerRow is the 1-based workbook row holding the column titles; data rows
// follow it.
const headerRow = 18

// Column titles as they appear in the supplier workbook.
const (
	colCode     = "Код"
	colName     = "Название"
	colQuantity = "Количество"
	colPrice    = "Цена"
)

// Remnant is one product row of the stock feed. Quantity and Price stay as
// the feed's free-form strings; interpreting them is the pipeline's concern.
type Remnant struct {
	Code     string
	Name     string
	Quantity string
	Price    string
}

// Download fetches the feed archive and parses the workbook inside it. The
// archive is unpacked in memory; nothing touches the filesystem.
func Download(ctx context.Context, client *http.Client, url string) ([]Remnant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed download: http status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("feed download: %w", err)
	}
	return ParseArchive(data)
}

// ParseArchive opens the first workbook entry of a zip archive and parses it.
func ParseArchive(data []byte) ([]Remnant, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("feed archive: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("feed archive %s: %w", f.Name, err)
		}
		remnants, err := ParseWorkbook(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("feed workbook %s: %w", f.Name, err)
		}
		return remnants, nil
	}
	return nil, errors.New("feed archive: no workbook entry")
}

// ParseWorkbook reads the active sheet, locates the columns by their header
// titles on row 18, and returns one Remnant per data row. Rows with an empty
// code cell are skipped.
func ParseWorkbook(r io.Reader) ([]Remnant, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	rows, err := wb.GetRows(wb.GetSheetName(0))
	if err != nil {
		return nil, err
	}
	if len(rows) < headerRow {
		return nil, fmt.Errorf("sheet has %d rows, header expected on row %d", len(rows), headerRow)
	}

	cols := map[string]int{}
	for i, title := range rows[headerRow-1] {
		cols[strings.TrimSpace(title)] = i
	}
	codeIdx, ok := cols[colCode]
	if !ok {
		return nil, fmt.Errorf("header column %q not found", colCode)
	}

	cell := func(row []string, title string) string {
		i, ok := cols[title]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var remnants []Remnant
	for _, row := range rows[headerRow:] {
		if codeIdx >= len(row) {
			continue
		}
		code := strings.TrimSpace(row[codeIdx])
		if code == "" {
			continue
		}
		remnants = append(remnants, Remnant{
			Code:     code,
			Name:     cell(row, colName),
			Quantity: cell(row, colQuantity),
			Price:    cell(row, colPrice),
		})
	}
	return remnants, nil
}
