package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook renders a supplier-shaped sheet: 17 preamble rows, the
// header on row 18, data after.
func buildWorkbook(t *testing.T, header []interface{}, rows [][]interface{}) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)

	for i := 1; i < headerRow; i++ {
		require.NoError(t, wb.SetSheetRow(sheet, fmt.Sprintf("A%d", i), &[]interface{}{"преамбула"}))
	}
	require.NoError(t, wb.SetSheetRow(sheet, fmt.Sprintf("A%d", headerRow), &header))
	for i, row := range rows {
		require.NoError(t, wb.SetSheetRow(sheet, fmt.Sprintf("A%d", headerRow+1+i), &row))
	}

	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func buildArchive(t *testing.T, name string, workbook []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(workbook)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func supplierHeader() []interface{} {
	return []interface{}{"Код", "Название", "Количество", "Цена"}
}

func TestParseArchive(t *testing.T) {
	wb := buildWorkbook(t, supplierHeader(), [][]interface{}{
		{"123", "Model 1", ">10", "5'990.00 руб."},
		{"456", "Model 2", "5", "7'990.00 руб."},
		{"", "не товар", "", ""}, // empty code rows are skipped
	})
	data := buildArchive(t, "ostatki.xlsx", wb)

	remnants, err := ParseArchive(data)
	require.NoError(t, err)
	assert.Equal(t, []Remnant{
		{Code: "123", Name: "Model 1", Quantity: ">10", Price: "5'990.00 руб."},
		{Code: "456", Name: "Model 2", Quantity: "5", Price: "7'990.00 руб."},
	}, remnants)
}

func TestParseWorkbookMissingCodeColumn(t *testing.T) {
	wb := buildWorkbook(t, []interface{}{"Артикул", "Цена"}, nil)
	_, err := ParseWorkbook(bytes.NewReader(wb))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Код")
}

func TestParseWorkbookTooShort(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetRow(wb.GetSheetName(0), "A1", &[]interface{}{"только одна строка"}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	_, err = ParseWorkbook(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err)
}

func TestParseArchiveNoWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, zip.NewWriter(&buf).Close())
	_, err := ParseArchive(buf.Bytes())
	assert.Error(t, err)
}

func TestDownload(t *testing.T) {
	wb := buildWorkbook(t, supplierHeader(), [][]interface{}{
		{"123", "Model 1", "3", "1'500.00 руб."},
	})
	data := buildArchive(t, "ostatki.xlsx", wb)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/zip")
		w.Write(data)
	}))
	defer srv.Close()

	remnants, err := Download(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Len(t, remnants, 1)
	assert.Equal(t, "123", remnants[0].Code)
}

func TestDownloadStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Download(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http status 404")
}
