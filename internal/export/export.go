// Package export renders invoice and quotation lists as downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/record"
)

// Format is an export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts xlsx and csv, case-insensitively. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("export format %q: %w", s, models.ErrInvalidInput)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename returns the attachment name for a schema export
func (f Format) Filename(schema record.Schema) string {
	return fmt.Sprintf("%s.%s", strings.ToLower(schema.Tab), f)
}

// Write renders recs in the column layout of schema
func Write(w io.Writer, format Format, schema record.Schema, recs []models.Record) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, schema, recs)
	case FormatXLSX:
		return writeXLSX(w, schema, recs)
	default:
		return fmt.Errorf("export format %q: %w", format, models.ErrInvalidInput)
	}
}

func writeCSV(w io.Writer, schema record.Schema, recs []models.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Headers()); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := cw.Write(schema.ToRow(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, schema record.Schema, recs []models.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := schema.Tab
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	for i, h := range schema.Headers() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(schema.Width(), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for i, rec := range recs {
		rowIdx := i + 2
		for c, v := range schema.ToRow(rec) {
			cell, err := excelize.CoordinatesToCellName(c+1, rowIdx)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, cellValue(c, v)); err != nil {
				return err
			}
		}
	}

	_, err = f.WriteTo(w)
	return err
}

// cellValue keeps money columns numeric in the workbook
func cellValue(col int, v string) any {
	if col != record.ColAmount && col != record.ColPaidAmount {
		return v
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return v
	}
	return d.InexactFloat64()
}
