package service

import (
	"errors"
	"fmt"
	"time"

	"go-stocknote/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportService renders note data into xlsx workbooks. It only reads what
// the note workflow already computed; totals are never recalculated from
// live prices.
type ExportService interface {
	ExportNote(id uuid.UUID) ([]byte, error)
	ExportRange(from, to time.Time) ([]byte, error)
}

type exportService struct {
	noteRepo repository.NoteRepository
}

func NewExportService(nRepo repository.NoteRepository) ExportService {
	return &exportService{noteRepo: nRepo}
}

const exportSheet = "Sheet1"

// ExportNote produces a single-note report: a header block followed by one
// row per line item.
func (s *exportService) ExportNote(id uuid.UUID) ([]byte, error) {
	note, err := s.noteRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	header := [][]interface{}{
		{"Note Code", note.NoteCode},
		{"Created By", note.CreateName},
		{"Customer", note.Customer},
		{"Address", note.AddressCustomer},
		{"Reason", note.Reason},
		{"Status", note.Status.String()},
		{"Created Date", note.CreatedDate.Format("2006-01-02 15:04")},
		{"Total", note.Total.StringFixed(2)},
	}
	row := 1
	for _, h := range header {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(exportSheet, cell, &h); err != nil {
			return nil, err
		}
		row++
	}

	row++ // blank separator
	columns := []interface{}{"Product Code", "Product Name", "Unit Price", "Stock Out", "Line Total"}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(exportSheet, cell, &columns); err != nil {
		return nil, err
	}
	for _, line := range note.Products {
		row++
		lineTotal := line.Product.Price.Mul(decimal.NewFromInt(int64(line.StockOut)))
		values := []interface{}{
			line.Product.ProductCode,
			line.Product.ProductName,
			line.Product.Price.StringFixed(2),
			line.StockOut,
			lineTotal.StringFixed(2),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportRange produces one row per note created in [from, to), with a grand
// total row at the bottom.
func (s *exportService) ExportRange(from, to time.Time) ([]byte, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: empty date range", ErrInvalidHeader)
	}

	notes, err := s.noteRepo.FindByDateRange(from, to)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	columns := []interface{}{"Note Code", "Created By", "Customer", "Status", "Created Date", "Lines", "Total"}
	if err := f.SetSheetRow(exportSheet, "A1", &columns); err != nil {
		return nil, err
	}

	grandTotal := decimal.Zero
	row := 1
	for _, note := range notes {
		row++
		values := []interface{}{
			note.NoteCode,
			note.CreateName,
			note.Customer,
			note.Status.String(),
			note.CreatedDate.Format("2006-01-02 15:04"),
			len(note.Products),
			note.Total.StringFixed(2),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, err
		}
		grandTotal = grandTotal.Add(note.Total)
	}

	row++
	totalRow := []interface{}{"Grand Total", "", "", "", "", "", grandTotal.StringFixed(2)}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(exportSheet, cell, &totalRow); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFileName builds the attachment name for a workbook download.
func ExportFileName(prefix string) string {
	return fmt.Sprintf("%s-%s.xlsx", prefix, time.Now().UTC().Format("20060102-150405"))
}
