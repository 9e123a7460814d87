package sink

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

var filenameKeyPattern = regexp.MustCompile(`[^\w\s-]`)

// FilenameKey reduces a query string to a form safe for filenames,
// stripping everything but word characters, spaces and hyphens.
func FilenameKey(query string) string {
	return strings.TrimSpace(filenameKeyPattern.ReplaceAllString(query, ""))
}

// Spreadsheet accumulates relevant-document URLs into a styled xlsx
// workbook, one hyperlink per row. Every append saves the file so a
// partially completed run still leaves a usable workbook behind.
type Spreadsheet struct {
	file       *excelize.File
	path       string
	sheet      string
	nextRow    int
	rowStyleID int
	mu         sync.Mutex
}

// CreateSpreadsheet builds a new workbook for the given query under dir
// and writes it to disk immediately.
func CreateSpreadsheet(dir, query, key string) (*Spreadsheet, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	if err := f.SetColWidth(sheet, "A", "A", 4); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "B", "B", 120); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, "B2", "Search query: "+query); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "B2", "B2", headerStyle); err != nil {
		return nil, err
	}

	rowStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "0563C1", Underline: "single"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, key+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save spreadsheet: %w", err)
	}
	return &Spreadsheet{file: f, path: path, sheet: sheet, nextRow: 3, rowStyleID: rowStyle}, nil
}

// AppendURL adds a hyperlink row and saves the workbook.
func (s *Spreadsheet) AppendURL(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := fmt.Sprintf("B%d", s.nextRow)
	if err := s.file.SetCellValue(s.sheet, cell, url); err != nil {
		return err
	}
	if err := s.file.SetCellHyperLink(s.sheet, cell, url, "External"); err != nil {
		return err
	}
	if err := s.file.SetCellStyle(s.sheet, cell, cell, s.rowStyleID); err != nil {
		return err
	}
	if err := s.file.SaveAs(s.path); err != nil {
		return fmt.Errorf("save spreadsheet: %w", err)
	}
	s.nextRow++
	return nil
}

func (s *Spreadsheet) Path() string { return s.path }

func (s *Spreadsheet) Close() error { return s.file.Close() }
