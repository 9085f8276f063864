package parsers

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/models"
)

// InputFile pairs an uploaded workbook with its original filename, used only
// for diagnostics.
type InputFile struct {
	Name   string
	Reader io.Reader
}

// WorkbookParser extracts the raw record streams from the two source
// workbooks. It never fails the batch: unreadable files become CRITICAL
// issues, bad sheets and rows become ERROR issues, and parsing continues.
type WorkbookParser struct{}

func NewWorkbookParser() *WorkbookParser { return &WorkbookParser{} }

// Parse classifies and reads every workbook into a single RawDataset. A file
// containing a PRESUPUESTOS sheet is the quotes/sales workbook; anything else
// is treated as the per-client ledger workbook.
func (p *WorkbookParser) Parse(files []InputFile) *models.RawDataset {
	ds := models.NewRawDataset()

	for _, f := range files {
		wb, err := excelize.OpenReader(f.Reader)
		if err != nil {
			logger.L.Error("Workbook could not be opened", "file", f.Name, "error", err)
			ds.Issues = append(ds.Issues, models.Issue{
				Type:    models.IssueCritical,
				File:    f.Name,
				Sheet:   "GENERAL",
				Message: fmt.Sprintf("No se pudo leer el archivo: %v", err),
			})
			continue
		}

		if isQuotesWorkbook(wb) {
			p.parseQuotesWorkbook(wb, f.Name, ds)
		} else {
			p.parseLedgerWorkbook(wb, f.Name, ds)
		}
		wb.Close()
	}

	return ds
}

func isQuotesWorkbook(wb *excelize.File) bool {
	for _, name := range wb.GetSheetList() {
		if strings.Contains(strings.ToUpper(name), "PRESUPUESTOS") {
			return true
		}
	}
	return false
}

// sheetRows reads a sheet as formatted strings. Formatted values matter: the
// displayed "13.830" must reach ParseCurrency as text, not as a pre-converted
// 13.83.
func sheetRows(wb *excelize.File, sheet string) ([][]string, error) {
	return wb.GetRows(sheet)
}
