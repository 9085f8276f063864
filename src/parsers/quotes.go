package parsers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/models"
	"github.com/username/cobranzas/backend/src/utils"
)

const (
	quotesSheetName = "PRESUPUESTOS"
	quoteHeaderScan = 20
	salesHeaderScan = 20
)

// salesSheetRe matches "VENTAS - CONCRETADAS 2024" with flexible separators.
var salesSheetRe = regexp.MustCompile(`(?i)VENTAS\s*-?\s*CONCRETADAS\s*(20\d{2})`)

func (p *WorkbookParser) parseQuotesWorkbook(wb *excelize.File, file string, ds *models.RawDataset) {
	p.parseQuotesSheet(wb, file, ds)

	for _, sheet := range wb.GetSheetList() {
		if m := salesSheetRe.FindStringSubmatch(sheet); m != nil {
			year, _ := strconv.Atoi(m[1])
			p.parseSalesSheet(wb, file, sheet, year, ds)
		}
	}
}

func (p *WorkbookParser) parseQuotesSheet(wb *excelize.File, file string, ds *models.RawDataset) {
	rows, err := sheetRows(wb, quotesSheetName)
	if err != nil || len(rows) == 0 {
		return // no usable PRESUPUESTOS sheet; sales sheets may still exist
	}

	headerIdx := findHeaderRow(rows, quoteHeaderScan, 0, quoteHeaderMatch)

	idTaken := false
	cm := buildColumnMap(rows[headerIdx], func(h string) string {
		f := mapQuoteHeader(h, idTaken)
		if f == fieldID {
			idTaken = true
		}
		return f
	})

	count := 0
	for i := headerIdx + 1; i < len(rows); i++ {
		vals := cm.rowValues(rows[i])
		id := strings.TrimSpace(vals[fieldID])
		if id == "" {
			continue
		}

		q := models.NormalizedQuote{
			ID:           id,
			Date:         utils.ParseExcelDate(vals[fieldDate]),
			Client:       vals[fieldClient],
			Description:  vals[fieldDescription],
			Observations: vals[fieldObs],
			Amount:       utils.ParseCurrency(vals[fieldAmount]),
			Currency:     utils.DetectCurrency(vals[fieldAmount]),
			Status:       vals[fieldStatus],
			Equipment:    vals[fieldEquipment],
			Row:          i + 1,
		}
		ds.Quotes = append(ds.Quotes, q)
		count++
	}

	logger.L.Info("Quotes sheet parsed", "file", file, "quotes", count)
	ds.Issues = append(ds.Issues, models.Issue{
		Type:    models.IssueInfo,
		File:    file,
		Sheet:   quotesSheetName,
		Message: fmt.Sprintf("Leídas %d cotizaciones de %s.", count, quotesSheetName),
	})
}

func (p *WorkbookParser) parseSalesSheet(wb *excelize.File, file, sheet string, year int, ds *models.RawDataset) {
	rows, err := sheetRows(wb, sheet)
	if err != nil {
		ds.Issues = append(ds.Issues, models.Issue{
			Type:    models.IssueError,
			File:    file,
			Sheet:   sheet,
			Message: fmt.Sprintf("No se pudo leer la hoja: %v", err),
		})
		return
	}
	if len(rows) == 0 {
		return
	}

	headerIdx := findHeaderRow(rows, salesHeaderScan, 0, saleHeaderMatch)
	cm := buildColumnMap(rows[headerIdx], mapSaleHeader)

	count := 0
	for i := headerIdx + 1; i < len(rows); i++ {
		rowNum := i + 1
		vals := cm.rowValues(rows[i])

		receivableRaw := vals[fieldReceivable]
		if receivableRaw == "" {
			receivableRaw = vals[fieldReceivableAlt]
		}

		quoteID := strings.TrimSpace(vals[fieldQuoteID])
		if quoteID == "" && (vals[fieldClient] == "" || receivableRaw == "") {
			continue
		}

		if quoteID == "" {
			ds.Issues = append(ds.Issues, models.Issue{
				Type:    models.IssueWarning,
				File:    file,
				Sheet:   sheet,
				Row:     rowNum,
				Message: "Venta sin Nº de Cotización. Se generó un ID temporal; chequear la columna Nº.",
			})
			quoteID = fmt.Sprintf("SIN-COT-%s-%s", sheet, uuid.NewString()[:5])
		}

		amount := utils.ParseCurrency(receivableRaw)
		if amount.IsZero() {
			ds.Issues = append(ds.Issues, models.Issue{
				Type:    models.IssueWarning,
				File:    file,
				Sheet:   sheet,
				Row:     rowNum,
				Message: `Monto es 0 o vacío en "A COBRAR SIN IVA".`,
			})
		}

		sale := models.NormalizedSale{
			QuoteID:          quoteID,
			SourceSheet:      sheet,
			Year:             year,
			Row:              rowNum,
			Client:           vals[fieldClient],
			QuoteDate:        utils.ParseExcelDate(vals[fieldQuoteDate]),
			OCDate:           utils.ParseExcelDate(vals[fieldOCDate]),
			InvoiceDate:      utils.ParseExcelDate(vals[fieldInvoiceDate]),
			DeliveryDate:     utils.ParseExcelDate(vals[fieldDeliveryDate]),
			PaymentDate:      utils.ParseExcelDate(vals[fieldPaymentDate]),
			ReceivableReal:   amount,
			Cost:             utils.ParseCurrency(vals[fieldCost]),
			ProfitAmount:     utils.ParseCurrency(vals[fieldProfitAmount]),
			ProfitPercent:    utils.ParseCurrency(vals[fieldProfitPercent]),
			CollectionStatus: vals[fieldCollectionStat],
			OCNumber:         vals[fieldOCNumber],
			InvoiceNumber:    vals[fieldInvoiceNumber],
			WorkDescription:  vals[fieldWorkDesc],
			Domain:           vals[fieldDomain],
			Currency:         utils.DetectCurrency(vals[fieldCost]),
		}

		if sale.EffectiveDate() == nil {
			ds.Issues = append(ds.Issues, models.Issue{
				Type:    models.IssueWarning,
				File:    file,
				Sheet:   sheet,
				Row:     rowNum,
				Message: `Falta "FECHA DE OC" y "FECHA COTIZACION" válida; la venta no se puede ubicar en un año.`,
			})
		}

		ds.Sales = append(ds.Sales, sale)
		count++
	}

	logger.L.Info("Sales sheet parsed", "file", file, "sheet", sheet, "year", year, "sales", count)
	ds.Issues = append(ds.Issues, models.Issue{
		Type:    models.IssueInfo,
		File:    file,
		Sheet:   sheet,
		Message: fmt.Sprintf("Hoja %s: leídas %d ventas.", sheet, count),
	})
}
