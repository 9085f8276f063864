package parsers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/models"
	"github.com/username/cobranzas/backend/src/utils"
)

const (
	ledgerHeaderScan     = 50
	ledgerHeaderFallback = 2
	auditLabel           = "TOTAL DEUDA"
)

// Summary sheets that are not client accounts.
var skippedLedgerSheets = []string{"RESUMEN", "SALDO TANGO"}

// Keywords that mark hand-written subtotal rows inside a client sheet. A row
// carrying one of these in its voucher or detail cells is bookkeeping noise,
// not a movement.
var ghostRowKeywords = []string{"TOTAL", "SALDO", "DEUDA", "DEVENGADO", "DIFERENCIA", "RESTO"}

// fillDown carries values from the previous movement into continuation rows.
// Merged cells come back empty from the reader, so a payment listed under its
// invoice inherits the invoice date and voucher type.
type fillDown struct {
	date   *string
	typ    string
	number string
}

func (p *WorkbookParser) parseLedgerWorkbook(wb *excelize.File, file string, ds *models.RawDataset) {
	for _, sheet := range wb.GetSheetList() {
		if !isClientSheet(wb, sheet) {
			continue
		}
		p.parseClientSheet(wb, file, sheet, ds)
	}
}

func isClientSheet(wb *excelize.File, sheet string) bool {
	upper := utils.NormalizeHeader(sheet)
	for _, skip := range skippedLedgerSheets {
		if strings.Contains(upper, skip) {
			return false
		}
	}
	visible, err := wb.GetSheetVisible(sheet)
	if err != nil || !visible {
		return false
	}
	return true
}

func (p *WorkbookParser) parseClientSheet(wb *excelize.File, file, sheet string, ds *models.RawDataset) {
	defer func() {
		if r := recover(); r != nil {
			logger.L.Error("Client sheet aborted", "file", file, "sheet", sheet, "panic", r)
			ds.Issues = append(ds.Issues, models.Issue{
				Type:    models.IssueError,
				File:    file,
				Sheet:   sheet,
				Message: fmt.Sprintf("La hoja no se pudo procesar: %v", r),
			})
		}
	}()

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

	p.scanAuditTotal(rows, sheet, ds)

	headerIdx := findHeaderRow(rows, ledgerHeaderScan, ledgerHeaderFallback, ledgerHeaderMatch)
	if headerIdx >= len(rows) {
		return
	}
	cm := buildColumnMap(rows[headerIdx], mapLedgerHeader)

	var last fillDown
	count := 0
	for i := headerIdx + 1; i < len(rows); i++ {
		rowNum := i + 1
		cells := rows[i]
		vals := cm.rowValues(cells)

		if isGhostRow(cells) {
			continue
		}

		amount, found := resolveAmount(vals)
		if !found {
			if v, col, ok := bruteForceAmount(cells, cm, sheet); ok {
				amount, found = v, true
				ds.Issues = append(ds.Issues, models.Issue{
					Type:    models.IssueWarning,
					File:    file,
					Sheet:   sheet,
					Row:     rowNum,
					Message: fmt.Sprintf("Importe tomado de la columna %d por inspección; revisar el encabezado de la hoja.", col+1),
				})
			}
		}

		dateRaw := vals[fieldDate]
		if dateRaw == "" && last.date != nil {
			dateRaw = *last.date
		}
		typ := vals[fieldType]
		if typ == "" {
			typ = last.typ
		}
		number := vals[fieldNumber]
		manualRef := false
		if number == "" && amount.Sign() >= 0 {
			number = last.number
		}

		if !found || amount.IsZero() {
			// Nothing owed or paid on this line; remember context and move on.
			rememberRow(&last, dateRaw, typ, number, amount)
			continue
		}

		date := utils.ParseExcelDate(dateRaw)
		if number == "" && date == nil {
			// With neither a voucher number nor a date, even after fill-down,
			// the amount cannot be anchored to a movement.
			ds.Issues = append(ds.Issues, models.Issue{
				Type:    models.IssueWarning,
				File:    file,
				Sheet:   sheet,
				Row:     rowNum,
				Message: "Movimiento sin fecha ni número de comprobante; la fila se descarta.",
			})
			continue
		}

		if number == "" && amount.Sign() < 0 {
			number = "PAY-" + uuid.NewString()[:8]
			manualRef = true
		}

		base := models.LedgerRow{
			ClientSheet: sheet,
			Row:         rowNum,
			Date:        date,
			DueDate:     utils.ParseExcelDate(vals[fieldDueDate]),
			PaymentText: vals[fieldPaymentText],
			PaymentDate: utils.ParseExcelDate(vals[fieldPaymentText]),
			Type:        typ,
			Number:      number,
			ManualRef:   manualRef,
			Amount:      amount,
			Obs:         vals[fieldObs],
		}

		emitted := splitPaymentRow(base)
		ds.LedgerRows = append(ds.LedgerRows, emitted...)
		count += len(emitted)

		rememberRow(&last, dateRaw, typ, number, amount)
	}

	logger.L.Info("Client sheet parsed", "file", file, "sheet", sheet, "rows", count)
}

func rememberRow(last *fillDown, dateRaw, typ, number string, amount decimal.Decimal) {
	if dateRaw != "" {
		d := dateRaw
		last.date = &d
	}
	if typ != "" {
		last.typ = typ
	}
	// Payment rows never push their reference down: the next invoice line must
	// not inherit a receipt number.
	if number != "" && amount.Sign() >= 0 {
		last.number = number
	}
}

// resolveAmount picks the movement amount in column-priority order: the
// explicit IMPORTE column, then DEBE as a charge, then HABER as a credit,
// then SALDO as a last resort on sheets that only track a running balance.
func resolveAmount(vals map[string]string) (decimal.Decimal, bool) {
	if raw, ok := vals[fieldAmount]; ok {
		return utils.ParseCurrency(raw), true
	}
	if raw, ok := vals[fieldDebit]; ok {
		if v := utils.ParseCurrency(raw); !v.IsZero() {
			return v.Abs(), true
		}
	}
	if raw, ok := vals[fieldCredit]; ok {
		if v := utils.ParseCurrency(raw); !v.IsZero() {
			return v.Abs().Neg(), true
		}
	}
	if raw, ok := vals[fieldBalance]; ok {
		return utils.ParseCurrency(raw), true
	}
	return decimal.Zero, false
}

// bruteForceAmount scans unmapped cells for something that reads as money.
// Sheets with misplaced headers still carry amounts somewhere on the row; the
// exclusions keep dates, times, document numbers and year values out.
func bruteForceAmount(cells []string, cm columnMap, sheet string) (decimal.Decimal, int, bool) {
	numberIdx, _ := cm.indexOf(fieldNumber)
	sheetKey := utils.NormalizeClientName(sheet)

	for idx, cell := range cells {
		if _, mapped := cm[idx]; mapped {
			continue
		}
		s := strings.TrimSpace(cell)
		if s == "" || len(s) > 20 {
			continue
		}
		if strings.ContainsAny(s, "/:") || strings.Contains(strings.ToUpper(s), "DATE") {
			continue
		}
		if idx == numberIdx {
			continue
		}
		if utils.NormalizeClientName(s) == sheetKey {
			continue
		}
		if year, err := strconv.Atoi(s); err == nil && year >= 2000 && year <= 2030 {
			continue
		}
		if v := utils.ParseCurrency(s); !v.IsZero() {
			return v, idx, true
		}
	}
	return decimal.Zero, 0, false
}

func isGhostRow(cells []string) bool {
	joined := utils.NormalizeHeader(strings.Join(cells, " "))
	if joined == "" {
		return false
	}
	for _, kw := range ghostRowKeywords {
		if strings.Contains(joined, kw) {
			return true
		}
	}
	return false
}

// splitPaymentRow expands a payment whose FECHA COBRO cell lists several dates
// ("10/01/25 y 15/02/25", "10/01/25 & 15/02/25") into equal installments, one
// per date. Rows without a multi-date cell pass through unchanged.
func splitPaymentRow(row models.LedgerRow) []models.LedgerRow {
	text := row.PaymentText
	if text == "" {
		return []models.LedgerRow{row}
	}

	parts := strings.Split(strings.ReplaceAll(text, "&", " y "), " y ")
	if len(parts) < 2 {
		return []models.LedgerRow{row}
	}

	dates := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if utils.ParseExcelDate(part) == nil {
			// Not all fragments are dates; keep the row whole rather than
			// guess at the writer's intent.
			return []models.LedgerRow{row}
		}
		dates = append(dates, part)
	}
	if len(dates) < 2 {
		return []models.LedgerRow{row}
	}

	n := int64(len(dates))
	installment := row.Amount.Div(decimal.NewFromInt(n)).Round(2)
	// Rounding can shave cents off the total; the last installment absorbs
	// the difference so the parts always sum to the original amount.
	lastInstallment := row.Amount.Sub(installment.Mul(decimal.NewFromInt(n - 1)))

	out := make([]models.LedgerRow, 0, len(dates))
	for i, d := range dates {
		part := row
		part.PaymentDate = utils.ParseExcelDate(d)
		part.PaymentText = d
		part.Amount = installment
		if i == len(dates)-1 {
			part.Amount = lastInstallment
		}
		suffix := fmt.Sprintf("(Pago %d/%d)", i+1, n)
		if part.Obs != "" {
			part.Obs = part.Obs + " " + suffix
		} else {
			part.Obs = suffix
		}
		out = append(out, part)
	}
	return out
}

// scanAuditTotal looks for the hand-written "TOTAL DEUDA" cell and records the
// value next to it as the sheet's expected balance. First match wins.
func (p *WorkbookParser) scanAuditTotal(rows [][]string, sheet string, ds *models.RawDataset) {
	for _, cells := range rows {
		for j, cell := range cells {
			if !strings.Contains(utils.NormalizeHeader(cell), auditLabel) {
				continue
			}
			for k := j + 1; k < len(cells); k++ {
				if strings.TrimSpace(cells[k]) == "" {
					continue
				}
				if v := utils.ParseCurrency(cells[k]); !v.IsZero() {
					ds.Audit[sheet] = v
					return
				}
				break
			}
			return
		}
	}
}
