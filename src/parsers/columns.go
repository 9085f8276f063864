package parsers

import (
	"sort"
	"strings"

	"github.com/username/cobranzas/backend/src/utils"
)

// Canonical field names produced by column mapping. The synonym tables below
// are data on purpose: header text drifts sheet to sheet in the hand-kept
// source files, so the mapping must stay declarative and easy to extend.
const (
	fieldID          = "id"
	fieldDate        = "date"
	fieldClient      = "client"
	fieldDescription = "description"
	fieldObs         = "obs"
	fieldAmount      = "amount"
	fieldStatus      = "status"
	fieldEquipment   = "equipment"

	fieldQuoteID        = "quoteId"
	fieldDomain         = "domain"
	fieldOCDate         = "ocDate"
	fieldDeliveryDate   = "deliveryDate"
	fieldInvoiceDate    = "invoiceDate"
	fieldPaymentDate    = "paymentDate"
	fieldQuoteDate      = "quoteDate"
	fieldReceivable     = "receivableReal"
	fieldReceivableAlt  = "receivableAlt"
	fieldCost           = "cost"
	fieldProfitAmount   = "profitAmount"
	fieldProfitPercent  = "profitPercent"
	fieldCollectionStat = "collectionStatus"
	fieldOCNumber       = "ocNumber"
	fieldInvoiceNumber  = "invoiceNumber"
	fieldWorkDesc       = "workDescription"

	fieldType        = "type"
	fieldNumber      = "number"
	fieldDueDate     = "dueDate"
	fieldDebit       = "debit"
	fieldCredit      = "credit"
	fieldBalance     = "balance"
	fieldPaymentText = "paymentText"
)

// quoteIDHeaders are the headers accepted as the quote id column outright.
var quoteIDHeaders = map[string]bool{
	"Nº":             true,
	"N°":             true,
	"NUMERO":         true,
	"NO.":            true,
	"Nº PRESUPUESTO": true,
	"Nº COTIZACION":  true,
}

// quoteIDBlacklist blocks the Nº-prefix fallback from grabbing document
// columns that are numbers but not quote ids.
var quoteIDBlacklist = []string{"OC", "FC", "FACTURA", "CLIENTE", "REMITO", "PEDIDO"}

// mapQuoteHeader resolves a PRESUPUESTOS header cell to a canonical field.
// Empty string means the column is ignored.
func mapQuoteHeader(header string, idTaken bool) string {
	h := utils.NormalizeHeader(header)
	switch {
	case quoteIDHeaders[h]:
		return fieldID
	case !idTaken && (strings.HasPrefix(h, "Nº") || strings.HasPrefix(h, "N°")):
		for _, term := range quoteIDBlacklist {
			if strings.Contains(h, term) {
				return ""
			}
		}
		return fieldID
	case strings.Contains(h, "FECHA"):
		return fieldDate
	case h == "CLIENTE":
		return fieldClient
	case strings.Contains(h, "DESCRIPCION"):
		return fieldDescription
	case strings.Contains(h, "OBSERVACIONES") || h == "OBS":
		return fieldObs
	case strings.Contains(h, "A FACTURAR") || strings.Contains(h, "TOTAL") ||
		strings.Contains(h, "MONTO") || strings.Contains(h, "PRECIO") ||
		strings.Contains(h, "VALOR") || strings.Contains(h, "IMPORTE"):
		return fieldAmount
	case h == "ESTADO":
		return fieldStatus
	case h == "EQUIPO" || h == "EQUIPO - PATENTE":
		return fieldEquipment
	}
	return ""
}

// mapSaleHeader resolves a VENTAS CONCRETADAS header cell. Sales headers are
// compared space-collapsed because the same column appears as "A COBRAR SIN
// IVA" and "A COBRAR S/IVA" across years.
func mapSaleHeader(header string) string {
	k := utils.NormalizeKey(header)
	switch {
	case k == "Nº" || k == "N°" || k == "NUMERO",
		strings.Contains(k, "COTIZACION") && !strings.Contains(k, "FECHA") && !strings.Contains(k, "DATE"):
		return fieldQuoteID
	case strings.Contains(k, "DOMINIO") || strings.Contains(k, "CC"):
		return fieldDomain
	case k == "FECHADEOC" || k == "FECHAOC" || k == "F.OC":
		return fieldOCDate
	case k == "FECHADEENTREGA" || k == "FECHAENTREGA":
		return fieldDeliveryDate
	case strings.Contains(k, "FECHAFACTURA") || strings.Contains(k, "FECHAFC") ||
		strings.Contains(k, "F.FACTURA") || strings.Contains(k, "F.FC"):
		return fieldInvoiceDate
	case k == "FECHACOBRO":
		return fieldPaymentDate
	case k == "FECHA" || k == "FECHACOTIZACION" || strings.Contains(k, "F.COT") || k == "DATE":
		return fieldQuoteDate
	case k == "ACOBRARSINIVA" || k == "ACOBRARS/IVA" || strings.Contains(k, "COBRARSINIVA"):
		return fieldReceivable
	case strings.Contains(k, "COSTO"):
		return fieldCost
	case (strings.Contains(k, "BENEFICIO") && strings.Contains(k, "$")) || k == "BEN$" || k == "BENEFICIO":
		return fieldProfitAmount
	case (strings.Contains(k, "BENEFICIO") && strings.Contains(k, "%")) || k == "BEN%":
		return fieldProfitPercent
	case k == "ACOBRARREAL":
		// Secondary source for the receivable; "A COBRAR SIN IVA" wins
		// when both columns exist.
		return fieldReceivableAlt
	case k == "ESTADO":
		return fieldCollectionStat
	case k == "OCNº" || k == "OCN°":
		return fieldOCNumber
	case strings.Contains(k, "FCNº") || strings.Contains(k, "FCN°"):
		return fieldInvoiceNumber
	case k == "CLIENTE":
		return fieldClient
	case strings.Contains(k, "DESCRIPCION") || strings.Contains(k, "TRABAJO"):
		return fieldWorkDesc
	}
	return ""
}

// mapLedgerHeader resolves a client-sheet header cell.
func mapLedgerHeader(header string) string {
	h := utils.NormalizeHeader(header)
	switch {
	case h == "FECHA":
		return fieldDate
	case h == "TIPO COMP" || h == "TIPO":
		return fieldType
	case h == "NUMERO":
		return fieldNumber
	case h == "FECHA VTO":
		return fieldDueDate
	case h == "FECHA COBRO":
		return fieldPaymentText
	case strings.Contains(h, "IMPORTE") || h == "MONTO" || h == "VALOR":
		return fieldAmount
	case h == "DEBE" || h == "DEBITO":
		return fieldDebit
	case h == "HABER" || h == "CREDITO":
		return fieldCredit
	case strings.Contains(h, "SALDO"):
		return fieldBalance
	case h == "OBSERVACIONES" || strings.Contains(h, "OBS") || h == "DETALLE" || h == "COMENTARIOS":
		return fieldObs
	}
	return ""
}

// findHeaderRow scans the first maxScan rows for one that satisfies isHeader
// and returns its index. Returns fallback when nothing matches.
func findHeaderRow(rows [][]string, maxScan, fallback int, isHeader func(cells []string) bool) int {
	limit := utils.MinInt(len(rows), maxScan)
	for i := 0; i < limit; i++ {
		normalized := make([]string, len(rows[i]))
		for j, c := range rows[i] {
			normalized[j] = utils.NormalizeHeader(c)
		}
		if isHeader(normalized) {
			return i
		}
	}
	return fallback
}

// quoteHeaderMatch: a CLIENTE column plus some FECHA column.
func quoteHeaderMatch(cells []string) bool {
	hasClient, hasDate := false, false
	for _, c := range cells {
		if c == "CLIENTE" {
			hasClient = true
		}
		if strings.Contains(c, "FECHA") {
			hasDate = true
		}
	}
	return hasClient && hasDate
}

// saleHeaderMatch: the Nº link column, or CLIENTE plus a COBRAR amount column.
func saleHeaderMatch(cells []string) bool {
	hasClient, hasCobrar := false, false
	for _, c := range cells {
		if c == "Nº" || c == "N°" {
			return true
		}
		if c == "CLIENTE" {
			hasClient = true
		}
		if strings.Contains(c, "COBRAR") {
			hasCobrar = true
		}
	}
	return hasClient && hasCobrar
}

// ledgerHeaderMatch: a date column plus an amount or voucher column.
func ledgerHeaderMatch(cells []string) bool {
	hasDate, hasAmount, hasVoucher := false, false, false
	for _, c := range cells {
		if c == "FECHA" || strings.Contains(c, "DATE") {
			hasDate = true
		}
		if strings.Contains(c, "IMPORTE") || c == "DEBE" || c == "HABER" ||
			c == "SALDO" || c == "TOTAL" || c == "MONTO" {
			hasAmount = true
		}
		if strings.Contains(c, "COMPROBANTE") || strings.Contains(c, "TIPO") ||
			strings.Contains(c, "DETALLE") {
			hasVoucher = true
		}
	}
	return hasDate && (hasAmount || hasVoucher)
}

// columnMap binds sheet column indexes to canonical fields, phase one of the
// two-phase row mapping (map first, parse after).
type columnMap map[int]string

func buildColumnMap(headerCells []string, mapHeader func(string) string) columnMap {
	cm := make(columnMap)
	for idx, cell := range headerCells {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		if field := mapHeader(cell); field != "" {
			// Sheets often carry both a DETALLE and an OBSERVACIONES column;
			// all of them map so their texts concatenate. Every other field
			// keeps its leftmost column.
			if _, taken := cm.indexOf(field); !taken || field == fieldObs {
				cm[idx] = field
			}
		}
	}
	return cm
}

func (cm columnMap) indexOf(field string) (int, bool) {
	for idx, f := range cm {
		if f == field {
			return idx, true
		}
	}
	return 0, false
}

// rowValues projects a data row through the column map into a canonical
// field -> raw cell value view. Empty cells are omitted. Columns are visited
// left to right so concatenated obs fragments keep the sheet's order.
func (cm columnMap) rowValues(cells []string) map[string]string {
	idxs := make([]int, 0, len(cm))
	for idx := range cm {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)

	out := make(map[string]string, len(cm))
	for _, idx := range idxs {
		field := cm[idx]
		if idx >= len(cells) {
			continue
		}
		v := strings.TrimSpace(cells[idx])
		if v == "" {
			continue
		}
		if field == fieldObs && out[fieldObs] != "" {
			out[fieldObs] = out[fieldObs] + " " + v
			continue
		}
		if _, exists := out[field]; !exists {
			out[field] = v
		}
	}
	return out
}
