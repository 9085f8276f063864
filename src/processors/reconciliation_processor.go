package processors

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/models"
	"github.com/username/cobranzas/backend/src/utils"
)

const defaultTermDays = 30

var (
	// dustThreshold is the residual under which an invoice is considered paid
	// in full; amountTolerance drives reference-less payment matching; and
	// residualFloor keeps tiny unapplied payment remainders out of the view.
	dustThreshold   = decimal.NewFromInt(50)
	amountTolerance = decimal.NewFromInt(5)
	residualFloor   = decimal.NewFromInt(100)
	settledEpsilon  = decimal.NewFromFloat(0.1)
)

// invoiceRefRe pulls invoice references out of payment annotations:
// "PAGO FC 1433", "FACT. 1433-34-35", "NO 00012708".
var invoiceRefRe = regexp.MustCompile(`(?i)(?:FC|FACT|NO)\s*\.?\s*([\d\-./]+)`)

// bareRefRe is the fallback when no prefixed reference exists: standalone
// 4 to 8 digit runs, long enough to be a voucher and short enough to not be
// an amount in cents.
var bareRefRe = regexp.MustCompile(`\b(\d{4,8})\b`)

// settledKeywords in the FECHA COBRO cell or the notes mean the invoice was
// collected even when no payment row exists for it.
var settledKeywords = []string{"SALDADA", "PAGAD", "CANCEL", "COMPEN"}

// creditNoteMarkers on the voucher type identify credit notes, which settle
// invoices without money changing hands.
var creditNoteMarkers = []string{"NC", "CRED", "CRÉD"}

// paymentTypeMarkers on the voucher type identify money received. Together
// with the credit note markers they force the row negative when the sheet
// writer typed the amount without a minus sign.
var paymentTypeMarkers = []string{"PAGO", "REC"}

// reconciliationProcessorImpl implements the ReconciliationProcessor interface.
type reconciliationProcessorImpl struct {
	now func() time.Time
}

// NewReconciliationProcessor creates a new instance of ReconciliationProcessor.
func NewReconciliationProcessor() ReconciliationProcessor {
	return &reconciliationProcessorImpl{now: time.Now}
}

// Reconcile applies every payment and credit note of each client account
// against the invoices it references, then computes overdue days, aging
// buckets and payment-delay statistics on what remains open.
func (p *reconciliationProcessorImpl) Reconcile(ds *models.RawDataset) []models.LedgerEntry {
	byClient := make(map[string][]models.LedgerRow)
	clientOrder := make([]string, 0)
	for _, row := range ds.LedgerRows {
		if _, seen := byClient[row.ClientSheet]; !seen {
			clientOrder = append(clientOrder, row.ClientSheet)
		}
		byClient[row.ClientSheet] = append(byClient[row.ClientSheet], row)
	}
	sort.Strings(clientOrder)

	var out []models.LedgerEntry
	for _, client := range clientOrder {
		entries := p.reconcileClient(client, byClient[client], ds)
		out = append(out, entries...)
	}

	logger.L.Info("Ledger reconciled", "clients", len(clientOrder), "entries", len(out))
	return out
}

func (p *reconciliationProcessorImpl) reconcileClient(client string, rows []models.LedgerRow, ds *models.RawDataset) []models.LedgerEntry {
	entries := make([]models.LedgerEntry, len(rows))
	for i, row := range rows {
		amount := row.Amount
		if amount.Sign() > 0 && isCreditType(row.Type) {
			// Sheet writers often type payments and credit notes without the
			// minus sign; the voucher type decides, not the cell.
			amount = amount.Neg()
		}
		entries[i] = models.LedgerEntry{
			ID:              fmt.Sprintf("%s-%d", utils.NormalizeClientName(client), row.Row),
			Client:          client,
			Date:            row.Date,
			DueDate:         row.DueDate,
			PaymentDate:     row.PaymentDate,
			Type:            row.Type,
			Number:          row.Number,
			Amount:          amount,
			OriginalAmount:  amount,
			Obs:             row.Obs,
			IsManualPayment: row.ManualRef,
		}
		if entries[i].DueDate == nil && entries[i].Date != nil {
			due := entries[i].Date.AddDate(0, 0, defaultTermDays)
			entries[i].DueDate = &due
		}
	}

	p.settleByAnnotation(entries, rows)

	remaining := make([]decimal.Decimal, len(entries))
	for i := range entries {
		if entries[i].OriginalAmount.Sign() < 0 {
			remaining[i] = p.applyCreditRefs(&entries[i], rows[i], entries, ds)
		}
	}

	// Second pass: credits still carrying money, whether they had no
	// references or their references only consumed part of them, pair with
	// the open invoice of (almost) the same amount.
	for i := range entries {
		if entries[i].OriginalAmount.Sign() >= 0 || remaining[i].Sign() <= 0 {
			continue
		}
		if inv := findInvoiceByAmount(entries, remaining[i]); inv != nil {
			applied := decimal.Min(remaining[i], inv.Amount)
			p.payDown(inv, &entries[i], applied, isCreditNote(entries[i].Type))
			inv.IsOffset = true
			remaining[i] = remaining[i].Sub(applied)
		}
	}

	for i := range entries {
		if entries[i].OriginalAmount.Sign() < 0 {
			finalizeCredit(&entries[i], remaining[i])
		}
	}

	for i := range entries {
		e := &entries[i]
		if e.OriginalAmount.Sign() <= 0 || e.IsSettled {
			continue
		}
		if e.Amount.Sign() > 0 && e.Amount.LessThanOrEqual(dustThreshold) {
			e.Amount = decimal.Zero
			e.IsSettled = true
		}
	}

	p.computeAging(entries)
	p.computeDelays(entries)
	return entries
}

// settleByAnnotation zeroes invoices marked as collected by hand, either
// through a date or keyword in the FECHA COBRO cell or a keyword in the
// notes.
func (p *reconciliationProcessorImpl) settleByAnnotation(entries []models.LedgerEntry, rows []models.LedgerRow) {
	for i := range entries {
		e := &entries[i]
		if e.OriginalAmount.Sign() <= 0 {
			continue
		}
		row := rows[i]
		if row.PaymentDate != nil || hasSettledKeyword(row.PaymentText) || hasSettledKeyword(row.Obs) {
			e.IsSettled = true
			e.Amount = decimal.Zero
		}
	}
}

func hasSettledKeyword(text string) bool {
	s := utils.NormalizeHeader(text)
	for _, kw := range settledKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func isCreditNote(typ string) bool {
	t := strings.ToUpper(typ)
	for _, m := range creditNoteMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}

// isCreditType reports whether the voucher type names money flowing toward
// the client's balance, payment or credit note alike.
func isCreditType(typ string) bool {
	if isCreditNote(typ) {
		return true
	}
	t := strings.ToUpper(typ)
	for _, m := range paymentTypeMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}

// applyCreditRefs distributes one payment or credit note over the invoices
// its notes reference, matched by suffix on the voucher number. The row's own
// document number is never a reference. Returns the part of the credit that
// found no invoice.
func (p *reconciliationProcessorImpl) applyCreditRefs(credit *models.LedgerEntry, row models.LedgerRow, entries []models.LedgerEntry, ds *models.RawDataset) decimal.Decimal {
	remaining := credit.OriginalAmount.Abs()
	isNC := isCreditNote(credit.Type)

	refs := extractRefs(row.Obs)
	if len(refs) == 0 {
		return remaining
	}

	resolvedAny := false
	for _, ref := range refs {
		if remaining.Sign() <= 0 {
			break
		}
		inv := findInvoiceByRef(entries, ref)
		if inv == nil {
			continue
		}
		resolvedAny = true
		if inv.IsSettled || inv.Amount.Sign() <= 0 {
			// Already collected through an annotation; this row is the
			// money that did it.
			return decimal.Zero
		}
		applied := decimal.Min(remaining, inv.Amount)
		p.payDown(inv, credit, applied, isNC)
		remaining = remaining.Sub(applied)
	}
	if !resolvedAny {
		// Every reference points outside this account; the money is spent
		// regardless, so consume it and flag the sheet.
		ds.Issues = append(ds.Issues, models.Issue{
			Type:    models.IssueWarning,
			Sheet:   credit.Client,
			Row:     row.Row,
			Message: fmt.Sprintf("El pago referencia comprobantes que no figuran en la cuenta (%s).", strings.Join(refs, ", ")),
		})
		return decimal.Zero
	}
	return remaining
}

// finalizeCredit settles the credit's own line once both matching passes ran.
// Residuals above the floor stay on the account as available money.
func finalizeCredit(credit *models.LedgerEntry, remaining decimal.Decimal) {
	if remaining.GreaterThan(residualFloor) {
		credit.Amount = remaining.Neg()
		return
	}
	credit.Amount = decimal.Zero
	credit.IsOffset = true
	if isCreditNote(credit.Type) {
		credit.Status = models.LedgerOffsetByCredit
	}
}

func (p *reconciliationProcessorImpl) payDown(inv, credit *models.LedgerEntry, applied decimal.Decimal, isNC bool) {
	inv.Amount = inv.Amount.Sub(applied)
	if isNC {
		inv.AppliedCredit = inv.AppliedCredit.Add(applied)
	}
	if inv.Amount.LessThanOrEqual(dustThreshold) {
		inv.Amount = decimal.Zero
		inv.IsSettled = true
		if isNC {
			inv.Status = models.LedgerPaidByCredit
		}
	}
	if inv.PaymentDate == nil {
		if credit.PaymentDate != nil {
			inv.PaymentDate = credit.PaymentDate
		} else if credit.Date != nil {
			inv.PaymentDate = credit.Date
		}
	}
}

// extractRefs parses invoice references from free text. Compound forms like
// "1433-34-35" expand into full siblings (1433, 1434, 1435) by replacing the
// tail of the first number with each fragment.
func extractRefs(text string) []string {
	var refs []string
	seen := make(map[string]bool)
	add := func(r string) {
		r = strings.TrimFunc(r, func(c rune) bool { return c < '0' || c > '9' })
		if len(r) >= 2 && !seen[r] {
			seen[r] = true
			refs = append(refs, r)
		}
	}

	matched := false
	for _, m := range invoiceRefRe.FindAllStringSubmatch(text, -1) {
		matched = true
		for _, sibling := range expandCompoundRef(m[1]) {
			add(sibling)
		}
	}
	if !matched {
		for _, m := range bareRefRe.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	}
	return refs
}

func expandCompoundRef(raw string) []string {
	parts := strings.FieldsFunc(raw, func(c rune) bool {
		return c == '-' || c == '/' || c == '.'
	})
	if len(parts) == 0 {
		return nil
	}
	out := []string{parts[0]}
	base := parts[0]
	for _, frag := range parts[1:] {
		if frag == "" {
			continue
		}
		if len(frag) < len(base) {
			// "1433-34" -> 1434: the fragment overwrites the tail.
			out = append(out, base[:len(base)-len(frag)]+frag)
		} else {
			out = append(out, frag)
		}
	}
	return out
}

func findInvoiceByRef(entries []models.LedgerEntry, ref string) *models.LedgerEntry {
	for i := range entries {
		e := &entries[i]
		if e.OriginalAmount.Sign() <= 0 {
			continue
		}
		digits := digitsOnly(e.Number)
		if digits == "" {
			continue
		}
		if strings.HasSuffix(digits, ref) || strings.HasSuffix(ref, digits) {
			return e
		}
	}
	return nil
}

// findInvoiceByAmount locates the open invoice closest to the payment within
// the matching tolerance.
func findInvoiceByAmount(entries []models.LedgerEntry, amount decimal.Decimal) *models.LedgerEntry {
	var best *models.LedgerEntry
	var bestDiff decimal.Decimal
	for i := range entries {
		e := &entries[i]
		if e.OriginalAmount.Sign() <= 0 || e.IsSettled || e.Amount.Sign() <= 0 {
			continue
		}
		diff := e.Amount.Sub(amount).Abs()
		if diff.GreaterThan(amountTolerance) {
			continue
		}
		if best == nil || diff.LessThan(bestDiff) {
			best, bestDiff = e, diff
		}
	}
	return best
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// computeAging assigns overdue days and a bucket to every open invoice. An
// account whose open total is effectively zero is reported current across the
// board, whatever the individual due dates say.
func (p *reconciliationProcessorImpl) computeAging(entries []models.LedgerEntry) {
	now := p.now()

	openTotal := decimal.Zero
	for i := range entries {
		if entries[i].Amount.Sign() > 0 {
			openTotal = openTotal.Add(entries[i].Amount)
		}
	}
	accountClear := openTotal.LessThanOrEqual(settledEpsilon)

	for i := range entries {
		e := &entries[i]
		e.AgingBucket = models.AgingCurrent
		if accountClear || e.Amount.Sign() <= 0 || e.DueDate == nil {
			continue
		}
		days := utils.DaysBetween(*e.DueDate, now)
		if days <= 0 {
			continue
		}
		e.DaysOverdue = days
		switch {
		case days <= 30:
			e.AgingBucket = models.Aging30
		case days <= 60:
			e.AgingBucket = models.Aging60
		case days <= 90:
			e.AgingBucket = models.Aging90
		default:
			e.AgingBucket = models.AgingPlus90
		}
	}
}

// computeDelays measures how long each invoice took, or is taking, to be paid,
// counted from issue date: collected invoices up to their payment date, open
// invoices up to today. The client mean is stamped on every entry. Invoices
// settled without a recorded payment date cannot be measured and are left out
// of the mean.
func (p *reconciliationProcessorImpl) computeDelays(entries []models.LedgerEntry) {
	now := p.now()
	sum, n := 0, 0
	for i := range entries {
		e := &entries[i]
		if e.OriginalAmount.Sign() <= 0 || e.Date == nil {
			continue
		}
		var end time.Time
		switch {
		case e.PaymentDate != nil:
			end = *e.PaymentDate
		case !e.IsSettled:
			end = now
		default:
			continue
		}
		delay := utils.DaysBetween(*e.Date, end)
		if delay < 0 {
			delay = 0
		}
		d := delay
		e.PaymentDelayDays = &d
		sum += delay
		n++
	}
	if n == 0 {
		return
	}
	avg := sum / n
	for i := range entries {
		entries[i].AvgPaymentDelay = avg
	}
}
