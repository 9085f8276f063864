package parsers

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

type sheetFixture struct {
	name string
	rows [][]string
}

func buildWorkbook(t *testing.T, sheets []sheetFixture) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	for _, s := range sheets {
		_, err := f.NewSheet(s.name)
		require.NoError(t, err)
		for i, row := range s.rows {
			cells := make([]interface{}, len(row))
			for j, c := range row {
				cells[j] = c
			}
			require.NoError(t, f.SetSheetRow(s.name, fmt.Sprintf("A%d", i+1), &cells))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func quotesWorkbook(t *testing.T) *bytes.Buffer {
	return buildWorkbook(t, []sheetFixture{
		{
			name: "PRESUPUESTOS",
			rows: [][]string{
				{"Nº", "FECHA", "CLIENTE", "DESCRIPCION", "TOTAL", "ESTADO"},
				{"1001", "10/01/2024", "ACME SA", "Bomba hidraulica", "1.500.000", "APROBADO"},
				{"1002", "12/01/2024", "TRANSPORTES LOPEZ", "Reparacion motor", "800.000", ""},
				{"", "", "", "", "", ""},
			},
		},
		{
			name: "VENTAS - CONCRETADAS 2024",
			rows: [][]string{
				{"Nº", "CLIENTE", "FECHA", "FECHA DE OC", "A COBRAR SIN IVA", "COSTO"},
				{"1001", "ACME SA", "10/01/2024", "20/01/2024", "1.500.000", "900.000"},
				{"", "TRANSPORTES LOPEZ", "05/02/2024", "", "250.000", "100.000"},
			},
		},
	})
}

func ledgerWorkbook(t *testing.T) *bytes.Buffer {
	return buildWorkbook(t, []sheetFixture{
		{
			name: "ACME SA",
			rows: [][]string{
				{"TOTAL DEUDA", "500.000"},
				{},
				{"FECHA", "TIPO COMP", "NUMERO", "FECHA VTO", "IMPORTE", "FECHA COBRO", "OBSERVACIONES"},
				{"05/01/2024", "FC", "0001-00001433", "04/02/2024", "300.000", "", ""},
				{"10/02/2024", "REC", "", "", "-300.000", "10/02/2024", "PAGO FC 1433"},
				{"15/01/2024", "FC", "0001-00001500", "", "200.000", "SALDADA", ""},
			},
		},
		{
			name: "RESUMEN",
			rows: [][]string{{"esto no es una cuenta"}},
		},
	})
}

func TestParseQuotesWorkbook(t *testing.T) {
	p := NewWorkbookParser()
	ds := p.Parse([]InputFile{{Name: "ventas.xlsx", Reader: quotesWorkbook(t)}})

	require.Len(t, ds.Quotes, 2)
	q := ds.Quotes[0]
	assert.Equal(t, "1001", q.ID)
	assert.Equal(t, "ACME SA", q.Client)
	assert.True(t, q.Amount.Equal(decimal.NewFromInt(1500000)))
	require.NotNil(t, q.Date)
	assert.Equal(t, 2024, q.Date.Year())

	require.Len(t, ds.Sales, 2)
	assert.Equal(t, "1001", ds.Sales[0].QuoteID)
	assert.Equal(t, 2024, ds.Sales[0].Year)
	require.NotNil(t, ds.Sales[0].OCDate)

	// The numberless sale gets a synthesized id and a warning.
	assert.True(t, strings.HasPrefix(ds.Sales[1].QuoteID, "SIN-COT-"))
	foundWarning := false
	for _, is := range ds.Issues {
		if is.Type == models.IssueWarning && strings.Contains(is.Message, "ID temporal") {
			foundWarning = true
		}
	}
	assert.True(t, foundWarning)
}

func TestParseLedgerWorkbook(t *testing.T) {
	p := NewWorkbookParser()
	ds := p.Parse([]InputFile{{Name: "clientes.xlsx", Reader: ledgerWorkbook(t)}})

	require.Len(t, ds.LedgerRows, 3)

	invoice := ds.LedgerRows[0]
	assert.Equal(t, "ACME SA", invoice.ClientSheet)
	assert.Equal(t, "0001-00001433", invoice.Number)
	assert.True(t, invoice.Amount.Equal(decimal.NewFromInt(300000)))
	require.NotNil(t, invoice.DueDate)

	payment := ds.LedgerRows[1]
	assert.True(t, payment.Amount.IsNegative())
	assert.True(t, payment.ManualRef)
	assert.True(t, strings.HasPrefix(payment.Number, "PAY-"))
	assert.Equal(t, "PAGO FC 1433", payment.Obs)
	require.NotNil(t, payment.PaymentDate)

	settled := ds.LedgerRows[2]
	assert.Equal(t, "SALDADA", settled.PaymentText)
	assert.Nil(t, settled.PaymentDate)

	// Summary sheets never become accounts.
	for _, row := range ds.LedgerRows {
		assert.NotEqual(t, "RESUMEN", row.ClientSheet)
	}

	expected, ok := ds.Audit["ACME SA"]
	require.True(t, ok)
	assert.True(t, expected.Equal(decimal.NewFromInt(500000)))
}

func TestParseUnreadableFileBecomesCriticalIssue(t *testing.T) {
	p := NewWorkbookParser()
	ds := p.Parse([]InputFile{{Name: "roto.xlsx", Reader: bytes.NewReader([]byte("not a workbook"))}})

	require.Len(t, ds.Issues, 1)
	assert.Equal(t, models.IssueCritical, ds.Issues[0].Type)
	assert.Equal(t, "roto.xlsx", ds.Issues[0].File)
	assert.True(t, models.HasBlocking(ds.Issues))
}

func TestParseLedgerDropsRowWithoutDateAndNumber(t *testing.T) {
	wb := buildWorkbook(t, []sheetFixture{
		{
			name: "AGRO DEL ESTE",
			rows: [][]string{
				{"FECHA", "TIPO COMP", "NUMERO", "FECHA VTO", "IMPORTE", "FECHA COBRO", "OBSERVACIONES"},
				{"", "", "", "", "150.000", "", ""},
				{"05/01/2024", "FC", "0001-00000001", "", "100.000", "", ""},
			},
		},
	})

	p := NewWorkbookParser()
	ds := p.Parse([]InputFile{{Name: "clientes.xlsx", Reader: wb}})

	// The anchorless amount never becomes a movement.
	require.Len(t, ds.LedgerRows, 1)
	assert.Equal(t, "0001-00000001", ds.LedgerRows[0].Number)

	foundWarning := false
	for _, is := range ds.Issues {
		if is.Type == models.IssueWarning && is.Row == 2 && strings.Contains(is.Message, "descarta") {
			foundWarning = true
		}
	}
	assert.True(t, foundWarning)
}

func TestSplitPaymentRow(t *testing.T) {
	row := models.LedgerRow{
		ClientSheet: "ACME SA",
		Amount:      decimal.NewFromInt(-90000),
		PaymentText: "10/01/25 y 15/02/25 y 20/03/25",
		Obs:         "pago en cuotas",
	}
	parts := splitPaymentRow(row)
	require.Len(t, parts, 3)
	for i, part := range parts {
		assert.True(t, part.Amount.Equal(decimal.NewFromInt(-30000)))
		require.NotNil(t, part.PaymentDate)
		assert.Contains(t, part.Obs, fmt.Sprintf("(Pago %d/3)", i+1))
	}

	// Non-date fragments leave the row whole.
	whole := splitPaymentRow(models.LedgerRow{Amount: decimal.NewFromInt(-100), PaymentText: "ver nota y llamar"})
	require.Len(t, whole, 1)
}

func TestSplitPaymentRowRemainderGoesToLastInstallment(t *testing.T) {
	parts := splitPaymentRow(models.LedgerRow{
		Amount:      decimal.NewFromInt(-100),
		PaymentText: "10/01/25 y 15/02/25 y 20/03/25",
	})
	require.Len(t, parts, 3)
	assert.True(t, parts[0].Amount.Equal(decimal.NewFromFloat(-33.33)))
	assert.True(t, parts[1].Amount.Equal(decimal.NewFromFloat(-33.33)))
	assert.True(t, parts[2].Amount.Equal(decimal.NewFromFloat(-33.34)))

	sum := decimal.Zero
	for _, part := range parts {
		sum = sum.Add(part.Amount)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(-100)))
}

func TestRowValuesConcatenatesObsColumns(t *testing.T) {
	cm := buildColumnMap([]string{"FECHA", "DETALLE", "IMPORTE", "OBSERVACIONES"}, mapLedgerHeader)
	vals := cm.rowValues([]string{"05/01/2024", "pago parcial", "100", "ver recibo 51"})
	assert.Equal(t, "pago parcial ver recibo 51", vals[fieldObs])
	assert.Equal(t, "100", vals[fieldAmount])

	// With a single obs column nothing changes.
	single := buildColumnMap([]string{"FECHA", "IMPORTE", "OBSERVACIONES"}, mapLedgerHeader)
	assert.Equal(t, "ver recibo", single.rowValues([]string{"05/01/2024", "100", "ver recibo"})[fieldObs])
}
