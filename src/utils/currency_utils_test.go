package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseCurrencyLatinAmericanFormat(t *testing.T) {
	assert.True(t, ParseCurrency("1.234,56").Equal(decimal.NewFromFloat(1234.56)))
	assert.True(t, ParseCurrency("$ 1.234.567,89").Equal(decimal.NewFromFloat(1234567.89)))
	assert.True(t, ParseCurrency("1234,5").Equal(decimal.NewFromFloat(1234.5)))
}

func TestParseCurrencyUSFormat(t *testing.T) {
	assert.True(t, ParseCurrency("1,234.56").Equal(decimal.NewFromFloat(1234.56)))
	assert.True(t, ParseCurrency("12,345,678.90").Equal(decimal.NewFromFloat(12345678.90)))
}

func TestParseCurrencySingleDotThreeDigitTailReadsAsThousands(t *testing.T) {
	// A displayed "13.830" on these sheets always means thirteen thousand.
	assert.True(t, ParseCurrency("13.830").Equal(decimal.NewFromInt(13830)))
	assert.True(t, ParseCurrency("USD 13.830").Equal(decimal.NewFromInt(13830)))
	// Two decimals stay decimals.
	assert.True(t, ParseCurrency("13.83").Equal(decimal.NewFromFloat(13.83)))
	// Multiple dots are always thousands separators.
	assert.True(t, ParseCurrency("1.234.567").Equal(decimal.NewFromInt(1234567)))
}

func TestParseCurrencyAccountingNegative(t *testing.T) {
	assert.True(t, ParseCurrency("(100,00)").Equal(decimal.NewFromInt(-100)))
	assert.True(t, ParseCurrency("(1.500,25)").Equal(decimal.NewFromFloat(-1500.25)))
	assert.True(t, ParseCurrency("-250,75").Equal(decimal.NewFromFloat(-250.75)))
}

func TestParseCurrencyIsTotal(t *testing.T) {
	assert.True(t, ParseCurrency("").IsZero())
	assert.True(t, ParseCurrency("PENDIENTE").IsZero())
	assert.True(t, ParseCurrency("-").IsZero())
	assert.True(t, ParseCurrency("   ").IsZero())
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, CurrencyUSD, DetectCurrency("USD 1.500"))
	assert.Equal(t, CurrencyUSD, DetectCurrency("u$s 300"))
	assert.Equal(t, CurrencyUSD, DetectCurrency("1.500 dolares"))
	assert.Equal(t, CurrencyEUR, DetectCurrency("EUR 200"))
	assert.Equal(t, CurrencyARS, DetectCurrency("$ 1.500"))
	assert.Equal(t, CurrencyARS, DetectCurrency(""))
}
