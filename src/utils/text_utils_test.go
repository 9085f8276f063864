package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "FECHA COTIZACION", NormalizeHeader("  Fecha Cotización "))
	assert.Equal(t, "Nº", NormalizeHeader("nº"))
	assert.Equal(t, "DEBITO", NormalizeHeader("Débito"))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "ACOBRARSINIVA", NormalizeKey("A Cobrar sin IVA"))
	assert.Equal(t, "FECHADEOC", NormalizeKey(" fecha  de  OC "))
}

func TestNormalizeClientName(t *testing.T) {
	assert.Equal(t, "ACMES.A.", NormalizeClientName("  Acme  S.A. "))
	assert.Equal(t, NormalizeClientName("TRANSPORTES LOPEZ"), NormalizeClientName("Transportes Lopez"))
}
