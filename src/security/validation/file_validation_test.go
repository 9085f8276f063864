package validation

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/cobranzas/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestValidateClientContentType(t *testing.T) {
	assert.NoError(t, ValidateClientContentType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	assert.NoError(t, ValidateClientContentType("application/vnd.ms-excel"))
	assert.NoError(t, ValidateClientContentType("application/octet-stream"))
	assert.NoError(t, ValidateClientContentType("application/octet-stream; charset=binary"))
	assert.Error(t, ValidateClientContentType("text/csv"))
	assert.Error(t, ValidateClientContentType(""))
}

func TestValidateFileContentByMagicBytesXLSX(t *testing.T) {
	content := append([]byte{0x50, 0x4B, 0x03, 0x04}, []byte("rest of the archive")...)
	r := bytes.NewReader(content)

	detected, err := ValidateFileContentByMagicBytes(r)
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", detected)

	// The reader must be rewound for the parser that follows.
	rest := make([]byte, len(content))
	n, _ := r.Read(rest)
	assert.Equal(t, len(content), n)
	assert.Equal(t, content, rest[:n])
}

func TestValidateFileContentByMagicBytesXLS(t *testing.T) {
	content := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, []byte("ole body")...)

	detected, err := ValidateFileContentByMagicBytes(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.ms-excel", detected)
}

func TestValidateFileContentByMagicBytesRejectsOthers(t *testing.T) {
	_, err := ValidateFileContentByMagicBytes(bytes.NewReader([]byte("id,cliente,total\n1,ACME,100")))
	assert.Error(t, err)

	_, err = ValidateFileContentByMagicBytes(bytes.NewReader(nil))
	assert.Error(t, err)

	_, err = ValidateFileContentByMagicBytes(nil)
	assert.Error(t, err)
}
