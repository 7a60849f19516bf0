package validation

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/reconhub/backend/src/logger"
	"github.com/xuri/excelize/v2"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "alert(1)plotter", SanitizeText("<script>alert(1)</script>plotter"))
	assert.Equal(t, "plain text", SanitizeText("plain text"))
	assert.Equal(t, "bold", SanitizeText("<b>bold</b>"))
}

func TestSanitizeForFormulaInjection(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "=SUM(A1:A9)", want: "'=SUM(A1:A9)"},
		{in: "+1234", want: "'+1234"},
		{in: "-cmd", want: "'-cmd"},
		{in: "@import", want: "'@import"},
		{in: "  =lead-whitespace", want: "'  =lead-whitespace"},
		{in: "SC8000", want: "SC8000"},
		{in: "", want: ""},
		{in: "   ", want: "   "},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeForFormulaInjection(tt.in), "input %q", tt.in)
	}
}

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "abc", StripUnprintable("a\x00b\x1bc"))
	assert.Equal(t, "line1\nline2\t", StripUnprintable("line1\nline2\t"))
}

func TestValidateClientContentType(t *testing.T) {
	require.NoError(t, ValidateClientContentType("text/csv"))
	require.NoError(t, ValidateClientContentType("text/csv; charset=utf-8"))
	require.NoError(t, ValidateClientContentType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	require.NoError(t, ValidateClientContentType("APPLICATION/OCTET-STREAM"))

	require.Error(t, ValidateClientContentType("application/x-msdownload"))
	require.Error(t, ValidateClientContentType("image/png"))
}

func TestValidateFileContentByMagicBytesCSV(t *testing.T) {
	r := bytes.NewReader([]byte("product_code,price\nSC8000,10.00\n"))

	detected, err := ValidateFileContentByMagicBytes(r)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", detected)

	// The read pointer must be rewound for the parser.
	pos, err := r.Seek(0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)
}

func TestValidateFileContentByMagicBytesXLSX(t *testing.T) {
	f := excelize.NewFile()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	detected, err := ValidateFileContentByMagicBytes(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", detected)
}

func TestValidateFileContentByMagicBytesRejectsBinary(t *testing.T) {
	elf := []byte{0x7f, 'E', 'L', 'F', 0x00, 0x01, 0x02}
	_, err := ValidateFileContentByMagicBytes(bytes.NewReader(elf))
	require.Error(t, err)
}

func TestValidateFileContentByMagicBytesEmptyFile(t *testing.T) {
	_, err := ValidateFileContentByMagicBytes(bytes.NewReader(nil))
	require.Error(t, err)
}
