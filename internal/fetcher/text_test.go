package fetcher

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

func TestReadText_StripsUTF8BOM(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Name,Metric,Score,Description")...)
	got, err := ReadText(bytes.NewReader(in), "")
	require.NoError(t, err)
	assert.Equal(t, "Name,Metric,Score,Description", got)
}

func TestReadText_PlainUTF8(t *testing.T) {
	got, err := ReadText(strings.NewReader("삼성물산,Carbon,4,-"), "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "삼성물산,Carbon,4,-", got)
}

func TestReadText_UTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	in, err := enc.Bytes([]byte("Name,Score"))
	require.NoError(t, err)

	got, err := ReadText(bytes.NewReader(in), "")
	require.NoError(t, err)
	assert.Equal(t, "Name,Score", got)
}

func TestReadText_EUCKR(t *testing.T) {
	in, err := korean.EUCKR.NewEncoder().Bytes([]byte("현대건설,Safety,8,-"))
	require.NoError(t, err)

	got, err := ReadText(bytes.NewReader(in), "euc-kr")
	require.NoError(t, err)
	assert.Equal(t, "현대건설,Safety,8,-", got)
}

func TestReadText_UnknownCharset(t *testing.T) {
	_, err := ReadText(strings.NewReader("x"), "klingon-8")
	assert.Error(t, err)
}
