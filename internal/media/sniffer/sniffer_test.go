package sniffer

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHead(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want DocumentType
	}{
		{"pdf", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3"), TypePDF},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}, TypeJPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0}, TypePNG},
		{"webp", []byte("RIFF\x24\x00\x00\x00WEBPVP8 "), TypeWEBP},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := DetectHead(tc.head)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Type)
		})
	}
}

func TestDetectRejectsOtherContent(t *testing.T) {
	_, err := DetectHead([]byte("<svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = DetectHead(nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDetectReturnsHead(t *testing.T) {
	result, head, err := Detect(bytes.NewReader([]byte("%PDF-1.4 short")))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.MIME)
	assert.Equal(t, []byte("%PDF-1.4 short"), head)
}

func TestMimeTypeFromHTTP(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/pdf; charset=binary")
	assert.Equal(t, "application/pdf", MimeTypeFromHTTP(h))
	assert.Equal(t, "", MimeTypeFromHTTP(http.Header{}))
}
