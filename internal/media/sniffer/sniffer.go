// Package sniffer identifies uploaded verification documents by their
// leading bytes rather than the client-declared content type.
package sniffer

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
)

type DocumentType string

const (
	TypePDF  DocumentType = "pdf"
	TypeJPEG DocumentType = "jpg"
	TypePNG  DocumentType = "png"
	TypeWEBP DocumentType = "webp"
)

var ErrUnknownType = errors.New("unsupported document type")

type Result struct {
	Type DocumentType
	MIME string
}

func Detect(r io.Reader) (Result, []byte, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, nil, err
	}
	head = head[:n]

	result, err := DetectHead(head)
	return result, head, err
}

func DetectHead(head []byte) (Result, error) {
	switch {
	case len(head) == 0:
		return Result{}, ErrUnknownType
	case isPDF(head):
		return Result{Type: TypePDF, MIME: "application/pdf"}, nil
	case isJPEG(head):
		return Result{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	case isPNG(head):
		return Result{Type: TypePNG, MIME: "image/png"}, nil
	case isWEBP(head):
		return Result{Type: TypeWEBP, MIME: "image/webp"}, nil
	}
	return Result{}, ErrUnknownType
}

func isPDF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("%PDF-"))
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}

// MimeTypeFromHTTP returns the declared media type without parameters.
func MimeTypeFromHTTP(header http.Header) string {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		return ""
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		return strings.TrimSpace(contentType[:idx])
	}
	return strings.TrimSpace(contentType)
}
