package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/ids"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/media/sniffer"
)

const (
	documentLinkTTL = 15 * time.Minute
	documentKeyRoot = "verifications"
)

type documentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, meta map[string]string) error
	PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type DocumentService struct {
	store    documentStore
	maxBytes int64
	log      zerolog.Logger
	now      func() time.Time
}

func NewDocumentService(store documentStore, maxBytes int64, log zerolog.Logger) *DocumentService {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &DocumentService{store: store, maxBytes: maxBytes, log: log, now: time.Now}
}

type DocumentUpload struct {
	OwnerID      string
	File         io.Reader
	DeclaredType string
}

type StoredDocument struct {
	Key    string
	MIME   string
	Size   int64
	SHA256 string
}

// Upload stores a verification document after checking its real type and
// size. The returned key is what verifications reference.
func (s *DocumentService) Upload(ctx context.Context, in DocumentUpload) (StoredDocument, error) {
	if in.File == nil {
		return StoredDocument{}, apperr.Validation("Invalid document", map[string]string{"document": "is required"})
	}

	data, err := io.ReadAll(io.LimitReader(in.File, s.maxBytes+1))
	if err != nil {
		return StoredDocument{}, fmt.Errorf("read document: %w", err)
	}
	if len(data) == 0 {
		return StoredDocument{}, apperr.Validation("Invalid document", map[string]string{"document": "is empty"})
	}
	if int64(len(data)) > s.maxBytes {
		return StoredDocument{}, apperr.Validation("Invalid document",
			map[string]string{"document": fmt.Sprintf("must be at most %d MB", s.maxBytes>>20)})
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	result, err := sniffer.DetectHead(head)
	if err != nil {
		return StoredDocument{}, apperr.Validation("Invalid document",
			map[string]string{"document": "must be a PDF, JPEG, PNG or WEBP file"})
	}
	declared := strings.ToLower(in.DeclaredType)
	if declared != "" && declared != "application/octet-stream" && declared != result.MIME {
		return StoredDocument{}, apperr.Validation("Invalid document",
			map[string]string{"document": fmt.Sprintf("content type mismatch: declared %s, actual %s", declared, result.MIME)})
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	key := s.buildObjectKey(in.OwnerID, string(result.Type))

	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), result.MIME, map[string]string{
		"owner-id": in.OwnerID,
		"sha256":   checksum,
	}); err != nil {
		return StoredDocument{}, apperr.Transient("Could not store document", err)
	}

	s.log.Info().Str("owner_id", in.OwnerID).Str("key", key).Int("bytes", len(data)).Msg("verification document stored")
	return StoredDocument{Key: key, MIME: result.MIME, Size: int64(len(data)), SHA256: checksum}, nil
}

// ViewURL presigns a stored document key. Anything that is not one of our
// keys is refused, so a submitter cannot point reviewers at their own host.
func (s *DocumentService) ViewURL(ctx context.Context, ref string) (string, error) {
	if !isDocumentKey(ref) {
		return "", apperr.NotFound("document_not_found", "Document not found")
	}
	u, err := s.store.PresignedGet(ctx, ref, documentLinkTTL)
	if err != nil {
		return "", apperr.Transient("Could not link document", err)
	}
	return u, nil
}

func (s *DocumentService) buildObjectKey(ownerID, ext string) string {
	datePrefix := s.now().UTC().Format("2006/01")
	return path.Join(documentKeyRoot, ownerID, datePrefix, fmt.Sprintf("%s.%s", ids.Sortable(), ext))
}

// isDocumentKey reports whether ref has the shape of a key Upload produced.
func isDocumentKey(ref string) bool {
	if ref == "" || strings.Contains(ref, "://") || strings.HasPrefix(ref, "/") {
		return false
	}
	if path.Clean(ref) != ref || strings.Contains(ref, "..") {
		return false
	}
	return strings.HasPrefix(ref, documentKeyRoot+"/")
}

func documentOwnedBy(ref, ownerID string) bool {
	return ownerID != "" && isDocumentKey(ref) && strings.HasPrefix(ref, documentKeyRoot+"/"+ownerID+"/")
}
