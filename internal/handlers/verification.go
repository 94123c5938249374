package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/media/sniffer"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/middleware"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
)

var agentDocumentTypes = map[models.DocumentType]struct{}{
	models.DocumentLicense:     {},
	models.DocumentID:          {},
	models.DocumentCredentials: {},
}

// SubmitAgentVerification stores the uploaded document and files a
// verification for the caller's agent profile.
func (h HandlerSet) SubmitAgentVerification(c *gin.Context) {
	ident := h.identity(c)
	ctx := c.Request.Context()

	docType := models.DocumentType(c.PostForm("document_type"))
	if _, ok := agentDocumentTypes[docType]; !ok {
		h.respond.Error(c, apperr.Validation("Invalid verification submission",
			map[string]string{"document_type": "must be license, id or credentials"}))
		return
	}
	expiry, err := parseDate("expiry_date", c.PostForm("expiry_date"))
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	stored, err := h.storeDocument(c, ident.ID)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	v, err := h.verifications.SubmitForAgent(ctx, service.SubmitInput{
		DocumentURL:  stored.Key,
		DocumentType: docType,
		Notes:        c.PostForm("notes"),
		ExpiryDate:   expiry,
		Submitter:    ident,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("key", stored.Key).Msg("verification not filed for stored document")
		h.respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"message":      "Verification submitted for review",
		"verification": toVerification(v),
		"document":     documentResponse(stored),
	})
}

// UploadDocument stores a document for the caller. The returned key is what
// a property verification's document_url must carry.
func (h HandlerSet) UploadDocument(c *gin.Context) {
	stored, err := h.storeDocument(c, h.identity(c).ID)
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"document": documentResponse(stored),
	})
}

func (h HandlerSet) storeDocument(c *gin.Context, ownerID string) (service.StoredDocument, error) {
	file, header, err := c.Request.FormFile("document")
	if err != nil {
		return service.StoredDocument{}, apperr.Validation("Invalid document",
			map[string]string{"document": "is required"})
	}
	defer file.Close()

	return h.documents.Upload(c.Request.Context(), service.DocumentUpload{
		OwnerID:      ownerID,
		File:         file,
		DeclaredType: sniffer.MimeTypeFromHTTP(http.Header(header.Header)),
	})
}

func documentResponse(d service.StoredDocument) gin.H {
	return gin.H{
		"key":  d.Key,
		"mime": d.MIME,
		"size": d.Size,
	}
}

func (h HandlerSet) AgentVerificationStatus(c *gin.Context) {
	status, err := h.verifications.AgentStatus(c.Request.Context(), h.identity(c).ID)
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	resp := gin.H{
		"agent": agentResponse{
			ID:                 status.Agent.ID,
			UserID:             status.Agent.UserID,
			LicenseNumber:      status.Agent.LicenseNumber,
			VerificationStatus: string(status.Agent.VerificationStatus),
			VerifiedAt:         status.Agent.VerifiedAt,
		},
		"verifications": toVerifications(status.Verifications),
	}
	if len(status.Verifications) > 0 {
		resp["latest"] = toVerification(status.Verifications[0])
	}
	c.JSON(http.StatusOK, resp)
}

type submitVerificationRequest struct {
	EntityType   string `json:"entity_type"`
	EntityID     string `json:"entity_id" binding:"required"`
	DocumentURL  string `json:"document_url" binding:"required,max=2048"`
	DocumentType string `json:"document_type" binding:"required"`
	Notes        string `json:"notes" binding:"max=2000"`
	ExpiryDate   string `json:"expiry_date"`
}

// SubmitPropertyVerification files a verification for an already stored
// document. entity_type defaults to property.
func (h HandlerSet) SubmitPropertyVerification(c *gin.Context) {
	var req submitVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond.Error(c, middleware.BindError(err))
		return
	}
	expiry, err := parseDate("expiry_date", req.ExpiryDate)
	if err != nil {
		h.respond.Error(c, err)
		return
	}
	entityType := models.EntityType(req.EntityType)
	if entityType == "" {
		entityType = models.EntityProperty
	}

	v, err := h.verifications.Submit(c.Request.Context(), service.SubmitInput{
		EntityType:   entityType,
		EntityID:     req.EntityID,
		DocumentURL:  req.DocumentURL,
		DocumentType: models.DocumentType(req.DocumentType),
		Notes:        req.Notes,
		ExpiryDate:   expiry,
		Submitter:    h.identity(c),
	})
	if err != nil {
		h.respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"message":      "Verification submitted for review",
		"verification": toVerification(v),
	})
}
