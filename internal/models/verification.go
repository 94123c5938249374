package models

import "time"

type EntityType string

const (
	EntityAgent    EntityType = "agent"
	EntityProperty EntityType = "property"
)

func (e EntityType) Valid() bool {
	return e == EntityAgent || e == EntityProperty
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) Terminal() bool {
	return s == VerificationVerified || s == VerificationRejected
}

type DocumentType string

const (
	DocumentLicense     DocumentType = "license"
	DocumentID          DocumentType = "id"
	DocumentCredentials DocumentType = "credentials"
	DocumentTitleDeed   DocumentType = "title_deed"
	DocumentOther       DocumentType = "other"
)

func (d DocumentType) Valid() bool {
	switch d {
	case DocumentLicense, DocumentID, DocumentCredentials, DocumentTitleDeed, DocumentOther:
		return true
	}
	return false
}

type Verification struct {
	ID           string
	EntityType   EntityType
	EntityID     string
	SubmittedBy  string
	DocumentURL  string
	DocumentType DocumentType
	Notes        *string
	Status       VerificationStatus
	ReviewedBy   *string
	ReviewNotes  *string
	ReviewedAt   *time.Time
	ExpiryDate   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VerifiableEntity is the agent or property row a verification targets.
type VerifiableEntity struct {
	Type               EntityType
	ID                 string
	OwnerID            string
	AgentUserID        *string
	VerificationStatus VerificationStatus
}

type Agent struct {
	ID                 string
	UserID             string
	LicenseNumber      *string
	VerificationStatus VerificationStatus
	VerifiedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
