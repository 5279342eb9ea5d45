package consent

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/case-framework/enrollment-backend/pkg/criteria"
)

// Consent states per (account, subpopulation) pair. Derived, never stored:
// status is recomputed lazily at evaluation time, so publishing a new
// consent version needs no fan-out over signed accounts.
const (
	CONSENT_STATE_NO_CONSENT_REQUIRED = "NO_CONSENT_REQUIRED"
	CONSENT_STATE_REQUIRED_NOT_SIGNED = "REQUIRED_NOT_SIGNED"
	CONSENT_STATE_SIGNED_CURRENT      = "SIGNED_CURRENT"
	CONSENT_STATE_SIGNED_OBSOLETE     = "SIGNED_OBSOLETE"
)

// Subpopulation is a consent group of a study, selected by criteria.
type Subpopulation struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	GUID             string             `bson:"guid" json:"guid"`
	StudyKey         string             `bson:"studyKey" json:"studyKey"`
	Name             string             `bson:"name" json:"name"`
	Criteria         criteria.Criteria  `bson:"criteria" json:"criteria"`
	Required         bool               `bson:"required" json:"required"`
	PublishedVersion int64              `bson:"publishedVersion" json:"publishedVersion"`
	CreatedAt        int64              `bson:"createdAt" json:"createdAt"`
}

// Signature is the persisted record of a signed consent document version.
type Signature struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	AccountID         string             `bson:"accountId" json:"accountId"`
	SubpopulationGUID string             `bson:"subpopulationGuid" json:"subpopulationGuid"`
	Version           int64              `bson:"version" json:"version"`
	Name              string             `bson:"name" json:"name"`
	Birthdate         string             `bson:"birthdate" json:"birthdate"`
	Scope             string             `bson:"scope" json:"scope"`
	SignedAt          int64              `bson:"signedAt" json:"signedAt"`
}

// Intent is a pre-account consent placeholder keyed by phone number.
// Single use: consumed and attached when a matching account is created.
type Intent struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Phone             string             `bson:"phone" json:"phone"`
	StudyKey          string             `bson:"studyKey" json:"studyKey"`
	SubpopulationGUID string             `bson:"subpopulationGuid" json:"subpopulationGuid"`
	Version           int64              `bson:"version" json:"version"`
	Name              string             `bson:"name" json:"name"`
	Birthdate         string             `bson:"birthdate" json:"birthdate"`
	Scope             string             `bson:"scope" json:"scope"`
	CreatedAt         int64              `bson:"createdAt" json:"createdAt"`
}
