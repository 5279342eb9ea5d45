package idregistry

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExternalIdentifier is a pre-provisioned or self-registered login credential
// alternative, scoped to one substudy. The (identifier, substudy) pair is
// unique; the identifier string alone is not.
type ExternalIdentifier struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Identifier string             `bson:"identifier" json:"identifier"`
	SubstudyID string             `bson:"substudyId" json:"substudyId"`
	Assigned   bool               `bson:"assigned" json:"assigned"`
	AccountID  string             `bson:"accountId,omitempty" json:"accountId,omitempty"`
	CreatedAt  int64              `bson:"createdAt" json:"createdAt"`
	AssignedAt int64              `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`
}

// ListFilter selects a page of identifiers. AssignedFilter nil means both
// assigned and unassigned entries. Scope nil means no substudy restriction;
// it is only consulted when SubstudyID is empty.
type ListFilter struct {
	Prefix         string
	SubstudyID     string
	AssignedFilter *bool
	Scope          []string
	PageSize       int64
	Cursor         Cursor
}

// Page always reports the total of the full filtered set, not just the
// returned slice. NextCursor is empty on the last page.
type Page struct {
	Items      []ExternalIdentifier `json:"items"`
	Total      int64                `json:"total"`
	NextCursor string               `json:"nextCursor,omitempty"`
}
