package study

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/case-framework/enrollment-backend/pkg/criteria"
)

// Organization sponsors substudies and owns its member management accounts.
type Organization struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name             string             `bson:"name" json:"name"`
	Identifier       string             `bson:"identifier" json:"identifier"`
	MemberAccountIDs []string           `bson:"memberAccountIds,omitempty" json:"memberAccountIds,omitempty"`
	CreatedAt        int64              `bson:"createdAt" json:"createdAt"`
}

// Substudy is the enrolment unit external identifiers and direct
// assignments refer to by key.
type Substudy struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Key       string             `bson:"key" json:"key"`
	OrgID     string             `bson:"orgId" json:"orgId"`
	Name      string             `bson:"name" json:"name"`
	StudyKey  string             `bson:"studyKey" json:"studyKey"`
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
}

// AppConfig is a criteria selected client configuration document.
type AppConfig struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id,omitempty"`
	GUID      string                 `bson:"guid" json:"guid"`
	StudyKey  string                 `bson:"studyKey" json:"studyKey"`
	Label     string                 `bson:"label" json:"label"`
	Criteria  *criteria.Criteria     `bson:"criteria,omitempty" json:"criteria,omitempty"`
	Config    map[string]interface{} `bson:"config" json:"config"`
	CreatedAt int64                  `bson:"createdAt" json:"createdAt"`
}
