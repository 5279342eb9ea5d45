package notifications

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/case-framework/enrollment-backend/pkg/criteria"
)

const (
	MESSAGE_TYPE_VERIFY_EMAIL = "verify-email"
	MESSAGE_TYPE_VERIFY_PHONE = "verify-phone"
	MESSAGE_TYPE_REGISTRATION = "registration"
)

type MessageTemplate struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	GUID            string              `bson:"guid" json:"guid"`
	MessageType     string              `bson:"messageType" json:"messageType"`
	Criteria        *criteria.Criteria  `bson:"criteria,omitempty" json:"criteria,omitempty"`
	DefaultLanguage string              `bson:"defaultLanguage" json:"defaultLanguage"`
	Translations    []LocalizedTemplate `bson:"translations" json:"translations"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
}

type LocalizedTemplate struct {
	Lang        string `bson:"languageCode" json:"lang"`
	Subject     string `bson:"subject" json:"subject"`
	TemplateDef string `bson:"templateDef" json:"templateDef"`
}
