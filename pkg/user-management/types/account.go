package types

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ACCOUNT_STATUS_ENABLED  = "enabled"
	ACCOUNT_STATUS_DISABLED = "disabled"
)

const (
	ROLE_SUPERADMIN = "superadmin"
	ROLE_ORG_ADMIN  = "org-admin"
	ROLE_RESEARCHER = "researcher"
	ROLE_DEVELOPER  = "developer"
)

const (
	CHANNEL_EMAIL = "email"
	CHANNEL_PHONE = "phone"
)

// Account is the single record a participant's identifiers are merged under.
// Email, phone and synapse user ID are each settable exactly once; external
// identifiers are keyed by the owning substudy.
type Account struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Email         string `bson:"email,omitempty" json:"email,omitempty"`
	Phone         string `bson:"phone,omitempty" json:"phone,omitempty"`
	SynapseUserID string `bson:"synapseUserId,omitempty" json:"synapseUserId,omitempty"`
	Password      string `bson:"password" json:"password,omitempty"`

	// substudy ID -> external identifier string
	ExternalIDs map[string]string `bson:"externalIds,omitempty" json:"externalIds,omitempty"`

	// substudies directly assigned at creation; membership implied by
	// assigned external identifiers is derived, see EffectiveSubstudies
	SubstudyIDs []string `bson:"substudyIds,omitempty" json:"substudyIds,omitempty"`

	DataGroups         []string `bson:"dataGroups,omitempty" json:"dataGroups,omitempty"`
	Roles              []string `bson:"roles,omitempty" json:"roles,omitempty"`
	OrgID              string   `bson:"orgId,omitempty" json:"orgId,omitempty"`
	Status             string   `bson:"status" json:"status"`
	PreferredLanguages []string `bson:"preferredLanguages,omitempty" json:"preferredLanguages,omitempty"`

	EmailVerifiedAt int64 `bson:"emailVerifiedAt" json:"emailVerifiedAt"`
	PhoneVerifiedAt int64 `bson:"phoneVerifiedAt" json:"phoneVerifiedAt"`

	FailedLoginAttempts []int64 `bson:"failedLoginAttempts,omitempty" json:"-"`

	Timestamps Timestamps `bson:"timestamps" json:"timestamps"`
}

type Timestamps struct {
	CreatedAt  int64 `bson:"createdAt" json:"createdAt"`
	UpdatedAt  int64 `bson:"updatedAt" json:"updatedAt"`
	LastLogin  int64 `bson:"lastLogin" json:"lastLogin"`
	DisabledAt int64 `bson:"disabledAt" json:"disabledAt"`
}

// BindEmail sets the email if it is still unset. Returns true if the value
// was bound now; false means the field was already set and stays unchanged.
func (a *Account) BindEmail(addr string) bool {
	if a.Email != "" {
		return false
	}
	a.Email = addr
	return true
}

func (a *Account) BindPhone(phone string) bool {
	if a.Phone != "" {
		return false
	}
	a.Phone = phone
	return true
}

func (a *Account) BindSynapseUserID(id string) bool {
	if a.SynapseUserID != "" {
		return false
	}
	a.SynapseUserID = id
	return true
}

// SetExternalID records an assigned external identifier under its owning
// substudy.
func (a *Account) SetExternalID(substudyID string, identifier string) {
	if a.ExternalIDs == nil {
		a.ExternalIDs = map[string]string{}
	}
	a.ExternalIDs[substudyID] = identifier
}

func (a *Account) RemoveExternalID(substudyID string) {
	delete(a.ExternalIDs, substudyID)
}

// EffectiveSubstudies is the union of directly assigned substudies and the
// substudies owning the account's assigned external identifiers.
func (a Account) EffectiveSubstudies() []string {
	effective := make([]string, 0, len(a.SubstudyIDs)+len(a.ExternalIDs))
	effective = append(effective, a.SubstudyIDs...)
	for substudyID := range a.ExternalIDs {
		alreadyIn := false
		for _, id := range effective {
			if id == substudyID {
				alreadyIn = true
				break
			}
		}
		if !alreadyIn {
			effective = append(effective, substudyID)
		}
	}
	return effective
}

func (a Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
