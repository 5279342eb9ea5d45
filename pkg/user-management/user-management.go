package usermanagement

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
	"github.com/case-framework/enrollment-backend/pkg/utils"
)

// DBConnector is the slice of the participant user DB the resolver needs.
type DBConnector interface {
	GetAccountByID(instanceID string, accountID string) (userTypes.Account, error)
	CreateAccount(instanceID string, account userTypes.Account) (userTypes.Account, error)
	DeleteAccount(instanceID string, accountID string) error
	// BindAccountIdentifierIfUnset sets the field only while it is still
	// empty and returns the account afterwards; bound reports whether this
	// call did the write. An already set field is left untouched without
	// error.
	BindAccountIdentifierIfUnset(instanceID string, accountID string, field string, value string) (account userTypes.Account, bound bool, err error)
}

// Authenticator establishes the acting account before any self-service
// mutation. Self-service only: the resolver never updates other accounts.
type Authenticator interface {
	Authenticate(instanceID string, credential SignInCredential) (accountID string, err error)
}

// Notifier delivers verification messages; failures are logged, never
// surfaced to the caller.
type Notifier interface {
	SendVerification(instanceID string, accountID string, channel string, address string, languages []string)
}

type SignInCredential struct {
	Email      string `json:"email,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	SubstudyID string `json:"substudyId,omitempty"`
	Password   string `json:"password"`
}

// IdentifierUpdate carries at most one identifier field to bind.
type IdentifierUpdate struct {
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	SynapseUserID string `json:"synapseUserId,omitempty"`
}

const (
	IDENTIFIER_FIELD_EMAIL           = "email"
	IDENTIFIER_FIELD_PHONE           = "phone"
	IDENTIFIER_FIELD_SYNAPSE_USER_ID = "synapseUserId"
)

type IdentityResolver struct {
	db       DBConnector
	auth     Authenticator
	notifier Notifier
}

func NewIdentityResolver(db DBConnector, auth Authenticator, notifier Notifier) *IdentityResolver {
	return &IdentityResolver{
		db:       db,
		auth:     auth,
		notifier: notifier,
	}
}

// UpdateIdentifiers re-authenticates the credential and applies
// first-write-wins semantics for each identifier field: an unset field is
// bound exactly once, a set field leaves the request successful but the
// value unchanged. Repeating the call with a different target value is NOT
// an error, it is a silent no-op.
func (r *IdentityResolver) UpdateIdentifiers(instanceID string, credential SignInCredential, update IdentifierUpdate) (userTypes.Account, error) {
	accountID, err := r.auth.Authenticate(instanceID, credential)
	if err != nil {
		return userTypes.Account{}, err
	}

	fieldsSet := 0
	if update.Email != "" {
		fieldsSet++
	}
	if update.Phone != "" {
		fieldsSet++
	}
	if update.SynapseUserID != "" {
		fieldsSet++
	}
	if fieldsSet > 1 {
		return userTypes.Account{}, fmt.Errorf("at most one identifier field per update: %w", apperrors.ErrInvalidEntity)
	}

	account, err := r.db.GetAccountByID(instanceID, accountID)
	if err != nil {
		return userTypes.Account{}, err
	}

	switch {
	case update.Email != "":
		email := utils.SanitizeEmail(update.Email)
		if !utils.CheckEmailFormat(email) {
			return userTypes.Account{}, fmt.Errorf("email format: %w", apperrors.ErrInvalidEntity)
		}
		var bound bool
		account, bound, err = r.db.BindAccountIdentifierIfUnset(instanceID, accountID, IDENTIFIER_FIELD_EMAIL, email)
		if err != nil {
			return userTypes.Account{}, err
		}
		if bound {
			r.notifier.SendVerification(instanceID, accountID, userTypes.CHANNEL_EMAIL, email, account.PreferredLanguages)
		}
	case update.Phone != "":
		phone := utils.SanitizePhoneNumber(update.Phone)
		if !utils.CheckPhoneFormat(phone) {
			return userTypes.Account{}, fmt.Errorf("phone format: %w", apperrors.ErrInvalidEntity)
		}
		var bound bool
		account, bound, err = r.db.BindAccountIdentifierIfUnset(instanceID, accountID, IDENTIFIER_FIELD_PHONE, phone)
		if err != nil {
			return userTypes.Account{}, err
		}
		if bound {
			r.notifier.SendVerification(instanceID, accountID, userTypes.CHANNEL_PHONE, phone, account.PreferredLanguages)
		}
	case update.SynapseUserID != "":
		account, _, err = r.db.BindAccountIdentifierIfUnset(instanceID, accountID, IDENTIFIER_FIELD_SYNAPSE_USER_ID, update.SynapseUserID)
		if err != nil {
			return userTypes.Account{}, err
		}
	}

	return account, nil
}

type SignUpRequest struct {
	Email              string   `json:"email,omitempty"`
	Phone              string   `json:"phone,omitempty"`
	ExternalID         string   `json:"externalId,omitempty"`
	SubstudyID         string   `json:"substudyId,omitempty"`
	Password           string   `json:"password"`
	PreferredLanguages []string `json:"preferredLanguages,omitempty"`
}

// SignUp creates a new account with zero or one identifier type set.
// assignExternalID claims a pre-provisioned identifier for the new account;
// claimIntent consumes a pending intent-to-participate for the phone number.
// Both are optional collaborators.
func (r *IdentityResolver) SignUp(
	instanceID string,
	req SignUpRequest,
	passwordHash string,
	assignExternalID func(substudyID string, identifier string, accountID string) error,
	claimIntent func(accountID string, phone string) error,
) (userTypes.Account, error) {
	identifierTypes := 0
	if req.Email != "" {
		identifierTypes++
	}
	if req.Phone != "" {
		identifierTypes++
	}
	if req.ExternalID != "" {
		identifierTypes++
	}
	if identifierTypes > 1 {
		return userTypes.Account{}, fmt.Errorf("at most one identifier type at sign-up: %w", apperrors.ErrInvalidEntity)
	}

	now := time.Now().Unix()
	newAccount := userTypes.Account{
		Status:             userTypes.ACCOUNT_STATUS_ENABLED,
		Password:           passwordHash,
		PreferredLanguages: req.PreferredLanguages,
		Timestamps: userTypes.Timestamps{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if req.Email != "" {
		email := utils.SanitizeEmail(req.Email)
		if !utils.CheckEmailFormat(email) {
			return userTypes.Account{}, fmt.Errorf("email format: %w", apperrors.ErrInvalidEntity)
		}
		newAccount.Email = email
	}
	if req.Phone != "" {
		phone := utils.SanitizePhoneNumber(req.Phone)
		if !utils.CheckPhoneFormat(phone) {
			return userTypes.Account{}, fmt.Errorf("phone format: %w", apperrors.ErrInvalidEntity)
		}
		newAccount.Phone = phone
	}

	account, err := r.db.CreateAccount(instanceID, newAccount)
	if err != nil {
		return userTypes.Account{}, err
	}
	accountID := account.ID.Hex()

	if req.ExternalID != "" && assignExternalID != nil {
		if err := assignExternalID(req.SubstudyID, req.ExternalID, accountID); err != nil {
			// no partial sign-up with a foreign identifier
			if delErr := r.db.DeleteAccount(instanceID, accountID); delErr != nil {
				slog.Error("could not roll back account after failed identifier claim",
					slog.String("instanceID", instanceID),
					slog.String("accountID", accountID),
					slog.String("error", delErr.Error()))
			}
			return userTypes.Account{}, err
		}
		account.SetExternalID(req.SubstudyID, req.ExternalID)
	}

	if account.Phone != "" && claimIntent != nil {
		if err := claimIntent(accountID, account.Phone); err != nil {
			slog.Debug("no intent to participate claimed",
				slog.String("instanceID", instanceID),
				slog.String("accountID", accountID),
				slog.String("error", err.Error()))
		}
	}

	if account.Email != "" {
		r.notifier.SendVerification(instanceID, accountID, userTypes.CHANNEL_EMAIL, account.Email, account.PreferredLanguages)
	}
	if account.Phone != "" {
		r.notifier.SendVerification(instanceID, accountID, userTypes.CHANNEL_PHONE, account.Phone, account.PreferredLanguages)
	}

	return account, nil
}

// DeleteAccount hard deletes the account after releasing every external
// identifier it holds.
func (r *IdentityResolver) DeleteAccount(
	instanceID string,
	accountID string,
	releaseExternalID func(substudyID string, identifier string) error,
) error {
	account, err := r.db.GetAccountByID(instanceID, accountID)
	if err != nil {
		return err
	}

	for substudyID, identifier := range account.ExternalIDs {
		if err := releaseExternalID(substudyID, identifier); err != nil {
			return err
		}
	}

	return r.db.DeleteAccount(instanceID, accountID)
}
