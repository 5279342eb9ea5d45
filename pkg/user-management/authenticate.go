package usermanagement

import (
	"fmt"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	"github.com/case-framework/enrollment-backend/pkg/user-management/pwhash"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
	"github.com/case-framework/enrollment-backend/pkg/utils"
)

type AccountLookup interface {
	GetAccountByEmail(instanceID string, email string) (userTypes.Account, error)
	GetAccountByExternalID(instanceID string, substudyID string, identifier string) (userTypes.Account, error)
}

// PasswordAuthenticator resolves a sign-in credential (email or external
// identifier plus password) to an account ID.
type PasswordAuthenticator struct {
	db AccountLookup
}

func NewPasswordAuthenticator(db AccountLookup) *PasswordAuthenticator {
	return &PasswordAuthenticator{db: db}
}

func (a *PasswordAuthenticator) Authenticate(instanceID string, credential SignInCredential) (string, error) {
	var account userTypes.Account
	var err error

	switch {
	case credential.Email != "":
		account, err = a.db.GetAccountByEmail(instanceID, utils.SanitizeEmail(credential.Email))
	case credential.ExternalID != "":
		account, err = a.db.GetAccountByExternalID(instanceID, credential.SubstudyID, credential.ExternalID)
	default:
		return "", fmt.Errorf("credential without identifier: %w", apperrors.ErrInvalidEntity)
	}
	if err != nil {
		return "", err
	}

	if account.Status != userTypes.ACCOUNT_STATUS_ENABLED {
		return "", fmt.Errorf("account disabled: %w", apperrors.ErrUnauthorized)
	}

	match, err := pwhash.ComparePasswordWithHash(account.Password, credential.Password)
	if err != nil || !match {
		return "", fmt.Errorf("wrong password: %w", apperrors.ErrUnauthorized)
	}

	return account.ID.Hex(), nil
}
