package usermanagement

import (
	"errors"
	"testing"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAccountStore struct {
	accounts map[string]*userTypes.Account
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: map[string]*userTypes.Account{}}
}

func (f *fakeAccountStore) GetAccountByID(instanceID string, accountID string) (userTypes.Account, error) {
	a, ok := f.accounts[accountID]
	if !ok {
		return userTypes.Account{}, apperrors.ErrNotFound
	}
	return *a, nil
}

func (f *fakeAccountStore) CreateAccount(instanceID string, account userTypes.Account) (userTypes.Account, error) {
	for _, existing := range f.accounts {
		if account.Email != "" && existing.Email == account.Email {
			return userTypes.Account{}, apperrors.ErrAlreadyExists
		}
		if account.Phone != "" && existing.Phone == account.Phone {
			return userTypes.Account{}, apperrors.ErrAlreadyExists
		}
	}
	account.ID = primitive.NewObjectID()
	f.accounts[account.ID.Hex()] = &account
	return account, nil
}

func (f *fakeAccountStore) DeleteAccount(instanceID string, accountID string) error {
	if _, ok := f.accounts[accountID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.accounts, accountID)
	return nil
}

func (f *fakeAccountStore) BindAccountIdentifierIfUnset(instanceID string, accountID string, field string, value string) (userTypes.Account, bool, error) {
	a, ok := f.accounts[accountID]
	if !ok {
		return userTypes.Account{}, false, apperrors.ErrNotFound
	}
	bound := false
	switch field {
	case IDENTIFIER_FIELD_EMAIL:
		bound = a.BindEmail(value)
	case IDENTIFIER_FIELD_PHONE:
		bound = a.BindPhone(value)
	case IDENTIFIER_FIELD_SYNAPSE_USER_ID:
		bound = a.BindSynapseUserID(value)
	}
	return *a, bound, nil
}

type fakeAuth struct {
	accountID string
	err       error
}

func (f fakeAuth) Authenticate(instanceID string, credential SignInCredential) (string, error) {
	return f.accountID, f.err
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) SendVerification(instanceID string, accountID string, channel string, address string, languages []string) {
	f.sent = append(f.sent, channel+":"+address)
}

func setupResolver(t *testing.T) (*IdentityResolver, *fakeAccountStore, *fakeNotifier, string) {
	t.Helper()
	store := newFakeAccountStore()
	account, err := store.CreateAccount("default", userTypes.Account{Status: userTypes.ACCOUNT_STATUS_ENABLED})
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	notifier := &fakeNotifier{}
	resolver := NewIdentityResolver(store, fakeAuth{accountID: account.ID.Hex()}, notifier)
	return resolver, store, notifier, account.ID.Hex()
}

func TestUpdateIdentifiers(t *testing.T) {
	t.Run("first write wins, second call is a silent no-op", func(t *testing.T) {
		resolver, _, _, _ := setupResolver(t)

		account, err := resolver.UpdateIdentifiers("default", SignInCredential{}, IdentifierUpdate{Email: "first@test.com"})
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if account.Email != "first@test.com" {
			t.Errorf("unexpected email: %s", account.Email)
		}

		// different target value, still a success
		account, err = resolver.UpdateIdentifiers("default", SignInCredential{}, IdentifierUpdate{Email: "second@test.com"})
		if err != nil {
			t.Fatalf("second update must succeed: %s", err.Error())
		}
		if account.Email != "first@test.com" {
			t.Errorf("first value should win, got: %s", account.Email)
		}
	})

	t.Run("same for phone and synapse user id", func(t *testing.T) {
		resolver, _, _, _ := setupResolver(t)

		if _, err := resolver.UpdateIdentifiers("default", SignInCredential{}, IdentifierUpdate{Phone: "+491701234567"}); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		account, err := resolver.UpdateIdentifiers("default", SignInCredential{}, IdentifierUpdate{Phone: "+491709999999"})
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if account.Phone != "+491701234567" {
			t.Errorf("first value should win, got: %s", account.Phone)
		}

		if _, err := resolver.UpdateIdentifiers("default", SignInCredential{}, IdentifierUpdate{SynapseUserID: "111"}); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		account, err = resolver.UpdateIdentifiers("default", SignInCredential{}, IdentifierUpdate{SynapseUserID: "222"})
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if account.SynapseUserID != "111" {
			t.Errorf("first value should win, got: %s", account.SynapseUserID)
		}
	})

	t.Run("more than one field is rejected", func(t *testing.T) {
		resolver, _, _, _ := setupResolver(t)
		_, err := resolver.UpdateIdentifiers("default", SignInCredential{}, IdentifierUpdate{Email: "a@test.com", Phone: "+491701234567"})
		if !errors.Is(err, apperrors.ErrInvalidEntity) {
			t.Errorf("expected InvalidEntity, got %v", err)
		}
	})

	t.Run("failed authentication blocks the update", func(t *testing.T) {
		store := newFakeAccountStore()
		resolver := NewIdentityResolver(store, fakeAuth{err: apperrors.ErrUnauthorized}, &fakeNotifier{})
		_, err := resolver.UpdateIdentifiers("default", SignInCredential{}, IdentifierUpdate{Email: "a@test.com"})
		if !errors.Is(err, apperrors.ErrUnauthorized) {
			t.Errorf("expected Unauthorized, got %v", err)
		}
	})

	t.Run("verification sent only on actual bind", func(t *testing.T) {
		resolver, _, notifier, _ := setupResolver(t)
		if _, err := resolver.UpdateIdentifiers("default", SignInCredential{}, IdentifierUpdate{Email: "a@test.com"}); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if _, err := resolver.UpdateIdentifiers("default", SignInCredential{}, IdentifierUpdate{Email: "b@test.com"}); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if len(notifier.sent) != 1 {
			t.Errorf("expected one verification message, got %v", notifier.sent)
		}
	})
}

func TestSignUp(t *testing.T) {
	t.Run("with email", func(t *testing.T) {
		resolver, _, notifier, _ := setupResolver(t)
		account, err := resolver.SignUp("default", SignUpRequest{Email: "new@test.com"}, "hash", nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if account.Email != "new@test.com" || account.Status != userTypes.ACCOUNT_STATUS_ENABLED {
			t.Errorf("unexpected account: %+v", account)
		}
		if len(notifier.sent) != 1 {
			t.Errorf("expected a verification message, got %v", notifier.sent)
		}
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		resolver, _, _, _ := setupResolver(t)
		if _, err := resolver.SignUp("default", SignUpRequest{Email: "dup@test.com"}, "hash", nil, nil); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		_, err := resolver.SignUp("default", SignUpRequest{Email: "dup@test.com"}, "hash", nil, nil)
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			t.Errorf("expected AlreadyExists, got %v", err)
		}
	})

	t.Run("with external identifier claim", func(t *testing.T) {
		resolver, _, _, _ := setupResolver(t)
		claimed := ""
		account, err := resolver.SignUp("default", SignUpRequest{ExternalID: "ext-001", SubstudyID: "sub1"}, "hash",
			func(substudyID string, identifier string, accountID string) error {
				claimed = substudyID + "/" + identifier
				return nil
			}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if claimed != "sub1/ext-001" {
			t.Errorf("unexpected claim: %s", claimed)
		}
		if account.ExternalIDs["sub1"] != "ext-001" {
			t.Errorf("unexpected account state: %+v", account.ExternalIDs)
		}
	})

	t.Run("failed identifier claim rolls the account back", func(t *testing.T) {
		resolver, store, _, existingID := setupResolver(t)
		_, err := resolver.SignUp("default", SignUpRequest{ExternalID: "ext-001", SubstudyID: "sub1"}, "hash",
			func(substudyID string, identifier string, accountID string) error {
				return apperrors.ErrAlreadyExists
			}, nil)
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			t.Errorf("expected AlreadyExists, got %v", err)
		}
		if len(store.accounts) != 1 {
			t.Errorf("new account should be rolled back, got %d accounts", len(store.accounts))
		}
		if _, ok := store.accounts[existingID]; !ok {
			t.Error("pre-existing account must survive")
		}
	})

	t.Run("more than one identifier type is rejected", func(t *testing.T) {
		resolver, _, _, _ := setupResolver(t)
		_, err := resolver.SignUp("default", SignUpRequest{Email: "a@test.com", Phone: "+491701234567"}, "hash", nil, nil)
		if !errors.Is(err, apperrors.ErrInvalidEntity) {
			t.Errorf("expected InvalidEntity, got %v", err)
		}
	})

	t.Run("with phone consumes a pending intent", func(t *testing.T) {
		resolver, _, _, _ := setupResolver(t)
		claimedFor := ""
		_, err := resolver.SignUp("default", SignUpRequest{Phone: "+491701234567"}, "hash", nil,
			func(accountID string, phone string) error {
				claimedFor = phone
				return nil
			})
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if claimedFor != "+491701234567" {
			t.Errorf("unexpected intent claim: %s", claimedFor)
		}
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("releases held identifiers before delete", func(t *testing.T) {
		resolver, store, _, accountID := setupResolver(t)
		store.accounts[accountID].SetExternalID("sub1", "ext-001")

		released := []string{}
		err := resolver.DeleteAccount("default", accountID, func(substudyID string, identifier string) error {
			released = append(released, substudyID+"/"+identifier)
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if len(released) != 1 || released[0] != "sub1/ext-001" {
			t.Errorf("unexpected releases: %v", released)
		}
		if _, ok := store.accounts[accountID]; ok {
			t.Error("account should be deleted")
		}
	})
}
