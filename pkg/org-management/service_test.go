package orgmanagement

import (
	"errors"
	"testing"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	studyDB "github.com/case-framework/enrollment-backend/pkg/db/study"
)

type fakeOrgStore struct {
	orgs map[string]studyDB.Organization
}

func (f *fakeOrgStore) GetOrganization(instanceID string, orgID string) (studyDB.Organization, error) {
	org, ok := f.orgs[orgID]
	if !ok {
		return studyDB.Organization{}, apperrors.ErrNotFound
	}
	return org, nil
}

func (f *fakeOrgStore) DeleteOrganization(instanceID string, orgID string) error {
	if _, ok := f.orgs[orgID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.orgs, orgID)
	return nil
}

func (f *fakeOrgStore) RemoveOrganizationMember(instanceID string, orgID string, accountID string) error {
	org, ok := f.orgs[orgID]
	if !ok {
		return apperrors.ErrNotFound
	}
	members := []string{}
	for _, m := range org.MemberAccountIDs {
		if m != accountID {
			members = append(members, m)
		}
	}
	org.MemberAccountIDs = members
	f.orgs[orgID] = org
	return nil
}

func TestDeleteOrganization(t *testing.T) {
	t.Run("unknown organization", func(t *testing.T) {
		s := NewService(&fakeOrgStore{orgs: map[string]studyDB.Organization{}})
		err := s.DeleteOrganization("default", "org1")
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("expected NotFound, got %v", err)
		}
	})

	t.Run("delete with members is blocked", func(t *testing.T) {
		store := &fakeOrgStore{orgs: map[string]studyDB.Organization{
			"org1": {Name: "Org 1", MemberAccountIDs: []string{"acc1"}},
		}}
		s := NewService(store)

		err := s.DeleteOrganization("default", "org1")
		if !errors.Is(err, apperrors.ErrConstraintViolation) {
			t.Errorf("expected ConstraintViolation, got %v", err)
		}
		if _, ok := store.orgs["org1"]; !ok {
			t.Error("organization should still exist")
		}
	})

	t.Run("delete succeeds after the last member is removed", func(t *testing.T) {
		store := &fakeOrgStore{orgs: map[string]studyDB.Organization{
			"org1": {Name: "Org 1", MemberAccountIDs: []string{"acc1"}},
		}}
		s := NewService(store)

		if err := s.RemoveMember("default", "org1", "acc1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if err := s.DeleteOrganization("default", "org1"); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
		}
		if _, ok := store.orgs["org1"]; ok {
			t.Error("organization should be gone")
		}
	})
}
