package orgmanagement

import (
	"fmt"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	studyDB "github.com/case-framework/enrollment-backend/pkg/db/study"
)

// DBConnector is the slice of the study DB this package needs.
type DBConnector interface {
	GetOrganization(instanceID string, orgID string) (studyDB.Organization, error)
	// DeleteOrganization must stay conditional on an empty member list, so a
	// concurrent member add cannot race past the check in this package.
	DeleteOrganization(instanceID string, orgID string) error
	RemoveOrganizationMember(instanceID string, orgID string, accountID string) error
}

type Service struct {
	db DBConnector
}

func NewService(db DBConnector) *Service {
	return &Service{db: db}
}

// DeleteOrganization removes the organization once no members are left.
// Deleting one with members fails so accounts are never orphaned silently.
func (s *Service) DeleteOrganization(instanceID string, orgID string) error {
	org, err := s.db.GetOrganization(instanceID, orgID)
	if err != nil {
		return err
	}
	if len(org.MemberAccountIDs) > 0 {
		return fmt.Errorf("organization still has %d members: %w", len(org.MemberAccountIDs), apperrors.ErrConstraintViolation)
	}
	return s.db.DeleteOrganization(instanceID, orgID)
}

// RemoveMember detaches the account from the organization member list.
func (s *Service) RemoveMember(instanceID string, orgID string, accountID string) error {
	return s.db.RemoveOrganizationMember(instanceID, orgID, accountID)
}
