package idregistry

import (
	"fmt"
	"log/slog"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	"github.com/case-framework/enrollment-backend/pkg/utils"
)

// DBConnector is the slice of the participant user DB this package needs.
type DBConnector interface {
	CreateExternalIdentifier(instanceID string, extID ExternalIdentifier) (ExternalIdentifier, error)
	GetExternalIdentifier(instanceID string, substudyID string, identifier string) (ExternalIdentifier, error)
	// TryAssignExternalIdentifier must be atomic: it succeeds only while the
	// identifier is unassigned or already assigned to the same account.
	TryAssignExternalIdentifier(instanceID string, substudyID string, identifier string, accountID string) (ExternalIdentifier, error)
	ReleaseExternalIdentifier(instanceID string, substudyID string, identifier string) error
	DeleteExternalIdentifier(instanceID string, substudyID string, identifier string) error
	ListExternalIdentifiers(instanceID string, filter ListFilter) ([]ExternalIdentifier, int64, error)
}

type SubstudyChecker interface {
	SubstudyExists(instanceID string, substudyID string) (bool, error)
}

// AccountConnector keeps the account's external-ID map in sync with
// assignment state.
type AccountConnector interface {
	AttachExternalID(instanceID string, accountID string, substudyID string, identifier string) error
	DetachExternalID(instanceID string, accountID string, substudyID string) error
}

type Service struct {
	db                DBConnector
	substudies        SubstudyChecker
	accounts          AccountConnector
	validationEnabled bool
}

func NewService(db DBConnector, substudies SubstudyChecker, accounts AccountConnector, validationEnabled bool) *Service {
	return &Service{
		db:                db,
		substudies:        substudies,
		accounts:          accounts,
		validationEnabled: validationEnabled,
	}
}

// Create provisions a new external identifier. Not idempotent: a repeated
// create for the same (identifier, substudy) pair fails with AlreadyExists.
func (s *Service) Create(instanceID string, identifier string, substudyID string) (ExternalIdentifier, error) {
	if !utils.CheckIdentifierFormat(identifier) {
		return ExternalIdentifier{}, fmt.Errorf("identifier format: %w", apperrors.ErrInvalidEntity)
	}

	if s.validationEnabled {
		if substudyID == "" {
			return ExternalIdentifier{}, fmt.Errorf("substudy required: %w", apperrors.ErrInvalidEntity)
		}
		exists, err := s.substudies.SubstudyExists(instanceID, substudyID)
		if err != nil {
			return ExternalIdentifier{}, err
		}
		if !exists {
			return ExternalIdentifier{}, fmt.Errorf("unknown substudy %s: %w", substudyID, apperrors.ErrInvalidEntity)
		}
	}

	return s.db.CreateExternalIdentifier(instanceID, ExternalIdentifier{
		Identifier: identifier,
		SubstudyID: substudyID,
	})
}

// Assign binds the identifier to the account. Re-assigning to the same
// account is a no-op success; an identifier held by a different account is
// rejected with a conflict.
func (s *Service) Assign(instanceID string, substudyID string, identifier string, accountID string) (ExternalIdentifier, error) {
	current, err := s.db.GetExternalIdentifier(instanceID, substudyID, identifier)
	if err != nil {
		return ExternalIdentifier{}, err
	}

	if current.Assigned {
		if current.AccountID == accountID {
			return current, nil
		}
		return ExternalIdentifier{}, fmt.Errorf("identifier already assigned to another account: %w", apperrors.ErrAlreadyExists)
	}

	assigned, err := s.db.TryAssignExternalIdentifier(instanceID, substudyID, identifier, accountID)
	if err != nil {
		// CAS lost against a concurrent assign: re-read to decide
		recheck, getErr := s.db.GetExternalIdentifier(instanceID, substudyID, identifier)
		if getErr == nil && recheck.Assigned && recheck.AccountID == accountID {
			return recheck, nil
		}
		if getErr == nil && recheck.Assigned {
			return ExternalIdentifier{}, fmt.Errorf("identifier already assigned to another account: %w", apperrors.ErrAlreadyExists)
		}
		return ExternalIdentifier{}, err
	}

	if err := s.accounts.AttachExternalID(instanceID, accountID, substudyID, identifier); err != nil {
		// the assignment must not outlive a failed attach, otherwise the
		// identifier stays bound to an account that never received it
		if relErr := s.db.ReleaseExternalIdentifier(instanceID, substudyID, identifier); relErr != nil {
			slog.Error("could not roll back identifier assignment after failed attach",
				slog.String("instanceID", instanceID),
				slog.String("accountID", accountID),
				slog.String("error", relErr.Error()))
		}
		return ExternalIdentifier{}, err
	}
	return assigned, nil
}

// Release clears the assignment; releasing an unassigned identifier is fine.
func (s *Service) Release(instanceID string, substudyID string, identifier string) error {
	current, err := s.db.GetExternalIdentifier(instanceID, substudyID, identifier)
	if err != nil {
		return err
	}

	if current.Assigned && current.AccountID != "" {
		if err := s.accounts.DetachExternalID(instanceID, current.AccountID, substudyID); err != nil {
			return err
		}
	}
	return s.db.ReleaseExternalIdentifier(instanceID, substudyID, identifier)
}

// Delete removes the identifier. When it is still assigned, the call fails
// unless force is set; force releases the assignment from the account but
// never deletes the account itself.
func (s *Service) Delete(instanceID string, substudyID string, identifier string, force bool) error {
	current, err := s.db.GetExternalIdentifier(instanceID, substudyID, identifier)
	if err != nil {
		return err
	}

	if current.Assigned {
		if !force {
			return fmt.Errorf("identifier is assigned: %w", apperrors.ErrConstraintViolation)
		}
		if current.AccountID != "" {
			if err := s.accounts.DetachExternalID(instanceID, current.AccountID, substudyID); err != nil {
				slog.Error("could not detach external id from account",
					slog.String("instanceID", instanceID),
					slog.String("accountID", current.AccountID),
					slog.String("error", err.Error()))
				return err
			}
		}
	}
	return s.db.DeleteExternalIdentifier(instanceID, substudyID, identifier)
}

// List returns one page of identifiers starting with the prefix, together
// with the total of the full filtered set and a cursor for the next page.
// A non-nil scope restricts the result to the listed substudies; an empty
// non-nil scope matches nothing.
func (s *Service) List(instanceID string, prefix string, substudyID string, assignedFilter *bool, scope []string, pageSize int64, offsetKey string) (Page, error) {
	cursor, err := DecodeCursor(offsetKey)
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidEntity)
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	filter := ListFilter{
		Prefix:         prefix,
		SubstudyID:     substudyID,
		AssignedFilter: assignedFilter,
		PageSize:       pageSize,
		Cursor:         cursor,
	}
	if scope != nil {
		if substudyID != "" {
			inScope := false
			for _, key := range scope {
				if key == substudyID {
					inScope = true
					break
				}
			}
			if !inScope {
				return Page{Items: []ExternalIdentifier{}}, nil
			}
		} else {
			filter.Scope = scope
		}
	}
	items, total, err := s.db.ListExternalIdentifiers(instanceID, filter)
	if err != nil {
		return Page{}, err
	}

	page := Page{
		Items: items,
		Total: total,
	}
	if int64(len(items)) == pageSize && len(items) > 0 {
		last := items[len(items)-1]
		page.NextCursor = Cursor{
			LastIdentifier: last.Identifier,
			LastSubstudyID: last.SubstudyID,
		}.Encode()
	}
	return page, nil
}
