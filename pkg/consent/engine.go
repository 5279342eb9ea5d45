package consent

import (
	"errors"
	"fmt"
	"time"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	"github.com/case-framework/enrollment-backend/pkg/criteria"
)

// DBConnector is the slice of the study DB the engine needs.
type DBConnector interface {
	GetSubpopulationsForStudy(instanceID string, studyKey string) ([]Subpopulation, error)
	GetSubpopulationByGUID(instanceID string, guid string) (Subpopulation, error)
	// GetLatestSignature returns apperrors.ErrNotFound when the account has
	// never signed for the subpopulation.
	GetLatestSignature(instanceID string, accountID string, subpopulationGUID string) (Signature, error)
	SaveSignature(instanceID string, signature Signature) (Signature, error)
	// PopIntent atomically removes and returns the pending intent, so it can
	// be consumed exactly once.
	PopIntent(instanceID string, phone string, studyKey string) (Intent, error)
}

type Engine struct {
	db DBConnector
}

func NewEngine(db DBConnector) *Engine {
	return &Engine{db: db}
}

// EvaluateStatus derives the consent state for one subpopulation. Pure and
// side-effect free, safe for arbitrarily concurrent readers.
func EvaluateStatus(subpopulation Subpopulation, ctx criteria.Context, latestSignature *Signature) string {
	if !criteria.Matches(subpopulation.Criteria, ctx) {
		return CONSENT_STATE_NO_CONSENT_REQUIRED
	}
	if latestSignature == nil {
		return CONSENT_STATE_REQUIRED_NOT_SIGNED
	}
	if latestSignature.Version < subpopulation.PublishedVersion {
		return CONSENT_STATE_SIGNED_OBSOLETE
	}
	return CONSENT_STATE_SIGNED_CURRENT
}

// GetConsentStatuses computes subpopulation GUID -> state for the account.
func (e *Engine) GetConsentStatuses(instanceID string, accountID string, studyKey string, ctx criteria.Context) (map[string]string, error) {
	subpopulations, err := e.db.GetSubpopulationsForStudy(instanceID, studyKey)
	if err != nil {
		return nil, err
	}

	statuses := map[string]string{}
	for _, subpopulation := range subpopulations {
		latest, err := e.latestSignature(instanceID, accountID, subpopulation.GUID)
		if err != nil {
			return nil, err
		}
		statuses[subpopulation.GUID] = EvaluateStatus(subpopulation, ctx, latest)
	}
	return statuses, nil
}

// IsFullyConsented reports whether every required subpopulation reached
// SIGNED_CURRENT or NO_CONSENT_REQUIRED.
func (e *Engine) IsFullyConsented(instanceID string, accountID string, studyKey string, ctx criteria.Context) (bool, error) {
	subpopulations, err := e.db.GetSubpopulationsForStudy(instanceID, studyKey)
	if err != nil {
		return false, err
	}

	for _, subpopulation := range subpopulations {
		if !subpopulation.Required {
			continue
		}
		latest, err := e.latestSignature(instanceID, accountID, subpopulation.GUID)
		if err != nil {
			return false, err
		}
		switch EvaluateStatus(subpopulation, ctx, latest) {
		case CONSENT_STATE_REQUIRED_NOT_SIGNED, CONSENT_STATE_SIGNED_OBSOLETE:
			return false, nil
		}
	}
	return true, nil
}

type SignatureRequest struct {
	Name      string `json:"name"`
	Birthdate string `json:"birthdate"`
	Scope     string `json:"scope"`
}

// SignConsent records a signature for the currently published version and
// moves the pair to SIGNED_CURRENT. Signing a subpopulation whose criteria
// does not apply to the account is a configuration mismatch, not a consent.
func (e *Engine) SignConsent(instanceID string, accountID string, subpopulationGUID string, req SignatureRequest, ctx criteria.Context) (Signature, error) {
	subpopulation, err := e.db.GetSubpopulationByGUID(instanceID, subpopulationGUID)
	if err != nil {
		return Signature{}, err
	}

	if !criteria.Matches(subpopulation.Criteria, ctx) {
		return Signature{}, fmt.Errorf("subpopulation does not apply to this account: %w", apperrors.ErrInvalidEntity)
	}

	return e.db.SaveSignature(instanceID, Signature{
		AccountID:         accountID,
		SubpopulationGUID: subpopulationGUID,
		Version:           subpopulation.PublishedVersion,
		Name:              req.Name,
		Birthdate:         req.Birthdate,
		Scope:             req.Scope,
		SignedAt:          time.Now().Unix(),
	})
}

// ClaimIntent consumes a pending intent-to-participate for the phone number
// and attaches it as a signature of the new account. Exactly once: a second
// claim for the same intent finds nothing.
func (e *Engine) ClaimIntent(instanceID string, accountID string, phone string, studyKey string) error {
	intent, err := e.db.PopIntent(instanceID, phone, studyKey)
	if err != nil {
		return err
	}

	_, err = e.db.SaveSignature(instanceID, Signature{
		AccountID:         accountID,
		SubpopulationGUID: intent.SubpopulationGUID,
		Version:           intent.Version,
		Name:              intent.Name,
		Birthdate:         intent.Birthdate,
		Scope:             intent.Scope,
		SignedAt:          time.Now().Unix(),
	})
	return err
}

// HasScopeOverlap decides if a researcher scope may see an account with the
// given effective substudy set. Scope misses must surface as NotFound at the
// API, never as Unauthorized, to avoid existence leakage.
func HasScopeOverlap(effectiveSubstudies []string, viewerScope []string) bool {
	for _, substudy := range effectiveSubstudies {
		for _, scoped := range viewerScope {
			if substudy == scoped {
				return true
			}
		}
	}
	return false
}

func (e *Engine) latestSignature(instanceID string, accountID string, subpopulationGUID string) (*Signature, error) {
	signature, err := e.db.GetLatestSignature(instanceID, accountID, subpopulationGUID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &signature, nil
}
