package consent

import (
	"errors"
	"testing"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	"github.com/case-framework/enrollment-backend/pkg/criteria"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeConsentStore struct {
	subpopulations map[string]*Subpopulation
	signatures     []Signature
	intents        []Intent
}

func newFakeConsentStore() *fakeConsentStore {
	return &fakeConsentStore{subpopulations: map[string]*Subpopulation{}}
}

func (f *fakeConsentStore) GetSubpopulationsForStudy(instanceID string, studyKey string) ([]Subpopulation, error) {
	result := []Subpopulation{}
	for _, sp := range f.subpopulations {
		if sp.StudyKey == studyKey {
			result = append(result, *sp)
		}
	}
	return result, nil
}

func (f *fakeConsentStore) GetSubpopulationByGUID(instanceID string, guid string) (Subpopulation, error) {
	sp, ok := f.subpopulations[guid]
	if !ok {
		return Subpopulation{}, apperrors.ErrNotFound
	}
	return *sp, nil
}

func (f *fakeConsentStore) GetLatestSignature(instanceID string, accountID string, subpopulationGUID string) (Signature, error) {
	var latest *Signature
	for i := range f.signatures {
		sig := f.signatures[i]
		if sig.AccountID != accountID || sig.SubpopulationGUID != subpopulationGUID {
			continue
		}
		if latest == nil || sig.Version > latest.Version {
			latest = &f.signatures[i]
		}
	}
	if latest == nil {
		return Signature{}, apperrors.ErrNotFound
	}
	return *latest, nil
}

func (f *fakeConsentStore) SaveSignature(instanceID string, signature Signature) (Signature, error) {
	signature.ID = primitive.NewObjectID()
	f.signatures = append(f.signatures, signature)
	return signature, nil
}

func (f *fakeConsentStore) PopIntent(instanceID string, phone string, studyKey string) (Intent, error) {
	for i, intent := range f.intents {
		if intent.Phone == phone && intent.StudyKey == studyKey {
			f.intents = append(f.intents[:i], f.intents[i+1:]...)
			return intent, nil
		}
	}
	return Intent{}, apperrors.ErrNotFound
}

func TestEvaluateStatus(t *testing.T) {
	subpopulation := Subpopulation{
		GUID:             "sp1",
		Criteria:         criteria.Criteria{AllOfGroups: []string{"g"}},
		Required:         true,
		PublishedVersion: 2,
	}

	t.Run("criteria mismatch means no consent required", func(t *testing.T) {
		state := EvaluateStatus(subpopulation, criteria.Context{}, nil)
		if state != CONSENT_STATE_NO_CONSENT_REQUIRED {
			t.Errorf("unexpected state: %s", state)
		}
	})

	t.Run("matching without signature", func(t *testing.T) {
		state := EvaluateStatus(subpopulation, criteria.Context{DataGroups: []string{"g"}}, nil)
		if state != CONSENT_STATE_REQUIRED_NOT_SIGNED {
			t.Errorf("unexpected state: %s", state)
		}
	})

	t.Run("signature of older version is obsolete", func(t *testing.T) {
		state := EvaluateStatus(subpopulation, criteria.Context{DataGroups: []string{"g"}}, &Signature{Version: 1})
		if state != CONSENT_STATE_SIGNED_OBSOLETE {
			t.Errorf("unexpected state: %s", state)
		}
	})

	t.Run("signature of published version is current", func(t *testing.T) {
		state := EvaluateStatus(subpopulation, criteria.Context{DataGroups: []string{"g"}}, &Signature{Version: 2})
		if state != CONSENT_STATE_SIGNED_CURRENT {
			t.Errorf("unexpected state: %s", state)
		}
	})
}

func TestConsentTransitions(t *testing.T) {
	store := newFakeConsentStore()
	store.subpopulations["sp1"] = &Subpopulation{
		GUID:             "sp1",
		StudyKey:         "study1",
		Required:         true,
		PublishedVersion: 1,
	}
	engine := NewEngine(store)
	ctx := criteria.Context{}

	t.Run("starts as required not signed", func(t *testing.T) {
		statuses, err := engine.GetConsentStatuses("default", "acc1", "study1", ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if statuses["sp1"] != CONSENT_STATE_REQUIRED_NOT_SIGNED {
			t.Errorf("unexpected state: %s", statuses["sp1"])
		}
	})

	t.Run("signing moves to signed current", func(t *testing.T) {
		sig, err := engine.SignConsent("default", "acc1", "sp1", SignatureRequest{Name: "Test Person", Birthdate: "1990-01-01", Scope: "all"}, ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if sig.Version != 1 {
			t.Errorf("signature should carry the published version, got %d", sig.Version)
		}

		statuses, err := engine.GetConsentStatuses("default", "acc1", "study1", ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if statuses["sp1"] != CONSENT_STATE_SIGNED_CURRENT {
			t.Errorf("unexpected state: %s", statuses["sp1"])
		}
	})

	t.Run("publishing a newer version makes it obsolete without any account action", func(t *testing.T) {
		store.subpopulations["sp1"].PublishedVersion = 2

		statuses, err := engine.GetConsentStatuses("default", "acc1", "study1", ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if statuses["sp1"] != CONSENT_STATE_SIGNED_OBSOLETE {
			t.Errorf("unexpected state: %s", statuses["sp1"])
		}
	})

	t.Run("re-signing recovers signed current", func(t *testing.T) {
		if _, err := engine.SignConsent("default", "acc1", "sp1", SignatureRequest{Name: "Test Person"}, ctx); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		statuses, err := engine.GetConsentStatuses("default", "acc1", "study1", ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if statuses["sp1"] != CONSENT_STATE_SIGNED_CURRENT {
			t.Errorf("unexpected state: %s", statuses["sp1"])
		}
	})

	t.Run("signing an inapplicable subpopulation is rejected", func(t *testing.T) {
		store.subpopulations["sp2"] = &Subpopulation{
			GUID:     "sp2",
			StudyKey: "study1",
			Criteria: criteria.Criteria{AllOfGroups: []string{"other"}},
		}
		_, err := engine.SignConsent("default", "acc1", "sp2", SignatureRequest{}, ctx)
		if !errors.Is(err, apperrors.ErrInvalidEntity) {
			t.Errorf("expected InvalidEntity, got %v", err)
		}
	})
}

func TestIsFullyConsented(t *testing.T) {
	store := newFakeConsentStore()
	store.subpopulations["required"] = &Subpopulation{
		GUID:             "required",
		StudyKey:         "study1",
		Required:         true,
		PublishedVersion: 1,
	}
	store.subpopulations["optional"] = &Subpopulation{
		GUID:             "optional",
		StudyKey:         "study1",
		Required:         false,
		PublishedVersion: 1,
	}
	store.subpopulations["inapplicable"] = &Subpopulation{
		GUID:             "inapplicable",
		StudyKey:         "study1",
		Required:         true,
		Criteria:         criteria.Criteria{AllOfGroups: []string{"other"}},
		PublishedVersion: 1,
	}
	engine := NewEngine(store)
	ctx := criteria.Context{}

	t.Run("unsigned required subpopulation blocks", func(t *testing.T) {
		ok, err := engine.IsFullyConsented("default", "acc1", "study1", ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if ok {
			t.Error("should not be fully consented")
		}
	})

	t.Run("signing the required subpopulation is enough", func(t *testing.T) {
		if _, err := engine.SignConsent("default", "acc1", "required", SignatureRequest{}, ctx); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		ok, err := engine.IsFullyConsented("default", "acc1", "study1", ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if !ok {
			t.Error("optional and inapplicable subpopulations must not block")
		}
	})
}

func TestClaimIntent(t *testing.T) {
	store := newFakeConsentStore()
	store.subpopulations["sp1"] = &Subpopulation{GUID: "sp1", StudyKey: "study1", PublishedVersion: 1}
	store.intents = []Intent{{
		Phone:             "+491701234567",
		StudyKey:          "study1",
		SubpopulationGUID: "sp1",
		Version:           1,
		Name:              "Test Person",
	}}
	engine := NewEngine(store)

	t.Run("claim attaches a signature", func(t *testing.T) {
		if err := engine.ClaimIntent("default", "acc1", "+491701234567", "study1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		sig, err := store.GetLatestSignature("default", "acc1", "sp1")
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if sig.Name != "Test Person" || sig.Version != 1 {
			t.Errorf("unexpected signature: %+v", sig)
		}
	})

	t.Run("intent is single use", func(t *testing.T) {
		err := engine.ClaimIntent("default", "acc2", "+491701234567", "study1")
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("expected NotFound, got %v", err)
		}
	})
}

func TestHasScopeOverlap(t *testing.T) {
	t.Run("with overlap", func(t *testing.T) {
		if !HasScopeOverlap([]string{"sub1", "sub2"}, []string{"sub2"}) {
			t.Error("should overlap")
		}
	})

	t.Run("without overlap", func(t *testing.T) {
		if HasScopeOverlap([]string{"sub1"}, []string{"sub2"}) {
			t.Error("should not overlap")
		}
	})

	t.Run("with empty scope", func(t *testing.T) {
		if HasScopeOverlap([]string{"sub1"}, nil) {
			t.Error("should not overlap")
		}
	})
}
