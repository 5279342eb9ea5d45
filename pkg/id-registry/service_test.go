package idregistry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
)

type fakeStore struct {
	items      map[string]*ExternalIdentifier // key: substudyID + "/" + identifier
	substudies map[string]bool
	attached   map[string]string // accountID+"/"+substudyID -> identifier
	attachErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:      map[string]*ExternalIdentifier{},
		substudies: map[string]bool{},
		attached:   map[string]string{},
	}
}

func key(substudyID, identifier string) string {
	return substudyID + "/" + identifier
}

func (f *fakeStore) CreateExternalIdentifier(instanceID string, extID ExternalIdentifier) (ExternalIdentifier, error) {
	k := key(extID.SubstudyID, extID.Identifier)
	if _, ok := f.items[k]; ok {
		return ExternalIdentifier{}, apperrors.ErrAlreadyExists
	}
	stored := extID
	f.items[k] = &stored
	return stored, nil
}

func (f *fakeStore) GetExternalIdentifier(instanceID string, substudyID string, identifier string) (ExternalIdentifier, error) {
	item, ok := f.items[key(substudyID, identifier)]
	if !ok {
		return ExternalIdentifier{}, apperrors.ErrNotFound
	}
	return *item, nil
}

func (f *fakeStore) TryAssignExternalIdentifier(instanceID string, substudyID string, identifier string, accountID string) (ExternalIdentifier, error) {
	item, ok := f.items[key(substudyID, identifier)]
	if !ok {
		return ExternalIdentifier{}, apperrors.ErrNotFound
	}
	if item.Assigned && item.AccountID != accountID {
		return ExternalIdentifier{}, apperrors.ErrNotFound
	}
	item.Assigned = true
	item.AccountID = accountID
	return *item, nil
}

func (f *fakeStore) ReleaseExternalIdentifier(instanceID string, substudyID string, identifier string) error {
	item, ok := f.items[key(substudyID, identifier)]
	if !ok {
		return apperrors.ErrNotFound
	}
	item.Assigned = false
	item.AccountID = ""
	return nil
}

func (f *fakeStore) DeleteExternalIdentifier(instanceID string, substudyID string, identifier string) error {
	k := key(substudyID, identifier)
	if _, ok := f.items[k]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.items, k)
	return nil
}

func (f *fakeStore) ListExternalIdentifiers(instanceID string, filter ListFilter) ([]ExternalIdentifier, int64, error) {
	all := []ExternalIdentifier{}
	for _, item := range f.items {
		if filter.Prefix != "" && !strings.HasPrefix(item.Identifier, filter.Prefix) {
			continue
		}
		if filter.SubstudyID != "" && item.SubstudyID != filter.SubstudyID {
			continue
		}
		if filter.SubstudyID == "" && filter.Scope != nil {
			inScope := false
			for _, key := range filter.Scope {
				if key == item.SubstudyID {
					inScope = true
					break
				}
			}
			if !inScope {
				continue
			}
		}
		if filter.AssignedFilter != nil && item.Assigned != *filter.AssignedFilter {
			continue
		}
		all = append(all, *item)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Identifier != all[j].Identifier {
			return all[i].Identifier < all[j].Identifier
		}
		return all[i].SubstudyID < all[j].SubstudyID
	})
	total := int64(len(all))

	page := []ExternalIdentifier{}
	for _, item := range all {
		if !filter.Cursor.IsZero() {
			if item.Identifier < filter.Cursor.LastIdentifier {
				continue
			}
			if item.Identifier == filter.Cursor.LastIdentifier && item.SubstudyID <= filter.Cursor.LastSubstudyID {
				continue
			}
		}
		page = append(page, item)
		if int64(len(page)) == filter.PageSize {
			break
		}
	}
	return page, total, nil
}

func (f *fakeStore) SubstudyExists(instanceID string, substudyID string) (bool, error) {
	return f.substudies[substudyID], nil
}

func (f *fakeStore) AttachExternalID(instanceID string, accountID string, substudyID string, identifier string) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached[accountID+"/"+substudyID] = identifier
	return nil
}

func (f *fakeStore) DetachExternalID(instanceID string, accountID string, substudyID string) error {
	delete(f.attached, accountID+"/"+substudyID)
	return nil
}

func newTestService(validation bool) (*Service, *fakeStore) {
	store := newFakeStore()
	store.substudies["sub1"] = true
	return NewService(store, store, store, validation), store
}

func TestCreateExternalIdentifier(t *testing.T) {
	t.Run("duplicate pair is rejected", func(t *testing.T) {
		s, _ := newTestService(true)
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
		}
		_, err := s.Create("default", "ext-001", "sub1")
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			t.Errorf("expected AlreadyExists, got %v", err)
		}
	})

	t.Run("same identifier in another substudy is fine", func(t *testing.T) {
		s, store := newTestService(true)
		store.substudies["sub2"] = true
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
		}
		if _, err := s.Create("default", "ext-001", "sub2"); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
		}
	})

	t.Run("unknown substudy with validation enabled", func(t *testing.T) {
		s, _ := newTestService(true)
		_, err := s.Create("default", "ext-002", "ghost")
		if !errors.Is(err, apperrors.ErrInvalidEntity) {
			t.Errorf("expected InvalidEntity, got %v", err)
		}
	})

	t.Run("missing substudy with validation disabled", func(t *testing.T) {
		s, _ := newTestService(false)
		if _, err := s.Create("default", "ext-003", ""); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
		}
	})

	t.Run("unsafe identifier string", func(t *testing.T) {
		s, _ := newTestService(true)
		_, err := s.Create("default", "bad id!", "sub1")
		if !errors.Is(err, apperrors.ErrInvalidEntity) {
			t.Errorf("expected InvalidEntity, got %v", err)
		}
	})
}

func TestAssignExternalIdentifier(t *testing.T) {
	t.Run("unknown identifier", func(t *testing.T) {
		s, _ := newTestService(true)
		_, err := s.Assign("default", "sub1", "ghost", "acc1")
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("expected NotFound, got %v", err)
		}
	})

	t.Run("assign then re-assign to same account is a no-op success", func(t *testing.T) {
		s, _ := newTestService(true)
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if _, err := s.Assign("default", "sub1", "ext-001", "acc1"); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
		}
		extID, err := s.Assign("default", "sub1", "ext-001", "acc1")
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
		}
		if !extID.Assigned || extID.AccountID != "acc1" {
			t.Errorf("unexpected state: %+v", extID)
		}
	})

	t.Run("assign to a different account conflicts", func(t *testing.T) {
		s, _ := newTestService(true)
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if _, err := s.Assign("default", "sub1", "ext-001", "acc1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		_, err := s.Assign("default", "sub1", "ext-001", "acc2")
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			t.Errorf("expected conflict, got %v", err)
		}
	})

	t.Run("failed attach leaves the identifier unassigned", func(t *testing.T) {
		s, store := newTestService(true)
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}

		store.attachErr = apperrors.ErrNotFound
		if _, err := s.Assign("default", "sub1", "ext-001", "ghost"); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("expected NotFound, got %v", err)
		}

		current, err := s.db.GetExternalIdentifier("default", "sub1", "ext-001")
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if current.Assigned || current.AccountID != "" {
			t.Errorf("identifier should have been released again: %+v", current)
		}

		// a later assign to a real account must still work
		store.attachErr = nil
		extID, err := s.Assign("default", "sub1", "ext-001", "acc1")
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if !extID.Assigned || extID.AccountID != "acc1" {
			t.Errorf("unexpected state: %+v", extID)
		}
	})

	t.Run("assignment attaches the id to the account", func(t *testing.T) {
		s, store := newTestService(true)
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if _, err := s.Assign("default", "sub1", "ext-001", "acc1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if store.attached["acc1/sub1"] != "ext-001" {
			t.Errorf("unexpected attachment state: %v", store.attached)
		}
	})
}

func TestReleaseExternalIdentifier(t *testing.T) {
	t.Run("release is idempotent", func(t *testing.T) {
		s, store := newTestService(true)
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if _, err := s.Assign("default", "sub1", "ext-001", "acc1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if err := s.Release("default", "sub1", "ext-001"); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
		}
		if err := s.Release("default", "sub1", "ext-001"); err != nil {
			t.Errorf("release should be idempotent: %s", err.Error())
		}
		if _, ok := store.attached["acc1/sub1"]; ok {
			t.Error("external id should be detached from the account")
		}
	})
}

func TestDeleteExternalIdentifier(t *testing.T) {
	t.Run("unknown identifier", func(t *testing.T) {
		s, _ := newTestService(true)
		err := s.Delete("default", "sub1", "ghost", false)
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("expected NotFound, got %v", err)
		}
	})

	t.Run("assigned without force is blocked", func(t *testing.T) {
		s, _ := newTestService(true)
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if _, err := s.Assign("default", "sub1", "ext-001", "acc1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		err := s.Delete("default", "sub1", "ext-001", false)
		if !errors.Is(err, apperrors.ErrConstraintViolation) {
			t.Errorf("expected ConstraintViolation, got %v", err)
		}
	})

	t.Run("force deletes and detaches but keeps the account", func(t *testing.T) {
		s, store := newTestService(true)
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if _, err := s.Assign("default", "sub1", "ext-001", "acc1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if err := s.Delete("default", "sub1", "ext-001", true); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
		}
		if _, ok := store.items["sub1/ext-001"]; ok {
			t.Error("identifier should be gone")
		}
		if _, ok := store.attached["acc1/sub1"]; ok {
			t.Error("external id should be detached from the account")
		}
	})
}

func TestListExternalIdentifiers(t *testing.T) {
	t.Run("pages concatenate without duplicates or gaps", func(t *testing.T) {
		s, _ := newTestService(true)
		n := 7
		for i := 0; i < n; i++ {
			if _, err := s.Create("default", fmt.Sprintf("pre-%03d", i), "sub1"); err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}
		}
		// one entry outside the prefix
		if _, err := s.Create("default", "other-001", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}

		seen := map[string]bool{}
		cursor := ""
		pages := 0
		for {
			page, err := s.List("default", "pre-", "", nil, nil, 3, cursor)
			if err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}
			if page.Total != int64(n) {
				t.Errorf("total should be %d on every page, got %d", n, page.Total)
			}
			for _, item := range page.Items {
				if seen[item.Identifier] {
					t.Errorf("duplicate item: %s", item.Identifier)
				}
				seen[item.Identifier] = true
			}
			pages++
			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
			if pages > n {
				t.Fatal("cursor does not terminate")
			}
		}
		if len(seen) != n {
			t.Errorf("expected %d distinct items, got %d", n, len(seen))
		}
	})

	t.Run("assigned filter", func(t *testing.T) {
		s, _ := newTestService(true)
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if _, err := s.Create("default", "ext-002", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if _, err := s.Assign("default", "sub1", "ext-001", "acc1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}

		assigned := true
		page, err := s.List("default", "", "", &assigned, nil, 10, "")
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Identifier != "ext-001" {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("scope restricts the visible substudies", func(t *testing.T) {
		s, store := newTestService(true)
		store.substudies["sub2"] = true
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if _, err := s.Create("default", "ext-002", "sub2"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}

		page, err := s.List("default", "", "", nil, []string{"sub1"}, 10, "")
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if page.Total != 1 || len(page.Items) != 1 || page.Items[0].SubstudyID != "sub1" {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("requested substudy outside the scope yields an empty page", func(t *testing.T) {
		s, store := newTestService(true)
		store.substudies["sub2"] = true
		if _, err := s.Create("default", "ext-001", "sub2"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}

		page, err := s.List("default", "", "sub2", nil, []string{"sub1"}, 10, "")
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if page.Total != 0 || len(page.Items) != 0 || page.NextCursor != "" {
			t.Errorf("expected empty page, got %+v", page)
		}
	})

	t.Run("empty scope matches nothing", func(t *testing.T) {
		s, _ := newTestService(true)
		if _, err := s.Create("default", "ext-001", "sub1"); err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}

		page, err := s.List("default", "", "", nil, []string{}, 10, "")
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if page.Total != 0 || len(page.Items) != 0 {
			t.Errorf("expected empty page, got %+v", page)
		}
	})

	t.Run("malformed offset key", func(t *testing.T) {
		s, _ := newTestService(true)
		_, err := s.List("default", "", "", nil, nil, 10, "%%%")
		if !errors.Is(err, apperrors.ErrInvalidEntity) {
			t.Errorf("expected InvalidEntity, got %v", err)
		}
	})
}
