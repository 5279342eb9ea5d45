package types

import (
	"testing"
)

func TestIdentifierBindsAreFirstWriteWins(t *testing.T) {
	t.Run("email binds once", func(t *testing.T) {
		a := Account{}
		if !a.BindEmail("first@test.com") {
			t.Error("first bind should succeed")
		}
		if a.BindEmail("second@test.com") {
			t.Error("second bind should be a no-op")
		}
		if a.Email != "first@test.com" {
			t.Errorf("unexpected email: %s", a.Email)
		}
	})

	t.Run("phone binds once", func(t *testing.T) {
		a := Account{}
		if !a.BindPhone("+491701234567") {
			t.Error("first bind should succeed")
		}
		if a.BindPhone("+491701111111") {
			t.Error("second bind should be a no-op")
		}
		if a.Phone != "+491701234567" {
			t.Errorf("unexpected phone: %s", a.Phone)
		}
	})

	t.Run("synapse user id binds once", func(t *testing.T) {
		a := Account{}
		if !a.BindSynapseUserID("12345") {
			t.Error("first bind should succeed")
		}
		if a.BindSynapseUserID("67890") {
			t.Error("second bind should be a no-op")
		}
		if a.SynapseUserID != "12345" {
			t.Errorf("unexpected synapse user id: %s", a.SynapseUserID)
		}
	})
}

func TestEffectiveSubstudies(t *testing.T) {
	t.Run("union of direct and implied", func(t *testing.T) {
		a := Account{SubstudyIDs: []string{"sub1"}}
		a.SetExternalID("sub2", "ext-001")

		effective := a.EffectiveSubstudies()
		if len(effective) != 2 {
			t.Fatalf("unexpected set: %v", effective)
		}
	})

	t.Run("overlap is not duplicated", func(t *testing.T) {
		a := Account{SubstudyIDs: []string{"sub1"}}
		a.SetExternalID("sub1", "ext-001")

		effective := a.EffectiveSubstudies()
		if len(effective) != 1 || effective[0] != "sub1" {
			t.Errorf("unexpected set: %v", effective)
		}
	})

	t.Run("removing external id drops implied membership", func(t *testing.T) {
		a := Account{}
		a.SetExternalID("sub1", "ext-001")
		a.RemoveExternalID("sub1")

		if len(a.EffectiveSubstudies()) != 0 {
			t.Errorf("unexpected set: %v", a.EffectiveSubstudies())
		}
	})
}
