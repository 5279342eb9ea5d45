package pwhash

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	t.Run("produces encoded argon2id hash", func(t *testing.T) {
		hash, err := HashPassword("Tt1,.Lo%4abc")
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if !strings.HasPrefix(hash, "$argon2id$") {
			t.Errorf("unexpected hash format: %s", hash)
		}
	})

	t.Run("salting makes hashes differ", func(t *testing.T) {
		h1, _ := HashPassword("samePassword1!")
		h2, _ := HashPassword("samePassword1!")
		if h1 == h2 {
			t.Error("hashes should not be equal")
		}
	})
}

func TestComparePasswordWithHash(t *testing.T) {
	hash, err := HashPassword("correctPassword9!")
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	t.Run("with correct password", func(t *testing.T) {
		match, err := ComparePasswordWithHash(hash, "correctPassword9!")
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if !match {
			t.Error("should match")
		}
	})

	t.Run("with wrong password", func(t *testing.T) {
		match, err := ComparePasswordWithHash(hash, "wrongPassword9!")
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if match {
			t.Error("should not match")
		}
	})

	t.Run("with malformed hash", func(t *testing.T) {
		if _, err := ComparePasswordWithHash("not-a-hash", "pw"); err == nil {
			t.Error("should report format error")
		}
	})
}
