package utils

import (
	"testing"
)

func TestCheckIdentifierFormat(t *testing.T) {
	t.Run("with empty value", func(t *testing.T) {
		if CheckIdentifierFormat("") {
			t.Error("should be false")
		}
	})

	t.Run("with unsafe characters", func(t *testing.T) {
		if CheckIdentifierFormat("abc/def") {
			t.Error("should be false")
		}
		if CheckIdentifierFormat("abc def") {
			t.Error("should be false")
		}
		if CheckIdentifierFormat("abc@def") {
			t.Error("should be false")
		}
	})

	t.Run("with safe values", func(t *testing.T) {
		if !CheckIdentifierFormat("ext-id_001") {
			t.Error("should be true")
		}
		if !CheckIdentifierFormat("ABC123") {
			t.Error("should be true")
		}
	})
}

func TestSanitizeEmail(t *testing.T) {
	t.Run("with different formats", func(t *testing.T) {
		email := SanitizeEmail("\n23234@test.DE")
		if email != "23234@test.de" {
			t.Errorf("unexpected email: %s", email)
		}

		email = SanitizeEmail("  \n 23234@test.DE \n\r")
		if email != "23234@test.de" {
			t.Errorf("unexpected email: %s", email)
		}
	})
}

func TestSanitizePhoneNumber(t *testing.T) {
	t.Run("with whitespace inside", func(t *testing.T) {
		phone := SanitizePhoneNumber(" +49 170 1234567 \n")
		if phone != "+491701234567" {
			t.Errorf("unexpected phone: %s", phone)
		}
	})
}

func TestCheckEmailFormat(t *testing.T) {
	t.Run("with missing @", func(t *testing.T) {
		if CheckEmailFormat("t.t.com") {
			t.Error("should be false")
		}
	})

	t.Run("with missing top level domain", func(t *testing.T) {
		if CheckEmailFormat("t@com") {
			t.Error("should be false")
		}
	})

	t.Run("with correct format", func(t *testing.T) {
		if !CheckEmailFormat("t@t.com") {
			t.Error("should be true")
		}
	})
}

func TestCheckPhoneFormat(t *testing.T) {
	t.Run("without country code", func(t *testing.T) {
		if CheckPhoneFormat("1701234567") {
			t.Error("should be false")
		}
	})

	t.Run("with letters", func(t *testing.T) {
		if CheckPhoneFormat("+49abc") {
			t.Error("should be false")
		}
	})

	t.Run("with correct format", func(t *testing.T) {
		if !CheckPhoneFormat("+491701234567") {
			t.Error("should be true")
		}
	})
}

func TestBlurEmailAddress(t *testing.T) {
	t.Run("with different formats", func(t *testing.T) {
		email := BlurEmailAddress("a@test.de")
		if email != "a****@test.de" {
			t.Errorf("unexpected email: %s", email)
		}

		email = BlurEmailAddress("a123sdfsdfsdfa34@test.de")
		if email != "a****@test.de" {
			t.Errorf("unexpected email: %s", email)
		}

		email = BlurEmailAddress("not-an-email")
		if email != "****@**" {
			t.Errorf("unexpected email: %s", email)
		}
	})
}
