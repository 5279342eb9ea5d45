package utils

import (
	"net/mail"
	"regexp"
	"strings"
)

// CheckIdentifierFormat reports if a string value can be safely used as an
// external identifier (and as a part of an URL).
func CheckIdentifierFormat(value string) bool {
	if value == "" {
		return false
	}

	pattern := `^[a-zA-Z0-9-_]+$`
	regex := regexp.MustCompile(pattern)

	return regex.MatchString(value)
}

func SanitizeEmail(email string) string {
	email = strings.ToLower(email)
	email = strings.Trim(email, " \n\r")
	return email
}

func SanitizePhoneNumber(phone string) string {
	phone = strings.Trim(phone, " \n\r")
	phone = strings.ReplaceAll(phone, " ", "")
	return phone
}

// CheckEmailFormat to check if input string is a correct email address
func CheckEmailFormat(email string) bool {
	if len(email) > 254 {
		return false
	}
	_, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// additional regex check for correct email format
	emailRule := regexp.MustCompile(`^[a-zA-Z0-9._%+'-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRule.MatchString(email)
}

// CheckPhoneFormat expects E.164 style numbers
func CheckPhoneFormat(phone string) bool {
	phoneRule := regexp.MustCompile(`^\+[1-9]\d{6,14}$`)
	return phoneRule.MatchString(phone)
}

// BlurEmailAddress transforms an email address to reduce exposed personal info
func BlurEmailAddress(email string) string {
	items := strings.Split(email, "@")
	if len(items) < 2 || len(items[0]) < 1 {
		return "****@**"
	}
	return items[0][:1] + "****@" + items[1]
}

// BlurPhoneNumber keeps only the last two digits visible
func BlurPhoneNumber(phone string) string {
	if len(phone) < 3 {
		return "*****"
	}
	return "*****" + phone[len(phone)-2:]
}

func ContainsString(slice []string, searchTerm string) bool {
	for _, s := range slice {
		if searchTerm == s {
			return true
		}
	}
	return false
}
