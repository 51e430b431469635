package validators

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9 \-]{7,20}$`)
)

const MinPasswordLength = 6

func ValidateString(field, val string, minLen, maxLen int) error {
	length := utf8.RuneCountInString(val)
	if length < minLen || length > maxLen {
		return fmt.Errorf("%s must be between %d and %d characters", field, minLen, maxLen)
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("invalid phone number")
	}
	return nil
}

func ValidateRange(field string, val, min, max float64) error {
	if val < min || val > max {
		return fmt.Errorf("%s must be between %g and %g", field, min, max)
	}
	return nil
}

func ValidateObjectID(field, val string) error {
	if !primitive.IsValidObjectID(val) {
		return fmt.Errorf("%s is not a valid id", field)
	}
	return nil
}
