package auth

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidEmailShape is returned when an email does not look like local@domain.tld.
var ErrInvalidEmailShape = errors.New("invalid email address")

// EmailShapeMessage is shown to the user for ErrInvalidEmailShape.
const EmailShapeMessage = "Please enter a valid email address."

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmailShape checks the syntactic shape of an email address only.
func ValidateEmailShape(email string) error {
	if !emailShape.MatchString(email) {
		return ErrInvalidEmailShape
	}
	return nil
}

// CredentialError reports every problem found with a submitted credential pair.
type CredentialError struct {
	EmailErr   error
	Violations []PasswordViolation
}

func (e *CredentialError) Error() string {
	parts := make([]string, 0, 2)
	if e.EmailErr != nil {
		parts = append(parts, e.EmailErr.Error())
	}
	if len(e.Violations) > 0 {
		parts = append(parts, (&PasswordStrengthError{Violations: e.Violations}).Error())
	}
	return strings.Join(parts, " ")
}

// CheckCredentials runs the email and password checks locally so malformed
// submissions never reach the authentication backend.
func CheckCredentials(email, password string) error {
	cerr := &CredentialError{
		EmailErr:   ValidateEmailShape(strings.TrimSpace(email)),
		Violations: ValidatePasswordStrength(password),
	}
	if cerr.EmailErr == nil && len(cerr.Violations) == 0 {
		return nil
	}
	return cerr
}
