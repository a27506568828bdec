package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost      = 12
	TokenKeyLength  = 32 // 256 bits
	MinPasswordLen  = 8
	MaxPasswordLen  = 72 // bcrypt ignores anything past 72 bytes
	PasswordSymbols = "@$!%*?&"
)

// PasswordRule identifies one requirement of the password checklist.
type PasswordRule string

const (
	RuleLength    PasswordRule = "length"
	RuleUppercase PasswordRule = "uppercase"
	RuleLowercase PasswordRule = "lowercase"
	RuleDigit     PasswordRule = "digit"
	RuleSymbol    PasswordRule = "symbol"
)

// PasswordViolation is a single failed requirement with its user-facing message.
type PasswordViolation struct {
	Rule    PasswordRule `json:"rule"`
	Message string       `json:"message"`
}

var passwordRuleMessages = map[PasswordRule]string{
	RuleLength:    fmt.Sprintf("At least %d characters", MinPasswordLen),
	RuleUppercase: "One uppercase letter",
	RuleLowercase: "One lowercase letter",
	RuleDigit:     "One number",
	RuleSymbol:    "One special character (" + PasswordSymbols + ")",
}

// ValidatePasswordStrength returns every violated rule, in checklist order.
// An empty result means the password is acceptable.
func ValidatePasswordStrength(password string) []PasswordViolation {
	violations := make([]PasswordViolation, 0)
	add := func(rule PasswordRule) {
		violations = append(violations, PasswordViolation{Rule: rule, Message: passwordRuleMessages[rule]})
	}

	if len(password) < MinPasswordLen {
		add(RuleLength)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		add(RuleUppercase)
	}
	if !hasLower {
		add(RuleLowercase)
	}
	if !hasDigit {
		add(RuleDigit)
	}
	if !hasSymbol {
		add(RuleSymbol)
	}

	return violations
}

// PasswordStrengthError carries the full checklist of failed rules.
type PasswordStrengthError struct {
	Violations []PasswordViolation
}

func (e *PasswordStrengthError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return "password does not meet requirements: " + strings.Join(msgs, ", ")
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordLen {
		return "", fmt.Errorf("password must be at most %d bytes", MaxPasswordLen)
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func GenerateTokenKey() (string, error) {
	bytes := make([]byte, TokenKeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(bytes), nil
}
