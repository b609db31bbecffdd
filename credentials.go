package session

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

var _ LoginPayload = Credentials{}

// Credentials carries an identifier (email or phone) and password into the
// credential exchange.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me,omitempty"`

	// Region is the ISO 3166-1 country hint for phone identifiers,
	// defaulting to US when empty.
	Region string `json:"-"`
}

// GetIdentifier will return the identifier, normalized
func (c Credentials) GetIdentifier() string {
	return NormalizeIdentifier(c.Identifier, c.Region)
}

// GetPassword will return the password
func (c Credentials) GetPassword() string {
	return c.Password
}

// GetExtendedSession will return the remember-me flag
func (c Credentials) GetExtendedSession() bool {
	return c.RememberMe
}

// Validate will run validation rules
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.Identifier,
			validation.Required,
		),
		validation.Field(
			&c.Password,
			validation.Required,
		),
	)
}

// NormalizeIdentifier canonicalizes a login identifier: phone numbers become
// E.164, everything else is lowercased and trimmed. Identifiers that look
// like phones but do not parse are passed through trimmed, the backend gets
// the final say.
func NormalizeIdentifier(identifier, region string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return identifier
	}

	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier)
	}

	if region == "" {
		region = "US"
	}

	num, err := phonenumbers.Parse(identifier, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return identifier
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
