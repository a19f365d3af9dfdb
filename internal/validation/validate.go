// Package validation checks customer payloads before they reach the store.
// Every function here is pure.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/apperr"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"
)

const (
	MsgEmailRequired    = "The email field is required."
	MsgEmailInvalid     = "The email field must be a valid email address."
	MsgNameInvalid      = "The name field contains invalid characters."
	MsgAddressInvalid   = "The address field contains invalid characters."
	MsgCityInvalid      = "The city field contains invalid characters."
	MsgPostalInvalid    = "The postal_code field must be a valid postal code."
	MsgCountryInvalid   = "The country field contains invalid characters."
	MsgIDImmutable      = "The id_client field cannot be modified."
	msgFieldsNotAllowed = "The following fields are not allowed: "

	// MaxFieldLength matches the width of the customers columns.
	MaxFieldLength = 255
)

// MsgFieldTooLong is the message for a value wider than its column.
func MsgFieldTooLong(field string) string {
	return fmt.Sprintf("The %s field must not exceed %d characters.", field, MaxFieldLength)
}

var (
	emailRegex      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nameRegex       = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	addressRegex    = regexp.MustCompile(`^[a-zA-Z0-9\s,'-]+$`)
	postalCodeRegex = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// immutableKeys are rejected on update before anything else is looked at.
var immutableKeys = []string{"id", "id_client"}

type fieldRule struct {
	name  string
	regex *regexp.Regexp
	msg   string
}

// Evaluated in this order; the first failure wins.
var fieldRules = []fieldRule{
	{models.FieldName, nameRegex, MsgNameInvalid},
	{models.FieldAddress, addressRegex, MsgAddressInvalid},
	{models.FieldCity, nameRegex, MsgCityInvalid},
	{models.FieldPostalCode, postalCodeRegex, MsgPostalInvalid},
	{models.FieldCountry, nameRegex, MsgCountryInvalid},
}

// ValidateForCreate checks a create payload. Email is mandatory.
func ValidateForCreate(payload map[string]any) (models.Fields, error) {
	return validate(payload, true)
}

// ValidateForUpdate checks a partial update payload. Email is optional but an
// attempt to change the identifier is always rejected first.
func ValidateForUpdate(payload map[string]any) (models.Fields, error) {
	for _, key := range immutableKeys {
		if _, ok := payload[key]; ok {
			return nil, apperr.Validation(MsgIDImmutable)
		}
	}
	return validate(payload, false)
}

func validate(payload map[string]any, isCreate bool) (models.Fields, error) {
	email, hasEmail := payload[models.FieldEmail]
	if isCreate && (!hasEmail || isEmpty(email)) {
		return nil, apperr.Validation(MsgEmailRequired)
	}
	if hasEmail && isEmpty(email) {
		// Email is required on the record, so an update may change it but not clear it.
		return nil, apperr.Validation(MsgEmailInvalid)
	}
	if hasEmail {
		s, ok := email.(string)
		if !ok || !emailRegex.MatchString(s) {
			return nil, apperr.Validation(MsgEmailInvalid)
		}
		if utf8.RuneCountInString(s) > MaxFieldLength {
			return nil, apperr.Validation(MsgFieldTooLong(models.FieldEmail))
		}
	}

	for _, rule := range fieldRules {
		v, ok := payload[rule.name]
		if !ok || isEmpty(v) {
			continue
		}
		s, isString := v.(string)
		if !isString || !rule.regex.MatchString(s) {
			return nil, apperr.Validation(rule.msg)
		}
		if utf8.RuneCountInString(s) > MaxFieldLength {
			return nil, apperr.Validation(MsgFieldTooLong(rule.name))
		}
	}

	var invalid []string
	for key := range payload {
		if !models.IsAllowedField(key) {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, apperr.Validation(msgFieldsNotAllowed + strings.Join(invalid, ", "))
	}

	fields := make(models.Fields, len(payload))
	for key, v := range payload {
		if s, ok := v.(string); ok {
			fields[key] = s
		}
	}
	return fields, nil
}

// isEmpty mirrors a falsy check: a missing value, null or "" skips the field check.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
