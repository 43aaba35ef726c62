package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator instance with the fraud-domain struct-tag
// rules registered.
func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}
	v.RegisterCustomValidations()
	return v
}

// Validate validates a struct. On failure the returned error's message is
// a human-readable summary (see Messages) rather than the library's
// field-path notation, since it is surfaced verbatim in the API's
// {"detail": "..."} error body.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return errors.New(Messages(verrs))
		}
		return err
	}
	return nil
}

// ValidateVar validates a single variable
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validate.Var(field, tag)
}

// tagMessages maps a custom validation tag to the human-readable
// explanation quoted in the error response.
var tagMessages = map[string]string{
	"public_ipv4":   "must be a public IPv4 address (private and loopback ranges are rejected)",
	"bin":           "must be 6 digits",
	"last4":         "must be 4 digits",
	"currency":      "must be one of PEN, USD",
	"card_brand":    "must be one of Visa, Mastercard, Amex, Discover, Diners, JCB",
	"alphanum_dash": "must contain only letters, digits, underscores and hyphens",
	"phone_digits":  "must have between 8 and 15 digits once separators are stripped",
	"email":         "must be a valid email address",
	"required":      "is required",
	"oneof":         "is not one of the allowed values",
}

// Messages renders validator.ValidationErrors as a single readable
// string, one clause per failed field, e.g.
// "customer.ip must be a public IPv4 address (...); payment.bin must be 6 digits".
func Messages(verrs validator.ValidationErrors) string {
	clauses := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed validation (%s)", fe.Tag())
		}
		clauses = append(clauses, fmt.Sprintf("%s %s", fieldPath(fe.Namespace()), msg))
	}
	return strings.Join(clauses, "; ")
}

// fieldPath strips the leading struct-type segment from a validator
// namespace (e.g. "Transaction.Customer.IP" -> "customer.ip").
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, ".")
}
