package validator

import (
	"net"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	binRegex          = regexp.MustCompile(`^[0-9]{6}$`)
	last4Regex        = regexp.MustCompile(`^[0-9]{4}$`)
	currencyRegex     = regexp.MustCompile(`^(PEN|USD)$`)
	brandRegex        = regexp.MustCompile(`^(Visa|Mastercard|Amex|Discover|Diners|JCB)$`)
	alphanumDashRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	phoneDigitsRegex  = regexp.MustCompile(`[^0-9]`)
)

// RegisterCustomValidations registers the fraud-domain struct-tag rules.
func (v *Validator) RegisterCustomValidations() {
	v.validate.RegisterValidation("public_ipv4", validatePublicIPv4)
	v.validate.RegisterValidation("bin", validateBIN)
	v.validate.RegisterValidation("last4", validateLast4)
	v.validate.RegisterValidation("currency", validateCurrency)
	v.validate.RegisterValidation("card_brand", validateCardBrand)
	v.validate.RegisterValidation("alphanum_dash", validateAlphanumDash)
	v.validate.RegisterValidation("phone_digits", validatePhoneDigits)
}

// validatePhoneDigits strips separators (spaces, dashes, parens, plus
// signs) and checks the remaining digit count falls in [8, 15].
func validatePhoneDigits(fl validator.FieldLevel) bool {
	digits := phoneDigitsRegex.ReplaceAllString(fl.Field().String(), "")
	return len(digits) >= 8 && len(digits) <= 15
}

func validateAlphanumDash(fl validator.FieldLevel) bool {
	return alphanumDashRegex.MatchString(fl.Field().String())
}

// validatePublicIPv4 rejects private ranges (10/8, 172.16/12, 192.168/16)
// and loopback (127/8), per the customer.ip invariant.
func validatePublicIPv4(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	for _, block := range privateBlocks {
		if block.Contains(ip4) {
			return false
		}
	}
	return true
}

var privateBlocks = func() []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "127.0.0.0/8"} {
		_, n, _ := net.ParseCIDR(cidr)
		nets = append(nets, n)
	}
	return nets
}()

func validateBIN(fl validator.FieldLevel) bool {
	return binRegex.MatchString(fl.Field().String())
}

func validateLast4(fl validator.FieldLevel) bool {
	return last4Regex.MatchString(fl.Field().String())
}

func validateCurrency(fl validator.FieldLevel) bool {
	return currencyRegex.MatchString(fl.Field().String())
}

func validateCardBrand(fl validator.FieldLevel) bool {
	return brandRegex.MatchString(fl.Field().String())
}
