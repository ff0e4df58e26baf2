package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate

	shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)
)

// MinSecretLength is the shortest multipass secret accepted from the admin.
const MinSecretLength = 8

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("shop_domain", validateShopDomain); err != nil {
		panic(fmt.Sprintf("failed to register shop_domain validator: %v", err))
	}
}

func validateShopDomain(fl validator.FieldLevel) bool {
	return IsShopDomain(fl.Field().String())
}

// IsShopDomain reports whether s is a canonical *.myshopify.com domain.
func IsShopDomain(s string) bool {
	return shopDomainPattern.MatchString(s)
}

// NormalizeShopDomain lower-cases and trims a shop domain and checks its shape.
func NormalizeShopDomain(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !IsShopDomain(s) {
		return "", fmt.Errorf("invalid shop domain: %q (must be <name>.myshopify.com)", SanitizeText(s))
	}
	return s, nil
}

// ValidateSecret checks a multipass secret submitted by the admin.
func ValidateSecret(secret string) error {
	if strings.TrimSpace(secret) != secret {
		return errors.New("secret must not have leading or trailing whitespace")
	}
	if len(secret) < MinSecretLength {
		return fmt.Errorf("secret must be at least %d characters", MinSecretLength)
	}
	for _, r := range secret {
		if unicode.IsControl(r) {
			return errors.New("secret must not contain control characters")
		}
	}
	return nil
}

// FieldErrors flattens validator errors into "field: rule" messages.
func FieldErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
