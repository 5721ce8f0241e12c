package security

import (
	"regexp"
	"strings"
)

var (
	shopSubdomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)
	apiVersionPattern    = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
)

// StorefrontValidator checks storefront identifiers before they reach the upstream API
type StorefrontValidator struct {
	domainSuffix string
}

// NewStorefrontValidator creates a validator for domains ending in domainSuffix
func NewStorefrontValidator(domainSuffix string) *StorefrontValidator {
	if !strings.HasPrefix(domainSuffix, ".") {
		domainSuffix = "." + domainSuffix
	}
	return &StorefrontValidator{domainSuffix: strings.ToLower(domainSuffix)}
}

// NormalizeDomain lowercases and trims a storefront domain
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// ValidDomain reports whether domain is a single subdomain followed by the configured suffix
func (v *StorefrontValidator) ValidDomain(domain string) bool {
	domain = NormalizeDomain(domain)
	sub, ok := strings.CutSuffix(domain, v.domainSuffix)
	if !ok {
		return false
	}
	return shopSubdomainPattern.MatchString(sub)
}

// ValidAPIVersion reports whether version looks like YYYY-MM
func (v *StorefrontValidator) ValidAPIVersion(version string) bool {
	return apiVersionPattern.MatchString(version)
}

// DomainSuffix returns the configured suffix including the leading dot
func (v *StorefrontValidator) DomainSuffix() string {
	return v.domainSuffix
}
