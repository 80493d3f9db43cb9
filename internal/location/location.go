// Package location derives a payee's country from account identifier or
// servicing-PSP metadata. This is the single resolution point for the whole
// pipeline: the analyzer and the report builder both call ResolveCountry and
// never fall back to the declared payee_country column.
package location

import (
	"fmt"
	"strings"

	"github.com/cesoptools/cesopgen/internal/records"
)

// NormalizeCountryCode validates a two-letter alphabetic country code and
// returns it uppercased, or ok=false.
func NormalizeCountryCode(code string) (string, bool) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != 2 || !isAlpha(trimmed) {
		return "", false
	}
	return strings.ToUpper(trimmed), true
}

// BICCountryCode extracts the country code from an 8- or 11-character BIC
// (characters 5-6), or ok=false when the value is not BIC-shaped.
func BICCountryCode(bic string) (string, bool) {
	trimmed := strings.TrimSpace(bic)
	if len(trimmed) != 8 && len(trimmed) != 11 {
		return "", false
	}
	code := trimmed[4:6]
	if !isAlpha(code) {
		return "", false
	}
	return strings.ToUpper(code), true
}

// AccountCountryCode decodes the country embedded in an account identifier.
// IBAN, OBAN and Other identifiers carry the country in their first two
// characters; BIC identifiers in characters 5-6.
func AccountCountryCode(accountType, accountID string) (string, bool) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", false
	}
	switch strings.ToUpper(strings.TrimSpace(accountType)) {
	case "IBAN", "OBAN", "OTHER":
		if len(accountID) < 2 {
			return "", false
		}
		return NormalizeCountryCode(accountID[:2])
	case "BIC":
		return BICCountryCode(accountID)
	default:
		return "", false
	}
}

// ResolveCountry determines the payee's country for a record: first from the
// account identifier, then from the payee's servicing-PSP BIC. Failure is a
// hard error for the batch; downstream grouping requires a country for every
// record.
func ResolveCountry(r *records.PaymentRecord) (string, error) {
	if strings.TrimSpace(r.PayeeAccount) != "" {
		if country, ok := AccountCountryCode(r.PayeeAccountType, r.PayeeAccount); ok {
			return country, nil
		}
		if country, ok := BICCountryCode(r.PayeePSPID); ok {
			return country, nil
		}
		return "", fmt.Errorf("payee account identifier does not encode country and payee PSP BIC is missing")
	}
	if country, ok := BICCountryCode(r.PayeePSPID); ok {
		return country, nil
	}
	return "", fmt.Errorf("payee country cannot be derived from account identifier or payee PSP BIC")
}

func isAlpha(s string) bool {
	for _, ch := range s {
		if (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') {
			return false
		}
	}
	return true
}
