// Package reference holds the static regulatory lookup tables shared by the
// analyzer, the report builder, and the synthetic data tooling: the EU member
// state list, per-country IBAN lengths, the account identifier type
// enumeration, and national currency codes.
package reference

import (
	"fmt"
	"strings"
)

// EUMemberStates is the set of participating member states. Payer countries
// outside this list never count toward reportability.
var EUMemberStates = []string{
	"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR", "DE", "GR", "HU", "IE", "IT",
	"LV", "LT", "LU", "MT", "NL", "PL", "PT", "RO", "SK", "SI", "ES", "SE",
}

// AccountIdentifierTypes is the closed enumeration accepted for
// payee_account_type and payer_ms_source.
var AccountIdentifierTypes = []string{"IBAN", "OBAN", "BIC", "Other"}

var ibanLengths = map[string]int{
	"AT": 20, "BE": 16, "BG": 22, "HR": 21, "CY": 28, "CZ": 24, "DK": 18,
	"EE": 20, "FI": 18, "FR": 27, "DE": 22, "GR": 27, "HU": 28, "IE": 22,
	"IT": 27, "LV": 21, "LT": 20, "LU": 20, "MT": 31, "NL": 18, "PL": 28,
	"PT": 25, "RO": 24, "SK": 24, "SI": 19, "ES": 24, "SE": 24, "CH": 21,
	"GB": 22, "IS": 26, "LI": 21, "NO": 15,
}

var euMembers = func() map[string]bool {
	m := make(map[string]bool, len(EUMemberStates))
	for _, ms := range EUMemberStates {
		m[ms] = true
	}
	return m
}()

// IsEUMemberState reports whether code is a participating member state.
func IsEUMemberState(code string) bool {
	return euMembers[code]
}

// IBANLength returns the national IBAN length for a country, or ok=false when
// the country has no IBAN specification.
func IBANLength(country string) (int, bool) {
	n, ok := ibanLengths[country]
	return n, ok
}

// IsAccountIdentifierType reports whether value is one of the allowed
// identifier type labels, case-sensitively.
func IsAccountIdentifierType(value string) bool {
	for _, t := range AccountIdentifierTypes {
		if t == value {
			return true
		}
	}
	return false
}

// CanonicalAccountType maps a case-insensitive identifier type label to its
// canonical spelling, or ok=false for unknown labels.
func CanonicalAccountType(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	for _, t := range AccountIdentifierTypes {
		if strings.EqualFold(t, trimmed) {
			return t, true
		}
	}
	return "", false
}

// CurrencyForCountry returns the national currency for the non-euro member
// states and EUR for everything else.
func CurrencyForCountry(country string) string {
	switch country {
	case "BG":
		return "BGN"
	case "CZ":
		return "CZK"
	case "DK":
		return "DKK"
	case "HU":
		return "HUF"
	case "PL":
		return "PLN"
	case "RO":
		return "RON"
	case "SE":
		return "SEK"
	default:
		return "EUR"
	}
}

// IBANCheckDigits computes the two ISO 13616 check digits for a country code
// and BBAN using the mod-97 scheme.
func IBANCheckDigits(country, bban string) (string, error) {
	if len(country) != 2 {
		return "", fmt.Errorf("IBAN country code must be 2 letters")
	}
	var remainder uint32
	combined := bban + country + "00"
	for _, ch := range combined {
		var chunk string
		switch {
		case ch >= '0' && ch <= '9':
			chunk = string(ch)
		case ch >= 'A' && ch <= 'Z':
			chunk = fmt.Sprintf("%d", ch-'A'+10)
		case ch >= 'a' && ch <= 'z':
			chunk = fmt.Sprintf("%d", ch-'a'+10)
		default:
			return "", fmt.Errorf("IBAN contains invalid character %q", ch)
		}
		for _, digit := range chunk {
			remainder = (remainder*10 + uint32(digit-'0')) % 97
		}
	}
	return fmt.Sprintf("%02d", 98-remainder), nil
}
