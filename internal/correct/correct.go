// Package correct repairs a faulty ledger into one that passes preflight.
// Per-payee fields are fixed against a correction plan derived from the whole
// group, so every record of a payee ends up with one consistent country and
// account identifier.
package correct

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cesoptools/cesopgen/internal/generator"
	"github.com/cesoptools/cesopgen/internal/location"
	"github.com/cesoptools/cesopgen/internal/records"
	"github.com/cesoptools/cesopgen/internal/reference"
)

// Summary counts the repairs applied by one run.
type Summary struct {
	TotalRecords           int
	CorrectedRecords       int
	PayeeNameFixed         int
	PayeeCountryFixed      int
	PayeeAccountTypeFixed  int
	PayeeAccountValueFixed int
	PayerCountryFixed      int
	PayerSourceFixed       int
	CurrencyFixed          int
	ExecutionTimeFixed     int
}

type payeeKey struct {
	pspID   string
	payeeID string
}

// payeePlan is the agreed end state for one payee: a single country and at
// most one account identifier shared by all its records.
type payeePlan struct {
	country     string
	accountType string
	accountID   string
	hasAccount  bool
}

// Correct mutates recs in place and reports what changed. The same seed
// reproduces the same regenerated identifiers.
func Correct(recs []records.PaymentRecord, seed int64) (Summary, error) {
	rng := rand.New(rand.NewSource(seed))
	summary := Summary{}
	plans := buildPayeePlans(recs, rng)

	for i := range recs {
		r := &recs[i]
		summary.TotalRecords++
		corrected := false

		if strings.TrimSpace(r.PaymentID) == "" {
			r.PaymentID = uuid.NewString()
			corrected = true
		}

		if !isValidTimestamp(r.ExecutionTime) {
			r.ExecutionTime = time.Now().UTC().Format(time.RFC3339)
			summary.ExecutionTimeFixed++
			corrected = true
		}

		if strings.TrimSpace(r.PayeeName) == "" {
			if strings.TrimSpace(r.PayeeID) == "" {
				r.PayeeName = "Unknown Payee"
			} else {
				r.PayeeName = "Payee " + strings.TrimSpace(r.PayeeID)
			}
			summary.PayeeNameFixed++
			corrected = true
		}

		payerCountry, ok := location.NormalizeCountryCode(r.PayerCountry)
		if !ok || !reference.IsEUMemberState(payerCountry) {
			payerCountry = fallbackPayerCountry(r.PSPID, rng)
			summary.PayerCountryFixed++
			corrected = true
		}
		r.PayerCountry = payerCountry

		if canonical, ok := reference.CanonicalAccountType(r.PayerMSSource); ok {
			if r.PayerMSSource != canonical {
				r.PayerMSSource = canonical
				summary.PayerSourceFixed++
				corrected = true
			}
		} else {
			r.PayerMSSource = "IBAN"
			summary.PayerSourceFixed++
			corrected = true
		}

		if !isValidCurrency(r.Currency) {
			r.Currency = reference.CurrencyForCountry(payerCountry)
			summary.CurrencyFixed++
			corrected = true
		}

		plan := plans[payeeKey{pspID: r.PSPID, payeeID: r.PayeeID}]
		plannedType, plannedID := "", ""
		if plan.hasAccount {
			plannedType, plannedID = plan.accountType, plan.accountID
		}
		if r.PayeeAccountType != plannedType {
			r.PayeeAccountType = plannedType
			summary.PayeeAccountTypeFixed++
			corrected = true
		}
		if r.PayeeAccount != plannedID {
			r.PayeeAccount = plannedID
			summary.PayeeAccountValueFixed++
			corrected = true
		}
		if current, ok := location.NormalizeCountryCode(r.PayeeCountry); !ok || current != plan.country {
			r.PayeeCountry = plan.country
			summary.PayeeCountryFixed++
			corrected = true
		}

		if corrected {
			summary.CorrectedRecords++
		}
	}
	return summary, nil
}

func isValidTimestamp(value string) bool {
	_, err := time.Parse(time.RFC3339, value)
	return err == nil
}

func isValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, ch := range code {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	return true
}

func buildPayeePlans(recs []records.PaymentRecord, rng *rand.Rand) map[payeeKey]payeePlan {
	groups := make(map[payeeKey][]*records.PaymentRecord)
	var order []payeeKey
	for i := range recs {
		key := payeeKey{pspID: recs[i].PSPID, payeeID: recs[i].PayeeID}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], &recs[i])
	}
	// Deterministic plan derivation: regenerated identifiers must not depend
	// on map iteration order.
	sort.Slice(order, func(i, j int) bool {
		if order[i].pspID != order[j].pspID {
			return order[i].pspID < order[j].pspID
		}
		return order[i].payeeID < order[j].payeeID
	})

	plans := make(map[payeeKey]payeePlan, len(groups))
	for _, key := range order {
		group := groups[key]
		country := deriveTargetCountry(group, rng)
		plans[key] = selectPayeeAccount(group, country, rng)
	}
	return plans
}

// deriveTargetCountry picks the payee's country with decreasing trust: a
// country decoded from a valid account identifier, then the payee PSP BIC,
// then a recognized declared country, then the reporting PSP BIC, and as a
// last resort a random member state.
func deriveTargetCountry(group []*records.PaymentRecord, rng *rand.Rand) string {
	for _, r := range group {
		if country, ok := accountCountryForRecord(r); ok {
			return country
		}
	}
	for _, r := range group {
		if country, ok := location.BICCountryCode(r.PayeePSPID); ok {
			return country
		}
	}
	for _, r := range group {
		if country, ok := normalizeKnownCountry(r.PayeeCountry); ok {
			return country
		}
	}
	if len(group) > 0 {
		if country, ok := location.BICCountryCode(group[0].PSPID); ok {
			return country
		}
	}
	return reference.EUMemberStates[rng.Intn(len(reference.EUMemberStates))]
}

func accountCountryForRecord(r *records.PaymentRecord) (string, bool) {
	accountType, ok := reference.CanonicalAccountType(r.PayeeAccountType)
	if !ok {
		return "", false
	}
	accountID := strings.TrimSpace(r.PayeeAccount)
	if accountID == "" {
		return "", false
	}
	switch accountType {
	case "IBAN":
		country, ok := location.AccountCountryCode("IBAN", accountID)
		if !ok || !isValidIBAN(accountID, country) {
			return "", false
		}
		return country, true
	case "OBAN", "Other":
		return location.AccountCountryCode(accountType, accountID)
	case "BIC":
		return location.BICCountryCode(accountID)
	}
	return "", false
}

// selectPayeeAccount keeps the smallest valid identifier already present for
// the target country, preferring IBAN over OBAN over Other. A payee that
// never carried an account and has a resolvable servicing PSP stays
// accountless; otherwise a fresh identifier is generated.
func selectPayeeAccount(group []*records.PaymentRecord, country string, rng *rand.Rand) payeePlan {
	var ibans, obans, others []string
	sawAccount := false

	for _, r := range group {
		accountID := strings.TrimSpace(r.PayeeAccount)
		if accountID == "" {
			continue
		}
		sawAccount = true
		accountType, ok := reference.CanonicalAccountType(r.PayeeAccountType)
		if !ok {
			continue
		}
		switch accountType {
		case "IBAN":
			if isValidIBAN(accountID, country) {
				ibans = append(ibans, accountID)
			}
		case "OBAN":
			if code, ok := location.AccountCountryCode("OBAN", accountID); ok && code == country {
				obans = append(obans, accountID)
			}
		case "Other":
			if code, ok := location.AccountCountryCode("Other", accountID); ok && code == country {
				others = append(others, accountID)
			}
		}
	}

	if !sawAccount && hasValidPayeePSP(group) {
		return payeePlan{country: country}
	}

	for _, candidates := range []struct {
		accountType string
		ids         []string
	}{{"IBAN", ibans}, {"OBAN", obans}, {"Other", others}} {
		if len(candidates.ids) > 0 {
			sort.Strings(candidates.ids)
			return payeePlan{country: country, accountType: candidates.accountType, accountID: candidates.ids[0], hasAccount: true}
		}
	}

	accountID, accountType := generator.GenerateAccountIdentifier(rng, country)
	return payeePlan{country: country, accountType: accountType, accountID: accountID, hasAccount: true}
}

func hasValidPayeePSP(group []*records.PaymentRecord) bool {
	for _, r := range group {
		if _, ok := location.BICCountryCode(r.PayeePSPID); ok {
			return true
		}
	}
	return false
}

func isValidIBAN(iban, country string) bool {
	if len(iban) < 4 {
		return false
	}
	for _, ch := range iban {
		if (ch < '0' || ch > '9') && (ch < 'A' || ch > 'Z') && (ch < 'a' || ch > 'z') {
			return false
		}
	}
	if strings.ToUpper(iban[:2]) != country {
		return false
	}
	expected, ok := reference.IBANLength(country)
	if !ok || len(iban) != expected {
		return false
	}
	check, err := reference.IBANCheckDigits(country, iban[4:])
	if err != nil {
		return false
	}
	return check == iban[2:4]
}

func normalizeKnownCountry(value string) (string, bool) {
	code, ok := location.NormalizeCountryCode(value)
	if !ok {
		return "", false
	}
	if !isKnownCountry(code) {
		return "", false
	}
	return code, true
}

func isKnownCountry(code string) bool {
	if reference.IsEUMemberState(code) {
		return true
	}
	if _, ok := reference.IBANLength(code); ok {
		return true
	}
	return code == "US" || code == "CA"
}

func fallbackPayerCountry(pspID string, rng *rand.Rand) string {
	if country, ok := location.BICCountryCode(pspID); ok && reference.IsEUMemberState(country) {
		return country
	}
	return reference.EUMemberStates[rng.Intn(len(reference.EUMemberStates))]
}
