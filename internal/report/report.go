// Package report assembles CESOP declarations from a payment ledger: it
// partitions records into (period, reporting PSP) buckets, filters each
// bucket down to its reportable payees, builds one payee group per reportable
// identity, and optionally splits groups across licensed member states.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cesoptools/cesopgen/internal/analysis"
	"github.com/cesoptools/cesopgen/internal/location"
	"github.com/cesoptools/cesopgen/internal/records"
	"github.com/cesoptools/cesopgen/internal/reference"
)

// TransmittingCountryAuto asks the builder to derive the transmitting country
// from the reporting PSP's BIC.
const TransmittingCountryAuto = "auto"

// Message type indicators for the MessageSpec block.
const (
	MessageTypePopulated = "CESOP100"
	MessageTypeEmpty     = "CESOP102"
)

// Period is one reporting quarter.
type Period struct {
	Year    int
	Quarter int
}

// PayeeAccount is one account identifier reported for a payee.
type PayeeAccount struct {
	ID   string
	Type string
}

// Representative references the payee's servicing PSP, reported only when the
// payee has no account identifier at all.
type Representative struct {
	ID   string
	Name string
}

// PayeeGroup is one payee's material within a declaration.
type PayeeGroup struct {
	PayeeID      string
	PayeeName    string
	PayeeCountry string
	// Accounts holds at most one non-BIC identifier plus an optional BIC.
	// Empty means the Representative carries the identification instead.
	Accounts       []PayeeAccount
	Representative *Representative
	TaxID          string
	VatID          string
	Email          string
	Web            string
	AddressLine    string
	City           string
	Postcode       string
	Transactions   []records.PaymentRecord
}

// Declaration is one fully assembled output document.
type Declaration struct {
	Period              Period
	TransmittingCountry string
	ReportingPSPID      string
	ReportingPSPName    string
	MessageTypeIndic    string
	Payees              []PayeeGroup
}

// Options configures declaration assembly.
type Options struct {
	// TransmittingCountry is a two-letter code or TransmittingCountryAuto.
	TransmittingCountry string
	// LicensedCountries, when non-empty, enables the jurisdiction splitter:
	// one declaration per licensed country and period/PSP bucket.
	LicensedCountries []string
}

type bucketKey struct {
	period  Period
	pspID   string
	pspName string
}

func (k bucketKey) less(other bucketKey) bool {
	if k.period.Year != other.period.Year {
		return k.period.Year < other.period.Year
	}
	if k.period.Quarter != other.period.Quarter {
		return k.period.Quarter < other.period.Quarter
	}
	if k.pspID != other.pspID {
		return k.pspID < other.pspID
	}
	return k.pspName < other.pspName
}

// Build assembles all declarations for a ledger. Reportability inside each
// bucket always uses the regulatory default threshold with refunds excluded,
// independent of any analyzer override used for summary statistics.
func Build(recs []records.PaymentRecord, opts Options) ([]Declaration, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("no records found in input")
	}

	buckets, err := groupByPeriodAndPSP(recs)
	if err != nil {
		return nil, err
	}

	keys := make([]bucketKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	var declarations []Declaration
	for _, key := range keys {
		bucketRecords := buckets[key]
		reportable, _, err := analysis.Analyze(bucketRecords, analysis.DefaultThreshold, false)
		if err != nil {
			return nil, err
		}

		var kept []records.PaymentRecord
		for i := range bucketRecords {
			if reportableForPSP(&bucketRecords[i]) {
				kept = append(kept, bucketRecords[i])
			}
		}

		payees, err := groupPayees(kept, reportable)
		if err != nil {
			return nil, err
		}

		if len(opts.LicensedCountries) > 0 {
			split, err := splitByLicense(payees, opts.LicensedCountries, key.pspID)
			if err != nil {
				return nil, err
			}
			countries := make([]string, 0, len(split))
			for country := range split {
				countries = append(countries, country)
			}
			sort.Strings(countries)
			for _, country := range countries {
				assigned := split[country]
				tx, err := resolveTransmittingCountry(country, key.pspID)
				if err != nil {
					return nil, err
				}
				declarations = append(declarations, newDeclaration(key, tx, assigned))
			}
			continue
		}

		tx, err := resolveTransmittingCountry(opts.TransmittingCountry, key.pspID)
		if err != nil {
			return nil, err
		}
		declarations = append(declarations, newDeclaration(key, tx, payees))
	}

	return declarations, nil
}

func newDeclaration(key bucketKey, transmittingCountry string, payees []PayeeGroup) Declaration {
	indic := MessageTypePopulated
	if len(payees) == 0 {
		indic = MessageTypeEmpty
	}
	return Declaration{
		Period:              key.period,
		TransmittingCountry: transmittingCountry,
		ReportingPSPID:      key.pspID,
		ReportingPSPName:    key.pspName,
		MessageTypeIndic:    indic,
		Payees:              payees,
	}
}

// PeriodFromTimestamp derives the reporting period from an RFC3339 execution
// timestamp.
func PeriodFromTimestamp(ts string) (Period, error) {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return Period{}, fmt.Errorf("invalid execution_time %q: %w", ts, err)
	}
	return Period{
		Year:    parsed.Year(),
		Quarter: (int(parsed.Month())-1)/3 + 1,
	}, nil
}

// groupByPeriodAndPSP partitions the ledger and enforces the PSP id to name
// uniqueness invariant across the whole input.
func groupByPeriodAndPSP(recs []records.PaymentRecord) (map[bucketKey][]records.PaymentRecord, error) {
	pspNames := make(map[string]string)
	buckets := make(map[bucketKey][]records.PaymentRecord)

	for i := range recs {
		r := &recs[i]
		period, err := PeriodFromTimestamp(r.ExecutionTime)
		if err != nil {
			return nil, err
		}
		if existing, ok := pspNames[r.PSPID]; ok {
			if existing != r.PSPName {
				return nil, fmt.Errorf("multiple PSP names found for %s: '%s' vs '%s'", r.PSPID, existing, r.PSPName)
			}
		} else {
			pspNames[r.PSPID] = r.PSPName
		}

		key := bucketKey{period: period, pspID: r.PSPID, pspName: r.PSPName}
		buckets[key] = append(buckets[key], recs[i])
	}
	return buckets, nil
}

// reportableForPSP decides whether the declaring PSP is the right reporting
// party for a record. A payer-side record whose payee PSP sits in a member
// state is excluded: the payee-side PSP reports it instead.
func reportableForPSP(r *records.PaymentRecord) bool {
	role := r.PSPRole
	if role == "" {
		role = "PAYEE"
	}
	if !strings.EqualFold(role, "PAYER") {
		return true
	}
	country, ok := location.BICCountryCode(r.PayeePSPID)
	if !ok {
		return true
	}
	return !reference.IsEUMemberState(country)
}

func groupPayees(recs []records.PaymentRecord, reportable map[analysis.PayeeKey]struct{}) ([]PayeeGroup, error) {
	groups := make(map[analysis.PayeeKey][]records.PaymentRecord)
	for i := range recs {
		r := &recs[i]
		country, err := location.ResolveCountry(r)
		if err != nil {
			return nil, fmt.Errorf("payment %s: %w", r.PaymentID, err)
		}
		if !analysis.IsCrossBorder(r.PayerCountry, country) {
			continue
		}
		key := analysis.PayeeKey{PSPID: r.PSPID, PayeeID: r.PayeeID, PayeeCountry: country}
		groups[key] = append(groups[key], recs[i])
	}

	keys := make([]analysis.PayeeKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	var payees []PayeeGroup
	for _, key := range keys {
		if _, ok := reportable[key]; !ok {
			continue
		}
		transactions := groups[key]
		first := &transactions[0]
		accounts := collectPayeeAccounts(transactions)

		var representative *Representative
		if len(accounts) == 0 {
			rep, err := findRepresentative(key, transactions)
			if err != nil {
				return nil, err
			}
			representative = rep
		}

		payees = append(payees, PayeeGroup{
			PayeeID:        key.PayeeID,
			PayeeName:      first.PayeeName,
			PayeeCountry:   key.PayeeCountry,
			Accounts:       accounts,
			Representative: representative,
			TaxID:          first.PayeeTaxID,
			VatID:          first.PayeeVatID,
			Email:          first.PayeeEmail,
			Web:            first.PayeeWeb,
			AddressLine:    first.PayeeAddressLine,
			City:           first.PayeeCity,
			Postcode:       first.PayeePostcode,
			Transactions:   transactions,
		})
	}
	return payees, nil
}

// collectPayeeAccounts selects at most one non-BIC identifier with priority
// IBAN > OBAN > Other (smallest value wins within a type), plus the smallest
// BIC when a non-BIC identifier exists.
func collectPayeeAccounts(transactions []records.PaymentRecord) []PayeeAccount {
	byType := make(map[string][]string)
	seen := make(map[string]struct{})
	for i := range transactions {
		tx := &transactions[i]
		accountID := strings.TrimSpace(tx.PayeeAccount)
		if accountID == "" {
			continue
		}
		accountType := tx.PayeeAccountType
		switch accountType {
		case "IBAN", "OBAN", "Other", "BIC":
			token := accountType + ":" + accountID
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			byType[accountType] = append(byType[accountType], accountID)
		}
	}
	for _, ids := range byType {
		sort.Strings(ids)
	}

	var accounts []PayeeAccount
	for _, accountType := range []string{"IBAN", "OBAN", "Other"} {
		if ids := byType[accountType]; len(ids) > 0 {
			accounts = append(accounts, PayeeAccount{ID: ids[0], Type: accountType})
			break
		}
	}
	if len(accounts) > 0 {
		if ids := byType["BIC"]; len(ids) > 0 {
			accounts = append(accounts, PayeeAccount{ID: ids[0], Type: "BIC"})
		}
	}
	return accounts
}

func findRepresentative(key analysis.PayeeKey, transactions []records.PaymentRecord) (*Representative, error) {
	for i := range transactions {
		tx := &transactions[i]
		if strings.TrimSpace(tx.PayeePSPID) == "" {
			continue
		}
		rep := &Representative{ID: tx.PayeePSPID}
		for j := range transactions {
			if strings.TrimSpace(transactions[j].PayeePSPName) != "" {
				rep.Name = transactions[j].PayeePSPName
				break
			}
		}
		return rep, nil
	}
	return nil, fmt.Errorf("payee %s: representative required when payee has no account identifier", key.PayeeID)
}

// splitByLicense assigns each payee group to exactly one licensed country:
// its own country if licensed, else the PSP's home country if licensed, else
// round-robin over the licensed set in sorted-payee-id order.
func splitByLicense(payees []PayeeGroup, licensed []string, pspID string) (map[string][]PayeeGroup, error) {
	assignments := make(map[string][]PayeeGroup, len(licensed))
	licensedSet := make(map[string]struct{}, len(licensed))
	for _, country := range licensed {
		assignments[country] = nil
		licensedSet[country] = struct{}{}
	}

	homeCountry, hasHome := location.BICCountryCode(pspID)

	ordered := make([]PayeeGroup, len(payees))
	copy(ordered, payees)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PayeeID < ordered[j].PayeeID })

	fallbackIdx := 0
	for _, payee := range ordered {
		if _, ok := licensedSet[payee.PayeeCountry]; ok {
			assignments[payee.PayeeCountry] = append(assignments[payee.PayeeCountry], payee)
			continue
		}
		if hasHome {
			if _, ok := licensedSet[homeCountry]; ok {
				assignments[homeCountry] = append(assignments[homeCountry], payee)
				continue
			}
		}
		country := licensed[fallbackIdx%len(licensed)]
		fallbackIdx++
		assignments[country] = append(assignments[country], payee)
	}
	return assignments, nil
}

func resolveTransmittingCountry(requested, pspID string) (string, error) {
	if strings.EqualFold(requested, TransmittingCountryAuto) {
		country, ok := location.BICCountryCode(pspID)
		if !ok {
			return "", fmt.Errorf("cannot derive transmitting country from PSP identifier %s", pspID)
		}
		return country, nil
	}
	trimmed := strings.TrimSpace(requested)
	if trimmed == "" {
		return "", fmt.Errorf("transmitting country cannot be empty")
	}
	return strings.ToUpper(trimmed), nil
}
