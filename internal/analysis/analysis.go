// Package analysis decides which payees exceed the cross-border reporting
// threshold. Counting runs over a consolidation key that collapses a payee's
// multiple account identifiers onto the payee id, so a payee cannot dodge the
// threshold by spreading payments across accounts.
package analysis

import (
	"fmt"
	"strings"

	"github.com/cesoptools/cesopgen/internal/location"
	"github.com/cesoptools/cesopgen/internal/records"
	"github.com/cesoptools/cesopgen/internal/reference"
)

// DefaultThreshold is the regulatory reporting threshold: a payee becomes
// reportable with strictly more than this many qualifying transactions per
// quarter.
const DefaultThreshold = 25

// PayeeKey identifies one payee as seen by one reporting PSP. The country is
// always the resolved country, never the declared column, so the same payee
// id under two resolved countries is two identities.
type PayeeKey struct {
	PSPID        string
	PayeeID      string
	PayeeCountry string
}

// Less orders keys lexicographically over (PSPID, PayeeID, PayeeCountry).
func (k PayeeKey) Less(other PayeeKey) bool {
	if k.PSPID != other.PSPID {
		return k.PSPID < other.PSPID
	}
	if k.PayeeID != other.PayeeID {
		return k.PayeeID < other.PayeeID
	}
	return k.PayeeCountry < other.PayeeCountry
}

// identifierKey is the consolidation unit the threshold count runs over. The
// identifier is the normalized account token for single-account payees and
// the payee id for multi-identifier payees.
type identifierKey struct {
	pspID        string
	payeeCountry string
	identifier   string
}

// Stats summarizes one analyzer run.
type Stats struct {
	Threshold           int
	TotalRecords        int
	CrossBorderRecords  int
	TotalPayees         int
	PayeesOverThreshold int
}

// Analyze computes the set of reportable payee identities and the run
// statistics. It is a two-phase batch: phase one collects per-key counts,
// phase two re-derives each surviving record's key against the completed
// counts. The key choice (account token vs payee id) depends on global
// knowledge of all tokens a payee used, so phase two cannot start earlier.
func Analyze(recs []records.PaymentRecord, threshold int, includeRefunds bool) (map[PayeeKey]struct{}, Stats, error) {
	multiIdentifier, err := payeesWithMultipleIdentifiers(recs)
	if err != nil {
		return nil, Stats{}, err
	}

	counts := make(map[identifierKey]int)
	payeeSet := make(map[PayeeKey]struct{})
	crossBorder := 0

	for i := range recs {
		r := &recs[i]
		country, qualifies, err := qualifyingCountry(r, includeRefunds)
		if err != nil {
			return nil, Stats{}, err
		}
		if !qualifies {
			continue
		}

		crossBorder++
		key := payeeKey(r, country)
		payeeSet[key] = struct{}{}
		counts[identifierKeyFor(r, country, multiIdentifier)]++
	}

	reportable := make(map[PayeeKey]struct{})
	for i := range recs {
		r := &recs[i]
		country, qualifies, err := qualifyingCountry(r, includeRefunds)
		if err != nil {
			return nil, Stats{}, err
		}
		if !qualifies {
			continue
		}
		if counts[identifierKeyFor(r, country, multiIdentifier)] > threshold {
			reportable[payeeKey(r, country)] = struct{}{}
		}
	}

	stats := Stats{
		Threshold:           threshold,
		TotalRecords:        len(recs),
		CrossBorderRecords:  crossBorder,
		TotalPayees:         len(payeeSet),
		PayeesOverThreshold: len(reportable),
	}
	return reportable, stats, nil
}

// AnalyzeStats is Analyze for callers that only need the numbers.
func AnalyzeStats(recs []records.PaymentRecord, threshold int, includeRefunds bool) (Stats, error) {
	_, stats, err := Analyze(recs, threshold, includeRefunds)
	return stats, err
}

// IsCrossBorder reports whether a payment from payerCountry to the resolved
// payeeCountry is in scope: the payer must sit in a participating member
// state and the two countries must differ.
func IsCrossBorder(payerCountry, payeeCountry string) bool {
	return reference.IsEUMemberState(payerCountry) && payerCountry != payeeCountry
}

// AccountToken normalizes a record's account identifier to "type:value", or
// to a servicing-PSP token when the account column is blank.
func AccountToken(r *records.PaymentRecord) string {
	if strings.TrimSpace(r.PayeeAccount) == "" {
		return "PSP:" + strings.TrimSpace(r.PayeePSPID)
	}
	return r.PayeeAccountType + ":" + r.PayeeAccount
}

func qualifyingCountry(r *records.PaymentRecord, includeRefunds bool) (string, bool, error) {
	country, err := location.ResolveCountry(r)
	if err != nil {
		return "", false, fmt.Errorf("payment %s: %w", r.PaymentID, err)
	}
	if !IsCrossBorder(r.PayerCountry, country) {
		return country, false, nil
	}
	if r.IsRefund && !includeRefunds {
		return country, false, nil
	}
	return country, true, nil
}

func payeeKey(r *records.PaymentRecord, country string) PayeeKey {
	return PayeeKey{PSPID: r.PSPID, PayeeID: r.PayeeID, PayeeCountry: country}
}

func identifierKeyFor(r *records.PaymentRecord, country string, multiIdentifier map[PayeeKey]struct{}) identifierKey {
	identifier := AccountToken(r)
	if _, ok := multiIdentifier[payeeKey(r, country)]; ok {
		identifier = r.PayeeID
	}
	return identifierKey{pspID: r.PSPID, payeeCountry: country, identifier: identifier}
}

// payeesWithMultipleIdentifiers scans the whole batch and marks every payee
// identity that used more than one distinct account token.
func payeesWithMultipleIdentifiers(recs []records.PaymentRecord) (map[PayeeKey]struct{}, error) {
	tokens := make(map[PayeeKey]map[string]struct{})
	for i := range recs {
		r := &recs[i]
		country, err := location.ResolveCountry(r)
		if err != nil {
			return nil, fmt.Errorf("payment %s: %w", r.PaymentID, err)
		}
		key := payeeKey(r, country)
		if tokens[key] == nil {
			tokens[key] = make(map[string]struct{})
		}
		tokens[key][AccountToken(r)] = struct{}{}
	}

	multi := make(map[PayeeKey]struct{})
	for key, ids := range tokens {
		if len(ids) > 1 {
			multi[key] = struct{}{}
		}
	}
	return multi, nil
}
