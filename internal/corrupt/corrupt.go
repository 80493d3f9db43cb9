// Package corrupt injects realistic data-quality faults into a ledger so the
// correction and preflight tools have something to catch. Payee-level faults
// hit every record of a targeted payee; transaction-level faults hit single
// records.
package corrupt

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/cesoptools/cesopgen/internal/records"
)

// Summary counts the faults injected by one run.
type Summary struct {
	PayeesTargeted        int
	PayeeNameMissing      int
	PayeeCountryInvalid   int
	AccountTypeInvalid    int
	AccountValueInvalid   int
	TxCurrencyInvalid     int
	TxPayerCountryInvalid int
	TxPayerSourceInvalid  int
}

type payeeCorruption int

const (
	missingName payeeCorruption = iota
	invalidCountry
	invalidAccountType
	invalidAccountValue
)

type txCorruption int

const (
	invalidCurrency txCorruption = iota
	invalidPayerCountry
	invalidPayerSource
)

// Corrupt mutates recs in place. payeeErrorRate is the fraction of payees
// that receive one payee-level fault; txErrorRate is the per-record chance of
// one transaction-level fault. The same seed reproduces the same faults.
func Corrupt(recs []records.PaymentRecord, payeeErrorRate, txErrorRate float64, seed int64) (Summary, error) {
	if payeeErrorRate < 0 || payeeErrorRate > 1 {
		return Summary{}, fmt.Errorf("payee_error_rate must be 0..1")
	}
	if txErrorRate < 0 || txErrorRate > 1 {
		return Summary{}, fmt.Errorf("tx_error_rate must be 0..1")
	}

	rng := rand.New(rand.NewSource(seed))
	var summary Summary

	byPayee := make(map[string][]int)
	for i := range recs {
		byPayee[recs[i].PayeeID] = append(byPayee[recs[i].PayeeID], i)
	}

	payeeIDs := make([]string, 0, len(byPayee))
	for id := range byPayee {
		payeeIDs = append(payeeIDs, id)
	}
	sort.Strings(payeeIDs)
	rng.Shuffle(len(payeeIDs), func(i, j int) { payeeIDs[i], payeeIDs[j] = payeeIDs[j], payeeIDs[i] })

	targets := int(float64(len(payeeIDs))*payeeErrorRate + 0.5)
	for _, payeeID := range payeeIDs[:targets] {
		summary.PayeesTargeted++
		applyPayeeCorruption(recs, byPayee[payeeID], payeeCorruption(rng.Intn(4)), &summary, rng)
	}

	for i := range recs {
		if rng.Float64() < txErrorRate {
			applyTxCorruption(&recs[i], txCorruption(rng.Intn(3)), &summary)
		}
	}
	return summary, nil
}

func applyPayeeCorruption(recs []records.PaymentRecord, indices []int, corruption payeeCorruption, summary *Summary, rng *rand.Rand) {
	switch corruption {
	case missingName:
		for _, idx := range indices {
			recs[idx].PayeeName = ""
		}
		summary.PayeeNameMissing++
	case invalidCountry:
		for _, idx := range indices {
			recs[idx].PayeeCountry = "ZZ"
		}
		summary.PayeeCountryInvalid++
	case invalidAccountType:
		account := "ACC" + randomDigits(rng, 10)
		for _, idx := range indices {
			recs[idx].PayeeAccount = account
			recs[idx].PayeeAccountType = "BADTYPE"
		}
		summary.AccountTypeInvalid++
	case invalidAccountValue:
		account := "ZZ00" + randomDigits(rng, 14)
		for _, idx := range indices {
			recs[idx].PayeeAccount = account
			recs[idx].PayeeAccountType = "IBAN"
		}
		summary.AccountValueInvalid++
	}
}

func applyTxCorruption(r *records.PaymentRecord, corruption txCorruption, summary *Summary) {
	switch corruption {
	case invalidCurrency:
		r.Currency = "EURO"
		summary.TxCurrencyInvalid++
	case invalidPayerCountry:
		r.PayerCountry = "ZZ"
		summary.TxPayerCountryInvalid++
	case invalidPayerSource:
		r.PayerMSSource = "BAD"
		summary.TxPayerSourceInvalid++
	}
}

func randomDigits(rng *rand.Rand, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte('0' + rng.Intn(10))
	}
	return string(out)
}
