package corrupt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesoptools/cesopgen/internal/records"
)

func cleanLedger(payees, perPayee int) []records.PaymentRecord {
	out := make([]records.PaymentRecord, 0, payees*perPayee)
	for p := 0; p < payees; p++ {
		payeeID := fmt.Sprintf("MER%06d", p+1)
		for n := 0; n < perPayee; n++ {
			out = append(out, records.PaymentRecord{
				PaymentID:        fmt.Sprintf("p-%d-%d", p, n),
				ExecutionTime:    "2025-02-10T12:00:00Z",
				Amount:           "50.00",
				Currency:         "EUR",
				PayerCountry:     "FR",
				PayerMSSource:    "IBAN",
				PayeeCountry:     "DE",
				PayeeID:          payeeID,
				PayeeName:        "Payee " + payeeID,
				PayeeAccount:     "DE44500105175407324931",
				PayeeAccountType: "IBAN",
				PaymentMethod:    "Card payment",
				PayeePSPID:       "BANKDE2L",
				PayeePSPName:     "Bank DE",
				PSPID:            "ACQRFR21",
				PSPName:          "Acquirer FR",
			})
		}
	}
	return out
}

func TestCorruptTargetsExpectedPayeeCount(t *testing.T) {
	recs := cleanLedger(20, 3)

	summary, err := Corrupt(recs, 0.25, 0, 1)
	require.NoError(t, err)

	// 20 payees at a 25% rate rounds to 5 targets, one fault each.
	assert.Equal(t, 5, summary.PayeesTargeted)
	faults := summary.PayeeNameMissing + summary.PayeeCountryInvalid +
		summary.AccountTypeInvalid + summary.AccountValueInvalid
	assert.Equal(t, 5, faults)
	assert.Zero(t, summary.TxCurrencyInvalid)
	assert.Zero(t, summary.TxPayerCountryInvalid)
	assert.Zero(t, summary.TxPayerSourceInvalid)
}

func TestCorruptPayeeFaultsHitEveryRecordOfThePayee(t *testing.T) {
	recs := cleanLedger(10, 4)

	_, err := Corrupt(recs, 0.3, 0, 1)
	require.NoError(t, err)

	// Within a payee either every record carries the fault or none does.
	byPayee := make(map[string][]records.PaymentRecord)
	for _, r := range recs {
		byPayee[r.PayeeID] = append(byPayee[r.PayeeID], r)
	}
	for payeeID, group := range byPayee {
		first := group[0]
		for _, r := range group[1:] {
			assert.Equal(t, first.PayeeName, r.PayeeName, "payee %s", payeeID)
			assert.Equal(t, first.PayeeCountry, r.PayeeCountry, "payee %s", payeeID)
			assert.Equal(t, first.PayeeAccount, r.PayeeAccount, "payee %s", payeeID)
			assert.Equal(t, first.PayeeAccountType, r.PayeeAccountType, "payee %s", payeeID)
		}
	}
}

func TestCorruptTransactionFaults(t *testing.T) {
	recs := cleanLedger(5, 10)

	summary, err := Corrupt(recs, 0, 1.0, 1)
	require.NoError(t, err)

	total := summary.TxCurrencyInvalid + summary.TxPayerCountryInvalid + summary.TxPayerSourceInvalid
	assert.Equal(t, len(recs), total)
	assert.Zero(t, summary.PayeesTargeted)

	for _, r := range recs {
		faulted := r.Currency == "EURO" || r.PayerCountry == "ZZ" || r.PayerMSSource == "BAD"
		assert.True(t, faulted, "record %s should carry one transaction fault", r.PaymentID)
	}
}

func TestCorruptIsDeterministic(t *testing.T) {
	first := cleanLedger(15, 3)
	second := cleanLedger(15, 3)

	s1, err := Corrupt(first, 0.3, 0.2, 42)
	require.NoError(t, err)
	s2, err := Corrupt(second, 0.3, 0.2, 42)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.Equal(t, first, second)
}

func TestCorruptRejectsBadRates(t *testing.T) {
	recs := cleanLedger(2, 2)

	_, err := Corrupt(recs, -0.1, 0, 1)
	assert.Error(t, err)

	_, err = Corrupt(recs, 0, 1.1, 1)
	assert.Error(t, err)
}

func TestCorruptZeroRatesLeaveLedgerUntouched(t *testing.T) {
	recs := cleanLedger(5, 2)
	want := cleanLedger(5, 2)

	summary, err := Corrupt(recs, 0, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	assert.Equal(t, want, recs)
}
