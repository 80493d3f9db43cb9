package report

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesoptools/cesopgen/internal/records"
)

func ledgerRecord(payeeID string) records.PaymentRecord {
	return records.PaymentRecord{
		PaymentID:        "p-" + payeeID,
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
		PayeeTaxID:       "TAXDE12345678",
		PayeeVatID:       "DE123456789",
		PayeeEmail:       "billing@example.test",
		PaymentMethod:    "Card payment",
		PayeePSPID:       "BANKDE2L",
		PayeePSPName:     "Bank DE",
		PSPID:            "ACQRFR21",
		PSPName:          "Acquirer FR",
	}
}

func reportableLedger(payeeID string, n int) []records.PaymentRecord {
	out := make([]records.PaymentRecord, 0, n)
	for i := 0; i < n; i++ {
		r := ledgerRecord(payeeID)
		r.PaymentID = fmt.Sprintf("p-%s-%d", payeeID, i)
		out = append(out, r)
	}
	return out
}

func TestBuildProducesOneDeclarationPerPeriodAndPSP(t *testing.T) {
	recs := reportableLedger("M1", 26)
	q3 := reportableLedger("M2", 26)
	for i := range q3 {
		q3[i].ExecutionTime = "2025-08-10T12:00:00Z"
		q3[i].PaymentID = "q3-" + q3[i].PaymentID
	}
	recs = append(recs, q3...)

	declarations, err := Build(recs, Options{TransmittingCountry: "FR"})
	require.NoError(t, err)
	require.Len(t, declarations, 2)

	assert.Equal(t, Period{Year: 2025, Quarter: 1}, declarations[0].Period)
	assert.Equal(t, Period{Year: 2025, Quarter: 3}, declarations[1].Period)
	for _, d := range declarations {
		assert.Equal(t, "ACQRFR21", d.ReportingPSPID)
		assert.Equal(t, "Acquirer FR", d.ReportingPSPName)
		assert.Equal(t, "FR", d.TransmittingCountry)
		assert.Equal(t, MessageTypePopulated, d.MessageTypeIndic)
		assert.Len(t, d.Payees, 1)
	}
}

func TestBuildRejectsConflictingPSPNames(t *testing.T) {
	recs := reportableLedger("M1", 2)
	recs[1].PSPName = "Someone Else"

	_, err := Build(recs, Options{TransmittingCountry: "FR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple PSP names found for ACQRFR21")
}

func TestBuildBelowThresholdYieldsEmptyDeclaration(t *testing.T) {
	recs := reportableLedger("M1", 10)

	declarations, err := Build(recs, Options{TransmittingCountry: "FR"})
	require.NoError(t, err)
	require.Len(t, declarations, 1)
	assert.Empty(t, declarations[0].Payees)
	assert.Equal(t, MessageTypeEmpty, declarations[0].MessageTypeIndic)
}

func TestBuildFailsOnEmptyLedger(t *testing.T) {
	_, err := Build(nil, Options{TransmittingCountry: "FR"})
	assert.Error(t, err)
}

func TestAccountSelectionPriority(t *testing.T) {
	recs := reportableLedger("M1", 26)
	// Mix in an OBAN and two BICs; the single IBAN must win the non-BIC slot
	// and the smallest BIC ride along.
	recs[0].PayeeAccount = "DE9XA72KQPN1"
	recs[0].PayeeAccountType = "OBAN"
	recs[1].PayeeAccount = "ZANKDE2L"
	recs[1].PayeeAccountType = "BIC"
	recs[2].PayeeAccount = "AANKDE2L"
	recs[2].PayeeAccountType = "BIC"

	declarations, err := Build(recs, Options{TransmittingCountry: "FR"})
	require.NoError(t, err)
	require.Len(t, declarations, 1)
	require.Len(t, declarations[0].Payees, 1)

	accounts := declarations[0].Payees[0].Accounts
	require.Len(t, accounts, 2)
	assert.Equal(t, PayeeAccount{ID: "DE44500105175407324931", Type: "IBAN"}, accounts[0])
	assert.Equal(t, PayeeAccount{ID: "AANKDE2L", Type: "BIC"}, accounts[1])
}

func TestBICOnlyPayeeGetsRepresentative(t *testing.T) {
	recs := reportableLedger("M1", 26)
	for i := range recs {
		recs[i].PayeeAccount = "BANKDE2L"
		recs[i].PayeeAccountType = "BIC"
	}

	declarations, err := Build(recs, Options{TransmittingCountry: "FR"})
	require.NoError(t, err)
	require.Len(t, declarations[0].Payees, 1)

	payee := declarations[0].Payees[0]
	assert.Empty(t, payee.Accounts)
	require.NotNil(t, payee.Representative)
	assert.Equal(t, "BANKDE2L", payee.Representative.ID)
	assert.Equal(t, "Bank DE", payee.Representative.Name)
}

func TestRepresentativeRequiredWithoutServicingPSP(t *testing.T) {
	recs := reportableLedger("M1", 26)
	for i := range recs {
		recs[i].PayeeAccount = "BANKDE2L"
		recs[i].PayeeAccountType = "BIC"
		recs[i].PayeePSPID = ""
		recs[i].PayeePSPName = ""
	}

	_, err := Build(recs, Options{TransmittingCountry: "FR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "representative required")
}

func TestPayerSidePSPDoesNotReportEUPayees(t *testing.T) {
	recs := reportableLedger("M1", 26)
	for i := range recs {
		recs[i].PSPRole = "PAYER"
	}

	declarations, err := Build(recs, Options{TransmittingCountry: "FR"})
	require.NoError(t, err)
	require.Len(t, declarations, 1)
	assert.Empty(t, declarations[0].Payees)
	assert.Equal(t, MessageTypeEmpty, declarations[0].MessageTypeIndic)
}

func TestPayerSidePSPStillReportsNonEUPayees(t *testing.T) {
	recs := reportableLedger("M1", 26)
	for i := range recs {
		recs[i].PSPRole = "PAYER"
		recs[i].PayeeAccount = "GB82WEST12345698765432"
		recs[i].PayeePSPID = "BANKGB2L"
	}

	declarations, err := Build(recs, Options{TransmittingCountry: "FR"})
	require.NoError(t, err)
	require.Len(t, declarations, 1)
	require.Len(t, declarations[0].Payees, 1)
	assert.Equal(t, "GB", declarations[0].Payees[0].PayeeCountry)
}

func TestSplitByLicensedCountries(t *testing.T) {
	recs := reportableLedger("M1", 26)

	declarations, err := Build(recs, Options{
		TransmittingCountry: TransmittingCountryAuto,
		LicensedCountries:   []string{"DE", "FR"},
	})
	require.NoError(t, err)
	require.Len(t, declarations, 2)

	// Sorted by country: DE first. The payee's own country DE is licensed, so
	// it lands there; the FR declaration stays empty.
	assert.Equal(t, "DE", declarations[0].TransmittingCountry)
	assert.Len(t, declarations[0].Payees, 1)
	assert.Equal(t, MessageTypePopulated, declarations[0].MessageTypeIndic)

	assert.Equal(t, "FR", declarations[1].TransmittingCountry)
	assert.Empty(t, declarations[1].Payees)
	assert.Equal(t, MessageTypeEmpty, declarations[1].MessageTypeIndic)
}

func TestSplitFallsBackToPSPHomeCountry(t *testing.T) {
	recs := reportableLedger("M1", 26)

	declarations, err := Build(recs, Options{
		TransmittingCountry: TransmittingCountryAuto,
		LicensedCountries:   []string{"FR", "NL"},
	})
	require.NoError(t, err)
	require.Len(t, declarations, 2)

	// DE is not licensed; the reporting PSP's BIC is French, so FR takes it.
	assert.Equal(t, "FR", declarations[0].TransmittingCountry)
	assert.Len(t, declarations[0].Payees, 1)
	assert.Empty(t, declarations[1].Payees)
}

func TestResolveTransmittingCountry(t *testing.T) {
	got, err := resolveTransmittingCountry(TransmittingCountryAuto, "ACQRFR21")
	require.NoError(t, err)
	assert.Equal(t, "FR", got)

	got, err = resolveTransmittingCountry(" de ", "ACQRFR21")
	require.NoError(t, err)
	assert.Equal(t, "DE", got)

	_, err = resolveTransmittingCountry("", "ACQRFR21")
	assert.Error(t, err)

	_, err = resolveTransmittingCountry(TransmittingCountryAuto, "bad")
	assert.Error(t, err)
}

func TestPeriodFromTimestamp(t *testing.T) {
	period, err := PeriodFromTimestamp("2025-12-31T23:59:59Z")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2025, Quarter: 4}, period)

	period, err = PeriodFromTimestamp("2024-04-01T00:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2024, Quarter: 2}, period)

	_, err = PeriodFromTimestamp("2024-04-01")
	assert.Error(t, err)
}
