package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesoptools/cesopgen/internal/records"
)

func paymentTo(payeeID, payerCountry, account string) records.PaymentRecord {
	return records.PaymentRecord{
		PaymentID:        fmt.Sprintf("p-%s-%s-%s", payeeID, payerCountry, account),
		ExecutionTime:    "2025-02-10T12:00:00Z",
		Amount:           "50.00",
		Currency:         "EUR",
		PayerCountry:     payerCountry,
		PayerMSSource:    "IBAN",
		PayeeCountry:     "DE",
		PayeeID:          payeeID,
		PayeeName:        "Payee " + payeeID,
		PayeeAccount:     account,
		PayeeAccountType: "IBAN",
		PaymentMethod:    "Card payment",
		PayeePSPID:       "BANKDE2L",
		PayeePSPName:     "Bank DE",
		PSPID:            "ACQRFR21",
		PSPName:          "Acquirer FR",
	}
}

func repeated(n int, template records.PaymentRecord) []records.PaymentRecord {
	out := make([]records.PaymentRecord, 0, n)
	for i := 0; i < n; i++ {
		r := template
		r.PaymentID = fmt.Sprintf("%s-%d", template.PaymentID, i)
		out = append(out, r)
	}
	return out
}

func TestAnalyzeThresholdIsStrictlyGreater(t *testing.T) {
	recs := repeated(25, paymentTo("M1", "FR", "DE44500105175407324931"))

	reportable, stats, err := Analyze(recs, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Empty(t, reportable)
	assert.Equal(t, 25, stats.CrossBorderRecords)
	assert.Equal(t, 1, stats.TotalPayees)
	assert.Equal(t, 0, stats.PayeesOverThreshold)

	recs = append(recs, paymentTo("M1", "FR", "DE44500105175407324931"))
	reportable, stats, err = Analyze(recs, DefaultThreshold, false)
	require.NoError(t, err)
	require.Len(t, reportable, 1)
	assert.Contains(t, reportable, PayeeKey{PSPID: "ACQRFR21", PayeeID: "M1", PayeeCountry: "DE"})
	assert.Equal(t, 1, stats.PayeesOverThreshold)
}

func TestAnalyzeConsolidatesMultiIdentifierPayees(t *testing.T) {
	// 13 payments to each of two accounts: neither account alone crosses the
	// threshold, but the payee does once counts collapse onto the payee id.
	recs := repeated(13, paymentTo("M1", "FR", "DE44500105175407324931"))
	recs = append(recs, repeated(13, paymentTo("M1", "FR", "DE02120300000000202051"))...)

	reportable, _, err := Analyze(recs, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Len(t, reportable, 1)
}

func TestAnalyzeCountsSingleIdentifierPayeesByAccount(t *testing.T) {
	// Single-identifier payees are counted per account token; the low-volume
	// payee stays below the threshold on its own.
	recs := repeated(26, paymentTo("M1", "FR", "DE44500105175407324931"))
	recs = append(recs, repeated(2, paymentTo("M2", "FR", "DE02120300000000202051"))...)

	reportable, stats, err := Analyze(recs, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Len(t, reportable, 1)
	assert.Equal(t, 2, stats.TotalPayees)
}

func TestAnalyzeExcludesDomesticPayments(t *testing.T) {
	// Payer DE, resolved payee country DE: not cross-border.
	recs := repeated(30, paymentTo("M1", "DE", "DE44500105175407324931"))

	reportable, stats, err := Analyze(recs, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Empty(t, reportable)
	assert.Equal(t, 0, stats.CrossBorderRecords)
	assert.Equal(t, 0, stats.TotalPayees)
}

func TestAnalyzeExcludesNonEUPayers(t *testing.T) {
	recs := repeated(30, paymentTo("M1", "US", "DE44500105175407324931"))

	reportable, stats, err := Analyze(recs, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Empty(t, reportable)
	assert.Equal(t, 0, stats.CrossBorderRecords)
}

func TestAnalyzeIgnoresDeclaredPayeeCountry(t *testing.T) {
	// The declared payee_country says FR, same as the payer, but the account
	// resolves to DE so the payment still counts as cross-border.
	template := paymentTo("M1", "FR", "DE44500105175407324931")
	template.PayeeCountry = "FR"
	recs := repeated(26, template)

	reportable, _, err := Analyze(recs, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Contains(t, reportable, PayeeKey{PSPID: "ACQRFR21", PayeeID: "M1", PayeeCountry: "DE"})
}

func TestAnalyzeRefundHandling(t *testing.T) {
	recs := repeated(26, paymentTo("M1", "FR", "DE44500105175407324931"))
	recs[0].IsRefund = true
	recs[0].CorrPaymentID = recs[1].PaymentID

	reportable, _, err := Analyze(recs, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Empty(t, reportable, "refund should not count toward the threshold")

	reportable, _, err = Analyze(recs, DefaultThreshold, true)
	require.NoError(t, err)
	assert.Len(t, reportable, 1)
}

func TestAnalyzeBlankAccountUsesServicingPSPToken(t *testing.T) {
	template := paymentTo("M1", "FR", "")
	template.PayeeAccountType = ""
	recs := repeated(26, template)

	reportable, _, err := Analyze(recs, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Contains(t, reportable, PayeeKey{PSPID: "ACQRFR21", PayeeID: "M1", PayeeCountry: "DE"})
}

func TestAnalyzeFailsOnUnresolvableRecord(t *testing.T) {
	bad := paymentTo("M1", "FR", "")
	bad.PayeePSPID = "not-a-bic"
	bad.PaymentID = "bad-payment"

	_, _, err := Analyze([]records.PaymentRecord{bad}, DefaultThreshold, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-payment")
}

func TestAccountToken(t *testing.T) {
	r := paymentTo("M1", "FR", "DE44500105175407324931")
	assert.Equal(t, "IBAN:DE44500105175407324931", AccountToken(&r))

	r.PayeeAccount = " "
	assert.Equal(t, "PSP:BANKDE2L", AccountToken(&r))
}

func TestIsCrossBorder(t *testing.T) {
	assert.True(t, IsCrossBorder("FR", "DE"))
	assert.False(t, IsCrossBorder("FR", "FR"))
	assert.False(t, IsCrossBorder("US", "DE"))
	assert.True(t, IsCrossBorder("FR", "GB"))
}
