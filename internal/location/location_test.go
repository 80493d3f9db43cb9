package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesoptools/cesopgen/internal/records"
)

func TestNormalizeCountryCode(t *testing.T) {
	got, ok := NormalizeCountryCode(" de ")
	require.True(t, ok)
	assert.Equal(t, "DE", got)

	_, ok = NormalizeCountryCode("DEU")
	assert.False(t, ok)

	_, ok = NormalizeCountryCode("D1")
	assert.False(t, ok)

	_, ok = NormalizeCountryCode("")
	assert.False(t, ok)
}

func TestBICCountryCode(t *testing.T) {
	got, ok := BICCountryCode("BANKDE2L")
	require.True(t, ok)
	assert.Equal(t, "DE", got)

	got, ok = BICCountryCode("BANKfr21XXX")
	require.True(t, ok)
	assert.Equal(t, "FR", got)

	_, ok = BICCountryCode("BANKDE2L9")
	assert.False(t, ok)

	_, ok = BICCountryCode("BANK12AB")
	assert.False(t, ok)
}

func TestAccountCountryCode(t *testing.T) {
	got, ok := AccountCountryCode("IBAN", "DE44500105175407324931")
	require.True(t, ok)
	assert.Equal(t, "DE", got)

	got, ok = AccountCountryCode("Other", "fr9XA72KQPN1")
	require.True(t, ok)
	assert.Equal(t, "FR", got)

	got, ok = AccountCountryCode("BIC", "BANKNL2A")
	require.True(t, ok)
	assert.Equal(t, "NL", got)

	_, ok = AccountCountryCode("IBAN", "1E44500105175407324931")
	assert.False(t, ok)

	_, ok = AccountCountryCode("BADTYPE", "DE44500105175407324931")
	assert.False(t, ok)

	_, ok = AccountCountryCode("IBAN", "  ")
	assert.False(t, ok)
}

func TestResolveCountryPrefersAccount(t *testing.T) {
	r := &records.PaymentRecord{
		PayeeAccount:     "ES9121000418450200051332",
		PayeeAccountType: "IBAN",
		PayeePSPID:       "BANKDE2L",
	}
	got, err := ResolveCountry(r)
	require.NoError(t, err)
	assert.Equal(t, "ES", got)
}

func TestResolveCountryFallsBackToPayeePSP(t *testing.T) {
	r := &records.PaymentRecord{
		PayeeAccount:     "1234",
		PayeeAccountType: "BADTYPE",
		PayeePSPID:       "BANKDE2L",
	}
	got, err := ResolveCountry(r)
	require.NoError(t, err)
	assert.Equal(t, "DE", got)
}

func TestResolveCountryBlankAccountUsesPayeePSP(t *testing.T) {
	r := &records.PaymentRecord{
		PayeePSPID: "BANKFR21XXX",
	}
	got, err := ResolveCountry(r)
	require.NoError(t, err)
	assert.Equal(t, "FR", got)
}

func TestResolveCountryFailsWithoutSignals(t *testing.T) {
	_, err := ResolveCountry(&records.PaymentRecord{})
	assert.Error(t, err)

	_, err = ResolveCountry(&records.PaymentRecord{
		PayeeAccount:     "1234",
		PayeeAccountType: "BADTYPE",
		PayeePSPID:       "not-a-bic",
	})
	assert.Error(t, err)
}
