package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEUMemberState(t *testing.T) {
	assert.True(t, IsEUMemberState("DE"))
	assert.True(t, IsEUMemberState("MT"))
	assert.False(t, IsEUMemberState("GB"))
	assert.False(t, IsEUMemberState("US"))
	assert.False(t, IsEUMemberState("de"))
}

func TestIBANLength(t *testing.T) {
	n, ok := IBANLength("DE")
	require.True(t, ok)
	assert.Equal(t, 22, n)

	n, ok = IBANLength("MT")
	require.True(t, ok)
	assert.Equal(t, 31, n)

	// Non-EU countries with IBAN specifications are included.
	_, ok = IBANLength("CH")
	assert.True(t, ok)

	_, ok = IBANLength("US")
	assert.False(t, ok)
}

func TestIsAccountIdentifierTypeIsCaseSensitive(t *testing.T) {
	assert.True(t, IsAccountIdentifierType("IBAN"))
	assert.True(t, IsAccountIdentifierType("Other"))
	assert.False(t, IsAccountIdentifierType("iban"))
	assert.False(t, IsAccountIdentifierType("OTHER"))
	assert.False(t, IsAccountIdentifierType("BADTYPE"))
}

func TestCanonicalAccountType(t *testing.T) {
	got, ok := CanonicalAccountType("iban")
	require.True(t, ok)
	assert.Equal(t, "IBAN", got)

	got, ok = CanonicalAccountType(" other ")
	require.True(t, ok)
	assert.Equal(t, "Other", got)

	_, ok = CanonicalAccountType("BADTYPE")
	assert.False(t, ok)
}

func TestCurrencyForCountry(t *testing.T) {
	assert.Equal(t, "PLN", CurrencyForCountry("PL"))
	assert.Equal(t, "SEK", CurrencyForCountry("SE"))
	assert.Equal(t, "EUR", CurrencyForCountry("DE"))
	assert.Equal(t, "EUR", CurrencyForCountry("GB"))
}

func TestIBANCheckDigits(t *testing.T) {
	// Reference IBAN GB82WEST12345698765432.
	check, err := IBANCheckDigits("GB", "WEST12345698765432")
	require.NoError(t, err)
	assert.Equal(t, "82", check)
}

func TestIBANCheckDigitsRejectsBadInput(t *testing.T) {
	_, err := IBANCheckDigits("DEU", "123")
	assert.Error(t, err)

	_, err = IBANCheckDigits("DE", "12 34")
	assert.Error(t, err)
}
