// Package generator produces synthetic payment ledgers with a controlled mix
// of payee activity levels, so downstream threshold analysis has interesting
// structure: most payees stay under the reporting threshold, a band sits right
// at it, and a few clear it by a wide margin.
package generator

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cesoptools/cesopgen/internal/location"
	"github.com/cesoptools/cesopgen/internal/records"
	"github.com/cesoptools/cesopgen/internal/reference"
)

// Config controls one generation run.
type Config struct {
	Records             int
	Payees              int
	MicroPayees         int
	NearThresholdPayees int
	LargePayees         int
	PSPs                int
	CrossBorderRatio    float64
	RefundRatio         float64
	MultiAccountRatio   float64
	NonEUPayeeRatio     float64
	NoAccountRatio      float64
	Year                int
	Quarter             int
}

type segment struct {
	label     string
	minTx     int
	maxTx     int
	amountMin float64
	amountMax float64
}

var (
	segmentMicro     = segment{"micro", 1, 5, 5.0, 60.0}
	segmentSmall     = segment{"small", 6, 20, 10.0, 160.0}
	segmentMid       = segment{"mid", 16, 24, 25.0, 450.0}
	segmentNearBelow = segment{"near_threshold_below", 24, 25, 20.0, 300.0}
	segmentNearAbove = segment{"near_threshold_above", 26, 27, 20.0, 300.0}
	segmentLarge     = segment{"large", 80, 140, 120.0, 2500.0}
)

type payeeAccount struct {
	id          string
	accountType string
}

type pspProfile struct {
	id   string
	name string
}

type payeeProfile struct {
	id               string
	name             string
	amountMin        float64
	amountMax        float64
	country          string
	accounts         []payeeAccount
	taxID            string
	vatID            string
	email            string
	web              string
	addressLine      string
	city             string
	postcode         string
	payeePSPID       string
	payeePSPName     string
	reportingPSPID   string
	reportingPSPName string
	pspRole          string
}

// NonEUPayeeCountries are the home countries used for out-of-scope payees and
// their servicing PSPs.
var NonEUPayeeCountries = []string{"GB", "NO", "CH", "IS", "LI", "US", "CA"}

var companyPrefixes = []string{
	"Silver", "North", "Blue", "Cobalt", "Summit", "Urban", "Prime", "Atlas", "Green", "Nova",
	"Bright", "Vertex", "Golden", "River", "Oak", "Pioneer", "Harbor", "Stone", "Apex", "Cedar",
}

var companyNouns = []string{
	"Trading", "Supply", "Commerce", "Retail", "Imports", "Exports", "Foods", "Devices",
	"Logistics", "Textiles", "Systems", "Networks", "Studio", "Labs", "Market", "Tools",
}

var companySuffixes = []string{
	"Analytics", "Architects", "Associates", "Capital", "Collective", "Consulting",
	"Dynamics", "Enterprises", "Forge", "Guild", "Holdings", "Industries", "Innovation",
	"Labs", "Logistics", "Partners", "Solutions", "Studios", "Systems", "Technologies",
	"Ventures", "Works",
}

var companyLegalSuffixes = []string{"BV", "NV", "Ltd", "LLC", "Group"}

var streetNames = []string{
	"Market", "Station", "Oak", "River", "Park", "Hill", "Lake", "Maple", "Cedar", "High",
	"Broad", "King", "Queen", "Mill", "Garden", "Main", "North", "South", "West", "East",
}

var cities = []string{
	"Dublin", "Berlin", "Paris", "Madrid", "Rome", "Lisbon", "Prague", "Vienna", "Warsaw",
	"Athens", "Helsinki", "Stockholm", "Copenhagen", "Brussels", "Amsterdam", "Luxembourg",
	"Riga", "Vilnius", "Tallinn", "Zagreb", "Sofia", "Bucharest", "Budapest", "Ljubljana",
	"Valletta",
}

// PaymentMethods is the closed set the generator draws from.
var PaymentMethods = []string{
	"Card payment",
	"Bank transfer",
	"Direct debit",
	"E-money",
	"Money Remittance",
	"Marketplace",
	"Intermediary",
}

var pspNames = []string{
	"Northshore Payments",
	"Atlas Pay",
	"BlueBridge PSP",
	"Harborline Processing",
	"Summit Payments",
}

const (
	pspRolePayee = "PAYEE"
	pspRolePayer = "PAYER"
)

// Generate produces a shuffled synthetic ledger. The same config and seed
// always yield the same records.
func Generate(cfg Config, seed int64) ([]records.PaymentRecord, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))

	plans := buildPayeePlans(cfg)
	rng.Shuffle(len(plans), func(i, j int) { plans[i], plans[j] = plans[j], plans[i] })

	counts, err := allocateCounts(rng, plans, cfg.Records)
	if err != nil {
		return nil, err
	}

	psps, err := buildPSPs(rng, cfg.PSPs)
	if err != nil {
		return nil, err
	}
	nonEUCount := cfg.PSPs / 2
	if nonEUCount < 1 {
		nonEUCount = 1
	}
	nonEUPSPs, err := buildNonEUPSPs(rng, nonEUCount)
	if err != nil {
		return nil, err
	}

	payees := buildPayees(rng, plans, psps, nonEUPSPs, cfg)

	periodStart, periodEnd, err := QuarterBounds(cfg.Year, cfg.Quarter)
	if err != nil {
		return nil, err
	}

	seenByPayee := make(map[string][]string)
	out := make([]records.PaymentRecord, 0, cfg.Records)
	for idx := range payees {
		payee := &payees[idx]
		for n := 0; n < counts[idx]; n++ {
			isRefund := rng.Float64() < cfg.RefundRatio
			corrPaymentID := ""
			if isRefund {
				if seen := seenByPayee[payee.id]; len(seen) > 0 {
					corrPaymentID = seen[rng.Intn(len(seen))]
				}
			}
			// A refund needs an earlier payment to point back at.
			isRefund = isRefund && corrPaymentID != ""

			paymentID := uuid.NewString()
			seenByPayee[payee.id] = append(seenByPayee[payee.id], paymentID)

			payerCountry := pickPayerCountry(rng, payee.country, cfg.CrossBorderRatio)
			amount := payee.amountMin + rng.Float64()*(payee.amountMax-payee.amountMin)
			method := PaymentMethods[rng.Intn(len(PaymentMethods))]

			posChance := 0.2
			if method == "Card payment" {
				posChance = 0.7
			}

			account, accountType := "", ""
			if len(payee.accounts) > 0 {
				chosen := payee.accounts[rng.Intn(len(payee.accounts))]
				account, accountType = chosen.id, chosen.accountType
			}

			out = append(out, records.PaymentRecord{
				PaymentID:        paymentID,
				ExecutionTime:    randomDatetime(rng, periodStart, periodEnd).Format("2006-01-02T15:04:05.000Z07:00"),
				Amount:           fmt.Sprintf("%.2f", amount),
				Currency:         reference.CurrencyForCountry(payerCountry),
				PayerCountry:     payerCountry,
				PayerMSSource:    pickPayerMSSource(rng),
				PayeeCountry:     payee.country,
				PayeeID:          payee.id,
				PayeeName:        payee.name,
				PayeeAccount:     account,
				PayeeAccountType: accountType,
				PayeeTaxID:       payee.taxID,
				PayeeVatID:       payee.vatID,
				PayeeEmail:       payee.email,
				PayeeWeb:         payee.web,
				PayeeAddressLine: payee.addressLine,
				PayeeCity:        payee.city,
				PayeePostcode:    payee.postcode,
				PaymentMethod:    method,
				InitiatedAtPOS:   rng.Float64() < posChance,
				IsRefund:         isRefund,
				CorrPaymentID:    corrPaymentID,
				PSPRole:          payee.pspRole,
				PayeePSPID:       payee.payeePSPID,
				PayeePSPName:     payee.payeePSPName,
				PSPID:            payee.reportingPSPID,
				PSPName:          payee.reportingPSPName,
			})
		}
	}

	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

func validateConfig(cfg Config) error {
	if cfg.Payees <= 0 {
		return fmt.Errorf("payees must be greater than 0")
	}
	if cfg.PSPs <= 0 {
		return fmt.Errorf("psps must be greater than 0")
	}
	if cfg.MicroPayees+cfg.NearThresholdPayees+cfg.LargePayees > cfg.Payees {
		return fmt.Errorf("micro/near/large payees cannot exceed total payees")
	}
	if cfg.Quarter < 1 || cfg.Quarter > 4 {
		return fmt.Errorf("quarter must be 1..4")
	}
	for _, ratio := range []struct {
		name  string
		value float64
	}{
		{"cross_border_ratio", cfg.CrossBorderRatio},
		{"refund_ratio", cfg.RefundRatio},
		{"multi_account_ratio", cfg.MultiAccountRatio},
		{"non_eu_payee_ratio", cfg.NonEUPayeeRatio},
		{"no_account_payee_ratio", cfg.NoAccountRatio},
	} {
		if ratio.value < 0 || ratio.value > 1 {
			return fmt.Errorf("%s must be 0..1", ratio.name)
		}
	}
	return nil
}

func buildPayeePlans(cfg Config) []segment {
	remaining := cfg.Payees - (cfg.MicroPayees + cfg.NearThresholdPayees + cfg.LargePayees)
	small := remaining / 2
	mid := remaining - small
	nearBelow := cfg.NearThresholdPayees / 2
	nearAbove := cfg.NearThresholdPayees - nearBelow

	plans := make([]segment, 0, cfg.Payees)
	add := func(seg segment, n int) {
		for i := 0; i < n; i++ {
			plans = append(plans, seg)
		}
	}
	add(segmentMicro, cfg.MicroPayees)
	add(segmentSmall, small)
	add(segmentMid, mid)
	add(segmentNearBelow, nearBelow)
	add(segmentNearAbove, nearAbove)
	add(segmentLarge, cfg.LargePayees)
	return plans
}

// allocateCounts gives every payee its segment minimum, then sprinkles the
// remaining records randomly without exceeding segment maxima.
func allocateCounts(rng *rand.Rand, plans []segment, totalRecords int) ([]int, error) {
	minTotal, maxTotal := 0, 0
	for _, plan := range plans {
		minTotal += plan.minTx
		maxTotal += plan.maxTx
	}
	if totalRecords < minTotal || totalRecords > maxTotal {
		return nil, fmt.Errorf("records must be between %d and %d for the chosen parameters", minTotal, maxTotal)
	}

	counts := make([]int, len(plans))
	for i, plan := range plans {
		counts[i] = plan.minTx
	}
	remaining := totalRecords - minTotal
	for remaining > 0 {
		idx := rng.Intn(len(plans))
		if counts[idx] < plans[idx].maxTx {
			counts[idx]++
			remaining--
		}
	}
	return counts, nil
}

func buildPayees(rng *rand.Rand, plans []segment, psps, nonEUPSPs []pspProfile, cfg Config) []payeeProfile {
	cores := defaultCompanyCores()
	payees := make([]payeeProfile, 0, len(plans))

	for idx, plan := range plans {
		country := pickPayeeCountry(rng, cfg.NonEUPayeeRatio)
		core := pickCompanyCore(rng, &cores)
		name := buildCompanyName(rng, core)
		slug := slugify(name)

		payeePSPIsEU := reference.IsEUMemberState(country) || len(nonEUPSPs) == 0
		var payeePSP pspProfile
		if payeePSPIsEU {
			payeePSP = psps[rng.Intn(len(psps))]
		} else {
			payeePSP = nonEUPSPs[rng.Intn(len(nonEUPSPs))]
		}
		payeePSPCountry := country
		if c, ok := location.BICCountryCode(payeePSP.id); ok {
			payeePSPCountry = c
		}

		hasAccount := rng.Float64() >= cfg.NoAccountRatio
		var accounts []payeeAccount
		if hasAccount {
			accounts = buildPayeeAccounts(rng, country, cfg.MultiAccountRatio)
		} else {
			// Accountless payees resolve through their servicing PSP, so the
			// declared country has to match the PSP's home country.
			country = payeePSPCountry
		}

		reportingPSP, role := payeePSP, pspRolePayee
		if !payeePSPIsEU {
			reportingPSP = psps[rng.Intn(len(psps))]
			role = pspRolePayer
		}

		taxChance, vatChance := identifierChances(plan.label)
		taxID, vatID := "", ""
		if rng.Float64() < taxChance {
			taxID = "TAX" + country + randomDigits(rng, 8)
		}
		if reference.IsEUMemberState(country) && rng.Float64() < vatChance {
			vatID = country + randomDigits(rng, 9)
		}

		payees = append(payees, payeeProfile{
			id:               fmt.Sprintf("MER%06d", idx+1),
			name:             name,
			amountMin:        plan.amountMin,
			amountMax:        plan.amountMax,
			country:          country,
			accounts:         accounts,
			taxID:            taxID,
			vatID:            vatID,
			email:            fmt.Sprintf("billing@%s.example", slug),
			web:              fmt.Sprintf("https://%s.example", slug),
			addressLine:      fmt.Sprintf("%d %s St", 1+rng.Intn(249), streetNames[rng.Intn(len(streetNames))]),
			city:             cities[rng.Intn(len(cities))],
			postcode:         randomDigits(rng, 5),
			payeePSPID:       payeePSP.id,
			payeePSPName:     payeePSP.name,
			reportingPSPID:   reportingPSP.id,
			reportingPSPName: reportingPSP.name,
			pspRole:          role,
		})
	}
	return payees
}

func identifierChances(label string) (taxChance, vatChance float64) {
	switch label {
	case "micro":
		return 0.2, 0.4
	case "small":
		return 0.35, 0.6
	case "mid":
		return 0.5, 0.75
	case "near_threshold_below":
		return 0.55, 0.8
	case "near_threshold_above":
		return 0.6, 0.85
	case "large":
		return 0.8, 0.95
	default:
		return 0.4, 0.6
	}
}

// buildPSPs creates count reporting PSPs, spreading the first ones across
// distinct member states so multi-PSP ledgers get distinct home countries.
func buildPSPs(rng *rand.Rand, count int) ([]pspProfile, error) {
	psps := make([]pspProfile, 0, count)
	seen := make(map[string]struct{})

	countries := append([]string(nil), reference.EUMemberStates...)
	rng.Shuffle(len(countries), func(i, j int) { countries[i], countries[j] = countries[j], countries[i] })
	uniqueTargets := count
	if uniqueTargets > len(countries) {
		uniqueTargets = len(countries)
	}
	for _, country := range countries[:uniqueTargets] {
		psp := pspProfile{id: GenerateBIC(rng, country), name: pspNames[rng.Intn(len(pspNames))]}
		if _, dup := seen[psp.id]; !dup {
			seen[psp.id] = struct{}{}
			psps = append(psps, psp)
		}
	}

	for len(psps) < count {
		country := reference.EUMemberStates[rng.Intn(len(reference.EUMemberStates))]
		psp := pspProfile{id: GenerateBIC(rng, country), name: pspNames[rng.Intn(len(pspNames))]}
		if _, dup := seen[psp.id]; !dup {
			seen[psp.id] = struct{}{}
			psps = append(psps, psp)
		}
		if len(seen) > count*10 {
			return nil, fmt.Errorf("failed to generate unique PSP identifiers")
		}
	}
	return psps, nil
}

func buildNonEUPSPs(rng *rand.Rand, count int) ([]pspProfile, error) {
	psps := make([]pspProfile, 0, count)
	seen := make(map[string]struct{})
	for len(psps) < count {
		country := NonEUPayeeCountries[rng.Intn(len(NonEUPayeeCountries))]
		psp := pspProfile{id: GenerateBIC(rng, country), name: pspNames[rng.Intn(len(pspNames))]}
		if _, dup := seen[psp.id]; !dup {
			seen[psp.id] = struct{}{}
			psps = append(psps, psp)
		}
		if len(seen) > count*10 {
			return nil, fmt.Errorf("failed to generate unique non-eu PSP identifiers")
		}
	}
	return psps, nil
}

func defaultCompanyCores() []string {
	cores := make([]string, 0, len(companyPrefixes)*len(companyNouns))
	for _, prefix := range companyPrefixes {
		for _, noun := range companyNouns {
			cores = append(cores, prefix+" "+noun)
		}
	}
	return cores
}

// pickCompanyCore draws without replacement while the pool lasts, keeping
// company names unique for typical payee counts.
func pickCompanyCore(rng *rand.Rand, pool *[]string) string {
	p := *pool
	if len(p) == 0 {
		return companyPrefixes[rng.Intn(len(companyPrefixes))] + " " + companyNouns[rng.Intn(len(companyNouns))]
	}
	idx := rng.Intn(len(p))
	core := p[idx]
	p[idx] = p[len(p)-1]
	*pool = p[:len(p)-1]
	return core
}

func buildCompanyName(rng *rand.Rand, core string) string {
	return core + " " + companySuffixes[rng.Intn(len(companySuffixes))] + " " + companyLegalSuffixes[rng.Intn(len(companyLegalSuffixes))]
}

func buildPayeeAccounts(rng *rand.Rand, country string, multiAccountRatio float64) []payeeAccount {
	id, accountType := GenerateAccountIdentifier(rng, country)
	accounts := []payeeAccount{{id: id, accountType: accountType}}
	if rng.Float64() < multiAccountRatio {
		accounts = append(accounts, payeeAccount{id: GenerateBIC(rng, country), accountType: "BIC"})
	}
	return accounts
}

// GenerateAccountIdentifier returns an account identifier valid for country:
// an IBAN when the country has an IBAN specification, otherwise an opaque
// country-prefixed identifier of type Other.
func GenerateAccountIdentifier(rng *rand.Rand, country string) (string, string) {
	if _, ok := reference.IBANLength(country); ok {
		return GenerateIBAN(rng, country), "IBAN"
	}
	return country + randomAlphanumUpper(rng, 12), "Other"
}

// GenerateIBAN builds a random IBAN with valid check digits for country.
func GenerateIBAN(rng *rand.Rand, country string) string {
	length, ok := reference.IBANLength(country)
	if !ok {
		length = 22
	}
	bban := randomDigits(rng, length-4)
	check, err := reference.IBANCheckDigits(country, bban)
	if err != nil {
		check = "00"
	}
	return country + check + bban
}

// GenerateBIC builds a random 8- or 11-character BIC homed in country.
func GenerateBIC(rng *rand.Rand, country string) string {
	bic := randomUpperLetters(rng, 4) + country + randomAlphanumUpper(rng, 2)
	if rng.Float64() < 0.7 {
		bic += randomAlphanumUpper(rng, 3)
	}
	return bic
}

func pickPayeeCountry(rng *rand.Rand, nonEURatio float64) string {
	if rng.Float64() < nonEURatio {
		return NonEUPayeeCountries[rng.Intn(len(NonEUPayeeCountries))]
	}
	return reference.EUMemberStates[rng.Intn(len(reference.EUMemberStates))]
}

func pickPayerMSSource(rng *rand.Rand) string {
	roll := rng.Float64()
	switch {
	case roll < 0.8:
		return "IBAN"
	case roll < 0.95:
		return "BIC"
	default:
		return "Other"
	}
}

func pickPayerCountry(rng *rand.Rand, payeeCountry string, crossBorderRatio float64) string {
	if !reference.IsEUMemberState(payeeCountry) {
		return reference.EUMemberStates[rng.Intn(len(reference.EUMemberStates))]
	}
	if rng.Float64() < crossBorderRatio {
		for {
			candidate := reference.EUMemberStates[rng.Intn(len(reference.EUMemberStates))]
			if candidate != payeeCountry {
				return candidate
			}
		}
	}
	return payeeCountry
}

// QuarterBounds returns the half-open UTC time range [start, end) of a
// reporting quarter.
func QuarterBounds(year, quarter int) (time.Time, time.Time, error) {
	var startMonth, nextYear, nextMonth int
	switch quarter {
	case 1:
		startMonth, nextYear, nextMonth = 1, year, 4
	case 2:
		startMonth, nextYear, nextMonth = 4, year, 7
	case 3:
		startMonth, nextYear, nextMonth = 7, year, 10
	case 4:
		startMonth, nextYear, nextMonth = 10, year+1, 1
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("quarter must be 1..4")
	}
	start := time.Date(year, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(nextYear, time.Month(nextMonth), 1, 0, 0, 0, 0, time.UTC)
	return start, end, nil
}

func randomDatetime(rng *rand.Rand, start, end time.Time) time.Time {
	secs := start.Unix() + rng.Int63n(end.Unix()-start.Unix())
	nanos := rng.Int63n(1_000_000_000)
	return time.Unix(secs, nanos).UTC()
}

func randomDigits(rng *rand.Rand, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('0' + rng.Intn(10)))
	}
	return sb.String()
}

func randomAlphanumUpper(rng *rand.Rand, n int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(charset[rng.Intn(len(charset))])
	}
	return sb.String()
}

func randomUpperLetters(rng *rand.Rand, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('A' + rng.Intn(26)))
	}
	return sb.String()
}

func slugify(input string) string {
	var sb strings.Builder
	prevDash := false
	for _, ch := range strings.ToLower(input) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			sb.WriteRune(ch)
			prevDash = false
		} else if !prevDash {
			sb.WriteByte('-')
			prevDash = true
		}
	}
	return strings.Trim(sb.String(), "-")
}
