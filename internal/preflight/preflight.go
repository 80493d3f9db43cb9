// Package preflight validates a ledger before rendering: per-field format
// checks, cross-record consistency (duplicate payment ids, PSP naming, refund
// references), and a threshold analysis summary. Errors mean the ledger would
// produce a rejected declaration; warnings flag suspicious but renderable
// data.
package preflight

import (
	"fmt"
	"strings"
	"time"

	"github.com/cesoptools/cesopgen/internal/analysis"
	"github.com/cesoptools/cesopgen/internal/records"
	"github.com/cesoptools/cesopgen/internal/reference"
)

// IssueLevel classifies a finding.
type IssueLevel string

const (
	LevelError   IssueLevel = "ERROR"
	LevelWarning IssueLevel = "WARNING"
)

// Issue is one finding against one record. Row is the 1-based data row in the
// ledger, 0 when the finding is not tied to a single row.
type Issue struct {
	Level   IssueLevel
	Row     int
	Message string
}

// Report is the outcome of one preflight run.
type Report struct {
	Stats  analysis.Stats
	Issues []Issue
}

// ErrorCount returns the number of error-level issues.
func (r *Report) ErrorCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Level == LevelError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of warning-level issues.
func (r *Report) WarningCount() int {
	return len(r.Issues) - r.ErrorCount()
}

// Check validates recs and summarizes reportability at the given threshold.
func Check(recs []records.PaymentRecord, threshold int, includeRefunds bool) (Report, error) {
	var issues []Issue
	paymentIDs := make(map[string]struct{}, len(recs))
	pspNames := make(map[string]string)

	for i := range recs {
		r := &recs[i]
		row := i + 1
		issues = append(issues, validateRecord(r, row)...)

		if _, dup := paymentIDs[r.PaymentID]; dup {
			issues = append(issues, Issue{LevelError, row, "duplicate payment_id detected"})
		}
		paymentIDs[r.PaymentID] = struct{}{}

		if existing, ok := pspNames[r.PSPID]; ok {
			if existing != r.PSPName {
				issues = append(issues, Issue{LevelError, row,
					fmt.Sprintf("multiple PSP names found for %s: '%s' vs '%s'", r.PSPID, existing, r.PSPName)})
			}
		} else {
			pspNames[r.PSPID] = r.PSPName
		}
	}

	for i := range recs {
		r := &recs[i]
		if r.IsRefund && r.CorrPaymentID != "" {
			if _, ok := paymentIDs[r.CorrPaymentID]; !ok {
				issues = append(issues, Issue{LevelWarning, i + 1,
					fmt.Sprintf("refund references missing payment_id %s", r.CorrPaymentID)})
			}
		}
	}

	stats, err := analysis.AnalyzeStats(recs, threshold, includeRefunds)
	if err != nil {
		// A ledger the analyzer cannot resolve still gets a report; the
		// failure surfaces as an error-level issue instead.
		issues = append(issues, Issue{LevelError, 0, err.Error()})
		stats = analysis.Stats{Threshold: threshold, TotalRecords: len(recs)}
	}

	return Report{Stats: stats, Issues: issues}, nil
}

func validateRecord(r *records.PaymentRecord, row int) []Issue {
	var issues []Issue
	errorf := func(msg string) { issues = append(issues, Issue{LevelError, row, msg}) }
	warnf := func(msg string) { issues = append(issues, Issue{LevelWarning, row, msg}) }

	if strings.TrimSpace(r.PaymentID) == "" {
		errorf("payment_id is required")
	}
	if strings.TrimSpace(r.ExecutionTime) == "" {
		errorf("execution_time is required")
	} else if _, err := time.Parse(time.RFC3339, r.ExecutionTime); err != nil {
		errorf("execution_time must be RFC3339 with timezone")
	}
	if !isValidAmount(r.Amount) {
		errorf("amount must be a decimal with two digits")
	}
	if !isValidCurrency(r.Currency) {
		errorf("currency must be ISO-4217 alpha-3")
	}
	if !isValidCountry(r.PayerCountry) {
		errorf("payer_country must be ISO-3166 alpha-2")
	} else if !reference.IsEUMemberState(r.PayerCountry) {
		errorf("payer_country must be an EU Member State")
	}
	if !isValidCountry(r.PayeeCountry) {
		errorf("payee_country must be ISO-3166 alpha-2")
	}
	if r.PayerCountry == r.PayeeCountry {
		warnf("payment is not cross-border (not reportable)")
	}
	if strings.TrimSpace(r.PayeeID) == "" {
		errorf("payee_id is required")
	}
	if strings.TrimSpace(r.PayeeName) == "" {
		errorf("payee_name is required")
	}
	if strings.TrimSpace(r.PayeeAccount) == "" {
		errorf("payee_account is required")
	}
	if !reference.IsAccountIdentifierType(r.PayeeAccountType) {
		errorf("payee_account_type must be IBAN/OBAN/BIC/Other")
	} else if r.PayeeAccountType == "IBAN" {
		issues = append(issues, validateIBAN(r.PayeeAccount, r.PayeeCountry, row)...)
	}
	if !reference.IsAccountIdentifierType(r.PayerMSSource) {
		errorf("payer_ms_source must be IBAN/OBAN/BIC/Other")
	}
	if strings.TrimSpace(r.PaymentMethod) == "" {
		errorf("payment_method is required")
	}
	if r.IsRefund && r.CorrPaymentID == "" {
		errorf("refunds must include corr_payment_id")
	}
	if !r.IsRefund && r.CorrPaymentID != "" {
		warnf("corr_payment_id set on non-refund")
	}
	if strings.TrimSpace(r.PSPID) == "" {
		errorf("psp_id is required")
	} else if !isValidBIC(r.PSPID) {
		warnf("psp_id is not a valid BIC format")
	}
	if strings.TrimSpace(r.PSPName) == "" {
		errorf("psp_name is required")
	}
	return issues
}

func validateIBAN(iban, country string, row int) []Issue {
	var issues []Issue
	errorf := func(msg string) { issues = append(issues, Issue{LevelError, row, msg}) }

	if len(iban) < 4 {
		errorf("IBAN is too short")
		return issues
	}
	if !isAlphanumeric(iban) {
		errorf("IBAN must be alphanumeric")
	}
	ibanCountry := iban[:2]
	if ibanCountry != country {
		errorf("IBAN country code does not match payee_country")
	}
	if expected, ok := reference.IBANLength(country); ok {
		if len(iban) != expected {
			errorf("IBAN length does not match country specification")
		}
	} else {
		issues = append(issues, Issue{LevelWarning, row, "IBAN length not known for country"})
	}
	if check, err := reference.IBANCheckDigits(ibanCountry, iban[4:]); err == nil {
		if check != iban[2:4] {
			errorf("IBAN check digits are invalid")
		}
	}
	return issues
}

// isValidAmount accepts only the unsigned fixed two-decimal form the
// generator writes, e.g. "12.50".
func isValidAmount(amount string) bool {
	parts := strings.Split(amount, ".")
	if len(parts) != 2 {
		return false
	}
	whole, frac := parts[0], parts[1]
	if whole == "" || len(frac) != 2 {
		return false
	}
	return isDigits(whole) && isDigits(frac)
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

func isValidCountry(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, ch := range code {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	return true
}

func isValidBIC(bic string) bool {
	bic = strings.TrimSpace(bic)
	if len(bic) != 8 && len(bic) != 11 {
		return false
	}
	if !isAlphanumeric(bic) {
		return false
	}
	for _, ch := range bic[4:6] {
		if (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	for _, ch := range s {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') {
			return false
		}
	}
	return true
}
