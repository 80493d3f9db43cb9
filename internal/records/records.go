// Package records defines the payment ledger record and its CSV wire format.
// The batch tools read a whole file into memory, operate on the slice, and
// write it back out; nothing in this package mutates records after parsing.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// PaymentRecord is one payment or refund event from the ledger. Optional
// columns are plain strings with the empty string meaning "absent".
type PaymentRecord struct {
	PaymentID        string
	ExecutionTime    string
	Amount           string
	Currency         string
	PayerCountry     string
	PayerMSSource    string
	PayeeCountry     string
	PayeeID          string
	PayeeName        string
	PayeeAccount     string
	PayeeAccountType string
	PayeeTaxID       string
	PayeeVatID       string
	PayeeEmail       string
	PayeeWeb         string
	PayeeAddressLine string
	PayeeCity        string
	PayeePostcode    string
	PaymentMethod    string
	InitiatedAtPOS   bool
	IsRefund         bool
	CorrPaymentID    string
	PSPRole          string
	PayeePSPID       string
	PayeePSPName     string
	PSPID            string
	PSPName          string
}

// Header is the fixed CSV column order. Every ledger file written or read by
// this tool uses exactly these columns.
var Header = []string{
	"payment_id",
	"execution_time",
	"amount",
	"currency",
	"payer_country",
	"payer_ms_source",
	"payee_country",
	"payee_id",
	"payee_name",
	"payee_account",
	"payee_account_type",
	"payee_tax_id",
	"payee_vat_id",
	"payee_email",
	"payee_web",
	"payee_address_line",
	"payee_city",
	"payee_postcode",
	"payment_method",
	"initiated_at_pos",
	"is_refund",
	"corr_payment_id",
	"psp_role",
	"payee_psp_id",
	"payee_psp_name",
	"psp_id",
	"psp_name",
}

// ReadFile reads a full ledger CSV into memory. A missing or reordered header
// and any malformed row abort the read.
func ReadFile(path string) ([]PaymentRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger header: %w", err)
	}
	for i, name := range Header {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected ledger column %d: got %q, want %q", i+1, header[i], name)
		}
	}

	var out []PaymentRecord
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger row: %w", err)
		}
		line++
		record, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", line, err)
		}
		out = append(out, record)
	}
	return out, nil
}

// WriteFile writes a ledger CSV with the fixed header.
func WriteFile(path string, recs []PaymentRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write ledger header: %w", err)
	}
	for i := range recs {
		if err := writer.Write(toRow(&recs[i])); err != nil {
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush ledger: %w", err)
	}
	return nil
}

func fromRow(row []string) (PaymentRecord, error) {
	initiatedAtPOS, err := strconv.ParseBool(row[19])
	if err != nil {
		return PaymentRecord{}, fmt.Errorf("invalid initiated_at_pos %q", row[19])
	}
	isRefund, err := strconv.ParseBool(row[20])
	if err != nil {
		return PaymentRecord{}, fmt.Errorf("invalid is_refund %q", row[20])
	}

	return PaymentRecord{
		PaymentID:        row[0],
		ExecutionTime:    row[1],
		Amount:           row[2],
		Currency:         row[3],
		PayerCountry:     row[4],
		PayerMSSource:    row[5],
		PayeeCountry:     row[6],
		PayeeID:          row[7],
		PayeeName:        row[8],
		PayeeAccount:     row[9],
		PayeeAccountType: row[10],
		PayeeTaxID:       row[11],
		PayeeVatID:       row[12],
		PayeeEmail:       row[13],
		PayeeWeb:         row[14],
		PayeeAddressLine: row[15],
		PayeeCity:        row[16],
		PayeePostcode:    row[17],
		PaymentMethod:    row[18],
		InitiatedAtPOS:   initiatedAtPOS,
		IsRefund:         isRefund,
		CorrPaymentID:    row[21],
		PSPRole:          row[22],
		PayeePSPID:       row[23],
		PayeePSPName:     row[24],
		PSPID:            row[25],
		PSPName:          row[26],
	}, nil
}

func toRow(r *PaymentRecord) []string {
	return []string{
		r.PaymentID,
		r.ExecutionTime,
		r.Amount,
		r.Currency,
		r.PayerCountry,
		r.PayerMSSource,
		r.PayeeCountry,
		r.PayeeID,
		r.PayeeName,
		r.PayeeAccount,
		r.PayeeAccountType,
		r.PayeeTaxID,
		r.PayeeVatID,
		r.PayeeEmail,
		r.PayeeWeb,
		r.PayeeAddressLine,
		r.PayeeCity,
		r.PayeePostcode,
		r.PaymentMethod,
		strconv.FormatBool(r.InitiatedAtPOS),
		strconv.FormatBool(r.IsRefund),
		r.CorrPaymentID,
		r.PSPRole,
		r.PayeePSPID,
		r.PayeePSPName,
		r.PSPID,
		r.PSPName,
	}
}
