// Package xmlwriter renders assembled declarations into the CESOP 4.03 wire
// format. Rendering is deterministic except for two fields: the message
// reference and the per-payee document reference, which come from an injected
// ID source so tests can substitute a sequential one.
package xmlwriter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cesoptools/cesopgen/internal/records"
	"github.com/cesoptools/cesopgen/internal/report"
	"github.com/cesoptools/cesopgen/pkg/utils"
)

// IDSource produces fresh reference identifiers at render time.
type IDSource interface {
	NewID() string
}

// UUIDSource is the production IDSource: random v4 UUIDs.
type UUIDSource struct{}

// NewID returns a random UUID string.
func (UUIDSource) NewID() string { return uuid.NewString() }

// Writer renders declarations to files.
type Writer struct {
	// Prefix is the output filename prefix, e.g. "cesop".
	Prefix string
	IDs    IDSource
	Now    func() time.Time
}

// New returns a Writer with the production ID source and clock.
func New(prefix string) *Writer {
	return &Writer{Prefix: prefix, IDs: UUIDSource{}, Now: time.Now}
}

// Filename returns the output file name for one declaration:
// <prefix>_<year>_Q<quarter>_<transmitting-country>_<psp-id>.xml.
func (w *Writer) Filename(d *report.Declaration) string {
	return fmt.Sprintf("%s_%d_Q%d_%s_%s.xml",
		w.Prefix, d.Period.Year, d.Period.Quarter, d.TransmittingCountry, d.ReportingPSPID)
}

// WriteAll renders every declaration into outputDir and returns the written
// paths. A failure stops the batch; files already written stay in place.
func (w *Writer) WriteAll(declarations []report.Declaration, outputDir string) ([]string, error) {
	if err := utils.EnsureDir(outputDir); err != nil {
		return nil, err
	}
	var paths []string
	for i := range declarations {
		path := filepath.Join(outputDir, w.Filename(&declarations[i]))
		if err := w.Write(&declarations[i], path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Write renders one declaration to path.
func (w *Writer) Write(d *report.Declaration, path string) error {
	data, err := w.Render(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write declaration: %w", err)
	}
	return nil
}

// Render produces the XML document bytes for one declaration.
func (w *Writer) Render(d *report.Declaration) ([]byte, error) {
	b := newBuilder()
	b.raw("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")

	b.open("CESOP",
		attr{"xmlns", "urn:ec.europa.eu:taxud:fiscalis:cesop:v1"},
		attr{"xmlns:cm", "urn:eu:taxud:commontypes:v1"},
		attr{"xmlns:iso", "urn:eu:taxud:isotypes:v1"},
		attr{"version", "4.03"},
	)

	w.writeMessageSpec(b, d)
	if err := w.writePaymentBody(b, d); err != nil {
		return nil, err
	}

	b.close("CESOP")
	return b.bytes(), nil
}

func (w *Writer) writeMessageSpec(b *builder, d *report.Declaration) {
	b.open("MessageSpec")
	b.leaf("TransmittingCountry", d.TransmittingCountry)
	b.leaf("MessageType", "PMT")
	b.leaf("MessageTypeIndic", d.MessageTypeIndic)
	b.leaf("MessageRefId", w.IDs.NewID())

	b.open("ReportingPeriod")
	b.leaf("Quarter", strconv.Itoa(d.Period.Quarter))
	b.leaf("Year", strconv.Itoa(d.Period.Year))
	b.close("ReportingPeriod")

	b.leaf("Timestamp", w.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	b.close("MessageSpec")
}

func (w *Writer) writePaymentBody(b *builder, d *report.Declaration) error {
	b.open("PaymentDataBody")

	b.open("ReportingPSP")
	b.leaf("PSPId", d.ReportingPSPID, attr{"PSPIdType", "BIC"})
	b.leaf("Name", d.ReportingPSPName, attr{"nameType", "BUSINESS"})
	b.close("ReportingPSP")

	for i := range d.Payees {
		if err := w.writeReportedPayee(b, &d.Payees[i]); err != nil {
			return err
		}
	}

	b.close("PaymentDataBody")
	return nil
}

func (w *Writer) writeReportedPayee(b *builder, p *report.PayeeGroup) error {
	b.open("ReportedPayee")
	b.leaf("Name", p.PayeeName, attr{"nameType", "BUSINESS"})
	b.leaf("Country", p.PayeeCountry)

	b.open("Address")
	b.leaf("cm:CountryCode", p.PayeeCountry)
	if free := addressFree(p); free != "" {
		b.leaf("cm:AddressFree", free)
	}
	b.close("Address")

	if p.Email != "" {
		b.leaf("EmailAddress", p.Email)
	}
	if p.Web != "" {
		b.leaf("WebPage", p.Web)
	}

	b.open("TAXIdentification")
	if p.VatID != "" {
		b.leaf("VATId", p.VatID, attr{"issuedBy", p.PayeeCountry})
	}
	if p.TaxID != "" {
		b.leaf("TAXId", p.TaxID, attr{"issuedBy", p.PayeeCountry}, attr{"type", "TIN"})
	}
	b.close("TAXIdentification")

	if len(p.Accounts) == 0 {
		b.leaf("AccountIdentifier", "")
	}
	for _, account := range p.Accounts {
		attrs := []attr{
			{"CountryCode", p.PayeeCountry},
			{"type", account.Type},
		}
		if account.Type == "Other" {
			attrs = append(attrs, attr{"accountIdentifierOther", "OTHER"})
		}
		b.leaf("AccountIdentifier", account.ID, attrs...)
	}

	for i := range p.Transactions {
		if err := w.writeReportedTransaction(b, &p.Transactions[i]); err != nil {
			return err
		}
	}

	if p.Representative != nil {
		b.open("Representative")
		b.leaf("RepresentativeId", p.Representative.ID, attr{"PSPIdType", "BIC"})
		if p.Representative.Name != "" {
			b.leaf("Name", p.Representative.Name, attr{"nameType", "BUSINESS"})
		}
		b.close("Representative")
	}

	b.open("DocSpec")
	b.leaf("cm:DocTypeIndic", "CESOP1")
	b.leaf("cm:DocRefId", w.IDs.NewID())
	b.close("DocSpec")

	b.close("ReportedPayee")
	return nil
}

func (w *Writer) writeReportedTransaction(b *builder, tx *records.PaymentRecord) error {
	var txAttrs []attr
	if tx.IsRefund {
		txAttrs = append(txAttrs, attr{"IsRefund", "true"})
	}
	b.open("ReportedTransaction", txAttrs...)

	b.leaf("TransactionIdentifier", tx.PaymentID)
	if tx.IsRefund && tx.CorrPaymentID != "" {
		b.leaf("CorrTransactionIdentifier", tx.CorrPaymentID)
	}

	b.leaf("DateTime", tx.ExecutionTime, attr{"transactionDateType", "CESOP701"})

	amount, err := FormatAmount(tx.Amount, tx.IsRefund)
	if err != nil {
		return fmt.Errorf("payment %s: %w", tx.PaymentID, err)
	}
	b.leaf("Amount", amount, attr{"currency", tx.Currency})

	b.open("PaymentMethod")
	b.leaf("cm:PaymentMethodType", tx.PaymentMethod)
	if tx.PaymentMethod == "Other" {
		b.leaf("cm:PaymentMethodOther", "Other")
	}
	b.close("PaymentMethod")

	b.leaf("InitiatedAtPhysicalPremisesOfMerchant", strconv.FormatBool(tx.InitiatedAtPOS))
	b.leaf("PayerMS", tx.PayerCountry, attr{"PayerMSSource", tx.PayerMSSource})

	b.close("ReportedTransaction")
	return nil
}

// FormatAmount renders an amount with two fixed decimals, negating the
// absolute value for refunds. A malformed amount is a hard error; silently
// emitting a zero would corrupt the declaration.
func FormatAmount(amount string, isRefund bool) (string, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount '%s'", amount)
	}
	value = value.Abs()
	if isRefund {
		value = value.Neg()
	}
	return value.StringFixed(2), nil
}

func addressFree(p *report.PayeeGroup) string {
	var parts []string
	if p.AddressLine != "" {
		parts = append(parts, p.AddressLine)
	}
	switch {
	case p.Postcode != "" && p.City != "":
		parts = append(parts, p.Postcode+" "+p.City)
	case p.Postcode != "":
		parts = append(parts, p.Postcode)
	case p.City != "":
		parts = append(parts, p.City)
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + ", " + parts[1]
	}
}

// attr is one XML attribute.
type attr struct {
	name  string
	value string
}

// builder writes indented XML into a buffer. Elements are emitted
// sequentially; the caller balances open and close.
type builder struct {
	buf   bytes.Buffer
	depth int
}

const indent = "  "

func newBuilder() *builder {
	return &builder{}
}

func (b *builder) raw(s string) {
	b.buf.WriteString(s)
}

func (b *builder) open(name string, attrs ...attr) {
	b.writeIndent()
	b.buf.WriteByte('<')
	b.buf.WriteString(name)
	b.writeAttrs(attrs)
	b.buf.WriteString(">\n")
	b.depth++
}

func (b *builder) close(name string) {
	b.depth--
	b.writeIndent()
	b.buf.WriteString("</")
	b.buf.WriteString(name)
	b.buf.WriteString(">\n")
}

func (b *builder) leaf(name, text string, attrs ...attr) {
	b.writeIndent()
	b.buf.WriteByte('<')
	b.buf.WriteString(name)
	b.writeAttrs(attrs)
	b.buf.WriteByte('>')
	b.buf.WriteString(escapeXML(text))
	b.buf.WriteString("</")
	b.buf.WriteString(name)
	b.buf.WriteString(">\n")
}

func (b *builder) writeAttrs(attrs []attr) {
	for _, a := range attrs {
		b.buf.WriteByte(' ')
		b.buf.WriteString(a.name)
		b.buf.WriteString("=\"")
		b.buf.WriteString(escapeXML(a.value))
		b.buf.WriteByte('"')
	}
}

func (b *builder) writeIndent() {
	for i := 0; i < b.depth; i++ {
		b.buf.WriteString(indent)
	}
}

func (b *builder) bytes() []byte {
	return b.buf.Bytes()
}

// escapeXML escapes special characters for XML content and attribute values.
func escapeXML(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&apos;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
