// Package accounting renders payment receipts as XML documents for
// bookkeeping systems.
package accounting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/utils"
)

// ReceiptExporter builds signed receipt documents
type ReceiptExporter struct {
	secret string
	loc    *time.Location
}

// NewReceiptExporter initializes an exporter signing with secret
func NewReceiptExporter(secret string, loc *time.Location) *ReceiptExporter {
	if loc == nil {
		loc = time.UTC
	}
	return &ReceiptExporter{secret: secret, loc: loc}
}

// Render produces the XML document for a payment
func (e *ReceiptExporter) Render(p *models.PaymentTransaction, student *models.Student) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Receipt")
	root.CreateAttr("number", p.ReceiptNumber)

	root.CreateElement("PaymentDate").SetText(p.PaymentDate.In(e.loc).Format(time.RFC3339))
	root.CreateElement("Method").SetText(string(p.PaymentMethod))
	root.CreateElement("TotalAmount").SetText(p.TotalAmount.StringFixed(2))

	st := root.CreateElement("Student")
	st.CreateAttr("id", p.StudentID.String())
	if student != nil {
		st.CreateElement("Name").SetText(student.Name)
		st.CreateElement("RegistrationNumber").SetText(student.RegistrationNumber)
	}

	months := root.CreateElement("MonthsCovered")
	for _, m := range p.MonthsCovered {
		el := months.CreateElement("Month")
		el.CreateAttr("year", strconv.Itoa(m.Year))
		el.CreateAttr("month", strconv.Itoa(m.Month))
		el.CreateAttr("feeId", m.FeeID.String())
		el.SetText(fmt.Sprintf("%s %d", utils.MonthAbbrev(m.Month), m.Year))
	}
	if p.Notes != "" {
		root.CreateElement("Notes").SetText(p.Notes)
	}

	sig := utils.SignReceipt(p.ReceiptNumber, p.StudentID.String(), p.TotalAmount.StringFixed(2), e.secret)
	root.CreateElement("Signature").SetText(sig)

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to write receipt XML: %w", err)
	}
	return out, nil
}

// Verify parses a rendered receipt and checks its signature
func (e *ReceiptExporter) Verify(data []byte) (bool, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return false, fmt.Errorf("failed to parse XML: %v", err)
	}

	root := doc.SelectElement("Receipt")
	if root == nil {
		return false, fmt.Errorf("receipt element not found in XML")
	}
	number := root.SelectAttrValue("number", "")
	student := root.FindElement("./Student")
	amount := root.FindElement("./TotalAmount")
	sig := root.FindElement("./Signature")
	if number == "" || student == nil || amount == nil || sig == nil {
		return false, fmt.Errorf("receipt is missing required elements")
	}

	return utils.VerifyReceipt(sig.Text(), number, student.SelectAttrValue("id", ""), amount.Text(), e.secret), nil
}
