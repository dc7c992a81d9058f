package gepg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trais-tz/epay/billing"
)

// Timestamps on the wire are local time without a zone suffix.
const TimeLayout = "2006-01-02T15:04:05"

// Fixed protocol flags. The gateway rejects envelopes without them.
const (
	returnResponseFlag = "true"
	reminderFlag       = "false"
	useItemRefOnPay    = "N"
)

type localTime time.Time

func (t localTime) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(time.Time(t).Format(TimeLayout), start)
}

type (
	billHeader struct {
		SpCode     string `xml:"SpCode"`
		RtrRespFlg string `xml:"RtrRespFlg"`
	}
	billItem struct {
		BillItemRef     string          `xml:"BillItemRef"`
		UseItemRefOnPay string          `xml:"UseItemRefOnPay"`
		BillItemAmt     decimal.Decimal `xml:"BillItemAmt"`
		BillItemEqvAmt  decimal.Decimal `xml:"BillItemEqvAmt"`
		BillItemMiscAmt decimal.Decimal `xml:"BillItemMiscAmt"`
		GfsCode         string          `xml:"GfsCode"`
	}
	billTrxInf struct {
		BillID     string          `xml:"BillId"`
		SubSpCode  string          `xml:"SubSpCode"`
		SpSysID    string          `xml:"SpSysId"`
		BillAmt    decimal.Decimal `xml:"BillAmt"`
		MiscAmt    decimal.Decimal `xml:"MiscAmt"`
		BillExprDt localTime       `xml:"BillExprDt"`
		PyrID      string          `xml:"PyrId"`
		PyrName    string          `xml:"PyrName"`
		BillDesc   string          `xml:"BillDesc"`
		BillGenDt  localTime       `xml:"BillGenDt"`
		BillGenBy  string          `xml:"BillGenBy"`
		BillApprBy string          `xml:"BillApprBy"`
		PyrCellNum string          `xml:"PyrCellNum"`
		PyrEmail   string          `xml:"PyrEmail"`
		Ccy        string          `xml:"Ccy"`
		BillEqvAmt decimal.Decimal `xml:"BillEqvAmt"`
		RemFlag    string          `xml:"RemFlag"`
		BillPayOpt string          `xml:"BillPayOpt"`
		BillItems  struct {
			BillItem []billItem `xml:"BillItem"`
		} `xml:"BillItems"`
	}
	billSubReq struct {
		XMLName    xml.Name   `xml:"gepgBillSubReq"`
		BillHdr    billHeader `xml:"BillHdr"`
		BillTrxInf billTrxInf `xml:"BillTrxInf"`
	}
)

// Codec builds outbound envelopes and acknowledgments for one service
// provider identity.
type Codec struct {
	spCode     string
	subSpCode  string
	systemID   string
	approvedBy string
	signer     *Signer
}

type CodecConfig struct {
	// Service provider code in the envelope header
	SpCode string
	// Sub service provider code in the transaction block
	SubSpCode string
	// System id the gateway knows this client by
	SystemID string
	// Value of the BillApprBy field
	ApprovedBy string
	// Signer for submission and acknowledgment fragments
	Signer *Signer
}

func NewCodec(config CodecConfig) (c Codec) {
	c.spCode = config.SpCode
	c.subSpCode = config.SubSpCode
	c.systemID = config.SystemID
	c.approvedBy = config.ApprovedBy
	c.signer = config.Signer

	return c
}

// BuildSubmission emits the signed submission envelope for a bill. The
// signature covers the raw <gepgBillSubReq> fragment exactly as it appears
// in the output, located by its tags rather than re-serialized, because
// the gateway verifies against that byte run.
func (c *Codec) BuildSubmission(bill *billing.Bill) (envelope []byte, err error) {
	req := billSubReq{
		BillHdr: billHeader{
			SpCode:     c.spCode,
			RtrRespFlg: returnResponseFlag,
		},
		BillTrxInf: billTrxInf{
			BillID:     bill.BillID,
			SubSpCode:  c.subSpCode,
			SpSysID:    c.systemID,
			BillAmt:    bill.Amount,
			MiscAmt:    bill.MiscAmount,
			BillExprDt: localTime(bill.ExpiresAt),
			PyrID:      bill.PayerName,
			PyrName:    bill.PayerName,
			BillDesc:   bill.Description,
			BillGenDt:  localTime(bill.GeneratedAt),
			BillGenBy:  bill.CreatedBy,
			BillApprBy: c.approvedBy,
			PyrCellNum: bill.PayerPhone,
			PyrEmail:   bill.PayerEmail,
			Ccy:        bill.Currency,
			BillEqvAmt: bill.EqvAmount,
			RemFlag:    reminderFlag,
			BillPayOpt: bill.PayOption,
		},
	}
	for _, item := range bill.Items {
		req.BillTrxInf.BillItems.BillItem = append(req.BillTrxInf.BillItems.BillItem, billItem{
			BillItemRef:     item.Ref,
			UseItemRefOnPay: useItemRefOnPay,
			BillItemAmt:     item.Amount,
			BillItemEqvAmt:  item.EqvAmount,
			BillItemMiscAmt: item.MiscAmount,
			GfsCode:         item.GfsCode,
		})
	}

	content, err := xml.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bill %s: %w", bill.BillID, err)
	}

	fragment := StringWithinTag(content, "gepgBillSubReq")
	if fragment == nil {
		return nil, fmt.Errorf("submission for bill %s has no signable fragment", bill.BillID)
	}

	signature, err := c.signer.Sign(fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to sign submission for bill %s: %w", bill.BillID, err)
	}

	return wrapSigned(fragment, signature), nil
}

// wrapSigned assembles the outer Gepg envelope around an already signed
// fragment without re-serializing it.
func wrapSigned(fragment []byte, signature string) (envelope []byte) {
	var buf bytes.Buffer
	buf.WriteString("<Gepg>")
	buf.Write(fragment)
	buf.WriteString("<gepgSignature>")
	buf.WriteString(signature)
	buf.WriteString("</gepgSignature>")
	buf.WriteString("</Gepg>")
	return buf.Bytes()
}
