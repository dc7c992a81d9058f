package gepg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrParse = errors.New("malformed gateway notification")

type (
	// RegistrationResponse is the gateway's answer to a bill submission,
	// carrying the control number a payer will quote when paying.
	RegistrationResponse struct {
		BillID        string
		ControlNumber string
		TrxStatus     string
		TrxStatusCode string
	}

	// PaymentNotification reports money received against a bill.
	PaymentNotification struct {
		BillID           string
		PayerName        string
		PaidAt           time.Time
		AccountNumber    string
		TransactionID    string
		PaidAmount       decimal.Decimal
		BillAmount       decimal.Decimal
		GatewayReference string
		ControlNumber    string
		PayerPhone       string
		PSPName          string
	}

	// Notification is the discriminated parse result. Exactly one of the
	// two fields is set.
	Notification struct {
		Registration *RegistrationResponse
		Payment      *PaymentNotification
	}
)

type (
	inboundEnvelope struct {
		XMLName     xml.Name     `xml:"Gepg"`
		BillSubResp *billSubResp `xml:"gepgBillSubResp"`
		PmtSpInfo   *pmtSpInfo   `xml:"gepgPmtSpInfo"`
		Signature   string       `xml:"gepgSignature"`
	}
	billSubResp struct {
		TrxInf struct {
			BillID     string `xml:"BillId"`
			PayCntrNum string `xml:"PayCntrNum"`
			TrxSts     string `xml:"TrxSts"`
			TrxStsCode string `xml:"TrxStsCode"`
		} `xml:"BillTrxInf"`
	}
	pmtSpInfo struct {
		TrxInf struct {
			BillID           string `xml:"BillId"`
			TrxDtTm          string `xml:"TrxDtTm"`
			CtrAccNum        string `xml:"CtrAccNum"`
			PspReceiptNumber string `xml:"PspReceiptNumber"`
			PspName          string `xml:"PspName"`
			PaidAmt          string `xml:"PaidAmt"`
			BillAmt          string `xml:"BillAmt"`
			PayRefID         string `xml:"PayRefId"`
			PayCtrNum        string `xml:"PayCtrNum"`
			PyrName          string `xml:"PyrName"`
			PyrCellNum       string `xml:"PyrCellNum"`
		} `xml:"PymtTrxInf"`
	}
)

// Parse decodes an inbound gateway call into one of the two known
// notification shapes. A missing required field is a parse failure; the
// raw payload is never partially applied.
func Parse(raw []byte) (n Notification, err error) {
	var env inboundEnvelope
	err = xml.Unmarshal(raw, &env)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrParse, err)
	}

	switch {
	case env.BillSubResp != nil:
		inf := env.BillSubResp.TrxInf
		if inf.BillID == "" || inf.PayCntrNum == "" || inf.TrxStsCode == "" {
			return n, fmt.Errorf("%w: registration response is missing required fields", ErrParse)
		}

		n.Registration = &RegistrationResponse{
			BillID:        inf.BillID,
			ControlNumber: inf.PayCntrNum,
			TrxStatus:     inf.TrxSts,
			TrxStatusCode: inf.TrxStsCode,
		}
		return n, nil

	case env.PmtSpInfo != nil:
		inf := env.PmtSpInfo.TrxInf
		if inf.BillID == "" || inf.PspReceiptNumber == "" || inf.PayRefID == "" || inf.PaidAmt == "" {
			return n, fmt.Errorf("%w: payment notification is missing required fields", ErrParse)
		}

		paidAmount, err := decimal.NewFromString(inf.PaidAmt)
		if err != nil {
			return n, fmt.Errorf("%w: bad PaidAmt %q", ErrParse, inf.PaidAmt)
		}

		var billAmount decimal.Decimal
		if inf.BillAmt != "" {
			billAmount, err = decimal.NewFromString(inf.BillAmt)
			if err != nil {
				return n, fmt.Errorf("%w: bad BillAmt %q", ErrParse, inf.BillAmt)
			}
		}

		var paidAt time.Time
		if inf.TrxDtTm != "" {
			paidAt, err = time.ParseInLocation(TimeLayout, inf.TrxDtTm, time.Local)
			if err != nil {
				return n, fmt.Errorf("%w: bad TrxDtTm %q", ErrParse, inf.TrxDtTm)
			}
		}

		n.Payment = &PaymentNotification{
			BillID:           inf.BillID,
			PayerName:        inf.PyrName,
			PaidAt:           paidAt,
			AccountNumber:    inf.CtrAccNum,
			TransactionID:    inf.PspReceiptNumber,
			PaidAmount:       paidAmount,
			BillAmount:       billAmount,
			GatewayReference: inf.PayRefID,
			ControlNumber:    inf.PayCtrNum,
			PayerPhone:       inf.PyrCellNum,
			PSPName:          inf.PspName,
		}
		return n, nil

	default:
		return n, fmt.Errorf("%w: unknown notification shape", ErrParse)
	}
}
