package gepg_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trais-tz/epay/billing"
	"github.com/trais-tz/epay/gepg"
)

func testCodec(t *testing.T) (codec gepg.Codec) {
	t.Helper()

	return gepg.NewCodec(gepg.CodecConfig{
		SpCode:     "SP19917",
		SubSpCode:  "2001",
		SystemID:   "TTRAB001",
		ApprovedBy: "Registrar",
		Signer:     testSigner(t, gepg.DigestSHA1),
	})
}

func testBill() (bill billing.Bill) {
	generated := time.Date(2026, 1, 15, 10, 30, 0, 0, time.Local)
	return billing.Bill{
		BillID:        "a1b2c3d4",
		Reference:     "APPEAL-2026-001",
		ControlNumber: billing.NoControlNumber,
		Status:        billing.StatusPending,
		Amount:        decimal.NewFromInt(10_000),
		EqvAmount:     decimal.NewFromInt(10_000),
		MiscAmount:    decimal.Zero,
		Currency:      "TZS",
		Description:   "Notice of appeal filing fee",
		GeneratedAt:   generated,
		ExpiresAt:     generated.AddDate(0, 0, 14),
		PayerName:     "Asha Mollel",
		PayerPhone:    "255700000001",
		PayerEmail:    "asha@example.org",
		PayOption:     "3",
		CreatedBy:     "registry",
		Items: []billing.BillItem{
			{
				Ref:         "APPEAL-2026-001",
				Amount:      decimal.NewFromInt(10_000),
				EqvAmount:   decimal.NewFromInt(10_000),
				MiscAmount:  decimal.Zero,
				Source:      "NOTICE",
				GfsCode:     "140313",
				Description: "Notice of appeal filing fee",
			},
		},
	}
}

// signatureOf pulls the base64 signature out of a wrapped envelope.
func signatureOf(t *testing.T, envelope []byte) (signature string) {
	t.Helper()

	wrapped := gepg.StringWithinTag(envelope, "gepgSignature")
	if wrapped == nil {
		t.Fatalf("envelope has no signature: %s", envelope)
	}
	signature = strings.TrimPrefix(string(wrapped), "<gepgSignature>")
	return strings.TrimSuffix(signature, "</gepgSignature>")
}

func Test_BuildSubmission(t *testing.T) {
	assertions := assert.New(t)

	codec := testCodec(t)
	bill := testBill()

	envelope, err := codec.BuildSubmission(&bill)
	assertions.Nil(err, "failed to build submission")

	content := string(envelope)
	assertions.True(strings.HasPrefix(content, "<Gepg><gepgBillSubReq>"), "unexpected prefix: %s", content)
	assertions.True(strings.HasSuffix(content, "</gepgSignature></Gepg>"), "unexpected suffix: %s", content)

	assertions.Contains(content, "<SpCode>SP19917</SpCode>")
	assertions.Contains(content, "<RtrRespFlg>true</RtrRespFlg>")
	assertions.Contains(content, "<BillId>a1b2c3d4</BillId>")
	assertions.Contains(content, "<SubSpCode>2001</SubSpCode>")
	assertions.Contains(content, "<SpSysId>TTRAB001</SpSysId>")
	assertions.Contains(content, "<BillAmt>10000</BillAmt>")
	assertions.Contains(content, "<MiscAmt>0</MiscAmt>")
	assertions.Contains(content, "<BillGenDt>2026-01-15T10:30:00</BillGenDt>")
	assertions.Contains(content, "<BillExprDt>2026-01-29T10:30:00</BillExprDt>")
	assertions.Contains(content, "<PyrName>Asha Mollel</PyrName>")
	assertions.Contains(content, "<PyrCellNum>255700000001</PyrCellNum>")
	assertions.Contains(content, "<Ccy>TZS</Ccy>")
	assertions.Contains(content, "<RemFlag>false</RemFlag>")
	assertions.Contains(content, "<BillApprBy>Registrar</BillApprBy>")
	assertions.Contains(content, "<UseItemRefOnPay>N</UseItemRefOnPay>")
	assertions.Contains(content, "<BillItemAmt>10000</BillItemAmt>")
	assertions.Contains(content, "<GfsCode>140313</GfsCode>")
}

func Test_SubmissionSignature(t *testing.T) {
	assertions := assert.New(t)

	key := testSigner(t, gepg.DigestSHA1)
	codec := gepg.NewCodec(gepg.CodecConfig{
		SpCode:     "SP19917",
		SubSpCode:  "2001",
		SystemID:   "TTRAB001",
		ApprovedBy: "Registrar",
		Signer:     key,
	})

	bill := testBill()
	envelope, err := codec.BuildSubmission(&bill)
	assertions.Nil(err, "failed to build submission")

	// The gateway verifies the signature against the raw byte run between
	// the request tags, exactly as it appears in the envelope
	fragment := gepg.StringWithinTag(envelope, "gepgBillSubReq")
	assertions.NotNil(fragment, "envelope has no request fragment")
	assertions.Nil(key.Verify(fragment, signatureOf(t, envelope)), "signature does not cover the emitted fragment")
}

func Test_Acknowledgments(t *testing.T) {
	type Test struct {
		Name    string
		Build   func(c *gepg.Codec) (ack []byte, err error)
		Element string
	}
	tests := []Test{
		{
			Name:    "Registration",
			Build:   (*gepg.Codec).RegistrationAck,
			Element: "gepgBillSubRespAck",
		},
		{
			Name:    "Payment",
			Build:   (*gepg.Codec).PaymentAck,
			Element: "gepgPmtSpInfoAck",
		},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			assertions := assert.New(t)

			key := testSigner(t, gepg.DigestSHA1)
			codec := gepg.NewCodec(gepg.CodecConfig{Signer: key})

			ack, err := test.Build(&codec)
			assertions.Nil(err, "failed to build acknowledgment")

			expected := "<" + test.Element + "><TrxStsCode>" + gepg.AckStatusCode + "</TrxStsCode></" + test.Element + ">"
			assertions.Contains(string(ack), expected)

			fragment := gepg.StringWithinTag(ack, test.Element)
			assertions.NotNil(fragment, "acknowledgment has no fragment")
			assertions.Nil(key.Verify(fragment, signatureOf(t, ack)), "acknowledgment signature does not verify")
		})
	}
}
