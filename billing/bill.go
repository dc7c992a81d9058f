package billing

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending               Status = "PENDING"
	StatusSubmitted             Status = "SUBMITTED"
	StatusControlNumberAssigned Status = "CONTROL_NUMBER_ASSIGNED"
	StatusPaid                  Status = "PAID"
	StatusExpired               Status = "EXPIRED"
)

// NoControlNumber is the sentinel the gateway expects on bills it has not
// registered yet.
const NoControlNumber = "0"

type (
	BillItem struct {
		// Reference printed on the bill line
		Ref string
		// Amount billed for this line
		Amount decimal.Decimal
		// Equivalent amount in the billing currency
		EqvAmount decimal.Decimal
		// Miscellaneous amount. The gateway requires the field even when zero
		MiscAmount decimal.Decimal
		// Description of the line
		Description string
		// Module that originated the line (NOTICE, APPEAL, APPLICATION)
		Source string
		// Government financial statistics classification code
		GfsCode string
	}

	Bill struct {
		// Short random token used to correlate gateway callbacks
		BillID string
		// Human readable reference, usually the case number
		Reference string
		// Gateway assigned control number. NoControlNumber until registered
		ControlNumber string
		// Lifecycle state of the bill
		Status Status
		// Total billed amount. Always the sum of the item amounts
		Amount decimal.Decimal
		// Equivalent amount in the billing currency
		EqvAmount decimal.Decimal
		// Miscellaneous amount
		MiscAmount decimal.Decimal
		// ISO currency code, TZS for domestic bills
		Currency string
		// Description shown to the payer
		Description string
		// When the bill was generated
		GeneratedAt time.Time
		// When the bill stops being payable
		ExpiresAt time.Time
		// Payer details forwarded to the gateway
		PayerName  string
		PayerPhone string
		PayerEmail string
		// Payment option flag understood by the gateway
		PayOption string
		// Set once the first valid payment is applied. Never reverts
		Paid bool
		// Raw transaction status code from the registration response
		ResponseCode string
		// Audit fields
		CreatedBy string
		CreatedAt time.Time
		UpdatedAt time.Time
		// Line items. Created with the bill, gone with the bill
		Items []BillItem
	}
)

func (b *Bill) Bytes() (bytes []byte) {
	bytes, _ = json.Marshal(b)
	return bytes
}

func (b *Bill) FromBytes(data []byte) (err error) {
	return json.Unmarshal(data, b)
}

// Expired reports whether the bill passed its expiry without being paid.
func (b *Bill) Expired(now time.Time) bool {
	return !b.Paid && now.After(b.ExpiresAt)
}

// Terminal reports whether the bill allows no further transitions.
func (b *Bill) Terminal() bool {
	return b.Status == StatusPaid || b.Status == StatusExpired
}
