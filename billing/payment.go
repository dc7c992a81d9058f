package billing

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is the immutable record of money received against a bill. It is
// written exactly once and never updated afterwards.
type Payment struct {
	Id uuid.UUID
	// Receipt number issued by the payment service provider
	TransactionID string
	// Gateway payment reference
	GatewayReference string
	// Control number the payer quoted
	ControlNumber string
	// Credited account at the service provider
	AccountNumber string
	// Amount actually paid
	PaidAmount decimal.Decimal
	// Bill amount at the time of payment
	BillAmount decimal.Decimal
	// Payer details as reported by the provider
	PayerName  string
	PayerPhone string
	// Name of the payment service provider
	PSPName string
	// When the payer remitted the funds
	PaidAt time.Time
	// BillID of the bill this payment settles
	BillID string
	// When this record was written
	RecordedAt time.Time
}

// UniqueKey is the idempotency key for inbound notifications. Two
// notifications sharing it are redeliveries of the same payment.
func (p *Payment) UniqueKey() string {
	return p.TransactionID + ":" + p.GatewayReference
}

func (p *Payment) Bytes() (bytes []byte) {
	bytes, _ = json.Marshal(p)
	return bytes
}

func (p *Payment) FromBytes(data []byte) (err error) {
	return json.Unmarshal(data, p)
}
