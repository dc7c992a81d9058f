package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trais-tz/epay/random"
)

// Length of the correlation token the gateway echoes back in callbacks.
const BillIDLength = 8

var ErrNoItems = errors.New("bill needs at least one line item")

type (
	RequestItem struct {
		// Fee category to resolve through the fee lookup
		Category string
		// Optional amount override. Zero means use the tariff amount
		Amount decimal.Decimal
		// Reference printed on the resulting line
		Ref string
		// Description of the line
		Description string
		// Module that originated the line
		Source string
	}

	// Request is the billing context handed over by the case management
	// modules. It carries everything needed to assemble a bill.
	Request struct {
		PayerName  string
		PayerPhone string
		PayerEmail string
		// ISO currency code
		Currency string
		// Human readable reference, usually the case number
		Reference string
		// Description shown to the payer
		Description string
		// Payment option flag forwarded to the gateway
		PayOption string
		// Days until the bill stops being payable
		ExpiryDays int
		// User that requested the bill
		CreatedBy string
		Items     []RequestItem
	}
)

// NewBill assembles a bill and its line items from a billing context.
// Every fee category is resolved up front so a bill with an unknown tariff
// is never constructed, let alone submitted. The bill total is the sum of
// the item amounts.
func NewBill(req Request, fees FeeLookup, now time.Time) (bill Bill, err error) {
	if len(req.Items) == 0 {
		return bill, ErrNoItems
	}

	var total decimal.Decimal
	items := make([]BillItem, 0, len(req.Items))
	for _, reqItem := range req.Items {
		fee, err := fees.Lookup(reqItem.Category)
		if err != nil {
			return bill, fmt.Errorf("failed to resolve fee for item %q: %w", reqItem.Category, err)
		}

		amount := reqItem.Amount
		if amount.IsZero() {
			amount = fee.Amount
		}
		total = total.Add(amount)

		items = append(items, BillItem{
			Ref:         reqItem.Ref,
			Amount:      amount,
			EqvAmount:   amount,
			MiscAmount:  decimal.Zero,
			Description: reqItem.Description,
			Source:      reqItem.Source,
			GfsCode:     fee.GfsCode,
		})
	}

	bill = Bill{
		BillID:        random.String(random.CryptoRand(), random.CharsetLowerHex, BillIDLength),
		Reference:     req.Reference,
		ControlNumber: NoControlNumber,
		Status:        StatusPending,
		Amount:        total,
		EqvAmount:     total,
		MiscAmount:    decimal.Zero,
		Currency:      req.Currency,
		Description:   req.Description,
		GeneratedAt:   now,
		ExpiresAt:     now.AddDate(0, 0, req.ExpiryDays),
		PayerName:     req.PayerName,
		PayerPhone:    req.PayerPhone,
		PayerEmail:    req.PayerEmail,
		PayOption:     req.PayOption,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         items,
	}
	return bill, nil
}
