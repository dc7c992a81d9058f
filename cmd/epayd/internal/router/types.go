package router

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trais-tz/epay/billing"
)

const DefaultExpiryDays = 14

type (
	CreateBillItem struct {
		Category    string `json:"category"`
		Amount      string `json:"amount,omitempty"`
		Ref         string `json:"ref,omitempty"`
		Description string `json:"description,omitempty"`
		Source      string `json:"source,omitempty"`
	}
	CreateBill struct {
		PayerName   string           `json:"payerName"`
		PayerPhone  string           `json:"payerPhone,omitempty"`
		PayerEmail  string           `json:"payerEmail,omitempty"`
		Currency    string           `json:"currency"`
		Reference   string           `json:"reference"`
		Description string           `json:"description,omitempty"`
		PayOption   string           `json:"payOption,omitempty"`
		ExpiryDays  int              `json:"expiryDays,omitempty"`
		CreatedBy   string           `json:"createdBy,omitempty"`
		Items       []CreateBillItem `json:"items"`
	}
)

func (c *CreateBill) ToBilling() (req billing.Request, err error) {
	req = billing.Request{
		PayerName:   c.PayerName,
		PayerPhone:  c.PayerPhone,
		PayerEmail:  c.PayerEmail,
		Currency:    c.Currency,
		Reference:   c.Reference,
		Description: c.Description,
		PayOption:   c.PayOption,
		ExpiryDays:  c.ExpiryDays,
		CreatedBy:   c.CreatedBy,
	}
	if req.ExpiryDays == 0 {
		req.ExpiryDays = DefaultExpiryDays
	}

	for _, item := range c.Items {
		reqItem := billing.RequestItem{
			Category:    item.Category,
			Ref:         item.Ref,
			Description: item.Description,
			Source:      item.Source,
		}
		if item.Amount != "" {
			reqItem.Amount, err = decimal.NewFromString(item.Amount)
			if err != nil {
				return req, fmt.Errorf("failed to parse amount for item %q: %w", item.Category, err)
			}
		}
		req.Items = append(req.Items, reqItem)
	}
	return req, nil
}

type (
	BillItem struct {
		Ref         string `json:"ref"`
		Amount      string `json:"amount"`
		Description string `json:"description,omitempty"`
		Source      string `json:"source,omitempty"`
		GfsCode     string `json:"gfsCode"`
	}
	Bill struct {
		BillId        string         `json:"billId"`
		Reference     string         `json:"reference"`
		ControlNumber string         `json:"controlNumber"`
		Status        billing.Status `json:"status"`
		Amount        string         `json:"amount"`
		Currency      string         `json:"currency"`
		Description   string         `json:"description,omitempty"`
		PayerName     string         `json:"payerName"`
		Paid          bool           `json:"paid"`
		GeneratedAt   time.Time      `json:"generatedAt"`
		ExpiresAt     time.Time      `json:"expiresAt"`
		Items         []BillItem     `json:"items"`
	}
	Payment struct {
		TransactionId    string    `json:"transactionId"`
		GatewayReference string    `json:"gatewayReference"`
		ControlNumber    string    `json:"controlNumber"`
		BillId           string    `json:"billId"`
		PaidAmount       string    `json:"paidAmount"`
		BillAmount       string    `json:"billAmount"`
		PayerName        string    `json:"payerName"`
		PSPName          string    `json:"pspName,omitempty"`
		PaidAt           time.Time `json:"paidAt"`
	}
)

// Convert from the engine's Bill hiding internal audit fields
func BillFromEngine(src *billing.Bill) (bill Bill) {
	bill = Bill{
		BillId:        src.BillID,
		Reference:     src.Reference,
		ControlNumber: src.ControlNumber,
		Status:        src.Status,
		Amount:        src.Amount.String(),
		Currency:      src.Currency,
		Description:   src.Description,
		PayerName:     src.PayerName,
		Paid:          src.Paid,
		GeneratedAt:   src.GeneratedAt,
		ExpiresAt:     src.ExpiresAt,
	}
	for _, item := range src.Items {
		bill.Items = append(bill.Items, BillItem{
			Ref:         item.Ref,
			Amount:      item.Amount.String(),
			Description: item.Description,
			Source:      item.Source,
			GfsCode:     item.GfsCode,
		})
	}
	return bill
}

func PaymentFromEngine(src *billing.Payment) (payment Payment) {
	return Payment{
		TransactionId:    src.TransactionID,
		GatewayReference: src.GatewayReference,
		ControlNumber:    src.ControlNumber,
		BillId:           src.BillID,
		PaidAmount:       src.PaidAmount.String(),
		BillAmount:       src.BillAmount.String(),
		PayerName:        src.PayerName,
		PSPName:          src.PSPName,
		PaidAt:           src.PaidAt,
	}
}
