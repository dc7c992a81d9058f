package reconcile

import (
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/trais-tz/epay/billing"
	"github.com/trais-tz/epay/gepg"
)

// ApplyPayment settles a bill with an inbound payment notification.
// Redeliveries are recognized on the (transaction id, gateway reference)
// pair and treated as an already settled success, not an error. The first
// valid payment wins regardless of how far the bill got through
// registration; the paid flag only ever goes false to true.
func (c *Controller) ApplyPayment(n gepg.PaymentNotification) (err error) {
	lock := c.billLock(n.BillID)
	lock.Lock()
	defer lock.Unlock()

	payment := billing.Payment{
		Id:               uuid.New(),
		TransactionID:    n.TransactionID,
		GatewayReference: n.GatewayReference,
		ControlNumber:    n.ControlNumber,
		AccountNumber:    n.AccountNumber,
		PaidAmount:       n.PaidAmount,
		BillAmount:       n.BillAmount,
		PayerName:        n.PayerName,
		PayerPhone:       n.PayerPhone,
		PSPName:          n.PSPName,
		PaidAt:           n.PaidAt,
		BillID:           n.BillID,
		RecordedAt:       time.Now(),
	}

	key := PaymentKey(payment.UniqueKey())
	return c.db.Update(func(txn *badger.Txn) (err error) {
		// The record check and the insert share one transaction, so two
		// concurrent deliveries can not both pass the check.
		_, err = txn.Get(key)
		switch {
		case err == nil:
			// Redelivery of an already settled payment
			return nil
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("failed to check payment key: %w", err)
		}

		bill, err := c.getBill(txn, n.BillID)
		if err != nil {
			return err
		}

		err = txn.Set(key, payment.Bytes())
		if err != nil {
			return fmt.Errorf("failed to store payment: %w", err)
		}

		bill.Paid = true
		bill.Status = billing.StatusPaid
		err = c.saveBill(txn, &bill)
		if err != nil {
			return fmt.Errorf("failed to save bill: %w", err)
		}

		err = txn.Delete(PendingKey(bill.BillID))
		if err != nil {
			return fmt.Errorf("failed to delete pending marker: %w", err)
		}
		return nil
	})
}
