package reconcile

import (
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/trais-tz/epay/billing"
)

// Bill returns the stored bill aggregate.
func (c *Controller) Bill(billID string) (bill billing.Bill, err error) {
	err = c.db.View(func(txn *badger.Txn) (err error) {
		bill, err = c.getBill(txn, billID)
		return err
	})
	return bill, err
}

// BillByControlNumber resolves a bill through the control number index.
func (c *Controller) BillByControlNumber(controlNumber string) (bill billing.Bill, err error) {
	err = c.db.View(func(txn *badger.Txn) (err error) {
		item, err := txn.Get(ControlKey(controlNumber))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return ErrBillNotFound
		case err != nil:
			return fmt.Errorf("failed to resolve control number: %w", err)
		}

		var billID string
		err = item.Value(func(val []byte) (err error) {
			billID = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read control index: %w", err)
		}

		bill, err = c.getBill(txn, billID)
		return err
	})
	return bill, err
}

// Payment looks up a payment record by its idempotency pair.
func (c *Controller) Payment(transactionID, gatewayReference string) (payment billing.Payment, err error) {
	record := billing.Payment{TransactionID: transactionID, GatewayReference: gatewayReference}

	err = c.db.View(func(txn *badger.Txn) (err error) {
		item, err := txn.Get(PaymentKey(record.UniqueKey()))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return ErrPaymentNotFound
		case err != nil:
			return fmt.Errorf("failed to retrieve payment: %w", err)
		}

		return item.Value(func(val []byte) (err error) {
			return payment.FromBytes(val)
		})
	})
	return payment, err
}

// PaymentByControlNumber finds the payment that quoted a control number.
// Used by the registry to verify receipts against court filings.
func (c *Controller) PaymentByControlNumber(controlNumber string) (payment billing.Payment, err error) {
	payments, err := c.Payments()
	if err != nil {
		return payment, err
	}

	for _, candidate := range payments {
		if candidate.ControlNumber == controlNumber {
			return candidate, nil
		}
	}
	return payment, ErrPaymentNotFound
}

// Payments lists every recorded payment, newest first.
func (c *Controller) Payments() (payments []billing.Payment, err error) {
	err = c.db.View(func(txn *badger.Txn) (err error) {
		options := badger.DefaultIteratorOptions
		options.Prefix = paymentsPrefixBytes
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(paymentsPrefixBytes); it.Next() {
			var payment billing.Payment
			err = it.Item().Value(func(val []byte) (err error) {
				return payment.FromBytes(val)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal payment: %w", err)
			}
			payments = append(payments, payment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(payments, func(i, j int) bool {
		return payments[i].PaidAt.After(payments[j].PaidAt)
	})
	return payments, nil
}
