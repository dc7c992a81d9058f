package reconcile

import (
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/trais-tz/epay/billing"
)

// Create assembles a bill from the billing context and persists it as
// pending. Nothing goes over the wire here; Submit does that, so a bill
// that fails fee resolution never reaches the gateway.
func (c *Controller) Create(req billing.Request) (bill billing.Bill, err error) {
	bill, err = billing.NewBill(req, c.fees, time.Now())
	if err != nil {
		return bill, fmt.Errorf("failed to build bill: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) (err error) {
		err = txn.Set(BillKey(bill.BillID), bill.Bytes())
		if err != nil {
			return fmt.Errorf("failed to store bill: %w", err)
		}

		err = txn.Set(PendingKey(bill.BillID), []byte(bill.BillID))
		if err != nil {
			return fmt.Errorf("failed to add pending marker: %w", err)
		}
		return nil
	})
	if err != nil {
		return bill, fmt.Errorf("failed to add entry to the database: %w", err)
	}
	return bill, nil
}
