package reconcile

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/trais-tz/epay/billing"
	"github.com/trais-tz/epay/gepg"
)

// ApplyRegistration records the control number the gateway assigned to a
// bill. Re-applying an identical response is a no-op, and a terminal bill
// keeps its status whatever the response says.
func (c *Controller) ApplyRegistration(resp gepg.RegistrationResponse) (err error) {
	lock := c.billLock(resp.BillID)
	lock.Lock()
	defer lock.Unlock()

	return c.db.Update(func(txn *badger.Txn) (err error) {
		bill, err := c.getBill(txn, resp.BillID)
		if err != nil {
			return err
		}

		if bill.ControlNumber == resp.ControlNumber && bill.ResponseCode == resp.TrxStatusCode {
			return nil
		}

		bill.ControlNumber = resp.ControlNumber
		bill.ResponseCode = resp.TrxStatusCode
		if !bill.Terminal() {
			bill.Status = billing.StatusControlNumberAssigned
		}

		err = c.saveBill(txn, &bill)
		if err != nil {
			return fmt.Errorf("failed to save bill: %w", err)
		}

		err = txn.Set(ControlKey(resp.ControlNumber), []byte(bill.BillID))
		if err != nil {
			return fmt.Errorf("failed to index control number: %w", err)
		}
		return nil
	})
}
