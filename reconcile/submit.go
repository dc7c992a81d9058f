package reconcile

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/trais-tz/epay/billing"
)

// Submit builds the signed envelope for a bill and posts it to the
// gateway. On a transport failure the bill stays PENDING and the call is
// safe to retry; the envelope is rebuilt and re-signed each attempt.
func (c *Controller) Submit(ctx context.Context, billID string) (err error) {
	lock := c.billLock(billID)
	lock.Lock()
	defer lock.Unlock()

	var bill billing.Bill
	err = c.db.View(func(txn *badger.Txn) (err error) {
		bill, err = c.getBill(txn, billID)
		return err
	})
	if err != nil {
		return err
	}

	if bill.Terminal() {
		return fmt.Errorf("bill %s is %s and can not be submitted", bill.BillID, bill.Status)
	}

	envelope, err := c.codec.BuildSubmission(&bill)
	if err != nil {
		return fmt.Errorf("failed to build submission: %w", err)
	}

	_, err = c.client.Submit(ctx, envelope)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmissionTransport, err)
	}

	// Only a fresh bill advances; a resubmission after registration must
	// not regress the status.
	if bill.Status != billing.StatusPending {
		return nil
	}

	bill.Status = billing.StatusSubmitted
	err = c.db.Update(func(txn *badger.Txn) (err error) {
		return c.saveBill(txn, &bill)
	})
	if err != nil {
		return fmt.Errorf("failed to save bill: %w", err)
	}
	return nil
}
