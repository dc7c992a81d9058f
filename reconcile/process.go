package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/trais-tz/epay/billing"
	"github.com/trais-tz/epay/utils"
)

const MaxConcurrentJobs = 100

// ProcessExpiredBills walks the pending markers and expires every bill
// whose expiry elapsed without a payment. Returns the number of bills
// inspected.
func (c *Controller) ProcessExpiredBills() (processed uint64, err error) {
	now := time.Now()

	bills, errChan := c.streamPendingBills()
	defer utils.ConsumeChannel(bills)
	defer utils.ConsumeChannel(errChan)

	var jobs = utils.NewJobPool(MaxConcurrentJobs)
	var wg sync.WaitGroup
	for bill := range bills {
		processed++
		jobs.Get()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer jobs.Put()

			err := c.expireBill(now, bill.BillID)
			if err != nil {
				log.Printf("failed to expire bill %s: %v", bill.BillID, err)
			}
		}()
	}
	wg.Wait()

	err = <-errChan
	if err != nil {
		return processed, fmt.Errorf("failed to stream pending bills: %w", err)
	}
	return processed, nil
}

func (c *Controller) expireBill(now time.Time, billID string) (err error) {
	lock := c.billLock(billID)
	lock.Lock()
	defer lock.Unlock()

	return c.db.Update(func(txn *badger.Txn) (err error) {
		bill, err := c.getBill(txn, billID)
		if errors.Is(err, ErrBillNotFound) {
			// Stale marker, the bill is gone
			return txn.Delete(PendingKey(billID))
		}
		if err != nil {
			return err
		}

		if bill.Terminal() {
			return txn.Delete(PendingKey(billID))
		}
		if !bill.Expired(now) {
			return nil
		}

		bill.Status = billing.StatusExpired
		err = c.saveBill(txn, &bill)
		if err != nil {
			return fmt.Errorf("failed to save bill: %w", err)
		}
		return txn.Delete(PendingKey(billID))
	})
}

// ProcessPendingSubmissions retries submission for bills that never made
// it to the gateway. Returns the number of bills resubmitted.
func (c *Controller) ProcessPendingSubmissions(ctx context.Context) (processed uint64, err error) {
	bills, errChan := c.streamPendingBills()
	defer utils.ConsumeChannel(bills)
	defer utils.ConsumeChannel(errChan)

	var jobs = utils.NewJobPool(MaxConcurrentJobs)
	var wg sync.WaitGroup
	for bill := range bills {
		if bill.Status != billing.StatusPending {
			continue
		}

		processed++
		jobs.Get()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer jobs.Put()

			err := c.Submit(ctx, bill.BillID)
			if err != nil {
				log.Printf("failed to resubmit bill %s: %v", bill.BillID, err)
			}
		}()
	}
	wg.Wait()

	err = <-errChan
	if err != nil {
		return processed, fmt.Errorf("failed to stream pending bills: %w", err)
	}
	return processed, nil
}
