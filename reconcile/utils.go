package reconcile

import (
	"errors"
	"fmt"
	"log"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/trais-tz/epay/billing"
)

func (c *Controller) getBill(txn *badger.Txn, billID string) (bill billing.Bill, err error) {
	item, err := txn.Get(BillKey(billID))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return bill, ErrBillNotFound
	case err != nil:
		return bill, fmt.Errorf("failed to retrieve bill: %w", err)
	}

	err = item.Value(func(val []byte) (err error) {
		return bill.FromBytes(val)
	})
	if err != nil {
		return bill, fmt.Errorf("failed to unmarshal bill: %w", err)
	}
	return bill, nil
}

func (c *Controller) saveBill(txn *badger.Txn, bill *billing.Bill) (err error) {
	bill.UpdatedAt = time.Now()

	err = txn.Set(BillKey(bill.BillID), bill.Bytes())
	if err != nil {
		return fmt.Errorf("failed to set bill at key: %w", err)
	}
	return nil
}

// Streams the bills behind the pending markers into a channel. Intended to
// run in parallel with the consumer; the channel must be drained.
func (c *Controller) streamPendingBills() (bills chan billing.Bill, errChan chan error) {
	bills = make(chan billing.Bill, 1_000)
	errChan = make(chan error, 1)
	go func() {
		defer close(bills)
		defer close(errChan)

		errChan <- c.db.View(func(txn *badger.Txn) (err error) {
			options := badger.DefaultIteratorOptions
			options.Prefix = pendingPrefixBytes
			it := txn.NewIterator(options)
			defer it.Close()

			for it.Rewind(); it.ValidForPrefix(pendingPrefixBytes); it.Next() {
				var billID string
				err = it.Item().Value(func(val []byte) (err error) {
					billID = string(val)
					return nil
				})
				if err != nil {
					log.Println("failed to read pending marker:", err)
					continue
				}

				bill, err := c.getBill(txn, billID)
				if err != nil {
					log.Println("pending marker without a bill:", billID, err)
					continue
				}

				bills <- bill
			}
			return nil
		})
	}()
	return bills, errChan
}
