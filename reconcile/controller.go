package reconcile

import (
	"context"
	"errors"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/trais-tz/epay/billing"
	"github.com/trais-tz/epay/gepg"
)

var (
	ErrBillNotFound        = errors.New("bill not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrSubmissionTransport = errors.New("gateway submission failed")
)

// Submitter posts a signed envelope to the gateway submission endpoint.
type Submitter interface {
	Submit(ctx context.Context, envelope []byte) (response []byte, err error)
}

// Controller owns every bill and payment state transition. Inbound
// notifications may arrive concurrently and redelivered; the per bill lock
// plus single badger transactions keep the transitions serialized.
type Controller struct {
	db     *badger.DB
	codec  gepg.Codec
	client Submitter
	fees   billing.FeeLookup

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Config struct {
	// Badger database holding bills and payments
	DB *badger.DB
	// Protocol codec wired with the signer
	Codec gepg.Codec
	// Outbound submission client
	Client Submitter
	// Tariff lookup used when assembling bills
	Fees billing.FeeLookup
}

func New(config Config) (ctrl *Controller) {
	return &Controller{
		db:     config.DB,
		codec:  config.Codec,
		client: config.Client,
		fees:   config.Fees,
		locks:  make(map[string]*sync.Mutex),
	}
}

// billLock serializes transitions per bill so a registration update and a
// payment update targeting the same bill can not overwrite each other.
func (c *Controller) billLock(billID string) (lock *sync.Mutex) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, found := c.locks[billID]
	if !found {
		lock = &sync.Mutex{}
		c.locks[billID] = lock
	}
	return lock
}
