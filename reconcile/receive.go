package reconcile

import (
	"errors"
	"log"

	"github.com/trais-tz/epay/gepg"
)

// ReceiveRegistration handles a raw registration callback and returns the
// signed acknowledgment. Every inbound call is acknowledged whatever the
// business outcome; the raw payload is logged when it can not be applied
// so it stays available for investigation.
func (c *Controller) ReceiveRegistration(raw []byte) (ack []byte, err error) {
	n, parseErr := gepg.Parse(raw)
	switch {
	case parseErr != nil:
		log.Printf("discarding unparseable registration response: %v: %s", parseErr, raw)
	case n.Registration == nil:
		log.Printf("expected a registration response, got something else: %s", raw)
	default:
		applyErr := c.ApplyRegistration(*n.Registration)
		if applyErr != nil {
			log.Printf("failed to apply registration for bill %s: %v", n.Registration.BillID, applyErr)
		}
	}
	return c.codec.RegistrationAck()
}

// ReceivePayment handles a raw payment notification and returns the
// signed acknowledgment. An unknown bill id and a duplicate delivery both
// still get the acknowledgment; neither mutates any state.
func (c *Controller) ReceivePayment(raw []byte) (ack []byte, err error) {
	n, parseErr := gepg.Parse(raw)
	switch {
	case parseErr != nil:
		log.Printf("discarding unparseable payment notification: %v: %s", parseErr, raw)
	case n.Payment == nil:
		log.Printf("expected a payment notification, got something else: %s", raw)
	default:
		applyErr := c.ApplyPayment(*n.Payment)
		switch {
		case errors.Is(applyErr, ErrBillNotFound):
			log.Printf("payment notification for unknown bill %s, transaction %s", n.Payment.BillID, n.Payment.TransactionID)
		case applyErr != nil:
			log.Printf("failed to apply payment for bill %s: %v", n.Payment.BillID, applyErr)
		}
	}
	return c.codec.PaymentAck()
}
