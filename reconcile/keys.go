package reconcile

import "fmt"

// Key layout:
//
//	/bills/<billId>        bill aggregate
//	/pending/<billId>      marker for bills that may still transition
//	/payments/<txn>:<ref>  immutable payment records; the key doubles as
//	                       the idempotency constraint
//	/control/<number>      control number -> billId index
func BillKey(billID string) (key []byte) {
	return []byte(fmt.Sprintf("/bills/%s", billID))
}

func PendingKey(billID string) (key []byte) {
	return []byte(fmt.Sprintf("/pending/%s", billID))
}

func PaymentKey(uniqueKey string) (key []byte) {
	return []byte(fmt.Sprintf("/payments/%s", uniqueKey))
}

func ControlKey(controlNumber string) (key []byte) {
	return []byte(fmt.Sprintf("/control/%s", controlNumber))
}

var (
	pendingPrefixBytes  = []byte("/pending/")
	paymentsPrefixBytes = []byte("/payments/")
)
