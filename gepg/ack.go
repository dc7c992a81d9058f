package gepg

import "fmt"

// AckStatusCode is returned on every acknowledgment. The gateway expects
// synchronous acceptance of each inbound call even when the business layer
// discards the notification, so the success code is used uniformly.
const AckStatusCode = "7101"

func (c *Codec) ack(element string) (ack []byte, err error) {
	fragment := []byte("<" + element + "><TrxStsCode>" + AckStatusCode + "</TrxStsCode></" + element + ">")

	signature, err := c.signer.Sign(fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s: %w", element, err)
	}
	return wrapSigned(fragment, signature), nil
}

// RegistrationAck acknowledges a bill registration response.
func (c *Codec) RegistrationAck() (ack []byte, err error) {
	return c.ack("gepgBillSubRespAck")
}

// PaymentAck acknowledges a payment notification.
func (c *Codec) PaymentAck() (ack []byte, err error) {
	return c.ack("gepgPmtSpInfoAck")
}
