package whatsapp

import (
	"errors"
	"fmt"
)

// ErrAuthentication is the parent of every inbound authenticity failure.
var ErrAuthentication = errors.New("whatsapp: authentication failed")

var (
	// ErrAccountMismatch means the callback's AccountSid is not ours.
	ErrAccountMismatch = fmt.Errorf("%w: account SID mismatch", ErrAuthentication)

	// ErrInvalidSignature means the X-Twilio-Signature header did not verify.
	ErrInvalidSignature = fmt.Errorf("%w: invalid request signature", ErrAuthentication)
)

// ErrPayloadTooLarge means a callback body exceeded the webhook limit and
// was dropped unparsed.
var ErrPayloadTooLarge = errors.New("whatsapp: callback body too large")

// DeliveryError describes a failed outbound send. Status is zero when the
// request never produced a response.
type DeliveryError struct {
	Status int
	Body   string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("whatsapp: delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("whatsapp: delivery failed with status %d", e.Status)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
