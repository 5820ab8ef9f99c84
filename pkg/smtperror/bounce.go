package smtperror

// BounceType distinguishes permanent from transient rejections
type BounceType string

const (
	// BounceHard is a permanent rejection; the address should not be
	// retried and is a candidate for suppression.
	BounceHard BounceType = "hard"

	// BounceSoft is a transient rejection; delivery may succeed later.
	BounceSoft BounceType = "soft"

	// BounceNone marks a protocol response that is not a bounce.
	BounceNone BounceType = "none"
)

// BounceRecord describes the bounce semantics of one protocol response.
type BounceRecord struct {
	// Code is the SMTP reply code.
	Code int

	// Message is the server's reply text.
	Message string

	// IsBounce reports whether the code is in either bounce set.
	IsBounce bool

	// Type is hard, soft, or none.
	Type BounceType

	// Reason is the fixed human-readable reason for bounce codes, empty
	// otherwise.
	Reason string
}

// Fixed reason strings per bounce code. Like the reply code tables, these
// are pinned by tests.
var (
	hardBounceReasons = map[int]string{
		550: "mailbox unavailable or does not exist",
		551: "user not local to this server",
		552: "mailbox storage limit exceeded",
		553: "mailbox name not allowed",
		554: "transaction failed",
	}

	softBounceReasons = map[int]string{
		421: "service temporarily unavailable",
		450: "mailbox busy or temporarily unavailable",
		451: "temporary local processing error",
		452: "insufficient storage on server",
	}
)

// InterpretBounce maps a delivery failure to its bounce semantics. Only
// failures that carry a protocol response are bounces; anything else
// returns nil. Responses whose code is in neither bounce set yield a
// record with IsBounce false.
//
// A hard bounce is an override signal for retry decisions: it forces the
// delivery to stop even when the generic classification would retry.
func InterpretBounce(err error) *BounceRecord {
	resp, ok := ResponseFromError(err)
	if !ok {
		return nil
	}

	record := &BounceRecord{
		Code:    resp.Code,
		Message: resp.Message,
		Type:    BounceNone,
	}

	if reason, ok := hardBounceReasons[resp.Code]; ok {
		record.IsBounce = true
		record.Type = BounceHard
		record.Reason = reason
		return record
	}
	if reason, ok := softBounceReasons[resp.Code]; ok {
		record.IsBounce = true
		record.Type = BounceSoft
		record.Reason = reason
		return record
	}
	return record
}
