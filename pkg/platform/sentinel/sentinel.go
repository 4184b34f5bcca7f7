package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (wrapped) and the
// person service translates them into domain error codes:
// - ErrNotFound: the row does not exist
// - ErrConflict: the transaction lost a race (serialization failure, deadlock,
//   lock or statement timeout) and rolled back; safe to retry from scratch
// - ErrReferenceMissing: a referenced row (such as a change set) does not exist
// - ErrUnavailable: the backing store cannot be reached
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrReferenceMissing = errors.New("referenced row missing")
	ErrUnavailable      = errors.New("unavailable")
)
