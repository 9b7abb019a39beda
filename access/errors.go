package access

import "errors"

var (
	// ErrForbidden indicates the identity may not query the requested group.
	ErrForbidden = errors.New("access: access denied")

	// ErrGroupRequired indicates a private-chat query did not name a group.
	ErrGroupRequired = errors.New("access: group required")

	// ErrMissingIdentity indicates a request without an identity.
	ErrMissingIdentity = errors.New("access: missing identity")
)
