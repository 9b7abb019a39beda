package access

import "context"

// Identity is the chat participant issuing a query.
type Identity struct {
	// UserID is the platform user id.
	UserID int64

	// GroupID is the group the query was sent from; 0 for a private chat.
	GroupID int64

	// Superuser marks bot operators.
	Superuser bool
}

// IsPrivate reports whether the query came from a private chat.
func (id *Identity) IsPrivate() bool {
	return id.GroupID == 0
}

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity attached to ctx, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
