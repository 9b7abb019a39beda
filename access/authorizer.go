package access

import (
	"context"
	"fmt"
)

// Request asks which group an identity may query.
type Request struct {
	// Subject is the identity issuing the query.
	Subject *Identity

	// GroupID is the group named in the query, 0 when none was given.
	GroupID int64
}

// Authorizer resolves the group a request may read.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: denials return *AuthzError, which matches ErrForbidden.
type Authorizer interface {
	Authorize(ctx context.Context, req *Request) (groupID int64, err error)
}

// AuthzError describes a denied request.
type AuthzError struct {
	UserID  int64
	GroupID int64
	Reason  string
	Cause   error
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: user=%d group=%d reason=%q", e.UserID, e.GroupID, e.Reason)
}

// Unwrap returns the cause.
func (e *AuthzError) Unwrap() error { return e.Cause }

// Is matches ErrForbidden.
func (e *AuthzError) Is(target error) bool { return target == ErrForbidden }

// ScopeAuthorizer pins group chats to their own group and lets superusers
// query any group from a private chat.
type ScopeAuthorizer struct {
	superusers map[int64]struct{}
}

// NewScopeAuthorizer creates a ScopeAuthorizer. Users listed in superusers
// are treated as superusers even when their Identity does not say so.
func NewScopeAuthorizer(superusers ...int64) *ScopeAuthorizer {
	set := make(map[int64]struct{}, len(superusers))
	for _, id := range superusers {
		set[id] = struct{}{}
	}
	return &ScopeAuthorizer{superusers: set}
}

// IsSuperuser reports whether id is a superuser.
func (a *ScopeAuthorizer) IsSuperuser(id *Identity) bool {
	if id == nil {
		return false
	}
	if id.Superuser {
		return true
	}
	_, ok := a.superusers[id.UserID]
	return ok
}

// Authorize returns the group the query will read.
func (a *ScopeAuthorizer) Authorize(_ context.Context, req *Request) (int64, error) {
	if req == nil || req.Subject == nil {
		return 0, ErrMissingIdentity
	}
	id := req.Subject

	if !id.IsPrivate() {
		return id.GroupID, nil
	}
	if !a.IsSuperuser(id) {
		return 0, &AuthzError{
			UserID:  id.UserID,
			GroupID: req.GroupID,
			Reason:  "private chat queries are limited to superusers",
		}
	}
	if req.GroupID <= 0 {
		return 0, fmt.Errorf("%w: private chat queries must name one", ErrGroupRequired)
	}
	return req.GroupID, nil
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, req *Request) (int64, error)

// Authorize calls f.
func (f AuthorizerFunc) Authorize(ctx context.Context, req *Request) (int64, error) {
	return f(ctx, req)
}
