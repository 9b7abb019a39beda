package access

import (
	"context"
	"errors"
	"testing"
)

func TestScopeAuthorizer_Authorize(t *testing.T) {
	authz := NewScopeAuthorizer(42)

	tests := []struct {
		name      string
		req       *Request
		wantGroup int64
		wantErr   error
	}{
		{
			name:      "group chat uses current group",
			req:       &Request{Subject: &Identity{UserID: 7, GroupID: 100}},
			wantGroup: 100,
		},
		{
			name:      "group chat ignores requested group",
			req:       &Request{Subject: &Identity{UserID: 7, GroupID: 100}, GroupID: 200},
			wantGroup: 100,
		},
		{
			name:    "private chat non superuser",
			req:     &Request{Subject: &Identity{UserID: 7}, GroupID: 200},
			wantErr: ErrForbidden,
		},
		{
			name:      "private chat configured superuser",
			req:       &Request{Subject: &Identity{UserID: 42}, GroupID: 200},
			wantGroup: 200,
		},
		{
			name:      "private chat flagged superuser",
			req:       &Request{Subject: &Identity{UserID: 9, Superuser: true}, GroupID: 300},
			wantGroup: 300,
		},
		{
			name:    "private chat superuser without group",
			req:     &Request{Subject: &Identity{UserID: 42}},
			wantErr: ErrGroupRequired,
		},
		{
			name:    "missing subject",
			req:     &Request{GroupID: 200},
			wantErr: ErrMissingIdentity,
		},
		{
			name:    "nil request",
			wantErr: ErrMissingIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authz.Authorize(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Authorize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authorize() unexpected error = %v", err)
			}
			if got != tt.wantGroup {
				t.Errorf("Authorize() = %d, want %d", got, tt.wantGroup)
			}
		})
	}
}

func TestAuthzError(t *testing.T) {
	cause := errors.New("blocked")
	err := &AuthzError{UserID: 7, GroupID: 200, Reason: "nope", Cause: cause}

	if !errors.Is(err, ErrForbidden) {
		t.Error("AuthzError should match ErrForbidden")
	}
	if !errors.Is(err, cause) {
		t.Error("AuthzError should unwrap to its cause")
	}
	want := `authorization denied: user=7 group=200 reason="nope"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var target *AuthzError
	_, denied := NewScopeAuthorizer().Authorize(context.Background(), &Request{Subject: &Identity{UserID: 7}, GroupID: 1})
	if !errors.As(denied, &target) || target.UserID != 7 {
		t.Errorf("errors.As() = %v, want *AuthzError for user 7", denied)
	}
}

func TestIsSuperuser(t *testing.T) {
	authz := NewScopeAuthorizer(1, 2)

	tests := []struct {
		name string
		id   *Identity
		want bool
	}{
		{"nil", nil, false},
		{"listed", &Identity{UserID: 2}, true},
		{"flagged", &Identity{UserID: 3, Superuser: true}, true},
		{"regular", &Identity{UserID: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := authz.IsSuperuser(tt.id); got != tt.want {
				t.Errorf("IsSuperuser() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorizerFunc(t *testing.T) {
	var a Authorizer = AuthorizerFunc(func(_ context.Context, req *Request) (int64, error) {
		return req.GroupID * 2, nil
	})

	got, err := a.Authorize(context.Background(), &Request{GroupID: 21})
	if err != nil || got != 42 {
		t.Errorf("Authorize() = %d, %v, want 42, nil", got, err)
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil {
		t.Error("empty context should have no identity")
	}

	id := &Identity{UserID: 7, GroupID: 100}
	if got := IdentityFromContext(WithIdentity(ctx, id)); got != id {
		t.Errorf("IdentityFromContext() = %v, want %v", got, id)
	}
	if id.IsPrivate() {
		t.Error("group identity reported as private")
	}
	if !(&Identity{UserID: 7}).IsPrivate() {
		t.Error("identity without group should be private")
	}
}
