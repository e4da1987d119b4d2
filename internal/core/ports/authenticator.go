package ports

import (
	"context"

	"shiptrack/internal/core/domain/model/identity"
)

// Authenticator verifies a bearer token issued by the external identity
// provider. Invalid or expired tokens yield errs.UnauthorizedError.
type Authenticator interface {
	Verify(ctx context.Context, token string) (identity.Principal, error)
}
