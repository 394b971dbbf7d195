package ports

import "context"

// PasswordPolicy validates raw passwords. Check returns nil or a
// *domain.ValidationError.
type PasswordPolicy interface {
	Check(raw string) error
}

// CredentialHasher hashes passwords one way and verifies candidates.
type CredentialHasher interface {
	Hash(ctx context.Context, raw string) (string, error)
	// Verify reports whether raw matches hash. A malformed hash yields
	// (false, nil); errors are reserved for cancellation and timeouts.
	Verify(ctx context.Context, raw, hash string) (bool, error)
}
