package out

import (
	"context"

	"signal_server/core/domain"
)

// Authority is the remote service used for entitlement checks, settings sync
// and community blocklist refresh. All calls are best-effort: callers must
// map failures to their defined offline behavior (fail-closed entitlement,
// stale-served blocklist) rather than propagating them.
type Authority interface {
	// Authenticated reports whether a valid session is available.
	// Unauthenticated callers skip remote sync and fail entitlement closed.
	Authenticated(ctx context.Context) bool

	// CheckEntitlement returns the caller's paid-tier flag.
	CheckEntitlement(ctx context.Context) (bool, error)

	// FetchBlocklist returns the full community blocklist.
	FetchBlocklist(ctx context.Context) ([]domain.BlocklistEntry, error)

	// PushSettings mirrors local settings to the authority.
	PushSettings(ctx context.Context, settings domain.FilterSettings) error

	// PullSettings retrieves the authority's copy of the settings, or nil
	// when none are stored remotely.
	PullSettings(ctx context.Context) (*domain.FilterSettings, error)

	// PushIncludeKeyword mirrors a pro include-keyword addition.
	PushIncludeKeyword(ctx context.Context, keyword string) error
}
