package authority

import (
	"context"
	"errors"

	"signal_server/core/domain"
)

// ErrNotConfigured is returned by NoopAuthority for every remote call.
var ErrNotConfigured = errors.New("authority not configured")

// NoopAuthority is used when no authority URL is configured. Always
// unauthenticated, so entitlement fails closed and sync is skipped.
type NoopAuthority struct{}

func NewNoopAuthority() *NoopAuthority { return &NoopAuthority{} }

func (*NoopAuthority) Authenticated(context.Context) bool { return false }

func (*NoopAuthority) CheckEntitlement(context.Context) (bool, error) {
	return false, ErrNotConfigured
}

func (*NoopAuthority) FetchBlocklist(context.Context) ([]domain.BlocklistEntry, error) {
	return nil, ErrNotConfigured
}

func (*NoopAuthority) PushSettings(context.Context, domain.FilterSettings) error {
	return ErrNotConfigured
}

func (*NoopAuthority) PullSettings(context.Context) (*domain.FilterSettings, error) {
	return nil, ErrNotConfigured
}

func (*NoopAuthority) PushIncludeKeyword(context.Context, string) error {
	return ErrNotConfigured
}
