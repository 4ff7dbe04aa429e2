package out

import (
	"context"
)

// Storage key names. All components share one logical namespace with a fixed
// key per collection.
const (
	KeySettings           = "jobtrust:settings"
	KeyBadgeState         = "jobtrust:badge_state"
	KeyIncludeKeywords    = "jobtrust:include_kw"
	KeyExcludeKeywords    = "jobtrust:exclude_kw"
	KeyExcludeCompanies   = "jobtrust:exclude_co"
	KeyBlocklist          = "jobtrust:blocklist"
	KeyBlocklistFetchedAt = "jobtrust:blocklist_ts"
	KeyEntitlement        = "jobtrust:pro_status"
	KeySessionToken       = "jobtrust:session_token"
)

// KVStore is the durable key-value storage provided by the host platform.
// Get reports found=false for a missing key; a missing key is never an error.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
