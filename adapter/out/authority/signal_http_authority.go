// Package authority implements the remote-authority outbound port.
package authority

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"signal_server/core/domain"
	"signal_server/core/port/out"
	"signal_server/pkg/httputil"
)

// HTTPAuthority talks to the remote trust-signal authority over HTTP.
// All calls run behind a circuit breaker: once the authority starts failing,
// callers get fast errors and fall back to their offline behavior instead of
// stacking up slow requests.
type HTTPAuthority struct {
	baseURL   string
	client    *http.Client
	kv        out.KVStore
	jwtSecret string
	cb        *gobreaker.CircuitBreaker
	log       zerolog.Logger

	// blocklistSource, when set, replaces the HTTP blocklist endpoint.
	// Used by self-hosted deployments that read the blocklist from Postgres.
	blocklistSource BlocklistSource
}

// BlocklistSource is an alternative backend for the community blocklist.
type BlocklistSource interface {
	FetchBlocklist(ctx context.Context) ([]domain.BlocklistEntry, error)
}

// Config for the HTTP authority adapter.
type Config struct {
	BaseURL   string
	JWTSecret string
}

// NewHTTPAuthority creates the adapter. The KV store supplies the session
// token; an absent or expired token means unauthenticated.
func NewHTTPAuthority(cfg Config, kv out.KVStore, log zerolog.Logger) *HTTPAuthority {
	a := &HTTPAuthority{
		baseURL:   cfg.BaseURL,
		client:    httputil.AuthorityClient(),
		kv:        kv,
		jwtSecret: cfg.JWTSecret,
		log:       log.With().Str("component", "authority").Logger(),
	}
	a.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "authority",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			a.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	return a
}

// SetBlocklistSource overrides the blocklist endpoint with a local source.
func (a *HTTPAuthority) SetBlocklistSource(src BlocklistSource) {
	a.blocklistSource = src
}

// Authenticated reports whether a non-expired session token is stored.
func (a *HTTPAuthority) Authenticated(ctx context.Context) bool {
	_, ok := a.sessionToken(ctx)
	return ok
}

func (a *HTTPAuthority) sessionToken(ctx context.Context) (string, bool) {
	raw, found, err := a.kv.Get(ctx, out.KeySessionToken)
	if err != nil || !found || len(raw) == 0 {
		return "", false
	}
	token := string(raw)

	parser := jwt.NewParser(jwt.WithExpirationRequired())
	if a.jwtSecret != "" {
		_, err = parser.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(a.jwtSecret), nil
		})
	} else {
		// No verification key configured: check expiry only.
		var claims jwt.RegisteredClaims
		_, _, err = parser.ParseUnverified(token, &claims)
		if err == nil {
			if claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
				err = jwt.ErrTokenExpired
			}
		}
	}
	if err != nil {
		a.log.Debug().Err(err).Msg("session token invalid")
		return "", false
	}
	return token, true
}

type entitlementResponse struct {
	IsPro bool `json:"is_pro"`
}

// CheckEntitlement asks the authority for the caller's paid-tier flag.
func (a *HTTPAuthority) CheckEntitlement(ctx context.Context) (bool, error) {
	var resp entitlementResponse
	if err := a.do(ctx, http.MethodGet, "/v1/entitlement", nil, &resp); err != nil {
		return false, err
	}
	return resp.IsPro, nil
}

// FetchBlocklist returns the full community blocklist.
func (a *HTTPAuthority) FetchBlocklist(ctx context.Context) ([]domain.BlocklistEntry, error) {
	if a.blocklistSource != nil {
		return a.blocklistSource.FetchBlocklist(ctx)
	}
	var entries []domain.BlocklistEntry
	if err := a.do(ctx, http.MethodGet, "/v1/blocklist", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// PushSettings mirrors local settings to the authority.
func (a *HTTPAuthority) PushSettings(ctx context.Context, settings domain.FilterSettings) error {
	return a.do(ctx, http.MethodPut, "/v1/settings", settings, nil)
}

// PullSettings retrieves the authority's settings copy, or nil when the
// authority has none stored.
func (a *HTTPAuthority) PullSettings(ctx context.Context) (*domain.FilterSettings, error) {
	var settings domain.FilterSettings
	err := a.do(ctx, http.MethodGet, "/v1/settings", nil, &settings)
	if err != nil {
		if errStatus(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

// PushIncludeKeyword mirrors a pro include-keyword addition.
func (a *HTTPAuthority) PushIncludeKeyword(ctx context.Context, keyword string) error {
	body := map[string]string{"keyword": keyword}
	return a.do(ctx, http.MethodPost, "/v1/include-keywords", body, nil)
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("authority returned %d: %s", e.status, e.body)
}

func errStatus(err error) int {
	if se, ok := err.(*statusError); ok {
		return se.status
	}
	return 0
}

func (a *HTTPAuthority) do(ctx context.Context, method, path string, body, result any) error {
	token, ok := a.sessionToken(ctx)
	if !ok {
		return fmt.Errorf("no valid session")
	}

	_, err := a.cb.Execute(func() (any, error) {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, &statusError{status: resp.StatusCode, body: string(raw)}
		}
		if result != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, result); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}
