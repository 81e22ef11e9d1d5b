package session

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/dmitrijs2005/anonify/internal/common"
	"github.com/dmitrijs2005/anonify/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

type attemptKey struct{}

type attempt struct {
	handled atomic.Bool
}

// WithAttempt marks ctx as one logical request. Retries issued with the same
// context are never treated as a fresh authentication failure.
func WithAttempt(ctx context.Context) context.Context {
	if _, ok := ctx.Value(attemptKey{}).(*attempt); ok {
		return ctx
	}
	return context.WithValue(ctx, attemptKey{}, &attempt{})
}

// Attach returns a copy of req carrying the bearer credential. req is
// returned unchanged when token is empty.
func Attach(req *http.Request, token string) *http.Request {
	if token == "" {
		return req
	}
	r := req.Clone(req.Context())
	r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return r
}

// ExpiresAt reads the exp claim of a JWT without verifying its signature.
// ok is false for opaque tokens and tokens without exp.
func ExpiresAt(token string) (t time.Time, ok bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Guard is an http.RoundTripper that attaches the stored credential and
// resets the session when the server answers 401. There is no refresh: an
// authentication failure always ends the session.
//
// A 401 is handled at most once per originating request: re-sending the same
// *http.Request, or any request carrying the same WithAttempt context, never
// triggers a second reset.
type Guard struct {
	store *Store
	next  http.RoundTripper
	clock clockwork.Clock
	log   logging.Logger

	mu      sync.Mutex
	handled map[weak.Pointer[http.Request]]struct{}
}

func NewGuard(store *Store, next http.RoundTripper, clk clockwork.Clock, log logging.Logger) *Guard {
	if next == nil {
		next = http.DefaultTransport
	}
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Guard{
		store:   store,
		next:    next,
		clock:   clk,
		log:     log,
		handled: make(map[weak.Pointer[http.Request]]struct{}),
	}
}

func (g *Guard) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := WithAttempt(req.Context())
	token := g.usableToken(ctx)

	resp, err := g.next.RoundTrip(Attach(req.WithContext(ctx), token))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		g.onUnauthorized(ctx, req, token)
	}
	return resp, nil
}

// Require reports common.ErrUnauthorized when there is no usable credential.
// An expired credential is cleared on the way.
func (g *Guard) Require(ctx context.Context) error {
	if g.usableToken(ctx) == "" {
		return common.ErrUnauthorized
	}
	return nil
}

func (g *Guard) usableToken(ctx context.Context) string {
	token := g.store.Token()
	if token == "" {
		return ""
	}
	exp, ok := ExpiresAt(token)
	if !ok || g.clock.Now().Before(exp) {
		return token
	}

	cleared, err := g.store.ClearIf(ctx, token, ReasonExpired)
	if err != nil {
		g.log.Error(ctx, "failed to clear expired session", "error", err)
	}
	if cleared {
		g.log.Info(ctx, "session expired", "expired_at", exp)
	}
	return ""
}

func (g *Guard) onUnauthorized(ctx context.Context, req *http.Request, token string) {
	if g.markHandled(req) {
		return
	}
	if a, ok := ctx.Value(attemptKey{}).(*attempt); ok {
		if !a.handled.CompareAndSwap(false, true) {
			return
		}
	}
	if token == "" {
		return
	}

	cleared, err := g.store.ClearIf(ctx, token, ReasonUnauthorized)
	if err != nil {
		g.log.Error(ctx, "failed to clear session", "error", err)
	}
	if cleared {
		g.log.Warn(ctx, "session reset after 401", "method", req.Method, "path", req.URL.Path)
	}
}

// markHandled records req as having had its 401 handled and reports whether
// it already had. Entries for collected requests are dropped on the way.
func (g *Guard) markHandled(req *http.Request) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k := range g.handled {
		if k.Value() == nil {
			delete(g.handled, k)
		}
	}
	key := weak.Make(req)
	if _, ok := g.handled[key]; ok {
		return true
	}
	g.handled[key] = struct{}{}
	return false
}
