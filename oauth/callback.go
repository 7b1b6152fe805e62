// Package oauth runs the one-time browser consent flow used to mint a
// long-lived refresh token. A short-lived local HTTP listener serves the
// redirect URI, checks the state parameter and hands back the authorization
// code.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	// Maximum number of pending states to keep in memory
	maxStates  = 100
	defaultTTL = 10 * time.Minute
)

var (
	ErrInvalidState = errors.New("invalid or expired oauth state")
	ErrDenied       = errors.New("authorization denied")
)

// Callback validates redirects against issued states and delivers the code.
type Callback struct {
	ttl    time.Duration
	mu     sync.Mutex
	states map[string]time.Time
	codes  chan result
}

type result struct {
	code string
	err  error
}

// NewCallback returns a Callback whose states expire after ttl (10m if zero).
func NewCallback(ttl time.Duration) *Callback {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Callback{ttl: ttl, states: make(map[string]time.Time), codes: make(chan result, 1)}
}

// NewState issues a random state value.
func (c *Callback) NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("state gen: %w", err)
	}
	st := hex.EncodeToString(b)

	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for s, exp := range c.states {
		if now.After(exp) {
			delete(c.states, s)
		}
	}
	if len(c.states) >= maxStates {
		return "", errors.New("too many pending oauth states")
	}
	c.states[st] = now.Add(c.ttl)
	return st, nil
}

// consume reports whether st was issued and unexpired, and forgets it.
func (c *Callback) consume(st string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.states[st]
	delete(c.states, st)
	return ok && time.Now().Before(exp)
}

func (c *Callback) deliver(r result) {
	select {
	case c.codes <- r:
	default:
	}
}

// ServeHTTP handles the provider redirect.
func (c *Callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		if c.consume(q.Get("state")) {
			c.deliver(result{err: fmt.Errorf("%w: %s", ErrDenied, e)})
		}
		http.Error(w, "authorization denied: "+e, http.StatusBadRequest)
		return
	}
	code, st := q.Get("code"), q.Get("state")
	if code == "" || st == "" {
		http.Error(w, "missing code/state", http.StatusBadRequest)
		return
	}
	if !c.consume(st) {
		http.Error(w, ErrInvalidState.Error(), http.StatusBadRequest)
		return
	}
	c.deliver(result{code: code})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Authorization received. You can close this tab and return to the terminal."))
}

// Wait blocks until a valid redirect arrives or ctx ends.
func (c *Callback) Wait(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-c.codes:
		return r.code, r.err
	}
}

// RunLocal serves redirectURI on its host:port, calls open with the consent
// URL built by authURL, and returns the authorization code.
func RunLocal(ctx context.Context, redirectURI string, authURL func(state string) string, open func(consentURL string), logger *slog.Logger) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid redirect uri %q", redirectURI)
	}
	if logger == nil {
		logger = slog.Default()
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	cb := NewCallback(0)
	st, err := cb.NewState()
	if err != nil {
		return "", err
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return "", fmt.Errorf("listen for oauth redirect: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle(path, cb)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("oauth callback server error", slog.Any("err", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("waiting for oauth redirect", slog.String("listen", ln.Addr().String()), slog.String("path", path))
	open(authURL(st))
	return cb.Wait(ctx)
}
