// Package session holds one automation session per owner (a suite worker).
//
// Sessions are explicit handles: callers receive a *Session from Create and
// pass it to page objects. The registry only guarantees the one-per-owner
// invariant and teardown.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/config"
	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/driver/appium"
	"github.com/devicelab-dev/contacts-runner/pkg/logger"
	"github.com/google/uuid"
)

// Factory opens a backend session.
type Factory func(ctx context.Context, serverURL string, caps map[string]interface{}) (core.Driver, error)

// AppiumFactory opens sessions on an Appium server.
func AppiumFactory(ctx context.Context, serverURL string, caps map[string]interface{}) (core.Driver, error) {
	return appium.NewDriver(ctx, serverURL, caps)
}

// Session is one live connection to the backend, bound to one owner.
type Session struct {
	ID           string
	Owner        string
	ServerURL    string
	Capabilities map[string]interface{}
	Driver       core.Driver
	CreatedAt    time.Time
}

// Registry maps owners to their sessions.
type Registry struct {
	factory Factory

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry. A nil factory uses AppiumFactory.
func NewRegistry(factory Factory) *Registry {
	if factory == nil {
		factory = AppiumFactory
	}
	return &Registry{
		factory:  factory,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session for owner using the capabilities derived from settings.
// An existing session of the same owner is destroyed first.
func (r *Registry) Create(ctx context.Context, owner string, settings *config.Settings) (*Session, error) {
	if _, ok := r.Current(owner); ok {
		logger.Warn("Owner %s already has a session, destroying it first", owner)
		if err := r.Destroy(owner); err != nil {
			logger.Warn("Closing previous session of %s: %v", owner, err)
		}
	}

	caps := settings.Capabilities()
	url := settings.ServerURL
	logger.Info("Creating session for %s on %s (device %s)", owner, url, settings.DeviceName)

	drv, err := r.factory(ctx, url, caps)
	if err != nil {
		logger.Error("Session creation failed for %s: %v", owner, err)
		return nil, core.ErrSessionInit.
			WithMessage("cannot open session on " + url).
			WithDetails(map[string]interface{}{"owner": owner, "serverUrl": url}).
			WithCause(err)
	}

	if err := drv.SetImplicitWait(settings.ImplicitWait); err != nil {
		_ = drv.Close()
		return nil, core.ErrSessionInit.
			WithMessage("cannot set implicit wait").
			WithCause(err)
	}

	sess := &Session{
		ID:           uuid.NewString(),
		Owner:        owner,
		ServerURL:    url,
		Capabilities: caps,
		Driver:       drv,
		CreatedAt:    time.Now(),
	}

	r.mu.Lock()
	prev := r.sessions[owner]
	r.sessions[owner] = sess
	r.mu.Unlock()

	if prev != nil {
		_ = prev.Driver.Close()
	}

	logger.Info("Session %s ready for %s", sess.ID, owner)
	return sess, nil
}

// Current returns the session of owner without touching the backend.
func (r *Registry) Current(owner string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[owner]
	return sess, ok
}

// Driver returns the driver of owner's session or core.ErrNoSession.
func (r *Registry) Driver(owner string) (core.Driver, error) {
	sess, ok := r.Current(owner)
	if !ok {
		return nil, core.ErrNoSession.WithMessage("no active session for " + owner)
	}
	return sess.Driver, nil
}

// Destroy closes owner's session. Without a session it does nothing.
// The slot is cleared even when closing the remote session fails.
func (r *Registry) Destroy(owner string) error {
	r.mu.Lock()
	sess, ok := r.sessions[owner]
	delete(r.sessions, owner)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	logger.Info("Destroying session %s of %s", sess.ID, owner)
	return sess.Driver.Close()
}

// DestroyAll closes every remaining session.
func (r *Registry) DestroyAll() error {
	var errs []error
	for _, owner := range r.Owners() {
		if err := r.Destroy(owner); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Owners returns the owners holding a session, sorted.
func (r *Registry) Owners() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	owners := make([]string, 0, len(r.sessions))
	for o := range r.sessions {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return owners
}
