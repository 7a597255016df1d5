package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/errors"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/logger"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/metrics"
)

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Login(ctx context.Context, login, password string) (*domain.LoginResponse, error)
}

// Manager owns the in-memory session and keeps the Store in step with it.
type Manager struct {
	store   *Store
	auth    Authenticator
	logger  logger.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	state    State
	degraded bool

	signingIn atomic.Bool
}

// NewManager creates a Manager. m may be nil.
func NewManager(store *Store, auth Authenticator, log logger.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		store:   store,
		auth:    auth,
		logger:  log.With(logger.String("component", "session-manager")),
		metrics: m,
	}
}

// SetAuthenticator replaces the authenticator. The API client both needs the
// manager and serves as its authenticator, so it is wired after creation.
func (m *Manager) SetAuthenticator(auth Authenticator) {
	m.mu.Lock()
	m.auth = auth
	m.mu.Unlock()
}

// Restore loads the stored session into memory.
func (m *Manager) Restore(ctx context.Context) State {
	state := Resolve(ctx, m.store)

	m.mu.Lock()
	m.state = state
	m.mu.Unlock()

	if state.SignedIn() {
		m.logger.Debug("session restored",
			logger.String("user_id", state.Identity.ID.String()),
			logger.String("role", string(state.Identity.Role)))
	}
	return state
}

// State returns a copy of the in-memory session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Identity returns the signed-in identity, or nil.
func (m *Manager) Identity() *domain.Identity {
	return m.State().Identity
}

// CompanyID returns the selected company, or nil.
func (m *Manager) CompanyID() *domain.ID {
	return m.State().CompanyID
}

// Degraded reports whether the session lives only in memory because the
// store could not be written.
func (m *Manager) Degraded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.degraded
}

// Credentials returns the bearer token and the selected company id, both
// empty when signed out.
func (m *Manager) Credentials() (token string, companyID string) {
	state := m.State()
	if !state.SignedIn() {
		return "", ""
	}
	if state.CompanyID != nil {
		companyID = state.CompanyID.String()
	}
	return state.Token, companyID
}

// SignIn authenticates with normalized credentials and starts a session.
// Authentication errors are returned unchanged and leave everything as it
// was. A store failure only degrades the session to memory.
func (m *Manager) SignIn(ctx context.Context, login, password string) (*domain.Identity, error) {
	if !m.signingIn.CompareAndSwap(false, true) {
		return nil, errors.New(errors.ErrSignInInProgress, "sign-in already in progress")
	}
	defer m.signingIn.Store(false)

	login = NormalizeLogin(login)
	password = NormalizePassword(password)

	m.mu.RLock()
	auth := m.auth
	m.mu.RUnlock()
	if auth == nil {
		return nil, errors.New(errors.ErrInternal, "no authenticator configured")
	}

	m.logger.Info("signing in", logger.String("login", login))

	resp, err := auth.Login(ctx, login, password)
	if err != nil {
		m.metrics.SessionEvent(metrics.EventSignInFailed)
		m.logger.Warn("sign-in failed", logger.String("login", login), logger.Error(err))
		return nil, err
	}
	if resp == nil || resp.Token == "" {
		m.metrics.SessionEvent(metrics.EventSignInFailed)
		return nil, errors.New(errors.ErrInternal, "login response carries no token")
	}

	identity := resp.User
	degraded := false
	if err := m.store.Save(ctx, resp.Token, &identity); err != nil {
		if !errors.HasCode(err, errors.ErrStorage) {
			return nil, err
		}
		degraded = true
		m.metrics.SessionEvent(metrics.EventDegraded)
		m.logger.Warn("session kept in memory only", logger.Error(err))
	}

	m.mu.Lock()
	m.state = State{Token: resp.Token, Identity: &identity}
	m.degraded = degraded
	m.mu.Unlock()

	m.metrics.SessionEvent(metrics.EventSignIn)
	m.logger.Info("signed in",
		logger.String("user_id", identity.ID.String()),
		logger.String("role", string(identity.Role)))

	return &identity, nil
}

// SignOut ends the session. Store errors are logged; memory is always
// cleared.
func (m *Manager) SignOut(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear stored session", logger.Error(err))
	}

	m.mu.Lock()
	m.state = State{}
	m.degraded = false
	m.mu.Unlock()

	m.metrics.SessionEvent(metrics.EventSignOut)
	m.logger.Info("signed out")
}

// SelectCompany sets the company an accountant acts for. Whether the
// accountant is linked to it is checked by the backend on each request.
func (m *Manager) SelectCompany(ctx context.Context, id domain.ID) error {
	state := m.State()
	if !state.SignedIn() {
		return errors.New(errors.ErrUnauthorized, "not signed in")
	}
	if !state.Identity.IsAccountant() {
		return errors.New(errors.ErrForbidden, "only accountants select a company").
			WithDetails("Apenas contadores selecionam empresas.")
	}
	if id == "" {
		return errors.New(errors.ErrValidation, "company id is empty").
			WithDetails("Informe o identificador da empresa.")
	}

	if err := m.store.SetSelectedCompany(ctx, id); err != nil {
		m.logger.Warn("selected company kept in memory only", logger.Error(err))
		m.metrics.SessionEvent(metrics.EventDegraded)
		m.mu.Lock()
		m.degraded = true
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.state.CompanyID = &id
	m.mu.Unlock()

	m.metrics.SessionEvent(metrics.EventCompanySelected)
	m.logger.Info("company selected", logger.String("company_id", id.String()))
	return nil
}

// HandleUnauthorized ends a session whose token the backend rejected.
func (m *Manager) HandleUnauthorized(ctx context.Context) {
	if !m.State().SignedIn() {
		return
	}
	m.metrics.SessionEvent(metrics.EventUnauthorized)
	m.logger.Warn("token rejected by the backend, signing out")
	m.SignOut(ctx)
}

// HandleCompanyRejected drops a selected company the backend refused, so the
// accountant is sent back to company selection.
func (m *Manager) HandleCompanyRejected(ctx context.Context) {
	id := m.dropCompany(ctx)
	if id == nil {
		return
	}
	m.metrics.SessionEvent(metrics.EventCompanyRejected)
	m.logger.Warn("company rejected by the backend", logger.String("company_id", id.String()))
}

// LeaveCompany drops the selected company so the accountant can pick
// another one.
func (m *Manager) LeaveCompany(ctx context.Context) error {
	state := m.State()
	if !state.SignedIn() {
		return errors.New(errors.ErrUnauthorized, "not signed in")
	}
	if !state.Identity.IsAccountant() {
		return errors.New(errors.ErrForbidden, "only accountants select a company").
			WithDetails("Apenas contadores selecionam empresas.")
	}

	if id := m.dropCompany(ctx); id != nil {
		m.logger.Info("company left", logger.String("company_id", id.String()))
	}
	return nil
}

// dropCompany clears the selected company from memory and, best effort,
// from the store. It returns the dropped id, or nil if none was selected.
func (m *Manager) dropCompany(ctx context.Context) *domain.ID {
	m.mu.Lock()
	id := m.state.CompanyID
	m.state.CompanyID = nil
	m.mu.Unlock()

	if id == nil {
		return nil
	}

	if err := m.store.ClearSelectedCompany(ctx); err != nil {
		m.logger.Warn("failed to clear stored company", logger.Error(err))
	}
	return id
}
