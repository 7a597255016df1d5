package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/errors"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/logger"
)

// Persisted keys.
const (
	KeyToken   = "nfse_token"
	KeyUser    = "nfse_user"
	KeyCompany = "nfse_empresa_id"
)

var allKeys = []string{KeyToken, KeyUser, KeyCompany}

// Snapshot is what a Store holds. A nil field is not set.
type Snapshot struct {
	Token     *string
	Identity  *domain.Identity
	CompanyID *domain.ID
}

// Store persists the token, the identity and the selected company.
type Store struct {
	backend Backend
	logger  logger.Logger
	// serializes writes
	mu sync.Mutex
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, log logger.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  log.With(logger.String("component", "session-store")),
	}
}

// Save writes token and identity together. A new session starts without a
// company context, so a stale selected company is removed by the same write.
func (s *Store) Save(ctx context.Context, token string, identity *domain.Identity) error {
	if token == "" {
		return errors.New(errors.ErrValidation, "token is empty")
	}
	if identity == nil {
		return errors.New(errors.ErrValidation, "identity is missing")
	}

	user, err := json.Marshal(identity)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode identity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.backend.Update(ctx, map[string]string{
		KeyToken: token,
		KeyUser:  string(user),
	}, KeyCompany)
	if err != nil {
		return errors.Wrap(err, errors.ErrStorage, "failed to save session")
	}
	return nil
}

// Read returns what is stored. It never fails: storage errors and
// undecodable identities are logged and reported as not set.
func (s *Store) Read(ctx context.Context) Snapshot {
	var snapshot Snapshot

	values, err := s.backend.Get(ctx, allKeys...)
	if err != nil {
		s.logger.Warn("failed to read session", logger.Error(err))
		return snapshot
	}

	if token := values[KeyToken]; token != "" {
		snapshot.Token = &token
	}

	if raw := values[KeyUser]; raw != "" {
		var identity domain.Identity
		if err := json.Unmarshal([]byte(raw), &identity); err != nil {
			s.logger.Warn("discarding undecodable identity", logger.Error(err))
		} else {
			snapshot.Identity = &identity
		}
	}

	if company := values[KeyCompany]; company != "" {
		id := domain.ID(company)
		snapshot.CompanyID = &id
	}

	return snapshot
}

// SetSelectedCompany writes the selected company only.
func (s *Store) SetSelectedCompany(ctx context.Context, id domain.ID) error {
	if id == "" {
		return errors.New(errors.ErrValidation, "company id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Update(ctx, map[string]string{KeyCompany: id.String()}); err != nil {
		return errors.Wrap(err, errors.ErrStorage, "failed to save selected company")
	}
	return nil
}

// ClearSelectedCompany removes the selected company only.
func (s *Store) ClearSelectedCompany(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Update(ctx, nil, KeyCompany); err != nil {
		return errors.Wrap(err, errors.ErrStorage, "failed to clear selected company")
	}
	return nil
}

// Clear removes all session keys. Clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Update(ctx, nil, allKeys...); err != nil {
		return errors.Wrap(err, errors.ErrStorage, "failed to clear session")
	}
	return nil
}
