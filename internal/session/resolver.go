package session

import (
	"context"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
)

// State is the in-memory session.
type State struct {
	Token     string
	Identity  *domain.Identity
	CompanyID *domain.ID
}

// SignedIn reports whether an identity is present.
func (s State) SignedIn() bool {
	return s.Identity != nil && s.Token != ""
}

// SnapshotReader is the read side of a Store.
type SnapshotReader interface {
	Read(ctx context.Context) Snapshot
}

// Resolve rebuilds the in-memory state from what is stored, without any
// network call. The cached identity is trusted as is; a revoked token is
// only discovered when the backend rejects it.
func Resolve(ctx context.Context, store SnapshotReader) State {
	snapshot := store.Read(ctx)
	if snapshot.Token == nil || snapshot.Identity == nil {
		return State{}
	}

	return State{
		Token:     *snapshot.Token,
		Identity:  snapshot.Identity,
		CompanyID: snapshot.CompanyID,
	}
}
