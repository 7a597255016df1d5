package navigation

import (
	"sync"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
)

// RedirectFunc performs a redirect computed by a Navigator.
type RedirectFunc func(decision domain.Decision, target domain.Location)

// Navigator re-evaluates Decide on every state change and calls its
// RedirectFunc only when the computed target differs from the last one.
type Navigator struct {
	mu         sync.Mutex
	onRedirect RedirectFunc
	last       domain.Location
	hasLast    bool
}

// NewNavigator creates a Navigator. onRedirect may be nil.
func NewNavigator(onRedirect RedirectFunc) *Navigator {
	return &Navigator{onRedirect: onRedirect}
}

// Evaluate computes the decision for the given state and fires the redirect
// callback if the target changed since the previous evaluation.
func (n *Navigator) Evaluate(identity *domain.Identity, companyID *domain.ID, loc domain.Location) domain.Decision {
	decision := Decide(identity, companyID, loc)

	target, redirect := decision.Target()
	if !redirect {
		target = loc
	}

	n.mu.Lock()
	changed := !n.hasLast || n.last != target
	n.last = target
	n.hasLast = true
	n.mu.Unlock()

	if redirect && changed && n.onRedirect != nil {
		n.onRedirect(decision, target)
	}
	return decision
}
