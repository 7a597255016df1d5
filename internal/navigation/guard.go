// Package navigation decides where a user may be given their session state.
package navigation

import "github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"

// Decide returns the route decision for identity, the selected company and
// the current location. It is a pure function of its inputs.
//
// A nil identity means signed out. A nil or empty companyID means no company
// context has been selected.
func Decide(identity *domain.Identity, companyID *domain.ID, loc domain.Location) domain.Decision {
	if identity == nil {
		if loc != domain.LocationUnauthenticated {
			return domain.RedirectToLogin
		}
		return domain.Stay
	}

	hasCompany := companyID != nil && *companyID != ""

	if identity.IsAccountant() && !hasCompany {
		if loc != domain.LocationCompanySelection {
			return domain.RedirectToCompanySelection
		}
		return domain.Stay
	}

	if loc == domain.LocationUnauthenticated || loc == domain.LocationCompanySelection {
		return domain.RedirectToMain
	}
	return domain.Stay
}
