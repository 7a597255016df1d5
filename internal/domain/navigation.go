package domain

// Location is the screen group the user is in.
type Location int

const (
	LocationUnauthenticated Location = iota
	LocationCompanySelection
	LocationMainApplication
)

func (l Location) String() string {
	switch l {
	case LocationUnauthenticated:
		return "unauthenticated"
	case LocationCompanySelection:
		return "company-selection"
	case LocationMainApplication:
		return "main-application"
	default:
		return "unknown"
	}
}

// Decision is the outcome of the route guard.
type Decision int

const (
	Stay Decision = iota
	RedirectToLogin
	RedirectToCompanySelection
	RedirectToMain
)

func (d Decision) String() string {
	switch d {
	case Stay:
		return "stay"
	case RedirectToLogin:
		return "redirect-to-login"
	case RedirectToCompanySelection:
		return "redirect-to-company-selection"
	case RedirectToMain:
		return "redirect-to-main"
	default:
		return "unknown"
	}
}

// Target returns the location a redirect leads to. ok is false for Stay.
func (d Decision) Target() (loc Location, ok bool) {
	switch d {
	case RedirectToLogin:
		return LocationUnauthenticated, true
	case RedirectToCompanySelection:
		return LocationCompanySelection, true
	case RedirectToMain:
		return LocationMainApplication, true
	default:
		return 0, false
	}
}
