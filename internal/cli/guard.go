package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
)

const (
	annotationSession  = "nfse.session"
	annotationLocation = "nfse.location"
)

var locations = map[string]domain.Location{
	domain.LocationUnauthenticated.String():  domain.LocationUnauthenticated,
	domain.LocationCompanySelection.String(): domain.LocationCompanySelection,
	domain.LocationMainApplication.String():  domain.LocationMainApplication,
}

// withSession marks cmd as needing the stored session.
func withSession(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationSession] = "true"
	return cmd
}

// guarded marks cmd as living at loc. The route guard runs before it.
func guarded(cmd *cobra.Command, loc domain.Location) *cobra.Command {
	withSession(cmd)
	cmd.Annotations[annotationLocation] = loc.String()
	return cmd
}

func needsSession(cmd *cobra.Command) bool {
	return cmd.Annotations[annotationSession] == "true"
}

func location(cmd *cobra.Command) (domain.Location, bool) {
	loc, ok := locations[cmd.Annotations[annotationLocation]]
	return loc, ok
}

// redirectError stops a command the route guard sent elsewhere.
type redirectError struct {
	decision domain.Decision
	message  string
}

func (e *redirectError) Error() string {
	return e.message
}

// guard evaluates the route guard for loc.
func (a *App) guard(loc domain.Location) error {
	state := a.session.State()
	decision := a.nav.Evaluate(state.Identity, state.CompanyID, loc)
	if decision == domain.Stay {
		return nil
	}
	return &redirectError{decision: decision, message: a.redirectMessage(decision)}
}

// navigate re-evaluates the guard after the session changed while cmd ran.
// The navigator announces where the user has to go next.
func (a *App) navigate(cmd *cobra.Command) {
	if a.nav == nil || a.session == nil {
		return
	}
	loc, ok := location(cmd)
	if !ok {
		return
	}
	state := a.session.State()
	a.nav.Evaluate(state.Identity, state.CompanyID, loc)
}

// announceRedirect is the navigator callback.
func (a *App) announceRedirect(decision domain.Decision, _ domain.Location) {
	if a.printer.Format() != output.FormatTable {
		return
	}
	fmt.Fprintln(a.Err, output.Colorize(output.DetectColors(a.Err), output.StyleWarning, a.redirectMessage(decision)))
}

func (a *App) redirectMessage(decision domain.Decision) string {
	switch decision {
	case domain.RedirectToLogin:
		return "Você não está conectado. Use 'nfse login'."
	case domain.RedirectToCompanySelection:
		return "Selecione uma empresa: use 'nfse empresa listar' e 'nfse empresa selecionar <id>'."
	case domain.RedirectToMain:
		name := ""
		if identity := a.session.Identity(); identity != nil {
			name = identity.FirstName()
		}
		if name == "" {
			return "Sessão ativa. Use 'nfse dashboard' para começar ou 'nfse logout' para sair."
		}
		return fmt.Sprintf("Sessão ativa como %s. Use 'nfse dashboard' para começar ou 'nfse logout' para sair.", name)
	default:
		return ""
	}
}
