package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/format"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/session"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/errors"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/health"
)

func newLoginCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [login]",
		Short: "Entrar no sistema",
		Long: `Entra com login (e-mail ou CPF) e senha e guarda a sessão para os
próximos comandos. Sem --senha a senha é lida do terminal ou de
NFSE_PASSWORD.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.handleLogin,
	}
	cmd.Flags().String("senha", "", "senha (evite em scripts, prefira NFSE_PASSWORD)")
	return guarded(cmd, domain.LocationUnauthenticated)
}

func newLogoutCommand(a *App) *cobra.Command {
	return withSession(&cobra.Command{
		Use:   "logout",
		Short: "Sair do sistema",
		Long:  `Apaga a sessão guardada. Funciona mesmo sem conexão com o servidor.`,
		Args:  cobra.NoArgs,
		RunE:  a.handleLogout,
	})
}

func newStatusCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Mostrar a sessão atual",
		Long: `Mostra quem está conectado, a empresa selecionada e a validade do
token. Com --check também verifica o armazenamento da sessão e a API.`,
		Args: cobra.NoArgs,
		RunE: a.handleStatus,
	}
	cmd.Flags().Bool("check", false, "verificar armazenamento e API")
	return withSession(cmd)
}

func (a *App) handleLogin(cmd *cobra.Command, args []string) error {
	var login string
	if len(args) > 0 {
		login = args[0]
	} else {
		var err error
		if login, err = a.prompt("Login (e-mail ou CPF): "); err != nil {
			return err
		}
	}

	password, _ := cmd.Flags().GetString("senha")
	if password == "" {
		password = os.Getenv("NFSE_PASSWORD")
	}
	if password == "" {
		var err error
		if password, err = a.readPassword("Senha: "); err != nil {
			return err
		}
	}

	if session.NormalizeLogin(login) == "" || session.NormalizePassword(password) == "" {
		return errors.New(errors.ErrValidation, "login and password are required").
			WithDetails("Preencha todos os campos.")
	}

	identity, err := a.session.SignIn(cmd.Context(), login, password)
	if err != nil {
		return err
	}

	if a.printer.Format() == output.FormatTable {
		if err := a.printer.Success(cmd.CommandPath(), "Bem-vindo, "+format.Or(identity.FirstName())+"!"); err != nil {
			return err
		}
		if a.session.Degraded() || a.storageFallback {
			a.warn("Não foi possível guardar a sessão; ela vale apenas para este comando.")
		}
	} else if err := a.printer.Print(cmd.CommandPath(), identity, 1, nil); err != nil {
		return err
	}

	a.navigate(cmd)
	return nil
}

func (a *App) handleLogout(cmd *cobra.Command, _ []string) error {
	a.session.SignOut(cmd.Context())
	return a.printer.Success(cmd.CommandPath(), "Sessão encerrada.")
}

// statusView is the machine readable form of `status`.
type statusView struct {
	SignedIn       bool                 `json:"conectado" yaml:"conectado"`
	User           *domain.Identity     `json:"usuario,omitempty" yaml:"usuario,omitempty"`
	CompanyID      string               `json:"empresaId,omitempty" yaml:"empresaId,omitempty"`
	Storage        string               `json:"armazenamento" yaml:"armazenamento"`
	Degraded       bool                 `json:"somenteMemoria" yaml:"somenteMemoria"`
	TokenExpiresAt string               `json:"tokenExpiraEm,omitempty" yaml:"tokenExpiraEm,omitempty"`
	TokenExpired   bool                 `json:"tokenExpirado" yaml:"tokenExpirado"`
	Health         *health.HealthStatus `json:"saude,omitempty" yaml:"saude,omitempty"`
}

func (a *App) handleStatus(cmd *cobra.Command, _ []string) error {
	state := a.session.State()
	view := statusView{
		SignedIn: state.SignedIn(),
		User:     state.Identity,
		Storage:  a.cfg.Storage.Driver,
		Degraded: a.session.Degraded() || a.storageFallback,
	}
	if state.CompanyID != nil {
		view.CompanyID = state.CompanyID.String()
	}

	if info, err := session.InspectToken(state.Token); state.SignedIn() && err == nil && info.ExpiresAt != nil {
		view.TokenExpiresAt = format.DateTime(*info.ExpiresAt)
		view.TokenExpired = info.Expired(a.now())
	}

	check, _ := cmd.Flags().GetBool("check")
	if check {
		view.Health = a.health.Check(cmd.Context())
	}

	return a.printer.Print(cmd.CommandPath(), view, 1, statusTable(view))
}

func statusTable(view statusView) *output.TableData {
	table := output.NewKeyValueTable()
	if !view.SignedIn {
		table.AddRowWithStyle([]string{"Sessão:", "desconectado"}, output.StyleWarning)
	} else {
		table.AddRowWithStyle([]string{"Sessão:", "conectado"}, output.StyleSuccess)
		table.AddRow("Nome:", format.Or(view.User.Name))
		table.AddRow("E-mail:", format.Or(view.User.Email))
		table.AddRow("Perfil:", view.User.Role.Label())
		table.AddRow("Empresa:", format.Or(view.CompanyID))
		if view.TokenExpiresAt != "" {
			expiry := view.TokenExpiresAt
			style := output.StyleDefault
			if view.TokenExpired {
				expiry += " (expirado)"
				style = output.StyleWarning
			}
			table.AddRowWithStyle([]string{"Token expira em:", expiry}, style)
		}
	}

	storage := view.Storage
	if view.Degraded {
		storage += " (somente memória)"
	}
	table.AddRow("Armazenamento:", storage)

	if view.Health != nil {
		for _, name := range view.Health.Names() {
			probe := view.Health.Services[name]
			style := output.StyleSuccess
			value := "ok"
			if probe.Status != health.StatusHealthy {
				style = output.StyleError
				value = "falhou: " + probe.Details
			}
			table.AddRowWithStyle([]string{probeLabels[name] + ":", value}, style)
		}
	}
	return table
}

var probeLabels = map[string]string{
	probeStorage: "Armazenamento acessível",
	probeAPI:     "API acessível",
}

// warn prints a notice for terminal users.
func (a *App) warn(message string) {
	if a.printer.Format() != output.FormatTable {
		return
	}
	fmt.Fprintln(a.Err, output.Colorize(output.DetectColors(a.Err), output.StyleWarning, message))
}
