package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/format"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/errors"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/validation"
)

func newProfileCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perfil",
		Short: "Ver os dados da conta",
		Args:  cobra.NoArgs,
		RunE:  a.handleProfile,
	}

	editCmd := &cobra.Command{
		Use:   "editar",
		Short: "Alterar os dados da conta e a senha",
		Long: `Altera nome, telefone e cargo. A senha só é trocada quando a senha
atual e a nova senha são informadas.`,
		Args: cobra.NoArgs,
		RunE: a.handleProfileEdit,
	}
	f := editCmd.Flags()
	f.String("nome", "", "nome completo")
	f.String("telefone", "", "telefone")
	f.String("cargo", "", "cargo")
	f.String("senha-atual", "", "senha atual")
	f.String("nova-senha", "", "nova senha")

	cmd.AddCommand(guarded(editCmd, domain.LocationMainApplication))
	return guarded(cmd, domain.LocationMainApplication)
}

func (a *App) handleProfile(cmd *cobra.Command, _ []string) error {
	profile, err := a.api.Profile(cmd.Context())
	if err != nil {
		return err
	}
	return a.printer.Print(cmd.CommandPath(), profile, 1, profileTable(profile))
}

func profileTable(p *domain.Profile) *output.TableData {
	table := output.NewKeyValueTable()
	table.AddRow("Nome:", format.Or(p.Name))
	table.AddRow("E-mail:", format.Or(p.Email))
	table.AddRow("Perfil:", p.Role.Label())
	table.AddRow("Telefone:", format.Or(p.Phone))
	table.AddRow("Cargo:", format.Or(p.Position))
	if p.CPF != "" {
		table.AddRow("CPF:", format.Document(p.CPF))
	}
	if plan := p.PlanDetails; plan != nil {
		table.AddRow("Plano:", format.Or(plan.Name))
		table.AddRow("Emissões:", format.Usage(plan.IssuedCount, plan.IssuanceLimit))
		if plan.EndsAt != "" {
			table.AddRow("Válido até:", format.Date(plan.EndsAt))
		}
	}
	return table
}

func (a *App) handleProfileEdit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	if !localFlagsChanged(cmd) {
		return errors.New(errors.ErrValidation, "nothing to change").
			WithDetails("Informe ao menos um campo para alterar. Veja 'nfse perfil editar --help'.")
	}

	profile, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}

	update := domain.ProfileUpdate{
		Name:     profile.Name,
		Phone:    profile.Phone,
		Position: profile.Position,
	}
	if flags.Changed("nome") {
		update.Name, _ = flags.GetString("nome")
	}
	if flags.Changed("telefone") {
		update.Phone, _ = flags.GetString("telefone")
	}
	if flags.Changed("cargo") {
		update.Position, _ = flags.GetString("cargo")
	}
	update.Name = strings.TrimSpace(update.Name)
	if update.Name == "" {
		return errors.New(errors.ErrValidation, "name is required").
			WithDetails("O nome não pode ficar vazio.")
	}

	current, _ := flags.GetString("senha-atual")
	next, _ := flags.GetString("nova-senha")
	change := domain.PasswordChange{Current: current, New: next}
	changePassword := current != "" && next != ""

	v := validation.NewValidator()
	if err := v.Struct(update); err != nil {
		return err
	}

	if err := a.api.UpdateProfile(ctx, update); err != nil {
		return err
	}
	if changePassword {
		if err := a.api.ChangePassword(ctx, change); err != nil {
			return err
		}
	} else if current != "" || next != "" {
		a.warn("Senha não alterada: informe a senha atual e a nova senha.")
	}

	return a.printer.Success(cmd.CommandPath(), "Perfil atualizado com sucesso!")
}
