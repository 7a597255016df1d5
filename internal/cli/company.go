package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/format"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/errors"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/validation"
)

func newCompanyCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "empresa",
		Aliases: []string{"empresas"},
		Short:   "Empresas atendidas e dados da empresa",
	}

	listCmd := &cobra.Command{
		Use:   "listar",
		Short: "Listar empresas vinculadas ao contador",
		Args:  cobra.NoArgs,
		RunE:  a.handleCompanyList,
	}

	selectCmd := &cobra.Command{
		Use:   "selecionar <id>",
		Short: "Selecionar a empresa atendida",
		Long: `Define a empresa em nome da qual os próximos comandos são executados.
O vínculo com a empresa é conferido pelo servidor a cada requisição.`,
		Args: cobra.ExactArgs(1),
		RunE: a.handleCompanySelect,
	}

	switchCmd := &cobra.Command{
		Use:   "trocar",
		Short: "Deixar a empresa atual para escolher outra",
		Args:  cobra.NoArgs,
		RunE:  a.handleCompanySwitch,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Ver ou alterar os dados da empresa",
		Long: `Sem opções mostra os dados cadastrais da empresa. Com opções altera os
campos informados e envia o cadastro completo ao servidor.

O certificado digital deve ser um arquivo .pfx ou .p12 e exige a senha.`,
		Example: `  nfse empresa config
  nfse empresa config --cnpj 12.345.678/0001-90 --buscar-cnpj
  nfse empresa config --certificado empresa.pfx --senha-certificado segredo`,
		Args: cobra.NoArgs,
		RunE: a.handleCompanyConfig,
	}
	f := configCmd.Flags()
	f.String("cnpj", "", "CNPJ da empresa")
	f.Bool("buscar-cnpj", false, "preencher os dados a partir da consulta do CNPJ")
	f.String("razao-social", "", "razão social")
	f.String("nome-fantasia", "", "nome fantasia")
	f.String("cep", "", "CEP")
	f.String("logradouro", "", "logradouro")
	f.String("numero", "", "número")
	f.String("bairro", "", "bairro")
	f.String("cidade", "", "cidade")
	f.String("uf", "", "UF")
	f.String("codigo-ibge", "", "código IBGE do município")
	f.String("inscricao-municipal", "", "inscrição municipal")
	f.String("regime", "", "regime tributário")
	f.String("ambiente", "", "ambiente de emissão (HOMOLOGACAO, PRODUCAO)")
	f.String("serie-dps", "", "série da DPS")
	f.Int("ultimo-dps", 0, "número da última DPS emitida")
	f.String("certificado", "", "arquivo do certificado digital (.pfx ou .p12)")
	f.String("senha-certificado", "", "senha do certificado digital")
	f.Bool("remover-certificado", false, "remover o certificado instalado")

	cmd.AddCommand(
		guarded(listCmd, domain.LocationCompanySelection),
		guarded(selectCmd, domain.LocationCompanySelection),
		guarded(switchCmd, domain.LocationMainApplication),
		guarded(configCmd, domain.LocationMainApplication),
	)
	return cmd
}

func (a *App) handleCompanyList(cmd *cobra.Command, _ []string) error {
	companies, err := a.api.LinkedCompanies(cmd.Context())
	if err != nil {
		return err
	}

	table := output.NewTableData("ID", "EMPRESA", "CNPJ")
	table.Empty = "Você ainda não possui clientes vinculados."
	for _, c := range companies {
		name := c.RazaoSocial
		if name == "" {
			name = c.NomeFantasia
		}
		if name == "" {
			name = "Empresa Sem Nome"
		}
		document := "Não informado"
		if c.Document != "" {
			document = format.Document(c.Document)
		}
		table.AddRow(c.ID.String(), name, document)
	}

	return a.printer.Print(cmd.CommandPath(), companies, len(companies), table)
}

func (a *App) handleCompanySelect(cmd *cobra.Command, args []string) error {
	id := domain.ID(strings.TrimSpace(args[0]))
	if err := a.session.SelectCompany(cmd.Context(), id); err != nil {
		return err
	}

	if err := a.printer.Success(cmd.CommandPath(), "Empresa "+id.String()+" selecionada."); err != nil {
		return err
	}
	a.navigate(cmd)
	return nil
}

func (a *App) handleCompanySwitch(cmd *cobra.Command, _ []string) error {
	if err := a.session.LeaveCompany(cmd.Context()); err != nil {
		return err
	}

	if err := a.printer.Success(cmd.CommandPath(), "Empresa desmarcada."); err != nil {
		return err
	}
	a.navigate(cmd)
	return nil
}

// companyFlags maps flags onto the settings field they edit.
var companyFlags = map[string]func(s *domain.CompanySettings) *string{
	"razao-social":        func(s *domain.CompanySettings) *string { return &s.RazaoSocial },
	"nome-fantasia":       func(s *domain.CompanySettings) *string { return &s.NomeFantasia },
	"cep":                 func(s *domain.CompanySettings) *string { return &s.CEP },
	"logradouro":          func(s *domain.CompanySettings) *string { return &s.Street },
	"numero":              func(s *domain.CompanySettings) *string { return &s.Number },
	"bairro":              func(s *domain.CompanySettings) *string { return &s.District },
	"cidade":              func(s *domain.CompanySettings) *string { return &s.City },
	"codigo-ibge":         func(s *domain.CompanySettings) *string { return &s.IBGECode },
	"inscricao-municipal": func(s *domain.CompanySettings) *string { return &s.MunicipalRegistry },
	"regime":              func(s *domain.CompanySettings) *string { return &s.TaxRegime },
	"serie-dps":           func(s *domain.CompanySettings) *string { return &s.DPSSeries },
}

func (a *App) handleCompanyConfig(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	profile, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}

	if !localFlagsChanged(cmd) {
		return a.printer.Print(cmd.CommandPath(), profile, 1, companyTable(profile))
	}

	v := validation.NewValidator()
	settings := domain.CompanySettingsFromProfile(profile)

	if flags.Changed("cnpj") {
		cnpj, _ := flags.GetString("cnpj")
		settings.Document = validation.Digits(cnpj)
	}

	if lookup, _ := flags.GetBool("buscar-cnpj"); lookup {
		digits, err := v.ValidateCNPJ(settings.Document)
		if err != nil {
			return err
		}
		info, err := a.api.LookupCNPJ(ctx, digits)
		if err != nil {
			return err
		}
		settings.Document = digits
		settings.ApplyLookup(info)
	}

	// explicit flags win over the lookup
	for name, field := range companyFlags {
		if flags.Changed(name) {
			value, _ := flags.GetString(name)
			*field(&settings) = strings.TrimSpace(value)
		}
	}
	if flags.Changed("uf") {
		uf, _ := flags.GetString("uf")
		settings.UF = strings.ToUpper(strings.TrimSpace(uf))
	}
	if flags.Changed("ambiente") {
		env, _ := flags.GetString("ambiente")
		settings.Environment = strings.ToUpper(strings.TrimSpace(env))
	}
	if flags.Changed("ultimo-dps") {
		last, _ := flags.GetInt("ultimo-dps")
		settings.LastDPS = &last
	}

	if err := a.applyCertificate(cmd, &settings, v); err != nil {
		return err
	}

	if err := v.Struct(settings); err != nil {
		return err
	}

	if err := a.api.UpdateCompany(ctx, settings); err != nil {
		return err
	}
	return a.printer.Success(cmd.CommandPath(), "Configurações da empresa atualizadas!")
}

func (a *App) applyCertificate(cmd *cobra.Command, settings *domain.CompanySettings, v *validation.Validator) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("certificado")
	password, _ := flags.GetString("senha-certificado")
	remove, _ := flags.GetBool("remover-certificado")

	if remove && path != "" {
		return errors.New(errors.ErrValidation, "conflicting certificate flags").
			WithDetails("Use --certificado ou --remover-certificado, não ambos.")
	}

	if remove {
		settings.DeleteCertificate = true
		return nil
	}
	if path == "" {
		return nil
	}

	if err := v.ValidateCertificateFile(path); err != nil {
		return err
	}
	if password == "" {
		return errors.New(errors.ErrValidation, "certificate password is required").
			WithDetails("Informe a senha do certificado com --senha-certificado.")
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return errors.Wrap(err, errors.ErrValidation, "failed to read certificate").
			WithDetails(fmt.Sprintf("Não foi possível ler o certificado %s.", filepath.Base(path)))
	}

	settings.CertificateFile = base64.StdEncoding.EncodeToString(data)
	settings.CertificatePassword = password
	return nil
}

func companyTable(p *domain.Profile) *output.TableData {
	table := output.NewKeyValueTable()

	registration, style := "completo", output.StyleSuccess
	if !p.Registered() {
		registration, style = "incompleto", output.StyleWarning
	}
	table.AddRowWithStyle([]string{"Cadastro:", registration}, style)
	table.AddRow("CNPJ:", format.Document(p.Document))
	table.AddRow("Razão social:", format.Or(p.CompanyName()))
	table.AddRow("Nome fantasia:", format.Or(p.NomeFantasia))
	table.AddRow("Endereço:", address(p.Street, p.Number, p.District))
	table.AddRow("Cidade:", cityUF(p.City, p.UF))
	table.AddRow("CEP:", format.Or(p.CEP))
	table.AddRow("Código IBGE:", format.Or(p.IBGECode))
	table.AddRow("Inscrição municipal:", format.Or(p.MunicipalRegistry))
	table.AddRow("Regime tributário:", format.Or(p.TaxRegime))
	table.AddRow("Ambiente:", format.Or(p.Environment))
	table.AddRow("Série DPS:", format.Or(p.DPSSeries))
	if p.LastDPS > 0 {
		table.AddRow("Última DPS:", fmt.Sprintf("%d", int(p.LastDPS)))
	}

	for i, cnae := range p.ActivityList() {
		label := ""
		if i == 0 {
			label = "Atividades:"
		}
		table.AddRow(label, cnae.Code+" "+cnae.Description)
	}

	if p.CertificateExpiresAt != "" {
		table.AddRow("Certificado:", "instalado, vence em "+format.Date(p.CertificateExpiresAt))
	} else {
		table.AddRowWithStyle([]string{"Certificado:", "não instalado"}, output.StyleWarning)
	}
	return table
}

func address(street, number, district string) string {
	parts := make([]string, 0, 2)
	if street != "" {
		if number != "" {
			street += ", " + number
		}
		parts = append(parts, street)
	}
	if district != "" {
		parts = append(parts, district)
	}
	if len(parts) == 0 {
		return format.Empty
	}
	return strings.Join(parts, " - ")
}

func cityUF(city, uf string) string {
	switch {
	case city != "" && uf != "":
		return city + "/" + uf
	case city != "":
		return city
	default:
		return format.Or(uf)
	}
}

// localFlagsChanged reports whether any flag declared on cmd itself was set.
func localFlagsChanged(cmd *cobra.Command) bool {
	changed := false
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed = true
		}
	})
	return changed
}
