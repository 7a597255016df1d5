package cli

import (
	"github.com/spf13/cobra"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/format"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/validation"
)

func newCNPJCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cnpj <cnpj>",
		Short:   "Consultar os dados públicos de um CNPJ",
		Example: `  nfse cnpj 12.345.678/0001-90`,
		Args:    cobra.ExactArgs(1),
		RunE:    a.handleCNPJLookup,
	}
	return guarded(cmd, domain.LocationMainApplication)
}

func (a *App) handleCNPJLookup(cmd *cobra.Command, args []string) error {
	digits, err := validation.NewValidator().ValidateCNPJ(args[0])
	if err != nil {
		return err
	}

	info, err := a.api.LookupCNPJ(cmd.Context(), digits)
	if err != nil {
		return err
	}

	table := output.NewKeyValueTable()
	table.AddRow("CNPJ:", format.Document(digits))
	table.AddRow("Razão social:", format.Or(info.RazaoSocial))
	table.AddRow("Nome fantasia:", format.Or(info.TradeName()))
	table.AddRow("Endereço:", address(info.Street, info.Number, info.District))
	table.AddRow("Cidade:", cityUF(info.City, info.UF))
	table.AddRow("CEP:", format.Or(info.CEP))

	cnaes := info.CNAEs
	if len(cnaes) == 0 {
		cnaes = info.Activities
	}
	for i, cnae := range cnaes {
		label := ""
		if i == 0 {
			label = "Atividades:"
		}
		table.AddRow(label, cnae.Code+" "+cnae.Description)
	}

	return a.printer.Print(cmd.CommandPath(), info, 1, table)
}
