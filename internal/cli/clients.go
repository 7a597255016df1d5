package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/format"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
)

func newClientsCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clientes [busca]",
		Aliases: []string{"cliente"},
		Short:   "Listar clientes da empresa",
		Long:    `Lista os clientes da empresa, filtrando por nome ou documento.`,
		Args:    cobra.ArbitraryArgs,
		RunE:    a.handleClientList,
	}
	return guarded(cmd, domain.LocationMainApplication)
}

func (a *App) handleClientList(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))

	clients, err := a.api.ListClients(cmd.Context(), query)
	if err != nil {
		return err
	}

	table := output.NewTableData("ID", "NOME", "TIPO", "DOCUMENTO", "CIDADE")
	table.Empty = "Nenhum cliente encontrado."
	for i := range clients {
		c := &clients[i]
		kind := "PF"
		if c.IsCompany() {
			kind = "PJ"
		}
		table.AddRow(c.ID.String(), format.Or(c.DisplayName()), kind, format.Document(c.Document), cityUF(c.City, c.UF))
	}

	return a.printer.Print(cmd.CommandPath(), clients, len(clients), table)
}
