package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/format"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
)

// recentInvoices is how many invoices the dashboard shows.
const recentInvoices = 3

type dashboardView struct {
	Profile  *domain.Profile  `json:"perfil" yaml:"perfil"`
	Invoices []domain.Invoice `json:"notasRecentes" yaml:"notasRecentes"`
}

func newDashboardCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"inicio"},
		Short:   "Resumo da conta e últimas notas",
		Args:    cobra.NoArgs,
		RunE:    a.handleDashboard,
	}
	return guarded(cmd, domain.LocationMainApplication)
}

func (a *App) handleDashboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	profile, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}
	invoices, err := a.api.ListInvoices(ctx, domain.InvoiceFilter{Limit: recentInvoices})
	if err != nil {
		return err
	}
	if len(invoices) > recentInvoices {
		invoices = invoices[:recentInvoices]
	}

	if a.printer.Format() != output.FormatTable {
		return a.printer.Print(cmd.CommandPath(), dashboardView{Profile: profile, Invoices: invoices}, len(invoices), nil)
	}

	if err := a.printer.Print(cmd.CommandPath(), nil, 0, dashboardSummary(profile)); err != nil {
		return err
	}
	fmt.Fprintln(a.printer.Writer())

	recent := invoiceTable(invoices)
	recent.Empty = "Nenhuma nota emitida ainda. Use 'nfse notas emitir'."
	return a.printer.Print(cmd.CommandPath(), nil, 0, recent)
}

func dashboardSummary(p *domain.Profile) *output.TableData {
	table := output.NewKeyValueTable()

	greeting := "Olá!"
	if names := strings.Fields(p.Name); len(names) > 0 {
		greeting = "Olá, " + names[0] + "!"
	}
	table.AddRowWithStyle([]string{greeting, ""}, output.StyleInfo)
	table.AddRow("Empresa:", format.Or(p.CompanyName()))
	if p.Document != "" {
		table.AddRow("CNPJ:", format.Document(p.Document))
	}
	if plan := p.PlanDetails; plan != nil {
		table.AddRow("Plano:", format.Or(plan.Name))
		style := output.StyleDefault
		if !plan.Unlimited() && plan.IssuedCount >= plan.IssuanceLimit {
			style = output.StyleWarning
		}
		table.AddRowWithStyle([]string{"Emissões:", format.Usage(plan.IssuedCount, plan.IssuanceLimit)}, style)
	}
	if !p.Registered() {
		table.AddRowWithStyle([]string{"Cadastro:", "incompleto, use 'nfse empresa config'"}, output.StyleWarning)
	}
	return table
}
