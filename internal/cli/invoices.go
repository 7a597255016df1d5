package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/format"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/errors"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/validation"
)

func newInvoicesCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notas",
		Aliases: []string{"nota"},
		Short:   "Histórico e emissão de notas fiscais",
	}

	listCmd := &cobra.Command{
		Use:   "listar",
		Short: "Listar notas emitidas",
		Example: `  nfse notas listar
  nfse notas listar --ano 2024 --mes 3
  nfse notas listar --busca "Maria"`,
		Args: cobra.NoArgs,
		RunE: a.handleInvoiceList,
	}
	listCmd.Flags().String("ano", "", "ano de emissão (padrão: ano atual)")
	listCmd.Flags().String("mes", "", "mês de emissão, 1 a 12 (padrão: todos)")
	listCmd.Flags().String("busca", "", "buscar por cliente ou número")
	listCmd.Flags().Int("limite", 0, "quantidade máxima de notas")

	issueCmd := &cobra.Command{
		Use:     "emitir",
		Short:   "Emitir uma nota fiscal",
		Example: `  nfse notas emitir --cliente 42 --descricao "Consultoria" --valor 1.500,00`,
		Args:    cobra.NoArgs,
		RunE:    a.handleInvoiceIssue,
	}
	issueCmd.Flags().String("cliente", "", "ID do cliente (veja 'nfse clientes')")
	issueCmd.Flags().String("descricao", "", "descrição do serviço")
	issueCmd.Flags().String("valor", "", "valor do serviço (ex.: 100,50)")

	cmd.AddCommand(
		guarded(listCmd, domain.LocationMainApplication),
		guarded(issueCmd, domain.LocationMainApplication),
	)
	return cmd
}

func (a *App) handleInvoiceList(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	year, _ := flags.GetString("ano")
	month, _ := flags.GetString("mes")
	search, _ := flags.GetString("busca")
	limit, _ := flags.GetInt("limite")

	if year == "" {
		year = strconv.Itoa(a.now().Year())
	}
	month = strings.TrimSpace(month)
	if len(month) == 1 {
		month = "0" + month
	}

	v := validation.NewValidator()
	if err := v.ValidateYear(year); err != nil {
		return err
	}
	if err := v.ValidateMonth(month); err != nil {
		return err
	}
	if limit < 0 {
		return errors.New(errors.ErrValidation, "negative limit").
			WithDetails("O limite não pode ser negativo.")
	}

	invoices, err := a.api.ListInvoices(cmd.Context(), domain.InvoiceFilter{
		Year:   year,
		Month:  month,
		Search: strings.TrimSpace(search),
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	table := invoiceTable(invoices)
	table.Empty = "Nenhuma nota encontrada neste período."
	return a.printer.Print(cmd.CommandPath(), invoices, len(invoices), table)
}

func invoiceTable(invoices []domain.Invoice) *output.TableData {
	table := output.NewTableData("DATA", "NÚMERO", "CLIENTE", "VALOR", "STATUS")

	var total float64
	for i := range invoices {
		inv := &invoices[i]
		doc := inv.Document()
		status := format.StatusLabel(doc.Status)
		table.AddRowWithStyle([]string{
			format.Date(inv.CreatedAt),
			format.Or(doc.Number),
			inv.ClientName(),
			format.Currency(float64(inv.Value)),
			status,
		}, statusStyle(status))
		total += float64(inv.Value)
	}

	if len(invoices) > 1 {
		table.AddRowWithStyle([]string{"", "", "TOTAL", format.Currency(total), ""}, output.StyleInfo)
	}
	return table
}

func statusStyle(label string) output.RowStyle {
	switch label {
	case format.StatusAuthorized:
		return output.StyleSuccess
	case format.StatusError:
		return output.StyleError
	case format.StatusCanceled:
		return output.StyleWarning
	case format.StatusProcessing, format.StatusPending:
		return output.StyleInfo
	default:
		return output.StyleDefault
	}
}

func (a *App) handleInvoiceIssue(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	clientID, _ := flags.GetString("cliente")
	description, _ := flags.GetString("descricao")
	rawValue, _ := flags.GetString("valor")

	req := domain.IssueInvoiceRequest{
		ClientID:    strings.TrimSpace(clientID),
		Description: strings.TrimSpace(description),
	}
	if strings.TrimSpace(rawValue) != "" {
		value, err := format.ParseAmount(rawValue)
		if err != nil {
			return errors.Wrap(err, errors.ErrValidation, "invalid amount").
				WithDetails("Valor inválido. Use, por exemplo, 100,50.")
		}
		req.Value = value
	}

	if err := validation.NewValidator().Struct(req); err != nil {
		return err
	}

	invoice, err := a.api.IssueInvoice(cmd.Context(), req)
	if err != nil {
		return err
	}

	if a.printer.Format() != output.FormatTable {
		return a.printer.Print(cmd.CommandPath(), invoice, 1, nil)
	}

	message := "Nota Fiscal emitida com sucesso."
	if number := invoice.Document().Number; number != "" {
		message = fmt.Sprintf("Nota Fiscal %s emitida com sucesso.", number)
	}
	return a.printer.Success(cmd.CommandPath(), message)
}
