package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/config"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
)

func newConfigCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Gerenciar a configuração",
		Long: `Mostra e altera o arquivo de configuração. Variáveis NFSE_* e opções
da linha de comando têm precedência sobre o arquivo.`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Mostrar a configuração em uso",
		Args:  cobra.NoArgs,
		RunE:  a.handleConfigShow,
	}
	showCmd.Flags().BoolP("show-secrets", "x", false, "mostrar senhas")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Criar o arquivo de configuração",
		Args:  cobra.NoArgs,
		RunE:  a.handleConfigInit,
	}
	initCmd.Flags().BoolP("force", "f", false, "sobrescrever o arquivo existente")

	setCmd := &cobra.Command{
		Use:       "set <chave> <valor>",
		Short:     "Alterar uma chave da configuração",
		Example:   `  nfse config set api.url https://nfse.example.com/api`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys(),
		RunE:      a.handleConfigSet,
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Mostrar o caminho do arquivo de configuração",
		Args:  cobra.NoArgs,
		RunE:  a.handleConfigPath,
	}

	cmd.AddCommand(showCmd, initCmd, setCmd, pathCmd)
	return cmd
}

func (a *App) handleConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := a.cfg
	if secrets, _ := cmd.Flags().GetBool("show-secrets"); !secrets {
		cfg = cfg.Redacted()
	}

	table := output.NewKeyValueTable()
	for _, key := range config.Keys() {
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		table.AddRow(key+":", value)
	}
	return a.printer.Print(cmd.CommandPath(), cfg, 1, table)
}

func (a *App) handleConfigInit(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(a.cfg.Path); err == nil && !force {
		return fmt.Errorf("o arquivo %s já existe, use --force para sobrescrever", a.cfg.Path)
	}

	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("configuração inválida: %w", err)
	}
	if err := a.cfg.Save(); err != nil {
		return err
	}
	return a.printer.Success(cmd.CommandPath(), "Configuração criada em "+a.cfg.Path)
}

func (a *App) handleConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	// edit the file alone so environment overrides are not persisted
	cfg, err := config.ReadFile(a.cfg.Path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuração inválida: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	return a.printer.Success(cmd.CommandPath(), fmt.Sprintf("%s = %s", key, value))
}

func (a *App) handleConfigPath(cmd *cobra.Command, _ []string) error {
	_, err := fmt.Fprintln(a.Out, a.cfg.Path)
	return err
}
