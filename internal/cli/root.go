package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Exit codes of the nfse binary.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitRedirect = 3
)

// Execute runs the CLI with the process arguments and returns the exit code.
func Execute(ctx context.Context, version string) int {
	app := NewApp(version, os.Stdin, os.Stdout, os.Stderr)
	return app.Run(ctx, os.Args[1:])
}

// Run executes one command line.
func (a *App) Run(ctx context.Context, args []string) int {
	defer a.Close()

	root := NewRootCommand(a)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		return a.handleError(cmd, err)
	}
	return ExitOK
}

// NewRootCommand builds the command tree bound to a.
func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "nfse",
		Short: "Emissor de NFS-e na linha de comando",
		Long: `nfse emite e consulta Notas Fiscais de Serviço eletrônicas.

Entre com 'nfse login'. Contadores escolhem a empresa atendida com
'nfse empresa selecionar' antes de usar os demais comandos.`,
		Version:           a.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.preRun,
	}
	root.SetIn(a.In)
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "arquivo de configuração (padrão $NFSE_HOME/config.yaml)")
	flags.String("api-url", "", "endereço da API")
	flags.String("timeout", "", "tempo limite das requisições (ex.: 30 ou 1m)")
	flags.StringP("output", "o", "", "formato de saída (table, json, yaml)")
	flags.String("profile", "", "perfil da sessão armazenada")
	flags.String("storage", "", "armazenamento da sessão (file, memory, redis, postgres)")
	flags.String("log-level", "", "nível de log (debug, info, warn, error)")
	flags.String("metrics-addr", "", "endereço para servir /metrics e /health (ex.: :9090)")
	flags.BoolVar(&a.debug, "debug", false, "ativa logs de depuração")

	bindFlags(a.viper, flags, map[string]string{
		"api.url":         "api-url",
		"api.timeout":     "timeout",
		"output.format":   "output",
		"storage.profile": "profile",
		"storage.driver":  "storage",
		"logger.level":    "log-level",
		"metrics.addr":    "metrics-addr",
	})

	root.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newStatusCommand(a),
		newCompanyCommand(a),
		newInvoicesCommand(a),
		newClientsCommand(a),
		newProfileCommand(a),
		newDashboardCommand(a),
		newCNPJCommand(a),
		newConfigCommand(a),
		newVersionCommand(a),
		newCompletionCommand(a),
	)
	return root
}

// bindFlags binds each config key to its flag.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		// only fails for a nil flag
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

func (a *App) preRun(cmd *cobra.Command, _ []string) error {
	if err := a.setup(cmd.Context(), needsSession(cmd)); err != nil {
		return err
	}

	loc, ok := location(cmd)
	if !ok {
		return nil
	}
	return a.guard(loc)
}
