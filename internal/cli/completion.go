package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompletionCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Gerar o script de autocompletar",
		Long: `Gera o script de autocompletar para o shell indicado.

Bash:
  $ source <(nfse completion bash)

Zsh:
  $ nfse completion zsh > "${fpath[1]}/_nfse"

Fish:
  $ nfse completion fish | source

PowerShell:
  PS> nfse completion powershell | Out-String | Invoke-Expression`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE:      a.handleCompletion,
	}
}

func (a *App) handleCompletion(cmd *cobra.Command, args []string) error {
	root := cmd.Root()
	out := cmd.OutOrStdout()

	switch args[0] {
	case "bash":
		return root.GenBashCompletion(out)
	case "zsh":
		return root.GenZshCompletion(out)
	case "fish":
		return root.GenFishCompletion(out, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(out)
	default:
		return fmt.Errorf("shell não suportado: %s", args[0])
	}
}
