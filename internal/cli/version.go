package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
)

type versionView struct {
	Version string `json:"version" yaml:"version"`
	Go      string `json:"go" yaml:"go"`
	OS      string `json:"os" yaml:"os"`
	Arch    string `json:"arch" yaml:"arch"`
}

func newVersionCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Mostrar a versão",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := versionView{
				Version: a.Version,
				Go:      runtime.Version(),
				OS:      runtime.GOOS,
				Arch:    runtime.GOARCH,
			}
			table := output.NewKeyValueTable()
			table.AddRow("nfse:", view.Version)
			table.AddRow("go:", view.Go)
			table.AddRow("plataforma:", view.OS+"/"+view.Arch)
			return a.printer.Print(cmd.CommandPath(), view, 1, table)
		},
	}
}
