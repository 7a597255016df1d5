package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
	pkgerrors "github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/errors"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/logger"
)

// handleError reports err and returns the exit code.
func (a *App) handleError(cmd *cobra.Command, err error) int {
	name := "nfse"
	if cmd != nil {
		name = cmd.CommandPath()
	}

	var redirect *redirectError
	if errors.As(err, &redirect) {
		// the navigator already told a terminal user where to go
		if a.printer.Format() != output.FormatTable {
			_ = a.printer.Failure(name, "REDIRECT", redirect.message)
		}
		return ExitRedirect
	}

	code, message := pkgerrors.CodeOf(err), err.Error()
	if code == "" {
		code = pkgerrors.ErrInternal
	}
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		message = appErr.GetUserMessage()
	}

	a.log.Debug("command failed",
		logger.String("command", name),
		logger.String("code", string(code)),
		logger.Error(err))

	if a.printer.Format() == output.FormatTable {
		fmt.Fprintln(a.Err, output.Colorize(output.DetectColors(a.Err), output.StyleError, "Erro: "+message))
	} else {
		_ = a.printer.Failure(name, string(code), message)
	}

	// a 401 or a 403 may have changed the session
	if cmd != nil {
		a.navigate(cmd)
	}
	return ExitError
}
