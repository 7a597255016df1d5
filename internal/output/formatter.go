package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v2"
)

// FormatType is an output format.
type FormatType string

const (
	FormatTable FormatType = "table"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
)

// ParseFormat maps a name onto a FormatType, defaulting to table.
func ParseFormat(name string) FormatType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatTable
	}
}

// Envelope wraps machine-readable output.
type Envelope struct {
	Success   bool        `json:"success" yaml:"success"`
	Data      interface{} `json:"data,omitempty" yaml:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp" yaml:"timestamp"`
	Metadata  *Metadata   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ErrorBody is the error part of an Envelope.
type ErrorBody struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// Metadata describes the command that produced the output.
type Metadata struct {
	Command string `json:"command" yaml:"command"`
	Total   int    `json:"total,omitempty" yaml:"total,omitempty"`
}

// Printer renders command results in the configured format.
type Printer struct {
	out    io.Writer
	format FormatType
	colors bool
	now    func() time.Time
}

// NewPrinter creates a Printer.
func NewPrinter(out io.Writer, format FormatType, colors bool) *Printer {
	return &Printer{out: out, format: format, colors: colors, now: time.Now}
}

// Format returns the output format.
func (p *Printer) Format() FormatType {
	return p.format
}

// Writer returns the destination.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Print renders data. Table output renders table; json and yaml marshal
// data inside an Envelope.
func (p *Printer) Print(command string, data interface{}, total int, table *TableData) error {
	if p.format == FormatTable {
		if table == nil {
			_, err := fmt.Fprintf(p.out, "%v\n", data)
			return err
		}
		_, err := fmt.Fprintln(p.out, table.Render(p.colors))
		return err
	}

	env := &Envelope{
		Success:   true,
		Data:      data,
		Timestamp: p.now(),
		Metadata:  &Metadata{Command: command, Total: total},
	}
	return p.encode(env)
}

// Success prints a confirmation message.
func (p *Printer) Success(command, message string) error {
	if p.format == FormatTable {
		_, err := fmt.Fprintln(p.out, Colorize(p.colors, StyleSuccess, "✓ "+message))
		return err
	}
	return p.encode(&Envelope{
		Success:   true,
		Data:      map[string]string{"message": message},
		Timestamp: p.now(),
		Metadata:  &Metadata{Command: command},
	})
}

// Failure renders an error. Table output is left to the caller, which
// writes to stderr.
func (p *Printer) Failure(command, code, message string) error {
	if p.format == FormatTable {
		return nil
	}
	return p.encode(&Envelope{
		Success:   false,
		Error:     &ErrorBody{Code: code, Message: message},
		Timestamp: p.now(),
		Metadata:  &Metadata{Command: command},
	})
}

func (p *Printer) encode(env *Envelope) error {
	var (
		data []byte
		err  error
	)
	switch p.format {
	case FormatYAML:
		data, err = yaml.Marshal(env)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
	default:
		data, err = json.MarshalIndent(env, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		data = append(data, '\n')
	}
	_, err = p.out.Write(data)
	return err
}

// DetectColors reports whether colored output should be used for w: only
// for terminals, and never when NO_COLOR is set.
func DetectColors(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
