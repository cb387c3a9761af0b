package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dapseq/internal/dap"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Output string // output file path for the DDS text
}

// SchemaSummary describes one compiled sequence.
type SchemaSummary struct {
	Name     string `json:"name"`
	Columns  int    `json:"columns"`
	Elements int    `json:"elements"`
	DDS      string `json:"dds"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema <schema-dir>",
		Short: "Compile CUE schemas and print their DDS declarations",
		Long: `Compile the sequence declarations in a CUE package and print each
as a DDS declaration.

Every column error is reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the DDS text to this file")

	return cmd
}

func runSchema(opts *SchemaOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	result, errs := LoadSchemas(dir, LoadModeCollectAll)
	if len(errs) > 0 {
		return failLoad(formatter, result, errs)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, dir)

	summaries := make([]SchemaSummary, len(result.Sequences))
	var dds strings.Builder
	for i, s := range result.Sequences {
		formatter.VerboseLog("Compiled sequence: %s", s.Name())
		summaries[i] = summarize(s)
		dds.WriteString(summaries[i].DDS)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(dds.String()), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if formatter.JSON() {
		return formatter.Success(summaries)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d sequence(s)\n\n", len(summaries))
	fmt.Fprint(formatter.Writer, dds.String())
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote DDS to %s\n", opts.Output)
	}
	return nil
}

func summarize(s *dap.Sequence) SchemaSummary {
	var b strings.Builder
	s.PrintDecl(&b, "", true)
	return SchemaSummary{
		Name:     s.Name(),
		Columns:  s.ElementCount(false),
		Elements: s.ElementCount(true),
		DDS:      b.String(),
	}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Check schemas without printing them",
		Long: `Compile CUE schemas and check every sequence for duplicate sibling
names. Stops at the first error; faster feedback than schema.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result, errs := LoadSchemas(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return failLoad(formatter, result, errs)
	}

	names := make([]string, len(result.Sequences))
	for i, s := range result.Sequences {
		names[i] = s.Name()
	}

	if formatter.JSON() {
		return formatter.Success(map[string]any{"valid": true, "sequences": names})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d sequence(s) valid: %s\n", len(names), strings.Join(names, ", "))
	return nil
}
