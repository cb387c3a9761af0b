package cli

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dapseq/internal/dap"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Sequence string
	Rows     string // YAML file with a list of rows
	Output   string
}

// EncodeResult is the JSON payload of encode.
type EncodeResult struct {
	Sequence string `json:"sequence"`
	Rows     int    `json:"rows"`
	Bytes    int    `json:"bytes"`
	Hex      string `json:"hex,omitempty"`
	Output   string `json:"output,omitempty"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode <schema-dir>",
		Short: "Encode YAML rows as a DAP sequence stream",
		Long: `Encode rows into the DAP wire format of a declared sequence.

The rows file is a YAML list; each row lists column values in template
order. Nested sequences take a list of rows, structures a list or a map.

Without --output the raw stream is written to stdout (text format) or
returned as hex (json format).

Examples:
  dapseq encode ./schemas --sequence obs --rows rows.yaml -o obs.dods
  dapseq encode ./schemas --sequence obs --rows rows.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Sequence, "sequence", "s", "", "sequence name (required)")
	cmd.Flags().StringVarP(&opts.Rows, "rows", "r", "", "YAML rows file (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	_ = cmd.MarkFlagRequired("sequence")
	_ = cmd.MarkFlagRequired("rows")

	return cmd
}

func runEncode(opts *EncodeOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	tmpl, err := loadSequence(formatter, dir, opts.Sequence)
	if err != nil {
		return err
	}

	rows, err := readRows(opts.Rows)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, err.Error(), nil)
	}

	seq := tmpl.Clone().(*dap.Sequence)
	if err := dap.Assign(seq, rows); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRows, err.Error(), nil)
	}

	var buf bytes.Buffer
	if err := seq.Encode(&buf); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("encoding: %v", err), nil)
	}

	result := EncodeResult{
		Sequence: seq.Name(),
		Rows:     seq.RowCount(),
		Bytes:    buf.Len(),
		Output:   opts.Output,
	}
	opts.logger().Debug("encoded sequence", "sequence", result.Sequence, "rows", result.Rows, "bytes", result.Bytes)

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, buf.Bytes(), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if formatter.JSON() {
		if opts.Output == "" {
			result.Hex = hex.EncodeToString(buf.Bytes())
		}
		return formatter.Success(result)
	}

	if opts.Output == "" {
		_, err := formatter.Writer.Write(buf.Bytes())
		return err
	}
	fmt.Fprintf(formatter.Writer, "✓ Encoded %d row(s) of %s (%d bytes) to %s\n",
		result.Rows, result.Sequence, result.Bytes, opts.Output)
	return nil
}

// readRows parses a YAML list of rows into the shape dap.Assign accepts for
// a Sequence.
func readRows(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rows file: %w", err)
	}
	var rows []any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing rows file %s: %w", path, err)
	}
	if rows == nil {
		rows = []any{}
	}
	return rows, nil
}

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Sequence string
	Input    string // "-" or empty reads stdin
	Server   string
}

// DecodeResult is the JSON payload of decode.
type DecodeResult struct {
	Sequence string  `json:"sequence"`
	Server   string  `json:"server"`
	Rows     int     `json:"rows"`
	Bytes    int     `json:"bytes"`
	Values   [][]any `json:"values"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <schema-dir>",
		Short: "Decode a DAP sequence stream",
		Long: `Decode a DAP sequence stream and print its rows.

--server selects the framing: servers older than 2.15 send rows without
markers and the stream simply ends. Rows read before an error are still
printed; the exit code is then 1.

Examples:
  dapseq decode ./schemas --sequence obs --input obs.dods
  dapseq decode ./schemas --sequence obs --server DODS/2.14 < old.dods`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Sequence, "sequence", "s", "", "sequence name (required)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "-", "input file, - for stdin")
	cmd.Flags().StringVar(&opts.Server, "server", dap.DefaultVersion.String(), "server version of the stream")
	_ = cmd.MarkFlagRequired("sequence")

	return cmd
}

func runDecode(opts *DecodeOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	version, err := dap.ParseServerVersion(opts.Server)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeVersion, err.Error(), nil)
	}
	peer := dap.NewPeer(version)

	tmpl, err := loadSequence(formatter, dir, opts.Sequence)
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(opts.Input, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, err.Error(), nil)
	}
	defer closeIn()

	seq := tmpl.Clone().(*dap.Sequence)
	sink := &countingSink{}
	decodeErr := seq.Decode(cmd.Context(), bufio.NewReader(in), peer, sink)

	logger.Debug("decoded sequence",
		"sequence", seq.Name(),
		"server", version.String(),
		"legacy", peer.Legacy(),
		"rows", seq.RowCount(),
		"bytes", sink.bytes)

	if decodeErr != nil {
		details := map[string]any{"rows": seq.RowCount(), "bytes": sink.bytes}
		if !formatter.JSON() {
			seq.PrintVal(formatter.Writer, "", true)
		}
		_ = formatter.Error(ErrCodeDecode, decodeErr.Error(), details)
		return WrapExitError(ExitFailure, "decode failed", decodeErr)
	}

	if formatter.JSON() {
		values := make([][]any, 0, seq.RowCount())
		for i := range seq.RowCount() {
			row, _ := seq.Row(i)
			values = append(values, row.Values())
		}
		return formatter.Success(DecodeResult{
			Sequence: seq.Name(),
			Server:   version.String(),
			Rows:     seq.RowCount(),
			Bytes:    sink.bytes,
			Values:   values,
		})
	}

	seq.PrintVal(formatter.Writer, "", true)
	return nil
}

// countingSink counts decoded bytes. It never cancels; cancellation comes
// from the command context.
type countingSink struct {
	bytes int
}

func (s *countingSink) IncrementByteCount(n int) { s.bytes += n }

func (s *countingSink) UserCancelled() bool { return false }

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// loadSequence loads dir and returns the named sequence template, reporting
// failures through formatter.
func loadSequence(formatter *OutputFormatter, dir, name string) (*dap.Sequence, error) {
	result, errs := LoadSchemas(dir, LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, failLoad(formatter, result, errs)
	}
	s, err := result.Sequence(name)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return nil, formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return nil, err
	}
	return s, nil
}
