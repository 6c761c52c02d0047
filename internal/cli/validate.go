package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/kinware/redux-first-router/internal/engine"
	"github.com/kinware/redux-first-router/internal/location"
	"github.com/kinware/redux-first-router/internal/seed"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool           `json:"valid"`
	Basename string         `json:"basename"`
	Index    int            `json:"index"`
	Entries  []EntrySummary `json:"entries,omitempty"`
	Error    *SeedError     `json:"error,omitempty"`
}

// EntrySummary describes one built entry. Key is only set when the seed
// fixes it.
type EntrySummary struct {
	URL   string `json:"url"`
	Href  string `json:"href"`
	Key   string `json:"key,omitempty"`
	State any    `json:"state,omitempty"`
}

// SeedError locates a seed compile error.
type SeedError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <seed-file>",
		Short: "Validate a seed file",
		Long: `Validate a CUE or JSON seed file.

Compiles the seed, builds its entries and checks that a navigation store
accepts the result. Relative entry paths are resolved against the entry
before them.

Examples:
  navstate validate ./seeds/app.cue
  navstate validate ./seeds/app.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	sd, err := seed.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "seed file not found", err)
	}
	if err != nil {
		return outputValidationError(formatter, err)
	}
	formatter.VerboseLog("Compiled %s: %d entries", path, len(sd.Entries))

	fixed := make([]string, len(sd.Entries))
	for i, e := range sd.Entries {
		fixed[i] = e.Key
	}

	cfg := sd.Build(location.MustNewFactory(location.DefaultCacheSize), engine.UUIDv7Generator{})
	nav, err := engine.New(cfg, engine.WithLogger(opts.Logger(cmd.ErrOrStderr())))
	if err != nil {
		return outputValidationError(formatter, err)
	}

	result := ValidationResult{
		Valid:    true,
		Basename: nav.Basename(),
		Index:    nav.Index(),
	}
	for i, e := range nav.Entries() {
		summary := EntrySummary{URL: e.URL, Href: nav.Href(e), Key: fixed[i]}
		if len(e.State) > 0 {
			summary.State = e.State
		}
		result.Entries = append(result.Entries, summary)
	}

	return outputValidateSuccess(formatter, result)
}

// seedError converts a load error into its reported form.
func seedError(err error) *SeedError {
	var cerr *seed.CompileError
	if errors.As(err, &cerr) {
		se := &SeedError{Field: cerr.Field, Message: cerr.Message}
		if cerr.Pos.IsValid() {
			se.File = cerr.Pos.Filename()
			se.Line = cerr.Pos.Line()
			se.Column = cerr.Pos.Column()
		}
		return se
	}
	return &SeedError{Field: "seed", Message: err.Error()}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Seed valid: %d entries, index %d, basename %q\n",
		len(result.Entries), result.Index, result.Basename)
	if formatter.Verbose {
		for i, e := range result.Entries {
			marker := " "
			if i == result.Index {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s [%d] %s\n", marker, i, e.Href)
		}
	}
	return nil
}

// outputValidationError outputs a failed validation.
func outputValidationError(formatter *OutputFormatter, err error) error {
	se := seedError(err)

	if formatter.Format == "json" {
		if encErr := writeJSON(formatter.Writer, CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Error: se},
			Error: &CLIError{
				Code:    ErrCodeSeed,
				Message: se.Message,
			},
		}); encErr != nil {
			return encErr
		}
		// Validation failures = exit code 1
		return WrapExitError(ExitFailure, "seed validation failed", err)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	if se.Line > 0 {
		fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", se.File, se.Line, se.Column)
	}
	fmt.Fprintf(formatter.Writer, "  %s: %s\n", se.Field, se.Message)

	return WrapExitError(ExitFailure, "seed validation failed", err)
}
