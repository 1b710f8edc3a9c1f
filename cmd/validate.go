package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clipbooth/clipbooth/internal/schedule"
)

// ValidationResult represents the validation outcome for a single schedule file.
type ValidationResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

var validateFormatFlag string

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate caption schedule files without recording",
	Long: `Validate one or more schedule YAML files without recording.

Checks schema compliance (required fields, color formats, durations).
Overlapping caption intervals are reported as warnings, not errors; at
record time the earliest declared caption wins.

Exit code 0 if all files are valid, 1 if any file has errors.

Formats:
  text   Human-readable output to stderr (default)
  json   Structured JSON to stdout

Examples:
  clipbooth validate captions.yaml
  clipbooth validate --format json a.yaml b.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	validateCmd.Flags().StringVar(&validateFormatFlag, "format", "text",
		"Output format: text, json")
	rootCmd.AddCommand(validateCmd)
}

// runValidate validates each file argument independently and outputs results
// in the chosen format.
func runValidate(_ *cobra.Command, args []string) error {
	format := strings.ToLower(validateFormatFlag)
	switch format {
	case "text", "json":
		// valid
	default:
		return fmt.Errorf("invalid format %q: valid values are text, json", validateFormatFlag)
	}

	var results []ValidationResult
	hasErrors := false

	for _, path := range args {
		result := validateFile(path)
		results = append(results, result)
		if !result.Valid {
			hasErrors = true
		}
	}

	switch format {
	case "text":
		formatValidateText(results)
	case "json":
		if err := formatValidateJSON(results); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
	}

	if hasErrors {
		os.Exit(1)
	}

	return nil
}

// validateFile validates a single schedule file.
func validateFile(path string) ValidationResult {
	if _, err := schedule.LoadFile(path); err != nil {
		return ValidationResult{
			File:   path,
			Valid:  false,
			Errors: []string{err.Error()},
		}
	}
	return ValidationResult{
		File:   path,
		Valid:  true,
		Errors: []string{},
	}
}

// formatValidateText writes human-readable validation results to stderr.
func formatValidateText(results []ValidationResult) {
	validCount := 0
	for _, r := range results {
		if r.Valid {
			validCount++
			fmt.Fprintf(os.Stderr, "✓ %s: valid\n", r.File)
		} else {
			fmt.Fprintf(os.Stderr, "✗ %s:\n", r.File)
			for _, e := range r.Errors {
				fmt.Fprintf(os.Stderr, "  - %s\n", e)
			}
		}
	}

	if len(results) > 1 {
		fmt.Fprintf(os.Stderr, "\nResult: %d/%d files valid\n", validCount, len(results))
	}
}

// formatValidateJSON writes JSON-encoded validation results to stdout.
func formatValidateJSON(results []ValidationResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}
