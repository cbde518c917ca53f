package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/spikefang/pkg/config"
)

// exitCodeValidationFailure is the exit code for operational failures
// during validation (unreadable input, broken schema).
const exitCodeValidationFailure = 2

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var schemaPath string

	var colorize, nocolor bool

	cmd := &cobra.Command{
		Use:   "validate <spikefang.yaml|->",
		Short: "Validate a spikefang config file against the config schema",
		Long: `Validate a spikefang YAML config file against the canonical config schema.

Structural errors (wrong types, unknown enum values) are reported from the
JSON schema. Value bounds (significance levels, fractions) are then checked
the same way the detect command checks them at startup.

Examples:
  spikefang validate spikefang.yaml
  spikefang validate - < spikefang.yaml
  spikefang validate --schema custom-schema.json spikefang.yaml
`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(args[0], schemaPath, colorize, nocolor)
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to config JSON schema (default: embedded)")
	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")

	return cmd
}

func runValidate(inputPath, schemaPath string, colorize, nocolor bool) error {
	// Color setup.
	if nocolor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	} else if colorize {
		color.NoColor = false //nolint:reassign // intentional override of library global
	}

	inputReader, inputLabel := loadInput(inputPath)

	data, readErr := io.ReadAll(inputReader)
	if readErr != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", readErr)
		os.Exit(exitCodeValidationFailure)
	}

	var inputData any

	decodeErr := yaml.Unmarshal(data, &inputData)
	if decodeErr != nil {
		fmt.Fprintf(os.Stderr, "Invalid YAML in %s: %v\n", inputLabel, decodeErr)
		os.Exit(exitCodeValidationFailure)
	}

	schemaLoader := loadSchema(schemaPath)

	inputLoader := gojsonschema.NewGoLoader(inputData)

	result, err := gojsonschema.Validate(schemaLoader, inputLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Schema validation error: %v\n", err)
		os.Exit(exitCodeValidationFailure)
	}

	if !result.Valid() {
		color.New(color.FgRed).Fprintf(os.Stdout, "Config validation failed (%s)\n", inputLabel)

		fmt.Fprintf(os.Stdout, "\nErrors:\n")

		for _, verr := range result.Errors() {
			color.New(color.FgRed).Fprintf(os.Stdout, "  - %s: %s\n", verr.Field(), verr.Description())
		}

		os.Exit(1)
	}

	cfg, cfgErr := config.Decode(data)
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode config: %v\n", cfgErr)
		os.Exit(exitCodeValidationFailure)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		color.New(color.FgRed).Fprintf(os.Stdout, "Config validation failed (%s)\n", inputLabel)
		color.New(color.FgRed).Fprintf(os.Stdout, "  - %v\n", validateErr)
		os.Exit(1)
	}

	color.New(color.FgGreen).Fprintf(os.Stdout, "Config is valid (%s)\n", inputLabel)

	return nil
}

//nolint:nonamedreturns // named returns needed for gocritic unnamedResult
func loadInput(inputPath string) (inputReader io.Reader, inputLabel string) {
	if inputPath == "-" {
		return os.Stdin, "stdin"
	}

	inputFile, err := os.Open(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open input: %v\n", err)
		os.Exit(exitCodeValidationFailure)
	}

	return inputFile, inputPath
}

func loadSchema(schemaPath string) gojsonschema.JSONLoader {
	if schemaPath == "" {
		schemaBytes, err := config.SchemaFS.ReadFile(config.SchemaName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read embedded schema: %v\n", err)
			os.Exit(exitCodeValidationFailure)
		}

		return gojsonschema.NewBytesLoader(schemaBytes)
	}

	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read schema file: %v\n", err)
		os.Exit(exitCodeValidationFailure)
	}

	return gojsonschema.NewBytesLoader(schemaBytes)
}
