package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meenmo/fralib/cmd/fraprice/internal/pricing"
	"github.com/meenmo/fralib/config"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	code := 0
	root := newRootCmd(stdin, stdout, stderr, &code)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	return code
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer, code *int) *cobra.Command {
	root := &cobra.Command{
		Use:           "fraprice",
		Short:         "Price forward rate agreements",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().String("config", "", "config file path (default: ./fralib.yaml)")

	root.AddCommand(newPriceCmd(code))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fraprice %s (%s)\n", version, commit)
		},
	})
	return root
}

func newPriceCmd(code *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Read trades as JSON, write NPVs as JSON",
		Long: `Read a JSON document with a curve, an optional index and a list of FRAs, price
every trade and write the results as JSON to stdout.

Examples:
  fraprice price < input.json
  fraprice price --input /path/to/input.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			inputPath, _ := cmd.Flags().GetString("input")
			*code = price(cmd, configPath, strings.TrimSpace(inputPath))
			return nil
		},
	}
	cmd.Flags().String("input", "", "JSON input path (optional; if set, ignores stdin)")
	return cmd
}

func price(cmd *cobra.Command, configPath, inputPath string) int {
	stdout := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return writeError(stdout, fmt.Sprintf("failed to load config: %v", err))
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return writeError(stdout, err.Error())
	}
	logger.SetOutput(cmd.ErrOrStderr())

	inputBytes, err := readInput(cmd.InOrStdin(), inputPath)
	if err != nil {
		return writeError(stdout, fmt.Sprintf("failed to read input: %v", err))
	}
	var input pricing.Input
	if err := json.Unmarshal(inputBytes, &input); err != nil {
		return writeError(stdout, fmt.Sprintf("failed to parse JSON input: %v", err))
	}

	ctx := cmd.Context()
	store, closeStore, err := pricing.OpenFixingStore(ctx, cfg.Fixings)
	if err != nil {
		return writeError(stdout, err.Error())
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.WithError(err).Warn("closing fixing store")
		}
	}()

	pricer := pricing.NewPricer(cfg.Pricing, store, logger.WithField("cmd", "price"))
	output, err := pricer.Price(ctx, input)
	if err != nil {
		return writeError(stdout, err.Error())
	}

	outputBytes, _ := json.Marshal(output)
	fmt.Fprintln(stdout, string(outputBytes))
	return 0
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(stdin)
}

func writeError(stdout io.Writer, msg string) int {
	outputBytes, _ := json.Marshal(pricing.Output{Error: msg})
	fmt.Fprintln(stdout, string(outputBytes))
	return 1
}
