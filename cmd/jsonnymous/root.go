package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/raaihank/jsonnymous/internal/config"
	"github.com/raaihank/jsonnymous/internal/engine"
	"github.com/raaihank/jsonnymous/internal/logger"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	output     string
	pretty     bool
	verbose    bool
}

// app holds what every subcommand needs once flags are parsed
type app struct {
	opts   *globalOptions
	cfg    *config.Config
	log    *logger.Logger
	engine *engine.Engine
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "jsonnymous",
		Short:         "Generate, anonymize and analyze JSON and XML documents",
		Long:          "jsonnymous fills JSON and XML skeletons with realistic synthetic data, optionally constrained by a Swagger/OpenAPI schema, and anonymizes sensitive fields of existing documents while keeping their structure.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the result to this file instead of stdout")
	flags.BoolVar(&opts.pretty, "pretty", false, "Indent JSON and XML output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")

	root.AddCommand(
		newGenerateCmd(opts),
		newAnonymizeCmd(opts),
		newAnalyzeCmd(opts),
		newRandomCmd(opts),
		newValidateXMLCmd(opts),
		newXPathCmd(opts),
	)
	return root
}

func newApp(opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if !opts.verbose {
		cfg.Logging.Level = "warn"
	}
	cfg.Logging.File.Enabled = false

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	eng, err := engine.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return &app{opts: opts, cfg: cfg, log: log, engine: eng}, nil
}

// readInput reads a file argument; "-" reads stdin
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// formatFor picks XML when forced or when the file has an .xml extension
func formatFor(path string, forceXML bool) engine.Format {
	if forceXML || strings.EqualFold(filepath.Ext(path), ".xml") {
		return engine.FormatXML
	}
	return engine.FormatJSON
}

// openOutput returns the --output file, or stdout
func (a *app) openOutput(cmd *cobra.Command) (io.Writer, func() error, error) {
	if a.opts.output == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	file, err := os.Create(a.opts.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, file.Close, nil
}

func (a *app) write(cmd *cobra.Command, data []byte) error {
	w, closeFn, err := a.openOutput(cmd)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		closeFn()
		return fmt.Errorf("failed to write output: %w", err)
	}
	return closeFn()
}

func (a *app) writeJSON(cmd *cobra.Command, v any) error {
	var (
		data []byte
		err  error
	)
	if a.opts.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return a.write(cmd, data)
}
