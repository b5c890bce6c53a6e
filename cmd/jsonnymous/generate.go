package main

import (
	"fmt"

	"github.com/raaihank/jsonnymous/internal/engine"
	"github.com/raaihank/jsonnymous/internal/export"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type generateOptions struct {
	skeleton   string
	swagger    string
	schemaName string
	count      int
	seed       int64
	xml        bool
	validate   bool
	export     string
}

func newGenerateCmd(global *globalOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fill a JSON or XML skeleton with synthetic data",
		Long:  "Generate a document with the same structure as the skeleton, replacing every leaf with a realistic value chosen from its key, its example value and the optional schema.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.skeleton, "skeleton", "s", "", "Skeleton document file, or - for stdin (required)")
	cmd.Flags().StringVar(&opts.swagger, "swagger", "", "Swagger/OpenAPI or JSON Schema file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.schemaName, "schema-name", "", "Schema to apply instead of the best match")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "Number of items for repeated arrays, or root elements with --xml")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Seed for reproducible output")
	cmd.Flags().BoolVar(&opts.xml, "xml", false, "Treat the skeleton as XML")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "Validate the result against the schema")
	cmd.Flags().StringVar(&opts.export, "export", "", "Write records as json, ndjson, csv or parquet")

	cmd.MarkFlagRequired("skeleton")
	return cmd
}

func runGenerate(cmd *cobra.Command, global *globalOptions, opts *generateOptions) error {
	var exportFormat export.FileFormat
	if opts.export != "" {
		f, ok := export.ParseFormat(opts.export)
		if !ok {
			return fmt.Errorf("unknown export format %q (want json, ndjson, csv or parquet)", opts.export)
		}
		exportFormat = f
	}

	a, err := newApp(global)
	if err != nil {
		return err
	}

	skeleton, err := readInput(cmd, opts.skeleton)
	if err != nil {
		return err
	}

	req := engine.GenerateRequest{
		Format:   formatFor(opts.skeleton, opts.xml),
		Skeleton: skeleton,
		Options: engine.GenerateOptions{
			SchemaName: opts.schemaName,
			Validate:   opts.validate,
		},
	}
	if opts.swagger != "" {
		if req.Schema, err = readInput(cmd, opts.swagger); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("count") {
		req.Options.Count = &opts.count
	}
	if cmd.Flags().Changed("seed") {
		req.Options.Seed = &opts.seed
	}

	resp, err := a.engine.Generate(req)
	if err != nil {
		return err
	}

	meta := resp.Metadata
	for _, issue := range meta.Issues {
		a.log.Warn("Schema constraint ignored", zap.String("path", issue.Path), zap.String("message", issue.Message))
	}
	for _, ve := range meta.ValidationErrors {
		fmt.Fprintf(cmd.ErrOrStderr(), "validation: %s: %s\n", ve.Field, ve.Message)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Generated %d item(s) with seed %d\n", meta.ItemCount, meta.Seed)

	if exportFormat != "" {
		w, closeFn, err := a.openOutput(cmd)
		if err != nil {
			return err
		}
		_, err = export.New(export.Config{}, a.log.WithComponent("export").Logger).Export(cmd.Context(), w, resp.Document, exportFormat)
		if cerr := closeFn(); err == nil {
			err = cerr
		}
		return err
	}

	out, err := engine.Render(resp.Document, req.Format, global.pretty)
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	return a.write(cmd, out)
}
