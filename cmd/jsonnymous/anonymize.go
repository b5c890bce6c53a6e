package main

import (
	"fmt"

	"github.com/raaihank/jsonnymous/internal/engine"
	"github.com/spf13/cobra"
)

func newAnonymizeCmd(global *globalOptions) *cobra.Command {
	var (
		seed     int64
		forceXML bool
	)
	cmd := &cobra.Command{
		Use:   "anonymize <file>",
		Short: "Replace sensitive values while keeping the document structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			req := engine.AnonymizeRequest{Format: formatFor(args[0], forceXML), Document: data}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			resp, err := a.engine.Anonymize(req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Anonymized %d field(s)\n", resp.Metadata.AnonymizedFields)

			out, err := engine.Render(resp.Document, req.Format, global.pretty)
			if err != nil {
				return fmt.Errorf("failed to render document: %w", err)
			}
			return a.write(cmd, out)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for reproducible replacements")
	cmd.Flags().BoolVar(&forceXML, "xml", false, "Treat the input as XML")
	return cmd
}

func newAnalyzeCmd(global *globalOptions) *cobra.Command {
	var forceXML bool
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "List the fields that would be anonymized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			resp, err := a.engine.Analyze(engine.AnalyzeRequest{Format: formatFor(args[0], forceXML), Document: data})
			if err != nil {
				return err
			}
			return a.writeJSON(cmd, resp)
		},
	}

	cmd.Flags().BoolVar(&forceXML, "xml", false, "Treat the input as XML")
	return cmd
}
