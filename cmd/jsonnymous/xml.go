package main

import (
	"fmt"

	"github.com/raaihank/jsonnymous/internal/engine"
	"github.com/spf13/cobra"
)

func newValidateXMLCmd(global *globalOptions) *cobra.Command {
	var format bool
	cmd := &cobra.Command{
		Use:   "validate-xml <file>",
		Short: "Check that a file is well-formed XML and describe its root element",
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

			resp := a.engine.ValidateXML(data, format)
			if err := a.writeJSON(cmd, resp); err != nil {
				return err
			}
			if !resp.IsValid {
				return fmt.Errorf("%s is not well-formed XML", args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&format, "format", false, "Include an indented copy of the document")
	return cmd
}

func newXPathCmd(global *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "xpath <file> <expression>",
		Short: "Evaluate a path expression over an XML file",
		Long:  "Evaluate a path expression over an XML file. Supported: tag, //tag, /a/b, ./a, a/*, @attr, a/@attr and text().",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			resp, err := a.engine.XPath(engine.XPathRequest{XML: data, XPath: args[1], Format: engine.Format(format)})
			if err != nil {
				return err
			}
			return a.writeJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Result format: json or xml")
	return cmd
}
