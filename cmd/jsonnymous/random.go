package main

import (
	"fmt"

	"github.com/raaihank/jsonnymous/internal/random"
	"github.com/raaihank/jsonnymous/internal/engine"
	"github.com/spf13/cobra"
)

func newRandomCmd(global *globalOptions) *cobra.Command {
	var (
		depth, maxKeys, maxChildren, maxItems int
		seed                                  int64
		xml                                   bool
		rootTag                               string
	)
	cmd := &cobra.Command{
		Use:   "random",
		Short: "Generate a random document without a skeleton",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			optional := func(name string, v *int) *int {
				if flags.Changed(name) {
					return v
				}
				return nil
			}
			var seedPtr *int64
			if flags.Changed("seed") {
				seedPtr = &seed
			}

			var (
				resp   *engine.RandomResponse
				format = engine.FormatJSON
			)
			if xml {
				format = engine.FormatXML
				resp, err = a.engine.GenerateRandomXML(engine.RandomXMLRequest{
					Depth:       optional("depth", &depth),
					MaxChildren: optional("max-children", &maxChildren),
					MaxItems:    optional("max-items", &maxItems),
					Seed:        seedPtr,
					RootTag:     rootTag,
				})
			} else {
				resp, err = a.engine.GenerateRandom(engine.RandomRequest{
					Depth:    optional("depth", &depth),
					MaxKeys:  optional("max-keys", &maxKeys),
					MaxItems: optional("max-items", &maxItems),
					Seed:     seedPtr,
				})
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Generated random document with seed %d\n", resp.Metadata.Seed)

			out, err := engine.Render(resp.Document, format, global.pretty)
			if err != nil {
				return fmt.Errorf("failed to render document: %w", err)
			}
			return a.write(cmd, out)
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 3, "Maximum nesting depth")
	cmd.Flags().IntVar(&maxKeys, "max-keys", 5, "Maximum keys per object")
	cmd.Flags().IntVar(&maxChildren, "max-children", 5, "Maximum child elements per element (XML)")
	cmd.Flags().IntVar(&maxItems, "max-items", 5, "Maximum items per array or repeated element")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for reproducible output")
	cmd.Flags().BoolVar(&xml, "xml", false, "Generate XML instead of JSON")
	cmd.Flags().StringVar(&rootTag, "root-tag", random.DefaultRootTag, "Root element name (XML)")
	return cmd
}
