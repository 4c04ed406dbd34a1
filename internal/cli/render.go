package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chemlayout/pkg/render"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		lf     layoutFlags
		rf     renderFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Lay out a molecule and draw it",
		Long: `Lay out a molecule and draw it as SVG, PNG, Graphviz DOT or Graphviz-rendered SVG.

With a single format -o names the output file. With several formats -o is a
base path and each file gets the format's extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.pipelineOptions()
			if err != nil {
				return err
			}
			lf.apply(cmd, &opts)
			rf.apply(cmd, &opts)
			opts.Path = args[0]
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}

			runner, err := c.newRunner(cmd.Context(), lf.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			spin := newSpinner(cmd.Context(), "Rendering "+filepath.Base(args[0]))
			spin.Start()
			result, err := runner.Execute(cmd.Context(), opts)
			spin.Stop()
			if err != nil {
				return err
			}

			printSuccess("Rendered %s", result.Molecule.Name)
			printStats(result.Report, result.CacheInfo.LayoutHit)
			printReportWarnings(result.Report)
			for _, format := range opts.Formats {
				path := outputPath(output, args[0], render.Format(format), len(opts.Formats))
				if err := os.WriteFile(path, result.Artifacts[format], 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				printFile(path)
			}
			return nil
		},
	}

	lf.register(cmd)
	rf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")

	return cmd
}

// parseFormats splits the --format flag.
func parseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// outputPath returns the file an artifact is written to. A single format
// honours -o as given; otherwise -o (or the input path) is a base path.
func outputPath(output, input string, format render.Format, count int) string {
	if count == 1 && output != "" {
		return output
	}
	return basePath(output, input) + format.Ext()
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a known render extension, it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	if gv := render.FormatGraphviz.Ext(); strings.HasSuffix(output, gv) {
		return strings.TrimSuffix(output, gv)
	}
	ext := filepath.Ext(output)
	if _, err := render.ParseFormat(strings.TrimPrefix(ext, ".")); ext != "" && err == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
