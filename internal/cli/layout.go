package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	chemio "github.com/matzehuels/chemlayout/pkg/io"
	"github.com/matzehuels/chemlayout/pkg/layout"
)

// stdoutPath selects standard output for -o.
const stdoutPath = "-"

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		lf           layoutFlags
		output       string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "layout [file]",
		Short: "Compute 2D coordinates for a molecule",
		Long: `Compute 2D coordinates for a molecule read from JSON or an MDL molfile.

The result is written as JSON (with a layout report) or as a molfile. Without
-o the output goes next to the input as <name>.layout.json; -o - writes to
standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.pipelineOptions()
			if err != nil {
				return err
			}
			lf.apply(cmd, &opts)
			opts.Path = args[0]

			format, err := outputFormatFor(outputFormat, output)
			if err != nil {
				return err
			}

			runner, err := c.newRunner(cmd.Context(), lf.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			toStdout := output == stdoutPath
			spin := newSpinner(cmd.Context(), "Laying out "+filepath.Base(args[0]))
			if !toStdout {
				spin.Start()
			}
			m, err := runner.Read(cmd.Context(), opts)
			if err != nil {
				spin.Stop()
				return err
			}
			report, hit, err := runner.LayoutWithCacheInfo(cmd.Context(), m, opts)
			spin.Stop()
			if err != nil {
				return err
			}

			if toStdout {
				return chemio.Write(m, report, cmd.OutOrStdout(), format)
			}
			path := output
			if path == "" {
				path = layoutOutputPath(args[0], format)
			}
			if err := chemio.WriteFile(m, report, path, format); err != nil {
				return err
			}

			printSuccess("Laid out %s", m.Name)
			printStats(report, hit)
			printReportWarnings(report)
			printFile(path)
			return nil
		},
	}

	lf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (- for stdout)")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "output format: json, mol (default: by output extension, else json)")

	return cmd
}

// outputFormatFor picks the output format from the flag or, failing that,
// from the output path.
func outputFormatFor(flag, output string) (chemio.Format, error) {
	if flag != "" {
		return chemio.ParseFormat(flag)
	}
	if output == "" || output == stdoutPath {
		return chemio.FormatJSON, nil
	}
	return chemio.FormatOf(output), nil
}

// layoutOutputPath derives <dir>/<name>.layout.<ext> from the input path.
func layoutOutputPath(input string, format chemio.Format) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + ".layout." + string(format)
}

// printReportWarnings prints the quality problems recorded in report.
func printReportWarnings(report *layout.Report) {
	if report.Skipped {
		printInfo("Coordinates already present; use --force to regenerate")
	}
	if report.DegradedSystems > 0 {
		printWarning("%d ring system(s) placed with a fallback layout", report.DegradedSystems)
	}
	if report.ResidualCollisions > 0 {
		printWarning("%d atom collision(s) left unresolved", report.ResidualCollisions)
	}
	if !report.Skipped && report.Bond.Stretched > 0 {
		printWarning("%d bond(s) deviate more than %.0f%% from the target length", report.Bond.Stretched, layout.BondTolerance*100)
	}
	if report.Iterations > 0 && !report.Converged {
		printWarning("Refinement stopped after %d iterations (max force %.2g)", report.Iterations, report.MaxGradient)
	}
}
