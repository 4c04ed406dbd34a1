package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/chemlayout/pkg/pipeline"
)

// layoutFlags are the flags shared by the layout, render and serve commands.
// A flag overrides the config file only when it is given.
type layoutFlags struct {
	inputFormat   string
	bondLength    float64
	force         bool
	maxPasses     int
	maxIterations int
	noCache       bool
	refresh       bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.inputFormat, "input-format", "", "input format: json, mol (default: by file extension)")
	cmd.Flags().Float64Var(&f.bondLength, "bond-length", 0, "target bond length (-1 keeps the mean of existing coordinates)")
	cmd.Flags().BoolVar(&f.force, "force", false, "regenerate coordinates even if every atom has one")
	cmd.Flags().IntVar(&f.maxPasses, "max-collision-passes", 0, "collision resolver passes (negative disables)")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", 0, "force-field iterations (negative disables)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the layout cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute even if a cached layout exists")
}

func (f *layoutFlags) apply(cmd *cobra.Command, opts *pipeline.Options) {
	flags := cmd.Flags()
	if flags.Changed("input-format") {
		opts.InputFormat = f.inputFormat
	}
	if flags.Changed("bond-length") {
		opts.BondLength = f.bondLength
	}
	if flags.Changed("force") {
		opts.Force = f.force
	}
	if flags.Changed("max-collision-passes") {
		opts.MaxCollisionPasses = f.maxPasses
	}
	if flags.Changed("max-iterations") {
		opts.MaxRefineIterations = f.maxIterations
	}
	opts.Refresh = f.refresh
}

// renderFlags are the flags of the render command.
type renderFlags struct {
	formats string
	scale   float64
	carbons bool
	indices bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.formats, "format", "f", "", "output format(s): svg (default), png, dot, graphviz (comma-separated)")
	cmd.Flags().Float64Var(&f.scale, "scale", 0, "pixels per bond")
	cmd.Flags().BoolVar(&f.carbons, "carbons", false, "label carbon atoms")
	cmd.Flags().BoolVar(&f.indices, "indices", false, "show atom indices")
}

func (f *renderFlags) apply(cmd *cobra.Command, opts *pipeline.Options) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		opts.Formats = parseFormats(f.formats)
	}
	if flags.Changed("scale") {
		opts.Scale = f.scale
	}
	if flags.Changed("carbons") {
		opts.ShowCarbons = f.carbons
	}
	if flags.Changed("indices") {
		opts.ShowIndices = f.indices
	}
}

// pipelineOptions returns the options seeded from the config file.
func (c *CLI) pipelineOptions() (pipeline.Options, error) {
	p := c.Config.Pipeline
	lib, err := c.Config.Templates()
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		InputFormat:         p.InputFormat,
		BondLength:          p.BondLength,
		MaxCollisionPasses:  p.MaxCollisionPasses,
		MaxRefineIterations: p.MaxRefineIterations,
		Formats:             p.Formats,
		Scale:               p.Scale,
		ShowCarbons:         p.ShowCarbons,
		ShowIndices:         p.ShowIndices,
		Templates:           lib,
		Logger:              c.Logger,
	}, nil
}
