// Package cli contains all business logic needed by the CLI command.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	generalFlagConfig  = "config"
	generalFlagDebug   = "debug"
	generalFlagLogFile = "log-file"

	meshFlag      = "mesh"
	visualizeFlag = "visualize"
	countFlag     = "count"
	scaleFlag     = "scale"

	samplesFlag = "samples"
	noiseFlag   = "noise"
	seedFlag    = "seed"
	dimFlag     = "dim"
	plotFlag    = "plot"
	refinerFlag = "refiner"

	refinerGradient = "gradient"
	refinerNlopt    = "nlopt"
)

var meshFlagDef = &cli.StringFlag{
	Name:  meshFlag,
	Value: "cube",
	Usage: "mesh `FILE` (.off or .ply), or one of the built in primitives cube and sphere",
}

var app = &cli.App{
	Name:            "nemo",
	Usage:           "estimate object poses by matching neural mesh features",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    generalFlagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.PathFlag{
			Name:  generalFlagLogFile,
			Usage: "also write logs to a rotating `FILE`",
		},
	},
	Before: setupLogging,
	After:  syncLogging,
	Commands: []*cli.Command{
		{
			Name:  "library",
			Usage: "build the candidate pose library for a mesh and summarize it",
			Flags: []cli.Flag{
				meshFlagDef,
				&cli.PathFlag{
					Name:  visualizeFlag,
					Usage: "write projection overlays of the first candidates to `DIR`",
				},
				&cli.IntFlag{
					Name:  countFlag,
					Value: 8,
					Usage: "number of candidates to visualize",
				},
				&cli.IntFlag{
					Name:  scaleFlag,
					Value: 4,
					Usage: "output pixels per feature map pixel in overlays",
				},
			},
			Action: LibraryAction,
		},
		{
			Name:  "synthetic",
			Usage: "solve rendered feature maps of random poses and report accuracy",
			Flags: []cli.Flag{
				meshFlagDef,
				&cli.IntFlag{
					Name:  samplesFlag,
					Value: 20,
					Usage: "number of random poses",
				},
				&cli.Float64Flag{
					Name:  noiseFlag,
					Value: 0.05,
					Usage: "standard deviation of gaussian feature noise",
				},
				&cli.Int64Flag{
					Name:  seedFlag,
					Value: 1,
					Usage: "random seed",
				},
				&cli.IntFlag{
					Name:  dimFlag,
					Value: 32,
					Usage: "descriptor dimension of the random feature bank",
				},
				&cli.PathFlag{
					Name:  plotFlag,
					Usage: "write an error histogram to `FILE` (.png, .svg or .pdf)",
				},
				&cli.StringFlag{
					Name:  refinerFlag,
					Value: refinerGradient,
					Usage: "refinement optimizer: gradient or nlopt",
				},
			},
			Action: SyntheticAction,
		},
		{
			Name:   "schema",
			Usage:  "print the JSON schema of the configuration file",
			Action: SchemaAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
