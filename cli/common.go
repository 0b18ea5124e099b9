package cli

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/standardgalactic/neural-mesh/config"
	"github.com/standardgalactic/neural-mesh/logging"
	"github.com/standardgalactic/neural-mesh/spatialmath"
)

const (
	metadataConfig = "config"
	metadataLogger = "logger"
	metadataFile   = "log-file"
)

// setupLogging loads the configuration and builds the logger shared by all commands.
func setupLogging(c *cli.Context) error {
	// The app is reused across runs, so state from an earlier run is dropped.
	c.App.Metadata = map[string]interface{}{}
	cfg := config.Default()
	if path := c.String(generalFlagConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if c.Bool(generalFlagDebug) {
		level = logging.DEBUG
	}
	logger := logging.NewBlankLogger("nemo")
	logger.SetLevel(level)
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))

	logFile := cfg.Logging.File
	if path := c.Path(generalFlagLogFile); path != "" {
		logFile = path
	}
	if logFile != "" {
		appender := logging.NewFileAppender(logFile, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
		logger.AddAppender(appender)
		c.App.Metadata[metadataFile] = appender
	}

	c.App.Metadata[metadataConfig] = cfg
	c.App.Metadata[metadataLogger] = logger
	return nil
}

func syncLogging(c *cli.Context) error {
	var err error
	if logger, ok := c.App.Metadata[metadataLogger].(logging.Logger); ok {
		//nolint:errcheck
		logger.Sync()
	}
	if appender, ok := c.App.Metadata[metadataFile].(*logging.FileAppender); ok {
		err = appender.Close()
	}
	return err
}

func configFromContext(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[metadataConfig].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func loggerFromContext(c *cli.Context) logging.Logger {
	if logger, ok := c.App.Metadata[metadataLogger].(logging.Logger); ok {
		return logger
	}
	return logging.NewBlankLogger("nemo")
}

// Built in primitives are sized to fill part of the default view at the default distance.
const (
	primitiveCubeSide     = 0.3
	primitiveCubeCells    = 4
	primitiveSphereRadius = 0.2
)

// loadMesh reads a mesh file or builds a named primitive.
func loadMesh(name string) (*spatialmath.Mesh, error) {
	switch strings.ToLower(name) {
	case "cube":
		side := primitiveCubeSide
		return spatialmath.NewGridBoxMesh(r3.Vector{X: side, Y: side, Z: side}, primitiveCubeCells)
	case "sphere":
		return spatialmath.NewUVSphereMesh(primitiveSphereRadius, 12, 24)
	case "":
		return nil, errors.New("no mesh given")
	default:
		return spatialmath.NewMeshFromFile(name)
	}
}

func printf(c *cli.Context, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(c.App.Writer, format+"\n", a...)
}
