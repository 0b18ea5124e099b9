package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/standardgalactic/neural-mesh/config"
)

// SchemaAction prints the configuration JSON schema.
func SchemaAction(c *cli.Context) error {
	out, err := config.Schema()
	if err != nil {
		return err
	}
	printf(c, "%s", out)
	return nil
}
