package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/evoctl/evoctl/pkg/usecase/instance"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func statusCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "status",
		Usage:     "Show an instance record with a fresh connection check",
		ArgsUsage: "<instance-name>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			name := c.Args().First()
			if name == "" {
				return goerr.New("instance name is required")
			}

			ctx = cfg.loggerContext(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			gateway, err := cfg.newGateway()
			if err != nil {
				return err
			}
			photoPool, err := cfg.newPool()
			if err != nil {
				return err
			}

			uc := instance.New(repo, gateway, photoPool, nil)
			record, err := uc.Status(ctx, name)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(record)
		},
	}
}
