package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func assignCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "assign",
		Usage:     "Resume persona assignment for an existing instance",
		ArgsUsage: "<instance-name>",
		Flags:     append(globalFlags(&cfg), personaFlags(&cfg)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			name := c.Args().First()
			if name == "" {
				return goerr.New("instance name is required")
			}

			ctx = cfg.loggerContext(ctx)

			uc, err := cfg.newInstanceUseCase(ctx)
			if err != nil {
				return err
			}

			result, err := uc.Assign(ctx, name)
			if err != nil {
				return err
			}

			if result.Aborted {
				return goerr.New("assignment aborted",
					goerr.V("instance", name),
					goerr.V("stage", result.Stage),
					goerr.V("reason", result.Reason))
			}

			fmt.Printf("Instance %s provisioned as %q (stage: %s)\n",
				name, result.Record.Persona.Name, result.Stage)
			return nil
		},
	}
}
