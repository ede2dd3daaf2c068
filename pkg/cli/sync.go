package cli

import (
	"context"
	"fmt"

	"github.com/evoctl/evoctl/pkg/usecase/instance"
	"github.com/urfave/cli/v3"
)

func syncCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile stored records with the gateway's instance listing",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
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
			imported, err := uc.Sync(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Sync complete: %d instance(s) imported\n", imported)
			return nil
		},
	}
}
