package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/evoctl/evoctl/pkg/usecase/instance"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func deleteCommand() *cli.Command {
	var cfg config
	var force bool

	flags := append(globalFlags(&cfg),
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Skip the confirmation prompt",
			Destination: &force,
		},
	)

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an instance, releasing its photo claim",
		ArgsUsage: "<instance-name>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			name := c.Args().First()
			if name == "" {
				return goerr.New("instance name is required")
			}

			ctx = cfg.loggerContext(ctx)

			if !force {
				ok, err := confirm(fmt.Sprintf("Delete instance %s? [y/N] ", name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted")
					return nil
				}
			}

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
			if err := uc.Delete(ctx, name); err != nil {
				return err
			}

			fmt.Printf("Instance %s deleted\n", name)
			return nil
		},
	}
}

func confirm(prompt string) (bool, error) {
	rl, err := readline.New(prompt)
	if err != nil {
		return false, goerr.Wrap(err, "failed to open prompt")
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		return false, nil
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
