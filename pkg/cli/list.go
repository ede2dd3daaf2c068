package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List all stored instance records",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggerContext(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			records, err := repo.ListInstances(ctx)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No instances")
				return nil
			}

			for _, record := range records {
				connected := "disconnected"
				if record.Connected {
					connected = "connected"
				}
				persona := "-"
				if record.Persona != nil {
					persona = record.Persona.Name
				}
				fmt.Printf("%-24s %-12s %-18s %s\n", record.Name, connected, record.Stage, persona)
			}
			return nil
		},
	}
}
