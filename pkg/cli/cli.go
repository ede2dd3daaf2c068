package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "evoctl",
		Usage: "Messaging gateway instance provisioning and persona assignment",
		Commands: []*cli.Command{
			createCommand(),
			assignCommand(),
			statusCommand(),
			listCommand(),
			deleteCommand(),
			syncCommand(),
			groupsCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
