package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/usecase/instance"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mdp/qrterminal/v3"
	"github.com/urfave/cli/v3"
)

func createCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "create",
		Usage:     "Create an instance, wait for pairing and assign a persona",
		ArgsUsage: "<instance-name>",
		Flags:     append(globalFlags(&cfg), personaFlags(&cfg)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			name := c.Args().First()
			if name == "" {
				return goerr.New("instance name is required")
			}

			ctx = cfg.loggerContext(ctx)

			wait := spinner.New(spinner.CharSets[14], 200*time.Millisecond, spinner.WithWriter(os.Stderr))
			wait.Suffix = " waiting for the device to pair..."
			defer wait.Stop()

			uc, err := cfg.newInstanceUseCase(ctx,
				instance.WithPairingHandler(func(artifact *adapter.PairingArtifact) {
					showPairing(artifact)
					wait.Start()
				}),
			)
			if err != nil {
				return err
			}

			result, err := uc.CreateAndAssign(ctx, name)
			wait.Stop()
			if err != nil {
				return err
			}

			if result.Aborted {
				return goerr.New("provisioning aborted",
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

func showPairing(artifact *adapter.PairingArtifact) {
	if artifact == nil || artifact.Code == "" {
		fmt.Fprintln(os.Stderr, "No pairing code returned; check the gateway UI for the QR code.")
		return
	}

	fmt.Fprintln(os.Stderr, "Scan this QR code with the messaging app:")
	qrterminal.GenerateHalfBlock(artifact.Code, qrterminal.L, os.Stderr)
}
