package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/usecase/group"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func groupsCommand() *cli.Command {
	return &cli.Command{
		Name:  "groups",
		Usage: "Group membership operations",
		Commands: []*cli.Command{
			groupsJoinCommand(),
			groupsDiscoverCommand(),
			groupsListCommand(),
		},
	}
}

func groupsJoinCommand() *cli.Command {
	var cfg config
	var joinDelay time.Duration

	flags := append(globalFlags(&cfg),
		&cli.StringSliceFlag{
			Name:    "link",
			Aliases: []string{"l"},
			Usage:   "Invite link or bare invite code (repeatable); omit for interactive entry",
		},
		&cli.DurationFlag{
			Name:        "join-delay",
			Usage:       "Pause between consecutive joins",
			Value:       10 * time.Second,
			Destination: &joinDelay,
		},
	)

	return &cli.Command{
		Name:      "join",
		Usage:     "Join an instance into groups by invite link",
		ArgsUsage: "<instance-name>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			name := c.Args().First()
			if name == "" {
				return goerr.New("instance name is required")
			}

			ctx = cfg.loggerContext(ctx)

			links := c.StringSlice("link")
			if len(links) == 0 {
				collected, err := readInviteLinks()
				if err != nil {
					return err
				}
				links = collected
			}

			var codes []string
			for _, link := range links {
				code, ok := group.ExtractInviteCode(link)
				if !ok {
					fmt.Printf("Skipping unrecognized invite: %s\n", link)
					continue
				}
				codes = append(codes, code)
			}
			if len(codes) == 0 {
				return goerr.New("no valid invite codes given")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			gateway, err := cfg.newGateway()
			if err != nil {
				return err
			}

			uc := group.New(repo, gateway, group.WithJoinDelay(joinDelay))
			summary, err := uc.Join(ctx, name, codes)
			if err != nil {
				return err
			}

			fmt.Printf("Joined %d group(s), %d failed\n", summary.Accepted, summary.Failed)
			return nil
		},
	}
}

func groupsDiscoverCommand() *cli.Command {
	var cfg config
	var directoryURL string
	var limit int64
	var joinDelay time.Duration

	flags := append(globalFlags(&cfg),
		&cli.StringFlag{
			Name:        "directory-url",
			Usage:       "Base URL of the group directory site",
			Sources:     cli.EnvVars("EVOCTL_DIRECTORY_URL"),
			Destination: &directoryURL,
		},
		&cli.StringSliceFlag{
			Name:  "category",
			Usage: "Directory categories to sweep (repeatable)",
			Value: []string{"amizade", "amor-e-romance"},
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum invite codes per category",
			Value:       10,
			Destination: &limit,
		},
		&cli.DurationFlag{
			Name:        "join-delay",
			Usage:       "Pause between consecutive joins",
			Value:       10 * time.Second,
			Destination: &joinDelay,
		},
	)

	return &cli.Command{
		Name:      "discover",
		Usage:     "Scrape a group directory for invite codes and join them",
		ArgsUsage: "[instance-name]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if directoryURL == "" {
				return goerr.New("directory-url is required")
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

			uc := group.New(repo, gateway,
				group.WithDirectory(adapter.NewDirectory(directoryURL)),
				group.WithJoinDelay(joinDelay))

			// Without an instance the discovered codes are only printed.
			name := c.Args().First()
			if name == "" {
				codes, err := uc.Discover(ctx, c.StringSlice("category"), int(limit))
				if err != nil {
					return err
				}
				for _, code := range codes {
					fmt.Printf("https://chat.whatsapp.com/%s\n", code)
				}
				fmt.Printf("Found %d invite code(s)\n", len(codes))
				return nil
			}

			codes, summary, err := uc.DiscoverAndJoin(ctx, name, c.StringSlice("category"), int(limit))
			if err != nil {
				return err
			}

			fmt.Printf("Found %d invite code(s); joined %d group(s), %d failed\n",
				len(codes), summary.Accepted, summary.Failed)
			return nil
		},
	}
}

func groupsListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "list",
		Usage:     "List the groups an instance belongs to",
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

			groups, err := group.New(repo, gateway).List(ctx, name)
			if err != nil {
				return err
			}

			if len(groups) == 0 {
				fmt.Println("No groups")
				return nil
			}
			for _, g := range groups {
				fmt.Printf("%-48s %d member(s)\n", g.Subject, g.Size)
			}
			return nil
		},
	}
}

// readInviteLinks collects invite links interactively, one per line, until
// an empty line or EOF.
func readInviteLinks() ([]string, error) {
	rl, err := readline.New("invite> ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open prompt")
	}
	defer rl.Close()

	fmt.Println("Paste invite links one per line, empty line to finish:")

	var links []string
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read input")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		links = append(links, line)
	}

	return links, nil
}
