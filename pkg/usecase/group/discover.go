package group

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Discover scrapes the configured directory for invite codes across the
// given categories, up to perCategory codes each.
func (u *UseCase) Discover(ctx context.Context, categories []string, perCategory int) ([]string, error) {
	if u.directory == nil {
		return nil, goerr.New("no group directory configured")
	}

	var codes []string
	seen := map[string]struct{}{}
	for _, category := range categories {
		found, err := u.directory.InviteCodes(ctx, category, perCategory)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to discover groups", goerr.V("category", category))
		}
		for _, code := range found {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}

	return codes, nil
}

// DiscoverAndJoin scrapes the directory and immediately joins the instance
// into every discovered group.
func (u *UseCase) DiscoverAndJoin(ctx context.Context, instanceName string, categories []string, perCategory int) ([]string, *JoinSummary, error) {
	codes, err := u.Discover(ctx, categories, perCategory)
	if err != nil {
		return nil, nil, err
	}
	if len(codes) == 0 {
		return codes, &JoinSummary{}, nil
	}

	summary, err := u.Join(ctx, instanceName, codes)
	if err != nil {
		return codes, summary, err
	}
	return codes, summary, nil
}
