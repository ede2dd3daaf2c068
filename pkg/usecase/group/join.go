package group

import (
	"context"
	"regexp"
	"time"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/repository"
	"github.com/evoctl/evoctl/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// UseCase joins a connected instance into groups via invite codes.
type UseCase struct {
	repo      repository.Repository
	gateway   adapter.Gateway
	directory adapter.Directory

	joinDelay time.Duration
}

type Option func(*UseCase)

// WithJoinDelay sets the pause between consecutive joins. Joining too fast
// draws throttling from the platform.
func WithJoinDelay(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.joinDelay = d
	}
}

func WithDirectory(d adapter.Directory) Option {
	return func(uc *UseCase) {
		uc.directory = d
	}
}

func New(repo repository.Repository, gateway adapter.Gateway, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:      repo,
		gateway:   gateway,
		joinDelay: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

var inviteLinkPattern = regexp.MustCompile(`chat\.whatsapp\.com/([A-Za-z0-9]{22})`)
var bareCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)

// ExtractInviteCode pulls the 22-character invite code out of a full invite
// link, or accepts a bare code as-is.
func ExtractInviteCode(link string) (string, bool) {
	if m := inviteLinkPattern.FindStringSubmatch(link); m != nil {
		return m[1], true
	}
	if bareCodePattern.MatchString(link) {
		return link, true
	}
	return "", false
}

// JoinSummary reports a batch join.
type JoinSummary struct {
	Accepted int
	Failed   int
}

// Join accepts each invite code on the given instance, pacing the calls.
// Individual failures are counted, not fatal.
func (u *UseCase) Join(ctx context.Context, instanceName string, codes []string) (*JoinSummary, error) {
	logger := logging.From(ctx)

	record, err := u.repo.GetInstance(ctx, instanceName)
	if err != nil {
		return nil, err
	}
	if !record.Connected {
		return nil, goerr.New("instance is not connected", goerr.V("instance", instanceName))
	}

	summary := &JoinSummary{}
	for i, code := range codes {
		accepted, err := u.gateway.AcceptInvite(ctx, instanceName, record.Credential, code)
		switch {
		case err != nil:
			logger.Warn("invite failed", "instance", instanceName, "error", err)
			summary.Failed++
		case accepted:
			summary.Accepted++
		default:
			logger.Warn("invite not accepted", "instance", instanceName)
			summary.Failed++
		}

		if i < len(codes)-1 && u.joinDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(u.joinDelay):
			}
		}
	}

	return summary, nil
}
