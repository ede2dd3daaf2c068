package group

import (
	"context"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/m-mizutani/goerr/v2"
)

// List returns the groups the instance currently belongs to.
func (u *UseCase) List(ctx context.Context, instanceName string) ([]*adapter.GroupInfo, error) {
	record, err := u.repo.GetInstance(ctx, instanceName)
	if err != nil {
		return nil, err
	}

	groups, err := u.gateway.FetchGroups(ctx, instanceName, record.Credential)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list groups", goerr.V("instance", instanceName))
	}

	return groups, nil
}
