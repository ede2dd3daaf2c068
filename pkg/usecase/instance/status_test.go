package instance_test

import (
	"context"
	"errors"
	"testing"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestStatusRefreshesConnectionFlag(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	record := model.NewInstanceRecord("loja01", "cred")
	record.Connected = true
	gt.NoError(t, env.repo.PutInstance(ctx, record))

	env.gateway.connectionStatus = func(ctx context.Context, name, credential string) (*adapter.StatusResult, error) {
		return &adapter.StatusResult{State: adapter.StateExpired, Raw: "close"}, nil
	}

	got, err := env.useCase().Status(ctx, "loja01")
	gt.NoError(t, err)
	gt.Equal(t, got.Connected, false)

	// The refreshed flag is persisted.
	stored, err := env.repo.GetInstance(ctx, "loja01")
	gt.NoError(t, err)
	gt.Equal(t, stored.Connected, false)
}

func TestStatusToleratesGatewayOutage(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	record := model.NewInstanceRecord("loja01", "cred")
	record.Connected = true
	gt.NoError(t, env.repo.PutInstance(ctx, record))

	env.gateway.connectionStatus = func(ctx context.Context, name, credential string) (*adapter.StatusResult, error) {
		return nil, goerr.New("gateway down")
	}

	got, err := env.useCase().Status(ctx, "loja01")
	gt.NoError(t, err)
	gt.Equal(t, got.Connected, true)
}

func TestSyncImportsUnknownInstances(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	known := model.NewInstanceRecord("loja01", "cred")
	gt.NoError(t, env.repo.PutInstance(ctx, known))

	env.gateway.fetchInstances = func(ctx context.Context) ([]*adapter.RemoteInstance, error) {
		return []*adapter.RemoteInstance{
			{Name: "loja01", ConnectionStatus: "open", IsBusiness: true},
			{Name: "loja02", ConnectionStatus: "close", IsBusiness: true},
			{Name: ""},
		}, nil
	}

	imported, err := env.useCase().Sync(ctx)
	gt.NoError(t, err)
	gt.Equal(t, imported, 1)

	// Existing record got its connection and business flags refreshed.
	record, err := env.repo.GetInstance(ctx, "loja01")
	gt.NoError(t, err)
	gt.Equal(t, record.Connected, true)
	gt.Equal(t, record.Business, true)
	gt.Equal(t, record.Synced, false)

	// The imported record is marked as synced and keeps no credential.
	record, err = env.repo.GetInstance(ctx, "loja02")
	gt.NoError(t, err)
	gt.Equal(t, record.Synced, true)
	gt.Equal(t, record.Credential, "")
	gt.Equal(t, record.Connected, false)
	gt.Equal(t, record.Business, true)
}

func TestDeleteReleasesPhotoClaim(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, "a.jpg")

	claim, err := env.pool.Claim("loja01")
	gt.NoError(t, err)

	record := model.NewInstanceRecord("loja01", "cred")
	record.PhotoID = claim.PhotoID
	gt.NoError(t, env.repo.PutInstance(ctx, record))

	deleted := false
	env.gateway.deleteInstance = func(ctx context.Context, name, credential string) error {
		deleted = true
		return nil
	}

	gt.NoError(t, env.useCase().Delete(ctx, "loja01"))
	gt.Equal(t, deleted, true)

	_, err = env.repo.GetInstance(ctx, "loja01")
	gt.Equal(t, errors.Is(err, model.ErrInstanceNotFound), true)

	// The photo returns to the pool.
	available, err := env.pool.Available()
	gt.NoError(t, err)
	gt.A(t, available).Length(1)
}

func TestDeleteStopsOnGatewayError(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	gt.NoError(t, env.repo.PutInstance(ctx, model.NewInstanceRecord("loja01", "cred")))

	env.gateway.deleteInstance = func(ctx context.Context, name, credential string) error {
		return goerr.New("gateway refused")
	}

	gt.Error(t, env.useCase().Delete(ctx, "loja01"))

	// The record stays when the gateway side could not be removed.
	_, err := env.repo.GetInstance(ctx, "loja01")
	gt.NoError(t, err)
}
