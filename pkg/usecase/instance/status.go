package instance

import (
	"context"
	"errors"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/model"
	"github.com/evoctl/evoctl/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Status returns the stored record for an instance, refreshing its
// connection flag from the gateway.
func (u *UseCase) Status(ctx context.Context, name string) (*model.InstanceRecord, error) {
	record, err := u.repo.GetInstance(ctx, name)
	if err != nil {
		return nil, err
	}

	status, err := u.gateway.ConnectionStatus(ctx, name, record.Credential)
	if err != nil {
		// The stored record is still useful when the gateway is down.
		logging.From(ctx).Warn("failed to refresh connection state", "instance", name, "error", err)
		return record, nil
	}

	connected := status.State == adapter.StateConnected
	if record.Connected != connected {
		record.Connected = connected
		if err := u.repo.PutInstance(ctx, record); err != nil {
			return nil, err
		}
	}

	return record, nil
}

// List returns all stored records.
func (u *UseCase) List(ctx context.Context) ([]*model.InstanceRecord, error) {
	return u.repo.ListInstances(ctx)
}

// Sync reconciles the local store with the gateway's instance listing:
// unknown instances are imported, connection flags refreshed. Returns the
// number of imported records.
func (u *UseCase) Sync(ctx context.Context) (int, error) {
	logger := logging.From(ctx)

	remotes, err := u.gateway.FetchInstances(ctx)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, remote := range remotes {
		if remote.Name == "" {
			continue
		}
		connected := remote.ConnectionStatus == "open"

		record, err := u.repo.GetInstance(ctx, remote.Name)
		switch {
		case errors.Is(err, model.ErrInstanceNotFound):
			record = model.NewInstanceRecord(remote.Name, "")
			record.Connected = connected
			record.Business = remote.IsBusiness
			record.Synced = true
			if err := u.repo.PutInstance(ctx, record); err != nil {
				return imported, err
			}
			imported++
			logger.Info("instance imported from gateway", "instance", remote.Name, "connected", connected)

		case err != nil:
			return imported, err

		case record.Connected != connected || record.Business != remote.IsBusiness:
			record.Connected = connected
			record.Business = remote.IsBusiness
			if err := u.repo.PutInstance(ctx, record); err != nil {
				return imported, err
			}
			logger.Info("instance state updated", "instance", remote.Name, "connected", connected)
		}
	}

	return imported, nil
}

// Delete removes an instance: gateway side first, then the photo claim,
// then the record. Administrative operation, not part of the pipeline.
func (u *UseCase) Delete(ctx context.Context, name string) error {
	record, err := u.repo.GetInstance(ctx, name)
	if err != nil {
		return err
	}

	if err := u.gateway.DeleteInstance(ctx, name, record.Credential); err != nil {
		return goerr.Wrap(err, "failed to delete gateway instance", goerr.V("instance", name))
	}

	if record.PhotoID != "" {
		if err := u.pool.Release(record.PhotoID); err != nil && !errors.Is(err, model.ErrPhotoNotClaimed) {
			return err
		}
	}

	return u.repo.DeleteInstance(ctx, name)
}
