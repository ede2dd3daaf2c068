package instance

import (
	"context"
	"fmt"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Assign resumes the persona pipeline for an existing instance from its
// last completed stage. A record that was marked disconnected is re-checked
// against the gateway: if the pairing window is still open, a fresh pairing
// artifact is requested and the connection wait runs again.
func (u *UseCase) Assign(ctx context.Context, name string) (*Result, error) {
	record, err := u.repo.GetInstance(ctx, name)
	if err != nil {
		return nil, err
	}

	if !record.Connected {
		status, err := u.gateway.ConnectionStatus(ctx, name, record.Credential)
		if err != nil {
			return nil, err
		}

		switch status.State {
		case adapter.StateConnected:
			// fall through to the pipeline

		case adapter.StatePending:
			artifact, err := u.gateway.Pairing(ctx, name, record.Credential)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to refresh pairing artifact", goerr.V("instance", name))
			}
			if u.onPairing != nil {
				u.onPairing(artifact)
			}

			record.Stage = model.StageConnecting
			if err := u.repo.PutInstance(ctx, record); err != nil {
				return abort(record, model.StageCreated, ReasonPersistence), err
			}

			outcome := u.WaitForConnection(ctx, name, record.Credential)
			switch outcome.Status {
			case ConnectionTimedOut:
				return abort(record, model.StageCreated, ReasonConnectionTimeout), nil
			case ConnectionFailed:
				return abort(record, model.StageCreated, fmt.Sprintf("%s: %s", ReasonConnectionFailed, outcome.Reason)), nil
			}

		default:
			return nil, goerr.Wrap(model.ErrConnectionFailed, "instance is not connected",
				goerr.V("instance", name), goerr.V("state", status.Raw))
		}

		record.Connected = true
		record.Stage = model.StageConnected
		if err := u.repo.PutInstance(ctx, record); err != nil {
			return abort(record, model.StageConnected, ReasonPersistence), err
		}
	}

	return u.assignConnected(ctx, record)
}
