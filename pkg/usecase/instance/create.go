package instance

import (
	"context"
	"errors"
	"fmt"

	"github.com/evoctl/evoctl/pkg/model"
	"github.com/evoctl/evoctl/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Abort reasons reported to the caller.
const (
	ReasonConnectionTimeout = "connection-timeout"
	ReasonConnectionFailed  = "connection-failed"
	ReasonNoPhotos          = "no-photos"
	ReasonPersonaFailed     = "persona-generation-failed"
	ReasonPersonaRejected   = "persona-rejected"
	ReasonApplyFailed       = "profile-apply-failed"
	ReasonPersistence       = "persistence-failure"
)

// Result reports how a pipeline run ended: the sole success terminal stage
// is StagePersisted; otherwise Aborted is set with a reason and the last
// completed stage, so an operator can resume from there instead of
// restarting.
type Result struct {
	Record  *model.InstanceRecord
	Stage   model.Stage
	Aborted bool
	Reason  string
}

func abort(record *model.InstanceRecord, stage model.Stage, reason string) *Result {
	return &Result{Record: record, Stage: stage, Aborted: true, Reason: reason}
}

// CreateAndAssign runs the full pipeline: create the gateway instance, wait
// for the user to authorize it, then claim a photo, generate a persona and
// apply it. The record is persisted at every stage boundary.
func (u *UseCase) CreateAndAssign(ctx context.Context, name string) (*Result, error) {
	logger := logging.From(ctx)

	if _, err := u.repo.GetInstance(ctx, name); err == nil {
		return nil, goerr.Wrap(model.ErrInstanceExists, "choose another name", goerr.V("instance", name))
	} else if !errors.Is(err, model.ErrInstanceNotFound) {
		return nil, err
	}

	created, err := u.gateway.CreateInstance(ctx, name, u.settings)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gateway instance", goerr.V("instance", name))
	}
	logger.Info("instance created", "instance", name)

	record := model.NewInstanceRecord(name, created.Credential)
	if err := u.repo.PutInstance(ctx, record); err != nil {
		return abort(record, model.StageCreated, ReasonPersistence), err
	}

	if u.onPairing != nil && created.Pairing != nil {
		u.onPairing(created.Pairing)
	}

	record.Stage = model.StageConnecting
	if err := u.repo.PutInstance(ctx, record); err != nil {
		return abort(record, model.StageCreated, ReasonPersistence), err
	}

	outcome := u.WaitForConnection(ctx, name, record.Credential)
	switch outcome.Status {
	case ConnectionTimedOut:
		logger.Warn("connection wait timed out", "instance", name, "timeout", u.waitTimeout)
		return abort(record, model.StageCreated, ReasonConnectionTimeout), nil
	case ConnectionFailed:
		logger.Warn("connection failed", "instance", name, "reason", outcome.Reason)
		return abort(record, model.StageCreated, fmt.Sprintf("%s: %s", ReasonConnectionFailed, outcome.Reason)), nil
	}

	record.Connected = true
	record.Stage = model.StageConnected
	if err := u.repo.PutInstance(ctx, record); err != nil {
		return abort(record, model.StageCreated, ReasonPersistence), err
	}
	logger.Info("instance connected", "instance", name)

	return u.assignConnected(ctx, record)
}

// assignConnected drives the post-connection stages for a connected
// instance: photo claim, persona generation, profile application, final
// persist. Shared by CreateAndAssign and Assign.
func (u *UseCase) assignConnected(ctx context.Context, record *model.InstanceRecord) (*Result, error) {
	logger := logging.From(ctx)

	// Photo claim is one-way: an abort after this point keeps the claim.
	if record.PhotoID == "" {
		claim, err := u.pool.Claim(record.Name)
		if err != nil {
			if errors.Is(err, model.ErrPhotoPoolExhausted) {
				logger.Error("photo pool exhausted", "instance", record.Name)
				return abort(record, model.StageConnected, ReasonNoPhotos), nil
			}
			return abort(record, model.StageConnected, ReasonPersistence), err
		}

		record.PhotoID = claim.PhotoID
		record.Stage = model.StagePhotoClaimed
		if err := u.repo.PutInstance(ctx, record); err != nil {
			return abort(record, model.StagePhotoClaimed, ReasonPersistence), err
		}
		logger.Info("photo claimed", "instance", record.Name, "photo", claim.PhotoID)
	}

	claim, err := u.pool.Lookup(record.PhotoID)
	if err != nil {
		return abort(record, model.StagePhotoClaimed, ReasonPersistence), err
	}

	// A pending persona from an interrupted apply is reused, so a resume
	// pushes the remaining steps of the same identity.
	persona := record.Persona
	if persona == nil {
		persona = record.PendingPersona
	}
	if persona == nil {
		persona, err = u.generator.Generate(ctx)
		if err != nil {
			logger.Error("persona generation failed", "instance", record.Name, "error", err)
			return abort(record, model.StagePhotoClaimed, ReasonPersonaFailed), nil
		}

		if u.vetter != nil {
			allowed, reasons, err := u.vetter.Vet(ctx, persona)
			if err != nil {
				return abort(record, model.StagePhotoClaimed, ReasonPersonaFailed), err
			}
			if !allowed {
				logger.Warn("persona rejected by policy", "instance", record.Name, "reasons", reasons)
				return abort(record, model.StagePhotoClaimed, ReasonPersonaRejected), nil
			}
		}

		record.PendingPersona = persona
		record.Stage = model.StagePersonaGenerated
		if err := u.repo.PutInstance(ctx, record); err != nil {
			return abort(record, model.StagePhotoClaimed, ReasonPersistence), err
		}
		logger.Info("persona generated", "instance", record.Name, "persona", persona.Name)
	}

	step, err := u.applyProfile(ctx, record, persona, u.pool.StoredPath(claim))
	if err != nil {
		if errors.Is(err, model.ErrPersistenceFailure) {
			return abort(record, model.StagePersonaGenerated, ReasonPersistence), err
		}
		logger.Error("profile apply failed", "instance", record.Name, "step", step, "error", err)
		return abort(record, model.StagePersonaGenerated, fmt.Sprintf("%s: %s", ReasonApplyFailed, step)), nil
	}

	// Persona becomes part of the record only once all three steps are on
	// the gateway, so an interrupted apply keeps the record resumable.
	record.Persona = persona
	record.PendingPersona = nil
	record.Stage = model.StagePersisted
	if err := u.repo.PutInstance(ctx, record); err != nil {
		return abort(record, model.StageProfileApplied, ReasonPersistence), err
	}

	logger.Info("instance provisioned", "instance", record.Name, "stage", record.Stage)
	return &Result{Record: record, Stage: model.StagePersisted}, nil
}
