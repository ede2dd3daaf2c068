package instance

import (
	"context"
	"encoding/base64"
	"os"
	"time"

	"github.com/evoctl/evoctl/pkg/model"
	"github.com/evoctl/evoctl/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// applyProfile pushes the claimed photo, display name and bio to the
// gateway, in that order. Steps recorded as applied on the record are
// skipped, and each newly completed step is persisted immediately so an
// interrupted run can resume without re-pushing. On failure the failing
// step is returned with the error.
func (u *UseCase) applyProfile(ctx context.Context, record *model.InstanceRecord, persona *model.Persona, photoPath string) (model.ProfileStep, error) {
	logger := logging.From(ctx)

	steps := []struct {
		step model.ProfileStep
		push func() error
	}{
		{model.StepPhoto, func() error {
			data, err := os.ReadFile(photoPath)
			if err != nil {
				return goerr.Wrap(err, "failed to read claimed photo", goerr.V("path", photoPath))
			}
			return u.gateway.SetProfilePhoto(ctx, record.Name, record.Credential, base64.StdEncoding.EncodeToString(data))
		}},
		{model.StepName, func() error {
			return u.gateway.SetProfileName(ctx, record.Name, record.Credential, persona.Name)
		}},
		{model.StepBio, func() error {
			return u.gateway.SetProfileBio(ctx, record.Name, record.Credential, persona.Bio)
		}},
	}

	for i, s := range steps {
		if record.StepApplied(s.step) {
			logger.Debug("profile step already applied, skipping", "instance", record.Name, "step", s.step)
			continue
		}

		if err := s.push(); err != nil {
			return s.step, goerr.Wrap(model.ErrProfileApplyFailed, err.Error(),
				goerr.V("instance", record.Name), goerr.V("step", s.step))
		}

		record.MarkApplied(s.step)
		if err := u.repo.PutInstance(ctx, record); err != nil {
			return s.step, err
		}

		logger.Info("profile step applied", "instance", record.Name, "step", s.step)

		if i < len(steps)-1 && u.settleDelay > 0 {
			select {
			case <-ctx.Done():
				return s.step, ctx.Err()
			case <-time.After(u.settleDelay):
			}
		}
	}

	return "", nil
}
