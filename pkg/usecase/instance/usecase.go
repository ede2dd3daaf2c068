package instance

import (
	"time"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/model"
	"github.com/evoctl/evoctl/pkg/policy"
	"github.com/evoctl/evoctl/pkg/pool"
	"github.com/evoctl/evoctl/pkg/repository"
)

// UseCase provides instance provisioning operations. It holds no state of
// its own: all durable state lives in the repository and the photo pool.
type UseCase struct {
	repo      repository.Repository
	gateway   adapter.Gateway
	pool      *pool.Pool
	generator *PersonaGenerator
	vetter    *policy.Vetter

	onPairing   func(*adapter.PairingArtifact)
	settings    model.CreationSettings
	waitTimeout time.Duration
	pollEvery   time.Duration
	settleDelay time.Duration
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithPairingHandler registers a callback invoked with the pairing artifact
// right after instance creation, before the connection wait starts.
func WithPairingHandler(fn func(*adapter.PairingArtifact)) Option {
	return func(uc *UseCase) {
		uc.onPairing = fn
	}
}

// WithCreationSettings sets the behavior flags sent on instance creation.
func WithCreationSettings(s model.CreationSettings) Option {
	return func(uc *UseCase) {
		uc.settings = s
	}
}

// WithWaitTimeout bounds the connection wait.
func WithWaitTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.waitTimeout = d
	}
}

// WithPollInterval sets the connection polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.pollEvery = d
	}
}

// WithSettleDelay sets the pause between profile update calls. The gateway
// needs a moment to propagate each change.
func WithSettleDelay(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.settleDelay = d
	}
}

// WithPolicy enables persona vetting before profile application.
func WithPolicy(v *policy.Vetter) Option {
	return func(uc *UseCase) {
		uc.vetter = v
	}
}

// New creates a new instance UseCase.
func New(
	repo repository.Repository,
	gateway adapter.Gateway,
	photoPool *pool.Pool,
	generator *PersonaGenerator,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:      repo,
		gateway:   gateway,
		pool:      photoPool,
		generator: generator,

		settings:    model.DefaultCreationSettings(),
		waitTimeout: 2 * time.Minute,
		pollEvery:   3 * time.Second,
		settleDelay: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
