package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/model"
	"github.com/evoctl/evoctl/pkg/policy"
	"github.com/evoctl/evoctl/pkg/pool"
	"github.com/evoctl/evoctl/pkg/repository"
	"github.com/evoctl/evoctl/pkg/usecase/instance"
	"github.com/evoctl/evoctl/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Gateway
	gatewayURL    string
	gatewayAPIKey string

	// Storage
	dataDir           string
	photoDir          string
	firestoreProject  string
	firestoreDatabase string

	// Persona
	geminiAPIKey string
	geminiModel  string
	settingsPath string
	policyDir    string
	ageMin       int64
	ageMax       int64

	// Connection wait
	waitTimeout  time.Duration
	pollInterval time.Duration

	logLevel string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gateway-url",
			Aliases:     []string{"u"},
			Usage:       "Base URL of the gateway API",
			Sources:     cli.EnvVars("EVOCTL_GATEWAY_URL"),
			Destination: &cfg.gatewayURL,
		},
		&cli.StringFlag{
			Name:        "gateway-api-key",
			Aliases:     []string{"k"},
			Usage:       "Global API key of the gateway",
			Sources:     cli.EnvVars("EVOCTL_GATEWAY_API_KEY"),
			Destination: &cfg.gatewayAPIKey,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Directory for records, pool state and photo copies",
			Value:       "storage",
			Sources:     cli.EnvVars("EVOCTL_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Use Firestore as the record store (project ID)",
			Sources:     cli.EnvVars("EVOCTL_FIRESTORE_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("EVOCTL_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("EVOCTL_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// personaFlags returns flags for persona generation and assignment
func personaFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model for persona generation",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("EVOCTL_GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "photo-dir",
			Usage:       "Directory holding profile photo assets",
			Value:       "models",
			Sources:     cli.EnvVars("EVOCTL_PHOTO_DIR"),
			Destination: &cfg.photoDir,
		},
		&cli.StringFlag{
			Name:        "settings",
			Usage:       "YAML file with instance creation settings",
			Sources:     cli.EnvVars("EVOCTL_SETTINGS"),
			Destination: &cfg.settingsPath,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory with Rego policies vetting generated personas",
			Sources:     cli.EnvVars("EVOCTL_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.IntFlag{
			Name:        "age-min",
			Usage:       "Minimum persona age",
			Value:       21,
			Destination: &cfg.ageMin,
		},
		&cli.IntFlag{
			Name:        "age-max",
			Usage:       "Maximum persona age",
			Value:       34,
			Destination: &cfg.ageMax,
		},
		&cli.DurationFlag{
			Name:        "wait-timeout",
			Usage:       "Overall budget for the connection wait",
			Value:       2 * time.Minute,
			Sources:     cli.EnvVars("EVOCTL_WAIT_TIMEOUT"),
			Destination: &cfg.waitTimeout,
		},
		&cli.DurationFlag{
			Name:        "poll-interval",
			Usage:       "Interval between connection status polls",
			Value:       3 * time.Second,
			Sources:     cli.EnvVars("EVOCTL_POLL_INTERVAL"),
			Destination: &cfg.pollInterval,
		},
	}
}

// loggerContext installs a logger built from the configured level.
func (cfg *config) loggerContext(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newGateway creates a new gateway client
func (cfg *config) newGateway() (adapter.Gateway, error) {
	if cfg.gatewayURL == "" {
		return nil, goerr.New("gateway-url is required")
	}
	if cfg.gatewayAPIKey == "" {
		return nil, goerr.New("gateway-api-key is required")
	}
	return adapter.NewGateway(cfg.gatewayURL, cfg.gatewayAPIKey), nil
}

// newRepository creates the record store: Firestore when a project is
// configured, a local JSON document otherwise.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.firestoreProject != "" {
		return repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase)
	}
	return repository.NewLocal(filepath.Join(cfg.dataDir, "instances.json"))
}

// newPool creates the photo pool
func (cfg *config) newPool() (*pool.Pool, error) {
	return pool.New(cfg.photoDir, cfg.dataDir)
}

// newGenerator creates the persona generator
func (cfg *config) newGenerator(ctx context.Context) (*instance.PersonaGenerator, error) {
	if cfg.geminiAPIKey == "" {
		return nil, goerr.New("gemini-api-key is required")
	}

	gemini, err := adapter.NewGemini(ctx, cfg.geminiAPIKey, adapter.WithGenerativeModel(cfg.geminiModel))
	if err != nil {
		return nil, err
	}

	constraints := model.DefaultPersonaConstraints()
	constraints.AgeMin = int(cfg.ageMin)
	constraints.AgeMax = int(cfg.ageMax)

	return instance.NewGenerator(gemini, constraints), nil
}

// newInstanceUseCase assembles the provisioning pipeline.
func (cfg *config) newInstanceUseCase(ctx context.Context, opts ...instance.Option) (*instance.UseCase, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	gateway, err := cfg.newGateway()
	if err != nil {
		return nil, err
	}

	photoPool, err := cfg.newPool()
	if err != nil {
		return nil, err
	}

	generator, err := cfg.newGenerator(ctx)
	if err != nil {
		return nil, err
	}

	settings, err := model.LoadCreationSettings(cfg.settingsPath)
	if err != nil {
		return nil, err
	}

	options := []instance.Option{
		instance.WithCreationSettings(settings),
		instance.WithWaitTimeout(cfg.waitTimeout),
		instance.WithPollInterval(cfg.pollInterval),
	}

	if cfg.policyDir != "" {
		vetter, err := policy.New(ctx, cfg.policyDir)
		if err != nil {
			return nil, err
		}
		if vetter != nil {
			options = append(options, instance.WithPolicy(vetter))
		}
	}

	options = append(options, opts...)
	return instance.New(repo, gateway, photoPool, generator, options...), nil
}
