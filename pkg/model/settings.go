package model

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// CreationSettings controls the behavior flags sent to the gateway when an
// instance is created.
type CreationSettings struct {
	RejectCall      bool   `json:"rejectCall" yaml:"reject_call"`
	MsgCall         string `json:"msgCall" yaml:"msg_call"`
	GroupsIgnore    bool   `json:"groupsIgnore" yaml:"groups_ignore"`
	AlwaysOnline    bool   `json:"alwaysOnline" yaml:"always_online"`
	ReadMessages    bool   `json:"readMessages" yaml:"read_messages"`
	ReadStatus      bool   `json:"readStatus" yaml:"read_status"`
	SyncFullHistory bool   `json:"syncFullHistory" yaml:"sync_full_history"`

	Webhook WebhookSettings `json:"-" yaml:"webhook"`
}

// WebhookSettings configures an optional event webhook for new instances.
type WebhookSettings struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// DefaultCreationSettings returns conservative defaults: ignore groups,
// stay passive otherwise.
func DefaultCreationSettings() CreationSettings {
	return CreationSettings{
		GroupsIgnore: true,
	}
}

// LoadCreationSettings reads settings from a YAML file. A missing path
// returns the defaults.
func LoadCreationSettings(path string) (CreationSettings, error) {
	settings := DefaultCreationSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, goerr.Wrap(err, "failed to read settings file", goerr.V("path", path))
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, goerr.Wrap(err, "failed to parse settings file", goerr.V("path", path))
	}

	return settings, nil
}
