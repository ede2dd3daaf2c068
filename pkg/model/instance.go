package model

import (
	"time"
)

// Stage represents the last completed stage of the provisioning pipeline.
type Stage string

const (
	StageCreated          Stage = "created"
	StageConnecting       Stage = "connecting"
	StageConnected        Stage = "connected"
	StagePhotoClaimed     Stage = "photo_claimed"
	StagePersonaGenerated Stage = "persona_generated"
	StageProfileApplied   Stage = "profile_applied"
	StagePersisted        Stage = "persisted"
)

// ProfileStep identifies one of the three profile update calls.
type ProfileStep string

const (
	StepPhoto ProfileStep = "photo"
	StepName  ProfileStep = "name"
	StepBio   ProfileStep = "bio"
)

// InstanceRecord is the durable metadata of one gateway instance.
//
// PhotoID and Persona are write-once: they stay empty until the pipeline
// claims a photo and applies a persona, and are never cleared afterwards.
// PendingPersona holds a generated persona whose profile steps are not all
// on the gateway yet; it is promoted to Persona once the apply completes.
// Applied tracks which profile steps already succeeded so a resumed run
// does not re-push them.
type InstanceRecord struct {
	Name       string    `json:"name" firestore:"name"`
	Credential string    `json:"credential" firestore:"credential"`
	CreatedAt  time.Time `json:"created_at" firestore:"created_at"`
	Connected  bool      `json:"connected" firestore:"connected"`
	PhotoID    string    `json:"photo_id,omitempty" firestore:"photo_id,omitempty"`
	Persona    *Persona  `json:"persona,omitempty" firestore:"persona,omitempty"`
	Stage      Stage     `json:"stage" firestore:"stage"`

	PendingPersona *Persona      `json:"pending_persona,omitempty" firestore:"pending_persona,omitempty"`
	Applied        []ProfileStep `json:"applied,omitempty" firestore:"applied,omitempty"`

	// Business marks WhatsApp Business accounts reported by the gateway.
	Business bool `json:"business,omitempty" firestore:"business,omitempty"`

	// Synced marks records imported from the gateway instead of created here.
	Synced bool `json:"synced,omitempty" firestore:"synced,omitempty"`
}

// NewInstanceRecord creates a record for a freshly created instance.
func NewInstanceRecord(name, credential string) *InstanceRecord {
	return &InstanceRecord{
		Name:       name,
		Credential: credential,
		CreatedAt:  time.Now(),
		Stage:      StageCreated,
	}
}

// StepApplied reports whether the given profile step already succeeded.
func (r *InstanceRecord) StepApplied(step ProfileStep) bool {
	for _, s := range r.Applied {
		if s == step {
			return true
		}
	}
	return false
}

// MarkApplied records a completed profile step. Idempotent.
func (r *InstanceRecord) MarkApplied(step ProfileStep) {
	if !r.StepApplied(step) {
		r.Applied = append(r.Applied, step)
	}
}
