package model

import (
	"github.com/m-mizutani/goerr/v2"
)

// Persona is the synthetic identity assigned to a connected instance.
type Persona struct {
	Name        string   `json:"name" firestore:"name"`
	Age         int      `json:"age" firestore:"age"`
	City        string   `json:"city" firestore:"city"`
	Occupation  string   `json:"occupation" firestore:"occupation"`
	Hobbies     []string `json:"hobbies" firestore:"hobbies"`
	Bio         string   `json:"bio" firestore:"bio"`
	Style       string   `json:"style" firestore:"style"`
	Personality string   `json:"personality" firestore:"personality"`
}

// PersonaConstraints bounds the fields a generated persona must satisfy.
type PersonaConstraints struct {
	AgeMin   int
	AgeMax   int
	BioLimit int
}

// DefaultPersonaConstraints returns the platform defaults. The bio limit
// matches the gateway's profile status field.
func DefaultPersonaConstraints() PersonaConstraints {
	return PersonaConstraints{
		AgeMin:   21,
		AgeMax:   34,
		BioLimit: 139,
	}
}

// Validate checks the persona against the schema invariants. A persona that
// fails validation must be discarded, never coerced or truncated.
func (p *Persona) Validate(c PersonaConstraints) error {
	if p.Name == "" {
		return goerr.Wrap(ErrPersonaSchemaInvalid, "name is empty")
	}
	if p.Age < c.AgeMin || p.Age > c.AgeMax {
		return goerr.Wrap(ErrPersonaSchemaInvalid, "age out of range",
			goerr.V("age", p.Age), goerr.V("min", c.AgeMin), goerr.V("max", c.AgeMax))
	}
	if p.City == "" {
		return goerr.Wrap(ErrPersonaSchemaInvalid, "city is empty")
	}
	if p.Occupation == "" {
		return goerr.Wrap(ErrPersonaSchemaInvalid, "occupation is empty")
	}
	if len(p.Hobbies) == 0 {
		return goerr.Wrap(ErrPersonaSchemaInvalid, "hobbies are empty")
	}
	for _, h := range p.Hobbies {
		if h == "" {
			return goerr.Wrap(ErrPersonaSchemaInvalid, "hobby entry is empty")
		}
	}
	if p.Bio == "" {
		return goerr.Wrap(ErrPersonaSchemaInvalid, "bio is empty")
	}
	if len([]rune(p.Bio)) > c.BioLimit {
		return goerr.Wrap(ErrPersonaSchemaInvalid, "bio exceeds limit",
			goerr.V("length", len([]rune(p.Bio))), goerr.V("limit", c.BioLimit))
	}
	if p.Style == "" {
		return goerr.Wrap(ErrPersonaSchemaInvalid, "style is empty")
	}
	if p.Personality == "" {
		return goerr.Wrap(ErrPersonaSchemaInvalid, "personality is empty")
	}
	return nil
}
