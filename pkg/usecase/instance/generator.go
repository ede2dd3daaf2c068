package instance

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"text/template"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/model"
	"github.com/evoctl/evoctl/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/persona.md
var personaPromptRaw string

var personaPromptTmpl = template.Must(template.New("persona").Parse(personaPromptRaw))

// PersonaGenerator produces synthetic identities from the Gemini backend.
// The response is an untrusted external contract: it is parsed and validated
// strictly, and a persona that violates the schema is rejected rather than
// coerced. One clarifying re-prompt is allowed before giving up.
type PersonaGenerator struct {
	gemini      adapter.Gemini
	constraints model.PersonaConstraints
}

// NewGenerator creates a persona generator.
func NewGenerator(gemini adapter.Gemini, constraints model.PersonaConstraints) *PersonaGenerator {
	return &PersonaGenerator{
		gemini:      gemini,
		constraints: constraints,
	}
}

func personaSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name": {
				Type:        genai.TypeString,
				Description: "Full name",
			},
			"age": {
				Type:        genai.TypeInteger,
				Description: "Age in years",
			},
			"city": {
				Type:        genai.TypeString,
				Description: "City of residence",
			},
			"occupation": {
				Type:        genai.TypeString,
				Description: "Current occupation",
			},
			"hobbies": {
				Type:        genai.TypeArray,
				Description: "Hobbies and interests",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
			"bio": {
				Type:        genai.TypeString,
				Description: "Short first-person profile bio",
			},
			"style": {
				Type:        genai.TypeString,
				Description: "Conversational style descriptor",
			},
			"personality": {
				Type:        genai.TypeString,
				Description: "Personality descriptor",
			},
		},
		Required: []string{"name", "age", "city", "occupation", "hobbies", "bio", "style", "personality"},
	}
}

// Generate requests a persona and validates it. A schema violation gets one
// clarifying re-prompt; a second violation surfaces the error.
func (g *PersonaGenerator) Generate(ctx context.Context) (*model.Persona, error) {
	var buf bytes.Buffer
	if err := personaPromptTmpl.Execute(&buf, map[string]any{
		"AgeMin":   g.constraints.AgeMin,
		"AgeMax":   g.constraints.AgeMax,
		"BioLimit": g.constraints.BioLimit,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute persona prompt template")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	persona, raw, err := g.attempt(ctx, contents)
	if err == nil {
		return persona, nil
	}
	if !errors.Is(err, model.ErrPersonaSchemaInvalid) {
		return nil, err
	}

	logging.From(ctx).Warn("persona rejected, re-prompting once", "error", err)

	clarify := "The previous response was rejected: " + err.Error() +
		". Respond again with a single JSON object that satisfies every field constraint exactly."
	contents = append(contents,
		genai.NewContentFromText(raw, genai.RoleModel),
		genai.NewContentFromText(clarify, genai.RoleUser),
	)

	persona, _, err = g.attempt(ctx, contents)
	if err != nil {
		return nil, err
	}
	return persona, nil
}

// attempt performs one generation round. It returns the raw response text
// alongside any error so a re-prompt can quote it back.
func (g *PersonaGenerator) attempt(ctx context.Context, contents []*genai.Content) (*model.Persona, string, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   personaSchema(),
		Temperature:      genai.Ptr[float32](0.9),
	}

	resp, err := g.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to generate persona")
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, "", goerr.New("invalid response structure from gemini")
	}

	raw := resp.Candidates[0].Content.Parts[0].Text

	var persona model.Persona
	if err := json.Unmarshal([]byte(raw), &persona); err != nil {
		return nil, raw, goerr.Wrap(model.ErrPersonaSchemaInvalid, "response is not valid JSON",
			goerr.Value("json", raw))
	}

	if err := persona.Validate(g.constraints); err != nil {
		return nil, raw, err
	}

	return &persona, raw, nil
}
