package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/evoctl/evoctl/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

// Vetter evaluates generated personas against Rego policies. A policy
// module defines `deny` rules under `package persona`; a persona passes
// when no deny reason is produced. A nil Vetter allows everything.
type Vetter struct {
	query *rego.PreparedEvalQuery
}

// New loads all .rego files from policyDir and prepares the deny query.
// Returns nil when the directory holds no policy files.
func New(ctx context.Context, policyDir string) (*Vetter, error) {
	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files")
	}
	if len(files) == 0 {
		return nil, nil
	}

	options := make([]func(*rego.Rego), 0, len(files)+1)
	options = append(options, rego.Query("data.persona.deny"))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.Value("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare persona policy")
	}

	return &Vetter{query: &prepared}, nil
}

// Vet evaluates the persona. Returns whether it is allowed and the deny
// reasons when it is not.
func (v *Vetter) Vet(ctx context.Context, persona *model.Persona) (bool, []string, error) {
	if v == nil || v.query == nil {
		return true, nil, nil
	}

	// Round-trip through JSON so the policy sees plain types.
	data, err := json.Marshal(persona)
	if err != nil {
		return false, nil, goerr.Wrap(err, "failed to encode persona for policy")
	}
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return false, nil, goerr.Wrap(err, "failed to decode persona for policy")
	}

	rs, err := v.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, nil, goerr.Wrap(err, "failed to evaluate persona policy")
	}

	var reasons []string
	for _, result := range rs {
		for _, expr := range result.Expressions {
			values, ok := expr.Value.([]any)
			if !ok {
				continue
			}
			for _, value := range values {
				reasons = append(reasons, fmt.Sprintf("%v", value))
			}
		}
	}

	return len(reasons) == 0, reasons, nil
}
