package policy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/evoctl/evoctl/pkg/model"
	"github.com/evoctl/evoctl/pkg/policy"
	"github.com/m-mizutani/gt"
)

const denyPolicy = `package persona

import rego.v1

deny contains msg if {
	input.age < 25
	msg := "persona too young"
}

deny contains msg if {
	contains(lower(input.bio), "bitcoin")
	msg := "bio mentions crypto"
}
`

func writePolicy(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "persona.rego"), []byte(src), 0o600))
	return dir
}

func testPersona() *model.Persona {
	return &model.Persona{
		Name:        "Larissa Moreira",
		Age:         27,
		City:        "Curitiba",
		Occupation:  "designer",
		Hobbies:     []string{"fotografia"},
		Bio:         "Apaixonada por café",
		Style:       "leve",
		Personality: "curiosa",
	}
}

func TestVetterAllows(t *testing.T) {
	ctx := context.Background()

	vetter, err := policy.New(ctx, writePolicy(t, denyPolicy))
	gt.NoError(t, err)
	gt.V(t, vetter).NotNil()

	allowed, reasons, err := vetter.Vet(ctx, testPersona())
	gt.NoError(t, err)
	gt.Equal(t, allowed, true)
	gt.A(t, reasons).Length(0)
}

func TestVetterDenies(t *testing.T) {
	ctx := context.Background()

	vetter, err := policy.New(ctx, writePolicy(t, denyPolicy))
	gt.NoError(t, err)

	persona := testPersona()
	persona.Age = 22
	persona.Bio = "Investindo em Bitcoin todo dia"

	allowed, reasons, err := vetter.Vet(ctx, persona)
	gt.NoError(t, err)
	gt.Equal(t, allowed, false)
	gt.A(t, reasons).Length(2)
}

func TestVetterEmptyDir(t *testing.T) {
	vetter, err := policy.New(context.Background(), t.TempDir())
	gt.NoError(t, err)
	gt.V(t, vetter).Nil()

	// A nil vetter is an explicit allow-all.
	allowed, _, err := vetter.Vet(context.Background(), testPersona())
	gt.NoError(t, err)
	gt.Equal(t, allowed, true)
}

func TestVetterBrokenPolicy(t *testing.T) {
	_, err := policy.New(context.Background(), writePolicy(t, "package persona\n\ndeny {{"))
	gt.Error(t, err)
}
