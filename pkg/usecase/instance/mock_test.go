package instance_test

import (
	"context"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/model"
	"google.golang.org/genai"
)

// mockGateway implements adapter.Gateway with overridable behavior. Methods
// without an override succeed with zero values.
type mockGateway struct {
	createInstance   func(ctx context.Context, name string, settings model.CreationSettings) (*adapter.CreatedInstance, error)
	pairing          func(ctx context.Context, name, credential string) (*adapter.PairingArtifact, error)
	connectionStatus func(ctx context.Context, name, credential string) (*adapter.StatusResult, error)
	setProfilePhoto  func(ctx context.Context, name, credential, pictureBase64 string) error
	setProfileName   func(ctx context.Context, name, credential, displayName string) error
	setProfileBio    func(ctx context.Context, name, credential, bio string) error
	deleteInstance   func(ctx context.Context, name, credential string) error
	fetchInstances   func(ctx context.Context) ([]*adapter.RemoteInstance, error)
	acceptInvite     func(ctx context.Context, name, credential, inviteCode string) (bool, error)
	fetchGroups      func(ctx context.Context, name, credential string) ([]*adapter.GroupInfo, error)
}

func (m *mockGateway) CreateInstance(ctx context.Context, name string, settings model.CreationSettings) (*adapter.CreatedInstance, error) {
	if m.createInstance != nil {
		return m.createInstance(ctx, name, settings)
	}
	return &adapter.CreatedInstance{
		Credential: "mock-cred",
		Pairing:    &adapter.PairingArtifact{Code: "2@mock-pairing"},
	}, nil
}

func (m *mockGateway) Pairing(ctx context.Context, name, credential string) (*adapter.PairingArtifact, error) {
	if m.pairing != nil {
		return m.pairing(ctx, name, credential)
	}
	return &adapter.PairingArtifact{Code: "2@mock-pairing"}, nil
}

func (m *mockGateway) ConnectionStatus(ctx context.Context, name, credential string) (*adapter.StatusResult, error) {
	if m.connectionStatus != nil {
		return m.connectionStatus(ctx, name, credential)
	}
	return &adapter.StatusResult{State: adapter.StateConnected, Raw: "open"}, nil
}

func (m *mockGateway) SetProfilePhoto(ctx context.Context, name, credential, pictureBase64 string) error {
	if m.setProfilePhoto != nil {
		return m.setProfilePhoto(ctx, name, credential, pictureBase64)
	}
	return nil
}

func (m *mockGateway) SetProfileName(ctx context.Context, name, credential, displayName string) error {
	if m.setProfileName != nil {
		return m.setProfileName(ctx, name, credential, displayName)
	}
	return nil
}

func (m *mockGateway) SetProfileBio(ctx context.Context, name, credential, bio string) error {
	if m.setProfileBio != nil {
		return m.setProfileBio(ctx, name, credential, bio)
	}
	return nil
}

func (m *mockGateway) DeleteInstance(ctx context.Context, name, credential string) error {
	if m.deleteInstance != nil {
		return m.deleteInstance(ctx, name, credential)
	}
	return nil
}

func (m *mockGateway) FetchInstances(ctx context.Context) ([]*adapter.RemoteInstance, error) {
	if m.fetchInstances != nil {
		return m.fetchInstances(ctx)
	}
	return nil, nil
}

func (m *mockGateway) AcceptInvite(ctx context.Context, name, credential, inviteCode string) (bool, error) {
	if m.acceptInvite != nil {
		return m.acceptInvite(ctx, name, credential, inviteCode)
	}
	return true, nil
}

func (m *mockGateway) FetchGroups(ctx context.Context, name, credential string) ([]*adapter.GroupInfo, error) {
	if m.fetchGroups != nil {
		return m.fetchGroups(ctx, name, credential)
	}
	return nil, nil
}

// mockGemini implements adapter.Gemini.
type mockGemini struct {
	generateContent func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.generateContent(ctx, contents, config)
}

func genaiResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

const validPersonaJSON = `{
	"name": "Larissa Moreira",
	"age": 27,
	"city": "Curitiba",
	"occupation": "designer",
	"hobbies": ["fotografia", "yoga"],
	"bio": "Apaixonada por café e boas conversas",
	"style": "descontraído",
	"personality": "curiosa"
}`

const underagePersonaJSON = `{
	"name": "Larissa Moreira",
	"age": 18,
	"city": "Curitiba",
	"occupation": "designer",
	"hobbies": ["fotografia"],
	"bio": "oi",
	"style": "leve",
	"personality": "curiosa"
}`
