package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/evoctl/evoctl/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// ConnectionState is the normalized pairing state of an instance.
type ConnectionState string

const (
	StatePending   ConnectionState = "pending"
	StateConnected ConnectionState = "connected"
	StateExpired   ConnectionState = "expired"
	StateError     ConnectionState = "error"
)

// CreatedInstance is the gateway's answer to an instance creation request.
type CreatedInstance struct {
	Credential string
	Pairing    *PairingArtifact
}

// PairingArtifact carries the scannable code used to authorize the
// connection from a client device.
type PairingArtifact struct {
	Code   string
	Base64 string
}

// StatusResult is the polled connection state, keeping the raw gateway
// value for diagnostics.
type StatusResult struct {
	State ConnectionState
	Raw   string
}

// RemoteInstance is one entry of the gateway's instance listing.
type RemoteInstance struct {
	Name             string `json:"name"`
	ConnectionStatus string `json:"connectionStatus"`
	IsBusiness       bool   `json:"isBusiness"`
}

// GroupInfo describes a joined group.
type GroupInfo struct {
	Subject string `json:"subject"`
	Size    int    `json:"size"`
}

// Gateway is the messaging-gateway API consumed by the orchestrator.
type Gateway interface {
	CreateInstance(ctx context.Context, name string, settings model.CreationSettings) (*CreatedInstance, error)
	Pairing(ctx context.Context, name, credential string) (*PairingArtifact, error)
	ConnectionStatus(ctx context.Context, name, credential string) (*StatusResult, error)
	SetProfilePhoto(ctx context.Context, name, credential, pictureBase64 string) error
	SetProfileName(ctx context.Context, name, credential, displayName string) error
	SetProfileBio(ctx context.Context, name, credential, bio string) error
	DeleteInstance(ctx context.Context, name, credential string) error
	FetchInstances(ctx context.Context) ([]*RemoteInstance, error)
	AcceptInvite(ctx context.Context, name, credential, inviteCode string) (bool, error)
	FetchGroups(ctx context.Context, name, credential string) ([]*GroupInfo, error)
}

// GatewayClient implements Gateway over the Evolution-style HTTP API.
type GatewayClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type GatewayOption func(*GatewayClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *GatewayClient) {
		g.client = c
	}
}

// NewGateway creates a gateway client. apiKey is the global key used when a
// call carries no instance credential.
func NewGateway(baseURL, apiKey string, opts ...GatewayOption) *GatewayClient {
	g := &GatewayClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

type createInstancePayload struct {
	InstanceName string `json:"instanceName"`
	QRCode       bool   `json:"qrcode"`
	Integration  string `json:"integration"`
	model.CreationSettings
	Webhook *webhookPayload `json:"webhook,omitempty"`
}

type webhookPayload struct {
	URL      string `json:"url"`
	ByEvents bool   `json:"byEvents"`
	Base64   bool   `json:"base64"`
}

type pairingResponse struct {
	Code   string `json:"code"`
	Base64 string `json:"base64"`
	QRCode *struct {
		Code   string `json:"code"`
		Base64 string `json:"base64"`
	} `json:"qrcode"`
}

func (p *pairingResponse) artifact() *PairingArtifact {
	artifact := &PairingArtifact{Code: p.Code, Base64: p.Base64}
	if artifact.Code == "" && p.QRCode != nil {
		artifact.Code = p.QRCode.Code
	}
	if artifact.Base64 == "" && p.QRCode != nil {
		artifact.Base64 = p.QRCode.Base64
	}
	return artifact
}

func (g *GatewayClient) CreateInstance(ctx context.Context, name string, settings model.CreationSettings) (*CreatedInstance, error) {
	payload := createInstancePayload{
		InstanceName:     name,
		QRCode:           true,
		Integration:      "WHATSAPP-BAILEYS",
		CreationSettings: settings,
	}
	if settings.Webhook.Enabled && settings.Webhook.URL != "" {
		payload.Webhook = &webhookPayload{
			URL:    settings.Webhook.URL,
			Base64: true,
		}
	}

	var resp struct {
		Hash string `json:"hash"`
		pairingResponse
	}
	if err := g.do(ctx, http.MethodPost, "instance/create", "", payload, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to create instance", goerr.V("instance", name))
	}

	return &CreatedInstance{
		Credential: resp.Hash,
		Pairing:    resp.artifact(),
	}, nil
}

func (g *GatewayClient) Pairing(ctx context.Context, name, credential string) (*PairingArtifact, error) {
	var resp pairingResponse
	if err := g.do(ctx, http.MethodGet, "instance/connect/"+url.PathEscape(name), credential, nil, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to request pairing artifact", goerr.V("instance", name))
	}
	return resp.artifact(), nil
}

func (g *GatewayClient) ConnectionStatus(ctx context.Context, name, credential string) (*StatusResult, error) {
	var resp struct {
		State    string `json:"state"`
		Instance *struct {
			State string `json:"state"`
		} `json:"instance"`
	}
	if err := g.do(ctx, http.MethodGet, "instance/connectionState/"+url.PathEscape(name), credential, nil, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to query connection state", goerr.V("instance", name))
	}

	raw := resp.State
	if raw == "" && resp.Instance != nil {
		raw = resp.Instance.State
	}

	return &StatusResult{State: mapConnectionState(raw), Raw: raw}, nil
}

// mapConnectionState normalizes the gateway's state strings. "close" means
// the pairing window is no longer active, which the monitor must treat as a
// terminal failure rather than retry forever.
func mapConnectionState(raw string) ConnectionState {
	switch raw {
	case "open":
		return StateConnected
	case "connecting":
		return StatePending
	case "close", "expired":
		return StateExpired
	default:
		return StateError
	}
}

func (g *GatewayClient) SetProfilePhoto(ctx context.Context, name, credential, pictureBase64 string) error {
	body := map[string]string{"picture": pictureBase64}
	return g.do(ctx, http.MethodPost, "chat/updateProfilePicture/"+url.PathEscape(name), credential, body, nil)
}

func (g *GatewayClient) SetProfileName(ctx context.Context, name, credential, displayName string) error {
	body := map[string]string{"name": displayName}
	return g.do(ctx, http.MethodPost, "chat/updateProfileName/"+url.PathEscape(name), credential, body, nil)
}

func (g *GatewayClient) SetProfileBio(ctx context.Context, name, credential, bio string) error {
	body := map[string]string{"status": bio}
	return g.do(ctx, http.MethodPost, "chat/updateProfileStatus/"+url.PathEscape(name), credential, body, nil)
}

func (g *GatewayClient) DeleteInstance(ctx context.Context, name, credential string) error {
	return g.do(ctx, http.MethodDelete, "instance/delete/"+url.PathEscape(name), credential, nil, nil)
}

func (g *GatewayClient) FetchInstances(ctx context.Context) ([]*RemoteInstance, error) {
	var instances []*RemoteInstance
	if err := g.do(ctx, http.MethodGet, "instance/fetchInstances", "", nil, &instances); err != nil {
		return nil, goerr.Wrap(err, "failed to fetch instances")
	}
	return instances, nil
}

func (g *GatewayClient) AcceptInvite(ctx context.Context, name, credential, inviteCode string) (bool, error) {
	path := "group/acceptInviteCode/" + url.PathEscape(name) + "?inviteCode=" + url.QueryEscape(inviteCode)
	var resp struct {
		Accepted bool `json:"accepted"`
	}
	if err := g.do(ctx, http.MethodGet, path, credential, nil, &resp); err != nil {
		return false, goerr.Wrap(err, "failed to accept invite", goerr.V("instance", name))
	}
	return resp.Accepted, nil
}

func (g *GatewayClient) FetchGroups(ctx context.Context, name, credential string) ([]*GroupInfo, error) {
	path := "group/fetchAllGroups/" + url.PathEscape(name) + "?getParticipants=false"
	var groups []*GroupInfo
	if err := g.do(ctx, http.MethodGet, path, credential, nil, &groups); err != nil {
		return nil, goerr.Wrap(err, "failed to fetch groups", goerr.V("instance", name))
	}
	return groups, nil
}

func (g *GatewayClient) do(ctx context.Context, method, path, credential string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+"/"+path, reader)
	if err != nil {
		return goerr.Wrap(err, "failed to build request", goerr.V("path", path))
	}

	key := credential
	if key == "" {
		key = g.apiKey
	}
	req.Header.Set("apikey", key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return goerr.Wrap(err, "gateway request failed", goerr.V("path", path))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return goerr.New("gateway returned error status",
			goerr.V("path", path),
			goerr.V("status", resp.StatusCode),
			goerr.Value("body", string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode gateway response", goerr.V("path", path))
	}

	return nil
}
