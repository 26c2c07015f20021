// Package azure implements the capacity management API against Azure
// Resource Manager.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/pkg/errors"

	"github.com/doitintl/capacity-scaler/internal/scaler"

	log "github.com/sirupsen/logrus"
)

const (
	default_ENDPOINT = "https://management.azure.com"
	api_VERSION      = "2023-11-01"
	token_SCOPE      = "https://management.azure.com/.default"

	default_HTTP_TIMEOUT = time.Second * 60
)

// Client talks to the ARM capacity endpoints. It implements scaler.API.
type Client struct {
	cred     azcore.TokenCredential
	endpoint string
	hc       *http.Client
}

// Options overrides the management endpoint and HTTP client, mainly for
// tests against a fake ARM server.
type Options struct {
	Endpoint   string
	HTTPClient *http.Client
}

func NewClient(cred azcore.TokenCredential, opts *Options) *Client {
	c := &Client{
		cred:     cred,
		endpoint: default_ENDPOINT,
		hc:       &http.Client{Timeout: default_HTTP_TIMEOUT},
	}
	if opts != nil {
		if opts.Endpoint != "" {
			c.endpoint = opts.Endpoint
		}
		if opts.HTTPClient != nil {
			c.hc = opts.HTTPClient
		}
	}
	return c
}

// wire shapes; properties is kept raw so updates echo it back unmodified
type capacityEnvelope struct {
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Location   string          `json:"location"`
	Sku        capacitySku     `json:"sku"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

type capacitySku struct {
	Name string `json:"name"`
	Tier string `json:"tier"`
}

type capacityProperties struct {
	State             string `json:"state"`
	ProvisioningState string `json:"provisioningState"`
}

// GetCapacity reads the capacity snapshot.
func (c *Client) GetCapacity(ctx context.Context, id scaler.ResourceID) (*scaler.Capacity, error) {
	body, err := c.do(ctx, http.MethodGet, id.Path(), "get capacity", nil)
	if err != nil {
		return nil, err
	}
	var env capacityEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "failed to decode capacity response")
	}
	var props capacityProperties
	if len(env.Properties) > 0 {
		if err := json.Unmarshal(env.Properties, &props); err != nil {
			return nil, errors.Wrap(err, "failed to decode capacity properties")
		}
	}
	return &scaler.Capacity{
		ID:                env.ID,
		Name:              env.Name,
		Location:          env.Location,
		Sku:               scaler.Sku(env.Sku.Name),
		State:             scaler.State(props.State),
		ProvisioningState: scaler.ProvisioningState(props.ProvisioningState),
		Properties:        env.Properties,
	}, nil
}

// Resume asks the capacity to start. The call returns as soon as ARM accepts
// the request; convergence is observed through GetCapacity.
func (c *Client) Resume(ctx context.Context, id scaler.ResourceID) error {
	_, err := c.do(ctx, http.MethodPost, id.Path()+"/resume", "resume", nil)
	return err
}

// Suspend asks the capacity to pause.
func (c *Client) Suspend(ctx context.Context, id scaler.ResourceID) error {
	_, err := c.do(ctx, http.MethodPost, id.Path()+"/suspend", "suspend", nil)
	return err
}

// UpdateSku replaces the capacity with the target sku. ARM performs a
// full-object replace on PUT, so the body carries base's location and raw
// properties untouched - only the sku changes.
func (c *Client) UpdateSku(ctx context.Context, id scaler.ResourceID, base *scaler.Capacity, target scaler.Sku) error {
	env := capacityEnvelope{
		Location:   base.Location,
		Sku:        capacitySku{Name: string(target), Tier: "Fabric"},
		Properties: base.Properties,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "failed to encode capacity update")
	}
	_, err = c.do(ctx, http.MethodPut, id.Path(), "update sku", payload)
	return err
}

func (c *Client) do(ctx context.Context, method, path, op string, payload []byte) ([]byte, error) {
	token, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{token_SCOPE}})
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire management token")
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path+"?api-version="+api_VERSION, reqBody)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s request", op)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.WithFields(log.Fields{"method": method, "path": path}).Debug("management API call")
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s request failed", op)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s response", op)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &scaler.APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
