package azure

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doitintl/capacity-scaler/internal/scaler"

	stderrors "errors"
)

type fakeCredential struct{}

func (f *fakeCredential) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "fake-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

var testID = scaler.ResourceID{Subscription: "sub-1", ResourceGroup: "rg-1", Name: "cap1"}

const capacityJSON = `{
	"id": "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.Fabric/capacities/cap1",
	"name": "cap1",
	"location": "westeurope",
	"sku": {"name": "F8", "tier": "Fabric"},
	"properties": {
		"state": "Active",
		"provisioningState": "Succeeded",
		"administration": {"members": ["admin@contoso.com"]}
	}
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&fakeCredential{}, &Options{Endpoint: srv.URL, HTTPClient: srv.Client()})
}

func TestGetCapacity(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, testID.Path(), r.URL.Path)
		assert.Equal(t, api_VERSION, r.URL.Query().Get("api-version"))
		assert.Equal(t, "Bearer fake-token", r.Header.Get("Authorization"))
		io.WriteString(w, capacityJSON)
	})

	got, err := c.GetCapacity(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "cap1", got.Name)
	assert.Equal(t, "westeurope", got.Location)
	assert.Equal(t, scaler.SkuF8, got.Sku)
	assert.Equal(t, scaler.StateActive, got.State)
	assert.Equal(t, scaler.ProvisioningSucceeded, got.ProvisioningState)
	// the raw blob survives, including fields this code does not model
	assert.Contains(t, string(got.Properties), "admin@contoso.com")
}

func TestGetCapacityHTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"code":"ResourceNotFound"}}`)
	})

	_, err := c.GetCapacity(context.Background(), testID)
	require.Error(t, err)
	var apiErr *scaler.APIError
	require.True(t, stderrors.As(err, &apiErr))
	// status and body are carried, never silently defaulted
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "ResourceNotFound")
	assert.Contains(t, apiErr.Error(), "get capacity")
}

func TestResume(t *testing.T) {
	var gotBody []byte
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, testID.Path()+"/resume", r.URL.Path)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	})

	require.NoError(t, c.Resume(context.Background(), testID))
	// the resume action takes no body
	assert.Empty(t, gotBody)
}

func TestResumeRejected(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error":{"code":"OperationNotAllowed"}}`)
	})

	err := c.Resume(context.Background(), testID)
	require.Error(t, err)
	var apiErr *scaler.APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "resume", apiErr.Op)
}

func TestSuspend(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, testID.Path()+"/suspend", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Suspend(context.Background(), testID))
}

func TestUpdateSkuFullBodyReplace(t *testing.T) {
	var gotBody map[string]json.RawMessage
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, testID.Path(), r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	base := &scaler.Capacity{
		Location:   "westeurope",
		Sku:        scaler.SkuF8,
		State:      scaler.StateActive,
		Properties: json.RawMessage(`{"state":"Active","provisioningState":"Succeeded","administration":{"members":["admin@contoso.com"]}}`),
	}
	require.NoError(t, c.UpdateSku(context.Background(), testID, base, scaler.SkuF64))

	// location and properties are echoed back exactly as read
	assert.JSONEq(t, `"westeurope"`, string(gotBody["location"]))
	assert.JSONEq(t, string(base.Properties), string(gotBody["properties"]))
	assert.JSONEq(t, `{"name":"F64","tier":"Fabric"}`, string(gotBody["sku"]))
}

func TestUpdateSkuRejected(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"code":"QuotaExceeded"}}`)
	})

	base := &scaler.Capacity{Location: "westeurope", Properties: json.RawMessage(`{}`)}
	err := c.UpdateSku(context.Background(), testID, base, scaler.SkuF64)
	require.Error(t, err)
	var apiErr *scaler.APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "QuotaExceeded")
	assert.Equal(t, "update sku", apiErr.Op)
}
