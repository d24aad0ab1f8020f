package smax

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
)

func newAdapter(t *testing.T) source.Adapter {
	t.Helper()
	return New(source.Deps{Client: http.DefaultClient, Logger: zaptest.NewLogger(t)})
}

func configJSON(serverURL string, extra map[string]any) json.RawMessage {
	cfg := map[string]any{
		"smaxUrl":      serverURL,
		"smaxUsername": "user@example.com",
		"smaxPassword": "pass",
		"tenantId":     "111222333",
	}
	for k, v := range extra {
		cfg[k] = v
	}
	raw, _ := json.Marshal(cfg)
	return raw
}

// smaxServer mimics the login endpoint plus the EMS entity endpoint.
func smaxServer(t *testing.T, token string, entities map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/authentication-endpoint/authenticate/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "111222333", r.URL.Query().Get("TENANTID"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "user@example.com", creds["login"])

		fmt.Fprint(w, token)
	})
	mux.HandleFunc("/rest/111222333/ems/", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authTokenCookie)
		require.NoError(t, err)
		assert.Equal(t, token, cookie.Value)

		entityType := r.URL.Path[len("/rest/111222333/ems/"):]
		body, ok := entities[entityType]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	})
	return httptest.NewServer(mux)
}

func TestTestSuccess(t *testing.T) {
	server := smaxServer(t, "tok-123", map[string]string{
		"Request": `{"entities":[{"entity_type":"Request","properties":{"Id":"1"}}]}`,
		"Person":  `{"entities":[{"entity_type":"Person","properties":{"Id":"7","Upn":"user@example.com"}}]}`,
	})
	defer server.Close()

	result, err := newAdapter(t).Test(context.Background(), configJSON(server.URL, nil))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, entityProperties, result.Fields)
	require.Len(t, result.Services, 6)
	assert.Equal(t, "Request", result.Services[0].ID)
	assert.Equal(t, "KnowledgeDocument", result.Services[5].ID)
	assert.Equal(t, "user@example.com", result.User["Upn"])
}

func TestTestEmptyTokenIsAuthFailure(t *testing.T) {
	server := smaxServer(t, "", nil)
	defer server.Close()

	_, err := newAdapter(t).Test(context.Background(), configJSON(server.URL, nil))
	var authErr *source.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "no token")
}

func TestTestLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/authentication-endpoint/authenticate/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := newAdapter(t).Test(context.Background(), configJSON(server.URL, nil))
	var authErr *source.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestTestSurvivesProfileFailure(t *testing.T) {
	server := smaxServer(t, "tok", map[string]string{
		"Request": `{"entities":[]}`,
		// Person endpoint 404s; the test still passes without a user
	})
	defer server.Close()

	result, err := newAdapter(t).Test(context.Background(), configJSON(server.URL, nil))
	require.NoError(t, err)
	assert.Nil(t, result.User)
}

func TestFetchMapsEntities(t *testing.T) {
	server := smaxServer(t, "tok", map[string]string{
		"Incident": `{"entities":[
			{"entity_type":"Incident","properties":{
				"Id":"42","DisplayLabel":"Printer down","Status":"Ready",
				"Unrelated":"dropped","PhaseId":null
			}}
		]}`,
	})
	defer server.Close()

	result := newAdapter(t).Fetch(context.Background(), configJSON(server.URL, map[string]any{
		"selectedService": "Incident",
	}))

	require.Empty(t, result.Error)
	assert.Equal(t, entityProperties, result.Fields)
	require.Len(t, result.Data, 1)

	row := result.Data[0]
	assert.Equal(t, "42", row["Id"])
	assert.Equal(t, "Printer down", row["DisplayLabel"])
	// Properties outside the fixed layout and nulls are dropped.
	_, hasUnrelated := row["Unrelated"]
	assert.False(t, hasUnrelated)
	_, hasPhase := row["PhaseId"]
	assert.False(t, hasPhase)

	assert.Equal(t, "Title", result.FieldDisplayNames["DisplayLabel"])
}

func TestFetchDefaultsToRequestService(t *testing.T) {
	requested := ""
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/authentication-endpoint/authenticate/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "tok")
	})
	mux.HandleFunc("/rest/111222333/ems/", func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		fmt.Fprint(w, `{"entities":[]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	result := newAdapter(t).Fetch(context.Background(), configJSON(server.URL, nil))
	require.Empty(t, result.Error)
	assert.Equal(t, "/rest/111222333/ems/Request", requested)
}

func TestFetchCapturesErrors(t *testing.T) {
	result := newAdapter(t).Fetch(context.Background(), configJSON("http://127.0.0.1:1", nil))
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Data)
}

func TestFetchRejectsMissingTenant(t *testing.T) {
	result := newAdapter(t).Fetch(context.Background(), json.RawMessage(
		`{"smaxUrl":"http://x","smaxUsername":"u","smaxPassword":"p"}`))
	assert.Contains(t, result.Error, "tenantId")
}
