package jira

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
		"jiraUrl":      serverURL,
		"jiraUsername": "user@example.com",
		"jiraPassword": "token",
	}
	for k, v := range extra {
		cfg[k] = v
	}
	raw, _ := json.Marshal(cfg)
	return raw
}

// jiraServer answers the subset of the REST v2 API the adapter touches.
func jiraServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	return httptest.NewServer(mux)
}

func TestTestSuccess(t *testing.T) {
	server := jiraServer(t, map[string]http.HandlerFunc{
		"/rest/api/2/project": func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "user@example.com", user)
			assert.Equal(t, "token", pass)
			fmt.Fprint(w, `[{"id":"10000","key":"K","name":"Kanban"}]`)
		},
		"/rest/api/2/myself": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"accountId":"abc","displayName":"User"}`)
		},
		"/rest/api/2/filter/favourite": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"id":"1","name":"Mine"}]`)
		},
		"/rest/api/2/filter/search": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "20", r.URL.Query().Get("maxResults"))
			fmt.Fprint(w, `{"values":[{"id":"1","name":"Mine"},{"id":"2","name":"Team"}]}`)
		},
	})
	defer server.Close()

	result, err := newAdapter(t).Test(context.Background(), configJSON(server.URL, nil))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, issueFieldOrder, result.Fields)
	require.Len(t, result.Projects, 1)
	assert.Equal(t, "K", result.Projects[0].Key)

	// Favourites first, search results deduplicated by id.
	require.Len(t, result.SavedFilters, 2)
	assert.True(t, result.SavedFilters[0].Favourite)
	assert.Equal(t, "2", result.SavedFilters[1].ID)
}

func TestTestMissingAccountIdIsAuthFailure(t *testing.T) {
	server := jiraServer(t, map[string]http.HandlerFunc{
		"/rest/api/2/project": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[]`)
		},
		"/rest/api/2/myself": func(w http.ResponseWriter, r *http.Request) {
			// 200 with an anonymous body is how some instances reject logins.
			fmt.Fprint(w, `{"name":"anonymous"}`)
		},
	})
	defer server.Close()

	_, err := newAdapter(t).Test(context.Background(), configJSON(server.URL, nil))
	var authErr *source.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "accountId")
}

func TestTestNonArrayProjectListIsAuthFailure(t *testing.T) {
	server := jiraServer(t, map[string]http.HandlerFunc{
		"/rest/api/2/project": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"errorMessages":["login required"]}`)
		},
	})
	defer server.Close()

	_, err := newAdapter(t).Test(context.Background(), configJSON(server.URL, nil))
	var authErr *source.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestTestUnauthorizedStatus(t *testing.T) {
	server := jiraServer(t, map[string]http.HandlerFunc{
		"/rest/api/2/project": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	})
	defer server.Close()

	_, err := newAdapter(t).Test(context.Background(), configJSON(server.URL, nil))
	var authErr *source.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestTestSurvivesFilterFailures(t *testing.T) {
	server := jiraServer(t, map[string]http.HandlerFunc{
		"/rest/api/2/project": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[]`)
		},
		"/rest/api/2/myself": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"accountId":"abc"}`)
		},
		// favourite and search endpoints 404: filters stay empty, test passes
	})
	defer server.Close()

	result, err := newAdapter(t).Test(context.Background(), configJSON(server.URL, nil))
	require.NoError(t, err)
	assert.Empty(t, result.SavedFilters)
}

func TestFetchMapsIssues(t *testing.T) {
	server := jiraServer(t, map[string]http.HandlerFunc{
		"/rest/api/2/search": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, `project = "K"`, r.URL.Query().Get("jql"))
			assert.Equal(t, "100", r.URL.Query().Get("maxResults"))
			fmt.Fprint(w, `{"issues":[
				{"key":"K-1","fields":{
					"summary":"Fix login",
					"status":{"name":"Open"},
					"assignee":{"displayName":"Ada"},
					"project":{"name":"Kanban","key":"K"},
					"labels":["auth","backend"],
					"components":[{"name":"api"},{"name":"web"}],
					"customfield_10016":5,
					"customfield_10020":[{"name":"Sprint 1"},{"name":"Sprint 2"}]
				}}
			]}`)
		},
	})
	defer server.Close()

	result := newAdapter(t).Fetch(context.Background(), configJSON(server.URL, map[string]any{
		"selectedJiraProject": "K",
	}))

	require.Empty(t, result.Error)
	assert.Equal(t, issueFieldOrder, result.Fields)
	require.Len(t, result.Data, 1)

	row := result.Data[0]
	assert.Equal(t, "K-1", row["key"])
	assert.Equal(t, "Open", row["status"])
	assert.Equal(t, "Ada", row["assignee"])
	assert.Equal(t, "Kanban", row["project"])
	assert.Equal(t, "K", row["projectKey"])
	assert.Equal(t, "auth, backend", row["labels"])
	assert.Equal(t, "api, web", row["components"])
	assert.Equal(t, float64(5), row["storyPoints"])
	assert.Equal(t, "Sprint 2", row["sprint"]) // latest sprint entry wins

	// Absent fields are omitted, not blanked.
	_, hasResolved := row["resolved"]
	assert.False(t, hasResolved)

	assert.Equal(t, "Story Points", result.FieldDisplayNames["storyPoints"])
}

func TestFetchSelectionAndOverrides(t *testing.T) {
	server := jiraServer(t, map[string]http.HandlerFunc{
		"/rest/api/2/search": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"issues":[{"key":"K-1","fields":{"summary":"s"}}]}`)
		},
	})
	defer server.Close()

	result := newAdapter(t).Fetch(context.Background(), configJSON(server.URL, map[string]any{
		"selectedFields":    []string{"key", "summary"},
		"fieldDisplayNames": map[string]string{"key": "Ticket"},
	}))

	assert.Equal(t, []string{"key", "summary"}, result.Fields)
	assert.Equal(t, "Ticket", result.FieldDisplayNames["key"])
	assert.Equal(t, "Summary", result.FieldDisplayNames["summary"])
}

func TestFetchCapturesErrors(t *testing.T) {
	result := newAdapter(t).Fetch(context.Background(), configJSON("http://127.0.0.1:1", nil))
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Data)
}

func TestFetchRejectsIncompleteConfig(t *testing.T) {
	result := newAdapter(t).Fetch(context.Background(), json.RawMessage(`{"jiraUrl":"http://x"}`))
	assert.Contains(t, result.Error, "jiraUsername")
}

func TestBuildJQL(t *testing.T) {
	tests := []struct {
		name    string
		project string
		query   string
		want    string
	}{
		{"project only", "K", "", `project = "K"`},
		{"project and query", "K", "status = Open", `project = "K" AND (status = Open)`},
		{"query only", "", "assignee = x", "assignee = x"},
		{"neither", "", "", "ORDER BY created DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildJQL(&Config{SelectedJiraProject: tt.project, JiraQuery: tt.query})
			assert.Equal(t, tt.want, got)
		})
	}
}
