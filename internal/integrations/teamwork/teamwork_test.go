// ABOUTME: Tests for the teamwork integration
// ABOUTME: Covers installation metadata capture and site-URL-based tool calls

package teamwork

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

var testCreds = integrations.StaticCredentials{
	"teamwork": {"tw-id", "tw-secret"},
}

func TestExchangeCode_CapturesInstallation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "tw-access",
			"refresh_token": "tw-refresh",
			"token_type": "bearer",
			"installation": {
				"id": 777,
				"name": "Acme Inc",
				"apiEndPoint": "https://acme.teamwork.com/"
			}
		}`))
	}))
	defer srv.Close()

	i := New(testCreds)
	i.tokenURL = srv.URL

	token, err := i.ExchangeCode(context.Background(), "code", "https://hub.example.com/cb")
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}
	if token.AccessToken != "tw-access" {
		t.Errorf("access token = %q", token.AccessToken)
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(token.MetaJSON), &meta); err != nil {
		t.Fatalf("decoding meta: %v", err)
	}
	if meta["site_url"] != "https://acme.teamwork.com/" {
		t.Errorf("site_url = %v", meta["site_url"])
	}
	if meta["company_name"] != "Acme Inc" {
		t.Errorf("company_name = %v", meta["company_name"])
	}
}

func TestExecute_UsesSiteURLFromMeta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"projects": []any{}})
	}))
	defer srv.Close()

	i := New(testCreds)
	meta := `{"site_url":"` + srv.URL + `"}`

	result := i.Execute(context.Background(), "projects.list", nil, "tok", meta)
	if !result.Success {
		t.Fatalf("Execute failed: %s", result.Error)
	}
}

func TestExecute_MissingSiteURL(t *testing.T) {
	i := New(testCreds)
	result := i.Execute(context.Background(), "projects.list", nil, "tok", "{}")
	if result.Success {
		t.Fatal("expected failure without installation URL")
	}
	if !strings.Contains(result.Error, "reconnect") {
		t.Errorf("error = %q", result.Error)
	}
}

func TestExecute_TasksCreate_Validation(t *testing.T) {
	i := New(testCreds)
	result := i.Execute(context.Background(), "tasks.create",
		map[string]any{"content": "do it"}, "tok", `{"site_url":"https://x.example.com"}`)
	if result.Success {
		t.Fatal("expected failure for missing tasklist_id")
	}
}
