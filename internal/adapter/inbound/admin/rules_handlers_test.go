package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Sentinel-Gate/Sentinelgate/internal/config"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
)

func newRuleServer(t *testing.T) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	s := newTestServer(t, &config.HarnessConfig{Rules: config.RulesConfig{Path: path}})
	if err := s.store.LoadYAML(path, []byte(`[]`)); err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	return s
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body any, pathValues map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleListRulesExcludesSelfProtection(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	rec := doJSON(t, s.handleListRules, http.MethodGet, "/api/rules", nil, nil)
	var specs []rules.RuleSpec
	if err := json.Unmarshal(rec.Body.Bytes(), &specs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(specs) != 0 {
		t.Errorf("expected zero user rules, got %d: %+v", len(specs), specs)
	}
}

func TestHandleCreateRuleThenListsIt(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	spec := rules.RuleSpec{
		Name:      "block_sudo_test",
		MatchType: rules.MatchKeyword,
		Keyword:   rules.KeywordSpec{Contains: []string{"sudo"}},
		AppliesTo: []rules.ActionKind{rules.KindExec},
		ActionName: "block",
		RiskLevel:  "critical",
	}
	rec := doJSON(t, s.handleCreateRule, http.MethodPost, "/api/rules", spec, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}

	listRec := doJSON(t, s.handleListRules, http.MethodGet, "/api/rules", nil, nil)
	var specs []rules.RuleSpec
	if err := json.Unmarshal(listRec.Body.Bytes(), &specs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(specs) != 1 || specs[0].Name != "block_sudo_test" {
		t.Errorf("expected the created rule to be listed, got %+v", specs)
	}
}

func TestHandleCreateRuleRejectsEmptyName(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	rec := doJSON(t, s.handleCreateRule, http.MethodPost, "/api/rules", rules.RuleSpec{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCreateRuleRejectsProtectedName(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	rec := doJSON(t, s.handleCreateRule, http.MethodPost, "/api/rules", rules.RuleSpec{
		Name: "self_protect_config", MatchType: rules.MatchKeyword, Keyword: rules.KeywordSpec{Contains: []string{"x"}},
	}, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestHandleCreateRuleRejectsDuplicateName(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	spec := rules.RuleSpec{Name: "dup", MatchType: rules.MatchKeyword, Keyword: rules.KeywordSpec{Contains: []string{"x"}}}
	if rec := doJSON(t, s.handleCreateRule, http.MethodPost, "/api/rules", spec, nil); rec.Code != http.StatusCreated {
		t.Fatalf("first create: status = %d, body=%s", rec.Code, rec.Body.String())
	}
	rec := doJSON(t, s.handleCreateRule, http.MethodPost, "/api/rules", spec, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestHandleUpdateRuleNotFound(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	rec := doJSON(t, s.handleUpdateRule, http.MethodPut, "/api/rules/missing", rules.RuleSpec{Name: "missing"}, map[string]string{"name": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleUpdateRuleRejectsProtected(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	rec := doJSON(t, s.handleUpdateRule, http.MethodPut, "/api/rules/self_protect_config",
		rules.RuleSpec{Name: "self_protect_config"}, map[string]string{"name": "self_protect_config"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestHandleUpdateRuleRejectsClearingProtectedFlag(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	spec := rules.RuleSpec{Name: "prot", MatchType: rules.MatchKeyword, Keyword: rules.KeywordSpec{Contains: []string{"x"}}, Protected: true}
	if rec := doJSON(t, s.handleCreateRule, http.MethodPost, "/api/rules", spec, nil); rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body=%s", rec.Code, rec.Body.String())
	}

	spec.Protected = false
	rec := doJSON(t, s.handleUpdateRule, http.MethodPut, "/api/rules/prot", spec, map[string]string{"name": "prot"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 clearing Protected on a protected rule", rec.Code)
	}
}

func TestHandleDeleteRuleRemovesIt(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	spec := rules.RuleSpec{Name: "to_delete", MatchType: rules.MatchKeyword, Keyword: rules.KeywordSpec{Contains: []string{"x"}}}
	if rec := doJSON(t, s.handleCreateRule, http.MethodPost, "/api/rules", spec, nil); rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body=%s", rec.Code, rec.Body.String())
	}

	rec := doJSON(t, s.handleDeleteRule, http.MethodDelete, "/api/rules/to_delete", nil, map[string]string{"name": "to_delete"})
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}

	listRec := doJSON(t, s.handleListRules, http.MethodGet, "/api/rules", nil, nil)
	var specs []rules.RuleSpec
	if err := json.Unmarshal(listRec.Body.Bytes(), &specs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(specs) != 0 {
		t.Errorf("expected the rule to be gone, got %+v", specs)
	}
}

func TestHandleDeleteRuleRejectsProtected(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	rec := doJSON(t, s.handleDeleteRule, http.MethodDelete, "/api/rules/self_protect_config", nil, map[string]string{"name": "self_protect_config"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestHandleTestRuleEvaluatesWithoutMutatingStore(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	spec := rules.RuleSpec{
		Name: "block_rm_http", MatchType: rules.MatchKeyword,
		Keyword: rules.KeywordSpec{Contains: []string{"rm -rf"}}, AppliesTo: []rules.ActionKind{rules.KindExec},
		ActionName: "block", RiskLevel: "critical",
	}
	if rec := doJSON(t, s.handleCreateRule, http.MethodPost, "/api/rules", spec, nil); rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body=%s", rec.Code, rec.Body.String())
	}

	rec := doJSON(t, s.handleTestRule, http.MethodPost, "/api/rules/test",
		ruleTestRequest{ToolName: "exec", Content: "rm -rf /"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var resp ruleTestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Blocked {
		t.Errorf("expected the test evaluation to report Blocked=true, got %+v", resp)
	}

	listRec := doJSON(t, s.handleListRules, http.MethodGet, "/api/rules", nil, nil)
	var specs []rules.RuleSpec
	if err := json.Unmarshal(listRec.Body.Bytes(), &specs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(specs) != 1 {
		t.Errorf("handleTestRule must not persist anything, got %d user rules", len(specs))
	}
}

func TestHandleTestRuleRequiresToolName(t *testing.T) {
	t.Parallel()
	s := newRuleServer(t)

	rec := doJSON(t, s.handleTestRule, http.MethodPost, "/api/rules/test", ruleTestRequest{Content: "x"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
