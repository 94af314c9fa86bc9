package admin

import (
	"encoding/json"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/normalize"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
)

// userSpecs returns the current rule set with the hardcoded self-protection
// rules excluded, since those are never persisted to the rules file (they're
// re-appended on every load by Store.LoadYAML).
func (s *Server) userSpecs() []rules.RuleSpec {
	compiled := s.store.Compiled()
	out := make([]rules.RuleSpec, 0, len(compiled))
	for _, c := range compiled {
		if rules.IsSelfProtectionRule(c.Spec.Name) {
			continue
		}
		out = append(out, c.Spec)
	}
	return out
}

// persist writes specs to the configured rules file and atomically reloads
// the store from it, so every mutation goes through the same validated path
// a file edit would (spec §4.1, §5).
func (s *Server) persist(specs []rules.RuleSpec) error {
	data, err := yaml.Marshal(specs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.cfg.Rules.Path, data, 0644); err != nil {
		return err
	}
	return s.store.LoadYAML(s.cfg.Rules.Path, data)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.userSpecs())
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var spec rules.RuleSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if spec.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if rules.IsSelfProtectionRule(spec.Name) {
		respondError(w, http.StatusForbidden, "name collides with a protected rule")
		return
	}

	specs := s.userSpecs()
	for _, existing := range specs {
		if existing.Name == spec.Name {
			respondError(w, http.StatusConflict, "a rule with this name already exists")
			return
		}
	}
	specs = append(specs, spec)

	if err := s.persist(specs); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, spec)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var spec rules.RuleSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if rules.IsSelfProtectionRule(name) {
		respondError(w, http.StatusForbidden, "rule is protected")
		return
	}

	specs := s.userSpecs()
	found := false
	for i, existing := range specs {
		if existing.Name != name {
			continue
		}
		if existing.Protected && !spec.Protected {
			respondError(w, http.StatusForbidden, "a protected rule cannot have protected cleared")
			return
		}
		spec.Name = name
		specs[i] = spec
		found = true
		break
	}
	if !found {
		respondError(w, http.StatusNotFound, "rule not found")
		return
	}

	if err := s.persist(specs); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, spec)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if rules.IsSelfProtectionRule(name) {
		respondError(w, http.StatusForbidden, "rule is protected")
		return
	}

	specs := s.userSpecs()
	out := make([]rules.RuleSpec, 0, len(specs))
	found := false
	for _, existing := range specs {
		if existing.Name == name {
			if existing.Protected {
				respondError(w, http.StatusForbidden, "rule is protected")
				return
			}
			found = true
			continue
		}
		out = append(out, existing)
	}
	if !found {
		respondError(w, http.StatusNotFound, "rule not found")
		return
	}

	if err := s.persist(out); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ruleTestRequest is the JSON body for POST /api/rules/test: an ad-hoc
// tool invocation evaluated against the currently loaded rule set without
// mutating it.
type ruleTestRequest struct {
	ToolName string `json:"tool_name"`
	Content  string `json:"content"`
	Target   string `json:"target,omitempty"`
}

type ruleTestResponse struct {
	MatchedRules   []string `json:"matched_rules"`
	Risk           string   `json:"risk"`
	Recommendation string   `json:"recommendation"`
	Blocked        bool     `json:"blocked"`
	Explanation    string   `json:"explanation"`
}

func (s *Server) handleTestRule(w http.ResponseWriter, r *http.Request) {
	var req ruleTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ToolName == "" {
		respondError(w, http.StatusBadRequest, "tool_name is required")
		return
	}

	toolArgs := map[string]any{"command": req.Content, "path": req.Content, "url": req.Content}
	if req.Target != "" {
		toolArgs["target"] = req.Target
	}
	action := normalize.Normalize(normalize.ToolCall{Name: req.ToolName, Args: toolArgs})

	engine := rules.NewEngine(s.store)
	verdict := engine.Evaluate(action)

	respondJSON(w, http.StatusOK, ruleTestResponse{
		MatchedRules:   verdict.Matched,
		Risk:           verdict.Risk.String(),
		Recommendation: verdict.Recommendation.String(),
		Blocked:        verdict.Blocked(),
		Explanation:    verdict.Explanation,
	})
}
