package rules

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// matcher is the engine-owned predicate built from a RuleSpec at compile
// time. Evaluation never touches RuleSpec's raw strings again.
type matcher interface {
	match(a Action) bool
}

// regexMatcher matches if the compiled pattern matches content OR target.
type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) match(a Action) bool {
	if m.re.MatchString(a.Content) {
		return true
	}
	if a.Target != "" && m.re.MatchString(a.Target) {
		return true
	}
	return false
}

// multiRegexMatcher is the compiled form of a template expansion: matches
// if any of the expanded regexes matches (spec §4.1 "Template... follows
// the regex rule").
type multiRegexMatcher struct {
	res []*regexp.Regexp
}

func (m multiRegexMatcher) match(a Action) bool {
	for _, re := range m.res {
		if re.MatchString(a.Content) {
			return true
		}
		if a.Target != "" && re.MatchString(a.Target) {
			return true
		}
	}
	return false
}

// keywordMatcher implements the five-predicate keyword match of spec §4.1.
type keywordMatcher struct {
	spec KeywordSpec
}

func (m keywordMatcher) match(a Action) bool {
	if m.spec.Empty() {
		return false
	}
	content := a.Content
	lowerContent := strings.ToLower(content)
	concat := content + " " + a.Target

	if len(m.spec.Contains) > 0 {
		ok := false
		for _, s := range m.spec.Contains {
			if strings.Contains(lowerContent, strings.ToLower(s)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(m.spec.StartsWith) > 0 {
		ok := false
		for _, s := range m.spec.StartsWith {
			if strings.HasPrefix(content, s) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(m.spec.EndsWith) > 0 {
		ok := false
		for _, s := range m.spec.EndsWith {
			if strings.HasSuffix(content, s) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(m.spec.Glob) > 0 {
		ok := false
		for _, pattern := range m.spec.Glob {
			if globMatch(pattern, content) || globMatch(pattern, a.Target) || globMatch(pattern, concat) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(m.spec.AnyOf) > 0 {
		ok := false
		for _, s := range m.spec.AnyOf {
			if strings.Contains(lowerContent, strings.ToLower(s)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// globMatch reports whether pattern matches s using filepath.Match glob
// semantics, falling back to false on a malformed pattern rather than
// propagating a compile error on the hot path.
func globMatch(pattern, s string) bool {
	if pattern == "" {
		return false
	}
	ok, err := filepath.Match(pattern, s)
	return err == nil && ok
}

// Compile builds a CompiledRule from a RuleSpec. Compilation happens once
// at load time; Evaluate never compiles on the hot path (spec §4.1).
func Compile(spec RuleSpec) (*CompiledRule, error) {
	risk, _ := ParseRiskLevel(spec.RiskLevel)
	action, _ := ParseRecommendation(spec.ActionName)

	appliesTo := make(map[ActionKind]bool, len(spec.AppliesTo))
	for _, k := range spec.AppliesTo {
		appliesTo[k] = true
	}

	var m matcher
	var err error
	switch spec.MatchType {
	case "", MatchRegex:
		m, err = compileRegex(spec)
	case MatchKeyword:
		m = keywordMatcher{spec: spec.Keyword}
	case MatchTemplate:
		m, err = compileTemplate(spec, appliesTo)
	default:
		return nil, fmt.Errorf("rule %q: unknown match_type %q", spec.Name, spec.MatchType)
	}
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
	}

	return &CompiledRule{
		Spec:      spec,
		Risk:      risk,
		Action:    action,
		AppliesTo: appliesTo,
		matcher:   m,
	}, nil
}

func compileRegex(spec RuleSpec) (matcher, error) {
	if spec.Pattern == "" {
		return nil, fmt.Errorf("regex rule has empty pattern")
	}
	re, err := regexp.Compile(spec.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	return regexMatcher{re: re}, nil
}

// compileTemplate expands the named template with its params into concrete
// regexes and a default applies_to, then compiles them (spec §4.1, §6).
// If the caller's spec.AppliesTo is empty, the template's default applies_to
// is merged in so templates can carry a sensible scope without the rule
// author repeating it.
func compileTemplate(spec RuleSpec, appliesTo map[ActionKind]bool) (matcher, error) {
	def, ok := templateCatalog[spec.Template]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", spec.Template)
	}
	patterns, defaultApplies, err := def.expand(spec.Params)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", spec.Template, err)
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("template %q: expansion produced no patterns", spec.Template)
	}
	if len(appliesTo) == 0 {
		for _, k := range defaultApplies {
			appliesTo[k] = true
		}
	}

	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("template %q expanded to invalid regex %q: %w", spec.Template, p, err)
		}
		res = append(res, re)
	}
	return multiRegexMatcher{res: res}, nil
}
