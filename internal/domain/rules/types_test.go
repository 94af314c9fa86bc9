package rules

import "testing"

func TestParseRiskLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in     string
		want   RiskLevel
		wantOK bool
	}{
		{"", RiskWarning, true},
		{"warning", RiskWarning, true},
		{"info", RiskInfo, true},
		{"critical", RiskCritical, true},
		{"bogus", RiskWarning, false},
	}
	for _, c := range cases {
		got, ok := ParseRiskLevel(c.in)
		if got != c.want || ok != c.wantOK {
			t.Errorf("ParseRiskLevel(%q) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}

func TestRiskLevelString(t *testing.T) {
	t.Parallel()

	cases := map[RiskLevel]string{
		RiskInfo:     "info",
		RiskWarning:  "warning",
		RiskCritical: "critical",
		RiskLevel(99): "unknown",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("RiskLevel(%d).String() = %q, want %q", level, got, want)
		}
	}
}

func TestParseRecommendation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in     string
		want   Recommendation
		wantOK bool
	}{
		{"", RecommendAlert, true},
		{"alert", RecommendAlert, true},
		{"log_only", RecommendLogOnly, true},
		{"pause_and_ask", RecommendPauseAndAsk, true},
		{"block", RecommendBlock, true},
		{"critical_alert", RecommendCriticalAlert, true},
		{"bogus", RecommendAlert, false},
	}
	for _, c := range cases {
		got, ok := ParseRecommendation(c.in)
		if got != c.want || ok != c.wantOK {
			t.Errorf("ParseRecommendation(%q) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}

func TestRecommendationBlocking(t *testing.T) {
	t.Parallel()

	cases := map[Recommendation]bool{
		RecommendLogOnly:       false,
		RecommendAlert:         false,
		RecommendPauseAndAsk:   true,
		RecommendBlock:         true,
		RecommendCriticalAlert: true,
	}
	for rec, want := range cases {
		if got := rec.Blocking(); got != want {
			t.Errorf("%s.Blocking() = %v, want %v", rec, got, want)
		}
	}
}

func TestPromoteNeverRegresses(t *testing.T) {
	t.Parallel()

	order := []Recommendation{RecommendLogOnly, RecommendAlert, RecommendPauseAndAsk, RecommendBlock, RecommendCriticalAlert}
	rank := func(r Recommendation) int {
		switch r {
		case RecommendLogOnly:
			return 0
		case RecommendAlert:
			return 1
		case RecommendPauseAndAsk:
			return 2
		default:
			return 3 // Block and CriticalAlert are equivalent at the verdict level
		}
	}
	for _, current := range order {
		for _, incoming := range order {
			got := Promote(current, incoming)
			if rank(got) < rank(current) || rank(got) < rank(incoming) {
				t.Errorf("Promote(%s, %s) = %s, regressed below max(current, incoming)", current, incoming, got)
			}
		}
	}
}

func TestPromoteBlockAndCriticalAlertEquivalent(t *testing.T) {
	t.Parallel()

	// Once either Block or CriticalAlert is reached, further promotion with
	// any incoming recommendation stays at CriticalAlert (spec §9 open
	// question 3: Block and CriticalAlert are equivalent at the verdict level).
	for _, incoming := range []Recommendation{RecommendLogOnly, RecommendAlert, RecommendPauseAndAsk, RecommendBlock, RecommendCriticalAlert} {
		if got := Promote(RecommendBlock, incoming); got != RecommendCriticalAlert {
			t.Errorf("Promote(Block, %s) = %s, want CriticalAlert", incoming, got)
		}
		if got := Promote(RecommendCriticalAlert, incoming); got != RecommendCriticalAlert {
			t.Errorf("Promote(CriticalAlert, %s) = %s, want CriticalAlert", incoming, got)
		}
	}
}

func TestKeywordSpecEmpty(t *testing.T) {
	t.Parallel()

	if !(KeywordSpec{}).Empty() {
		t.Error("zero-value KeywordSpec should be Empty")
	}
	nonEmpty := []KeywordSpec{
		{Contains: []string{"x"}},
		{StartsWith: []string{"x"}},
		{EndsWith: []string{"x"}},
		{Glob: []string{"*.x"}},
		{AnyOf: []string{"x"}},
	}
	for _, k := range nonEmpty {
		if k.Empty() {
			t.Errorf("KeywordSpec %+v should not be Empty", k)
		}
	}
}

func TestRuleSpecIsEnabled(t *testing.T) {
	t.Parallel()

	if !(RuleSpec{}).IsEnabled() {
		t.Error("RuleSpec with nil Enabled should default to enabled")
	}
	trueVal, falseVal := true, false
	if !(RuleSpec{Enabled: &trueVal}).IsEnabled() {
		t.Error("RuleSpec with Enabled=true should be enabled")
	}
	if (RuleSpec{Enabled: &falseVal}).IsEnabled() {
		t.Error("RuleSpec with Enabled=false should not be enabled")
	}
}

func TestVerdictBlocked(t *testing.T) {
	t.Parallel()

	blocking := Verdict{Recommendation: RecommendBlock}
	if !blocking.Blocked() {
		t.Error("Verdict with RecommendBlock should be Blocked")
	}
	logOnly := Verdict{Recommendation: RecommendLogOnly}
	if logOnly.Blocked() {
		t.Error("Verdict with RecommendLogOnly should not be Blocked")
	}
}

func TestNewAction(t *testing.T) {
	t.Parallel()

	a := NewAction(KindExec, "rm -rf /", "/")
	if a.ID == "" {
		t.Error("NewAction should assign a non-empty ID")
	}
	if a.Kind != KindExec {
		t.Errorf("Kind = %v, want %v", a.Kind, KindExec)
	}
	if a.Content != "rm -rf /" {
		t.Errorf("Content = %q, want %q", a.Content, "rm -rf /")
	}
	if a.Target != "/" {
		t.Errorf("Target = %q, want %q", a.Target, "/")
	}
	if a.Timestamp.IsZero() {
		t.Error("NewAction should set a non-zero Timestamp")
	}

	b := NewAction(KindExec, "rm -rf /", "/")
	if a.ID == b.ID {
		t.Error("NewAction should assign a fresh ID on each call")
	}
}
