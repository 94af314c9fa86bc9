package rules

import (
	"github.com/prometheus/client_golang/prometheus"
)

// rulesLoadedTotal counts rule-load outcomes, labeled accepted|rejected,
// exposed on the control-plane's /metrics endpoint (ambient stack, see
// SPEC_FULL.md §4.1).
var rulesLoadedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sentinelgate_rules_loaded_total",
		Help: "Count of rule specs processed on load, labeled by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(rulesLoadedTotal)
}

func recordRuleLoad(accepted, rejected int) {
	rulesLoadedTotal.WithLabelValues("accepted").Add(float64(accepted))
	if rejected > 0 {
		rulesLoadedTotal.WithLabelValues("rejected").Add(float64(rejected))
	}
}
