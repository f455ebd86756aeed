package litellm

import (
	"strconv"
	"time"

	"github.com/fraudgate/fraudgate/internal/port/capability"
	"github.com/fraudgate/fraudgate/internal/resilience"
)

// BackendName is the capability registry key for this adapter.
const BackendName = "litellm"

// Register makes the litellm capability backend available to the registry.
// Recognized config keys: url, master_key, ml_model, rule_model,
// decision_model, explain_model, dialogue_model, breaker_max_failures,
// breaker_timeout.
func Register() {
	capability.Register(BackendName, func(config map[string]string) (*capability.Set, error) {
		client := NewClient(config["url"], config["master_key"])

		if v := config["breaker_max_failures"]; v != "" {
			maxFailures, err := strconv.Atoi(v)
			if err == nil && maxFailures > 0 {
				timeout := 30 * time.Second
				if d, derr := time.ParseDuration(config["breaker_timeout"]); derr == nil && d > 0 {
					timeout = d
				}
				client.SetBreaker(resilience.NewBreaker(maxFailures, timeout))
			}
		}

		return &capability.Set{
			MLScorer:   &scorer{name: "ml_scorer", client: client, model: config["ml_model"], prompt: mlScorerPrompt},
			RuleScorer: &scorer{name: "rule_scorer", client: client, model: config["rule_model"], prompt: ruleScorerPrompt},
			Decider:    &decider{client: client, model: config["decision_model"]},
			Explainer:  &explainer{client: client, model: config["explain_model"]},
			Dialogue:   &dialogue{client: client, model: config["dialogue_model"]},
		}, nil
	})
}
