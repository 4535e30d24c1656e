// ABOUTME: Rule-based evaluation for memory write decisions.
// ABOUTME: Rejects secrets, normalizes types and sensitivity, assigns TTLs.

package memory

import "regexp"

var secretPattern = regexp.MustCompile(`(?i)(password|passwd|secret|api_key|api_secret|private_key|access_token|` +
	`refresh_token|bearer|authorization|credential|ssh_key|pgp_key|` +
	`mnemonic|seed_phrase|recovery_phrase)`)

var (
	durableTypes = map[string]bool{"preference": true, "constraint": true, "decision": true}
	entityTypes  = map[string]bool{"asset": true, "project": true, "contact": true}

	validSensitivities = map[string]bool{"low": true, "medium": true, "high": true}
)

func validType(t string) bool {
	return durableTypes[t] || entityTypes[t] || t == "goal" || t == "note"
}

// Candidate is a memory item proposed for saving.
type Candidate struct {
	Title       string
	Type        string
	ValueJSON   string
	Sensitivity string
	Pinned      bool
	// Explicit marks items the user explicitly asked to remember; it relaxes
	// the secret and sensitivity rules.
	Explicit bool
}

// Evaluation is the write decision for a candidate.
type Evaluation struct {
	Allow       bool   `json:"allow"`
	Type        string `json:"type"`
	TTLDays     *int   `json:"ttl_days"`
	Sensitivity string `json:"sensitivity"`
	ReasonCode  string `json:"reason_code"`
}

func days(n int) *int { return &n }

// EvaluateWrite decides whether a candidate should be saved, with what type,
// TTL, and sensitivity.
func EvaluateWrite(c Candidate) Evaluation {
	itemType := c.Type
	if !validType(itemType) {
		itemType = "note"
	}
	sensitivity := c.Sensitivity
	if !validSensitivities[sensitivity] {
		sensitivity = "low"
	}

	if secretPattern.MatchString(c.Title + " " + c.ValueJSON) {
		if !c.Explicit {
			return Evaluation{Allow: false, Type: itemType, Sensitivity: "high", ReasonCode: "SECRET_REJECTED"}
		}
		sensitivity = "high"
	}

	if sensitivity == "high" && !c.Explicit {
		return Evaluation{Allow: false, Type: itemType, Sensitivity: "high", ReasonCode: "HIGH_SENSITIVITY_NEEDS_EXPLICIT"}
	}

	switch {
	case durableTypes[itemType]:
		return Evaluation{Allow: true, Type: itemType, Sensitivity: sensitivity, ReasonCode: "PREFERENCE_STABLE"}
	case entityTypes[itemType]:
		return Evaluation{Allow: true, Type: itemType, Sensitivity: sensitivity, ReasonCode: "DURABLE_ENTITY"}
	case itemType == "goal":
		return Evaluation{Allow: true, Type: itemType, TTLDays: days(30), Sensitivity: sensitivity, ReasonCode: "GOAL_MEDIUM_TERM"}
	case itemType == "note" && c.Pinned:
		return Evaluation{Allow: true, Type: itemType, Sensitivity: sensitivity, ReasonCode: "USER_PINNED"}
	case itemType == "note":
		return Evaluation{Allow: true, Type: itemType, TTLDays: days(7), Sensitivity: sensitivity, ReasonCode: "SHORT_TERM_NOTE"}
	}
	return Evaluation{Allow: true, Type: itemType, TTLDays: days(7), Sensitivity: sensitivity, ReasonCode: "DEFAULT_SHORT_TERM"}
}
