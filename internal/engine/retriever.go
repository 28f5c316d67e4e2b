package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/aetherlab/aether/internal/store"
)

// RetrievedRule is a ranked retrieval hit. Relevance is a [0,1] signal for
// exploratory use only; the correction path never consumes it.
type RetrievedRule struct {
	Rule             store.PhysioRule `json:"rule"`
	Relevance        float64          `json:"relevance_score"`
	MatchedCondition string           `json:"matched_condition"`
}

// Retriever answers ranked, bounded rule queries. Which implementation backs
// it is decided once at engine construction and never changes for the life
// of the process.
type Retriever interface {
	Query(ctx context.Context, profile UserProfile, limit int) ([]RetrievedRule, error)
}

// ruleDocument renders a rule as a synthetic searchable document.
func ruleDocument(r store.PhysioRule) string {
	return fmt.Sprintf("%s %s %v Target: %s. Action: %s. %s",
		r.Condition.Parameter, r.Condition.Operator, r.Condition.Value,
		r.Target, r.Action, r.Reasoning)
}

// profileDocument renders the profile fields as a space-joined query document.
func profileDocument(p UserProfile) string {
	parts := []string{
		fmt.Sprintf("pH %g", p.PH),
		fmt.Sprintf("skin type %s", p.SkinType),
		fmt.Sprintf("temperature %g", p.Temperature),
	}
	for _, allergy := range p.Allergies {
		parts = append(parts, "allergy "+allergy)
	}
	return strings.Join(parts, " ")
}

// VectorRetriever ranks rules by embedding similarity against a query
// document built from the profile. Constructed only when the vector backend
// probe succeeds at startup.
type VectorRetriever struct {
	db       *store.DB
	embedder Embedder
	rules    map[string]store.PhysioRule
}

// NewVectorRetriever embeds every rule that has no stored vector (or whose
// vector was produced by a different model) and returns a retriever over
// the result.
func NewVectorRetriever(ctx context.Context, db *store.DB, embedder Embedder, rules []store.PhysioRule) (*VectorRetriever, error) {
	byID := make(map[string]store.PhysioRule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r

		existing, err := db.GetRuleVector(r.ID)
		if err != nil {
			return nil, fmt.Errorf("check vector for %s: %w", r.ID, err)
		}
		if existing != nil && existing.Model == embedder.Model() {
			continue
		}

		vec, err := embedder.Embed(ctx, ruleDocument(r))
		if err != nil {
			return nil, fmt.Errorf("embed rule %s: %w", r.ID, err)
		}
		if err := db.SaveRuleVector(r.ID, vec, embedder.Model()); err != nil {
			return nil, err
		}
	}

	return &VectorRetriever{db: db, embedder: embedder, rules: byID}, nil
}

// Query embeds the profile document and returns the nearest rules.
// Relevance is 1/(1+distance) where distance is cosine distance.
func (v *VectorRetriever) Query(ctx context.Context, profile UserProfile, limit int) ([]RetrievedRule, error) {
	if limit <= 0 {
		limit = 5
	}

	queryText := profileDocument(profile)
	queryVec, err := v.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vectors, err := v.db.AllRuleVectors()
	if err != nil {
		return nil, fmt.Errorf("load rule vectors: %w", err)
	}

	var results []RetrievedRule
	for _, vec := range vectors {
		rule, ok := v.rules[vec.RuleID]
		if !ok {
			continue
		}
		distance := 1 - CosineSimilarity(queryVec, vec.Embedding)
		results = append(results, RetrievedRule{
			Rule:             rule,
			Relevance:        1 / (1 + distance),
			MatchedCondition: queryText,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// KeywordRetriever is the permanent fallback when no vector backend is
// available. It matches rule conditions against the profile with the same
// operator semantics as the exact matcher, but serves the ranked-bounded
// contract: matches get a fixed 0.9 relevance, sorted and truncated.
type KeywordRetriever struct {
	rules []store.PhysioRule
}

// NewKeywordRetriever returns a keyword retriever over the rule set.
func NewKeywordRetriever(rules []store.PhysioRule) *KeywordRetriever {
	log.Printf("retrieval: vector backend unavailable, using keyword matching (degraded)")
	return &KeywordRetriever{rules: rules}
}

// Query matches each rule condition against the profile.
func (k *KeywordRetriever) Query(_ context.Context, profile UserProfile, limit int) ([]RetrievedRule, error) {
	if limit <= 0 {
		limit = 5
	}
	values := profile.Values()

	var matched []RetrievedRule
	for _, rule := range k.rules {
		userValue, ok := values[rule.Condition.Parameter]
		if !ok {
			continue
		}

		matches := false
		switch rule.Condition.Operator {
		case "<":
			uv, uok := asFloat(userValue)
			rv, rok := asFloat(rule.Condition.Value)
			matches = uok && rok && uv < rv
		case ">":
			uv, uok := asFloat(userValue)
			rv, rok := asFloat(rule.Condition.Value)
			matches = uok && rok && uv > rv
		case "==":
			matches = equalValues(userValue, rule.Condition.Value)
		case "contains":
			if list, ok := asStringSlice(userValue); ok {
				if want, ok := rule.Condition.Value.(string); ok {
					for _, item := range list {
						if item == want {
							matches = true
							break
						}
					}
				}
			}
		}

		if matches {
			matched = append(matched, RetrievedRule{
				Rule:      rule,
				Relevance: 0.9,
				MatchedCondition: fmt.Sprintf("%s %s %v",
					rule.Condition.Parameter, rule.Condition.Operator, rule.Condition.Value),
			})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Relevance > matched[j].Relevance
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
