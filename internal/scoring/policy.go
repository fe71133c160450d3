// Package scoring implements the weighted scoring model: a configurable
// category rule table, one evaluator per point type, and the section/task
// score math shared by every execution.
package scoring

import (
	"fmt"
	"os"
	"strings"

	"github.com/plugvet/plugvet/internal/models"
	"gopkg.in/yaml.v3"
)

// CategoryRule binds category keywords to a point type and weight.
// Rules are matched in order; the first rule whose keywords appear in the
// normalized category wins.
type CategoryRule struct {
	Match  []string         `yaml:"match" json:"match"`
	Type   models.PointType `yaml:"type" json:"type"`
	Weight float64          `yaml:"weight" json:"weight"`
}

// Thresholds control when a scored point emits an issue. Ratios are
// fractions of the point's maximum score.
type Thresholds struct {
	IssueRatio    float64 `yaml:"issue_ratio" json:"issueRatio"`
	CriticalRatio float64 `yaml:"critical_ratio" json:"criticalRatio"`
}

// Policy is the injectable scoring configuration: the category table, the
// issue thresholds, and the per-type evaluators. A Policy is immutable
// after construction and safe for concurrent use.
type Policy struct {
	rules      []CategoryRule
	thresholds Thresholds
	evaluators map[models.PointType]Evaluator
}

// defaultRules weight performance and security above configuration, per
// the category conventions the task documents follow.
func defaultRules() []CategoryRule {
	return []CategoryRule{
		{Match: []string{"performance", "frame", "fps", "memory", "leak", "gpu"}, Type: models.PointPerformance, Weight: 2.5},
		{Match: []string{"security", "permission", "sandbox", "signing", "signed"}, Type: models.PointSecurity, Weight: 2.5},
		{Match: []string{"integration", "compatibility", "interop", "dependency"}, Type: models.PointIntegration, Weight: 2.0},
		{Match: []string{"functional", "behavior", "runtime", "lifecycle"}, Type: models.PointFunctional, Weight: 1.5},
		{Match: []string{"configuration", "config", "setting", "manifest", "metadata"}, Type: models.PointConfiguration, Weight: 1.0},
		{Match: []string{"general"}, Type: models.PointGeneral, Weight: 1.0},
	}
}

// DefaultThresholds emit an issue below 70% of a point's maximum and
// escalate to CRITICAL below 30%.
var DefaultThresholds = Thresholds{IssueRatio: 0.70, CriticalRatio: 0.30}

// DefaultPolicy returns the built-in policy used when no policy file is
// configured.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(defaultRules(), DefaultThresholds, nil)
	if err != nil {
		// The built-in table is static; a construction failure is a bug.
		panic(err)
	}
	return p
}

// NewPolicy builds a Policy from explicit rules, thresholds, and optional
// per-type evaluator parameters.
func NewPolicy(rules []CategoryRule, thresholds Thresholds, evaluatorParams map[models.PointType]map[string]any) (*Policy, error) {
	p := &Policy{
		rules:      rules,
		thresholds: thresholds,
		evaluators: make(map[models.PointType]Evaluator, len(models.KnownPointTypes)),
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	for _, t := range models.KnownPointTypes {
		ev, err := createEvaluator(t, evaluatorParams[t])
		if err != nil {
			return nil, fmt.Errorf("building %s evaluator: %w", t, err)
		}
		p.evaluators[t] = ev
	}
	return p, nil
}

// policyFile is the on-disk YAML shape of a scoring policy.
type policyFile struct {
	Categories []CategoryRule            `yaml:"categories"`
	Thresholds *Thresholds               `yaml:"thresholds,omitempty"`
	Evaluators map[string]map[string]any `yaml:"evaluators,omitempty"`
}

// LoadPolicy reads a policy YAML file. Missing thresholds fall back to the
// defaults; an empty category list falls back to the built-in table.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scoring policy: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing scoring policy %s: %w", path, err)
	}

	rules := pf.Categories
	if len(rules) == 0 {
		rules = defaultRules()
	}
	thresholds := DefaultThresholds
	if pf.Thresholds != nil {
		thresholds = *pf.Thresholds
	}

	params := make(map[models.PointType]map[string]any, len(pf.Evaluators))
	for name, raw := range pf.Evaluators {
		params[models.PointType(name)] = raw
	}

	p, err := NewPolicy(rules, thresholds, params)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring policy %s: %w", path, err)
	}
	return p, nil
}

func (p *Policy) validate() error {
	for i, r := range p.rules {
		if len(r.Match) == 0 {
			return fmt.Errorf("category rule %d has no match keywords", i+1)
		}
		if r.Weight <= 0 {
			return fmt.Errorf("category rule %d: weight must be positive, got %v", i+1, r.Weight)
		}
		if !isKnownPointType(r.Type) {
			return fmt.Errorf("category rule %d: unknown point type %q", i+1, r.Type)
		}
	}
	t := p.thresholds
	if t.IssueRatio <= 0 || t.IssueRatio > 1 {
		return fmt.Errorf("issue_ratio must be in (0, 1], got %v", t.IssueRatio)
	}
	if t.CriticalRatio < 0 || t.CriticalRatio >= t.IssueRatio {
		return fmt.Errorf("critical_ratio must be in [0, issue_ratio), got %v", t.CriticalRatio)
	}
	return nil
}

// ClassifyCategory maps a normalized category onto its point type and
// weight. Unmatched categories land on general with weight 1.
func (p *Policy) ClassifyCategory(category string) (models.PointType, float64) {
	for _, r := range p.rules {
		for _, kw := range r.Match {
			if strings.Contains(category, kw) {
				return r.Type, r.Weight
			}
		}
	}
	return models.PointGeneral, 1.0
}

// Thresholds returns the policy's issue thresholds.
func (p *Policy) Thresholds() Thresholds {
	return p.thresholds
}

// EvaluatorFor returns the evaluator for a point type. Unknown types use
// the general evaluator so a forward-compatible descriptor still scores.
func (p *Policy) EvaluatorFor(t models.PointType) Evaluator {
	if ev, ok := p.evaluators[t]; ok {
		return ev
	}
	return p.evaluators[models.PointGeneral]
}

func isKnownPointType(t models.PointType) bool {
	for _, k := range models.KnownPointTypes {
		if t == k {
			return true
		}
	}
	return false
}
