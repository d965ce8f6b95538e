// Package classify implements the static-dispatch classifier of
// spec.md §4.D: per call site, decide whether a call folds to a direct
// call or needs a dynamic dispatch strategy, and emit cost/warning hints.
//
// Grounded on the teacher's internal/planning/validator.go, whose
// threshold-driven classification of a scaffolding plan (pass/warn/fail
// against configured limits) is the same shape of decision this package
// makes against classifier cost thresholds, and on internal/dtree's
// DecisionTree tag-interface idiom for the DispatchDecision variant named
// in spec.md §9.
package classify

import (
	"fmt"
	"math"

	"github.com/janus-lang/janus-sub003/internal/registry"
	"github.com/janus-lang/janus-sub003/internal/signature"
	"github.com/janus-lang/janus-sub003/internal/specificity"
)

// Tier is the static-call sub-tier named in spec.md §4.D.
type Tier int

const (
	InlinedCall Tier = iota
	SpecializedCall
	DirectCall
)

func (t Tier) String() string {
	switch t {
	case InlinedCall:
		return "inlined_call"
	case SpecializedCall:
		return "specialized_call"
	default:
		return "direct_call"
	}
}

// Strategy is the dynamic dispatch strategy named in spec.md §4.D, chosen
// by implementation count.
type Strategy int

const (
	LinearSearch Strategy = iota
	DecisionTreeStrategy
	HashTable
	CompressedTable
)

func (s Strategy) String() string {
	switch s {
	case LinearSearch:
		return "linear_search"
	case DecisionTreeStrategy:
		return "decision_tree"
	case HashTable:
		return "hash_table"
	default:
		return "compressed_table"
	}
}

// ChooseStrategy maps an implementation count to a dynamic strategy and its
// estimated cost in cycles, per the thresholds in spec.md §4.D.
func ChooseStrategy(n int) (Strategy, int) {
	switch {
	case n <= 3:
		return LinearSearch, 3 * n
	case n <= 10:
		return DecisionTreeStrategy, 5 * ceilLog2(n)
	case n <= 50:
		return HashTable, 15
	default:
		return CompressedTable, 25
	}
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(n))))
}

// Severity is the performance-warning level named in spec.md §4.D.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	default:
		return "error"
	}
}

// Config holds the classifier thresholds from spec.md §4.D. Zero-value
// Config is invalid; use DefaultConfig.
type Config struct {
	MaxStaticCost    int // below this: info
	WarningThreshold int // at/above this: warning
	MaxDynamicCost   int // at/above this: error
}

// DefaultConfig returns the defaults named in spec.md §4.D.
func DefaultConfig() Config {
	return Config{MaxStaticCost: 5, WarningThreshold: 20, MaxDynamicCost: 50}
}

// Severity classifies a cost estimate against the configured thresholds.
// The second return value is false in the unnamed gap between
// MaxStaticCost and WarningThreshold, where spec.md §4.D emits no
// performance hint at all.
func (c Config) Severity(cost int) (Severity, bool) {
	switch {
	case cost >= c.MaxDynamicCost:
		return Error, true
	case cost >= c.WarningThreshold:
		return Warning, true
	case cost < c.MaxStaticCost:
		return Info, true
	default:
		return Info, false
	}
}

// Decision is the per-call-site dispatch decision, a tagged variant of
// StaticDecision (the selected implementation), DynamicDecision (the
// signature group and lookup strategy) and NoDispatchDecision (the
// unresolved call). A DynamicDecision holds no dispatch-table reference or
// entry index, and a NoDispatchDecision holds no diagnostic id.
type Decision interface {
	isDecision()
	String() string
}

// StaticDecision is a call site that folds to a direct call.
type StaticDecision struct {
	Impl        *signature.Implementation
	Tier        Tier
	CostCycles  int
	Severity    Severity
	HasSeverity bool
}

func (d *StaticDecision) isDecision() {}
func (d *StaticDecision) String() string {
	return fmt.Sprintf("static(%s, tier=%s, cost=%d)", d.Impl.Function, d.Tier, d.CostCycles)
}

// DynamicDecision is a call site requiring a runtime dispatch table.
type DynamicDecision struct {
	Group       *signature.SignatureGroup
	Strategy    Strategy
	CostCycles  int
	Severity    Severity
	HasSeverity bool
}

func (d *DynamicDecision) isDecision() {}
func (d *DynamicDecision) String() string {
	return fmt.Sprintf("dynamic(%s, strategy=%s, cost=%d)", d.Group.Name, d.Strategy, d.CostCycles)
}

// NoDispatchDecision is emitted when no applicable implementation exists.
type NoDispatchDecision struct {
	SignatureName string
	ArgTypes      []registry.TypeId
}

func (d *NoDispatchDecision) isDecision() {}
func (d *NoDispatchDecision) String() string {
	return fmt.Sprintf("no_dispatch(%s, args=%v)", d.SignatureName, d.ArgTypes)
}

// CallSite identifies the call being classified, per spec.md §6.
type CallSite struct {
	Name     string
	ArgTypes []registry.TypeId
	Location string
}

// Classifier holds the configuration for one compilation session's
// classification decisions.
type Classifier struct {
	reg    *registry.Registry
	config Config
	policy specificity.Policy
}

// New creates a classifier over the given registry with the given config.
func New(reg *registry.Registry, config Config, policy specificity.Policy) *Classifier {
	return &Classifier{reg: reg, config: config, policy: policy}
}

// Classify implements spec.md §4.D for one call site against a signature
// group. An implementation with an empty effect set counts as pure, which
// the inlined_call sub-tier requires.
func (c *Classifier) Classify(site CallSite, group *signature.SignatureGroup) Decision {
	if group == nil || len(group.Implementations) == 0 {
		return &NoDispatchDecision{SignatureName: site.Name, ArgTypes: site.ArgTypes}
	}

	result := specificity.AnalyzeCall(c.reg, group.Implementations, site.ArgTypes, c.policy)

	if result.Outcome == specificity.Unique && group.IsSealed && c.allArgsSealed(site.ArgTypes) {
		return c.classifyStatic(result.Unique)
	}

	if result.Outcome == specificity.NoMatch {
		return &NoDispatchDecision{SignatureName: site.Name, ArgTypes: site.ArgTypes}
	}

	return c.classifyDynamic(group)
}

func (c *Classifier) allArgsSealed(argTypes []registry.TypeId) bool {
	for _, t := range argTypes {
		if !c.reg.IsSealed(t) {
			return false
		}
	}
	return true
}

func (c *Classifier) classifyStatic(impl *signature.Implementation) *StaticDecision {
	pure := len(impl.Effects) == 0
	arity := impl.Arity()

	var tier Tier
	var cost int
	switch {
	case pure && arity <= 2:
		tier, cost = InlinedCall, 0
	case arity <= 4:
		tier, cost = SpecializedCall, 1
	default:
		tier, cost = DirectCall, 2
	}

	severity, has := c.config.Severity(cost)
	return &StaticDecision{
		Impl:        impl,
		Tier:        tier,
		CostCycles:  cost,
		Severity:    severity,
		HasSeverity: has,
	}
}

func (c *Classifier) classifyDynamic(group *signature.SignatureGroup) *DynamicDecision {
	strategy, cost := ChooseStrategy(len(group.Implementations))
	severity, has := c.config.Severity(cost)
	return &DynamicDecision{
		Group:       group,
		Strategy:    strategy,
		CostCycles:  cost,
		Severity:    severity,
		HasSeverity: has,
	}
}
