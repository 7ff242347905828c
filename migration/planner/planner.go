// Package planner turns schema differences into ordered migration scripts.
//
// Each difference is handled by the Policy registered for its object type: added
// objects are created, removed objects are dropped and modified objects are either
// replaced in place, dropped and re-created, or written out as a commented review
// script for a human to act on. Dialect packages under dialects/ supply overrides for
// databases whose DDL differs from the default.
package planner

import (
	"log/slog"
	"maps"

	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
	difftypes "github.com/stokaro/ddldiff/migration/schemadiff/types"
)

// Planner generates migration scripts from schema differences.
//
// # Execution Order
//
// Scripts are grouped into buckets that run in ascending order:
//
//	10  drop an object that is re-created further down (DROP_MODIFIED)
//	20  drop removed objects (DROP)
//	30  create added objects (CREATE)
//	40  replace changed objects and create re-created ones (MODIFY_OR_REPLACE, CREATE_MODIFIED)
//	50  review scripts that never change anything (REVIEW)
//
// Inside a bucket scripts are ordered by file name, so the same differences always
// produce the same plan.
//
// # Usage Example
//
//	diff, err := schemadiff.Compare(source, target)
//	if err != nil {
//		return err
//	}
//	plan := planner.New().GenerateScripts(diff.Differences)
//	if err := plan.Err(); err != nil {
//		return err // two scripts share a file name
//	}
//	for _, script := range plan.Scripts {
//		fmt.Println(script.FileName)
//	}
//
// # Thread Safety
//
// A Planner is not modified by GenerateScripts and is safe for concurrent use once
// configured.
type Planner struct {
	policies map[dbtypes.ObjectType]Policy
	logger   *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithPolicies overrides the policies of the listed object types.
func WithPolicies(overrides map[dbtypes.ObjectType]Policy) Option {
	return func(p *Planner) {
		maps.Copy(p.policies, overrides)
	}
}

// WithLogger sets the logger that receives planning warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// New returns a planner using DefaultPolicies with the given options applied.
func New(opts ...Option) *Planner {
	p := &Planner{policies: DefaultPolicies(), logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateScripts returns the plan for diffs using the default policies.
func GenerateScripts(diffs []difftypes.Difference) *Plan {
	return New().GenerateScripts(diffs)
}

// GenerateScripts maps every difference to its scripts and orders the result.
// Missing DDL, unmatched header rewrites and file name collisions are reported in
// the plan's warnings; they never stop generation.
func (p *Planner) GenerateScripts(diffs []difftypes.Difference) *Plan {
	plan := &Plan{Scripts: make([]MigrationScript, 0, len(diffs))}

	for _, d := range diffs {
		strategy := p.strategyFor(d)
		if strategy == nil {
			plan.Warnings = append(plan.Warnings, dbtypes.NewWarning(dbtypes.WarningUnknownObjectType, d.Key().String(),
				"difference type %q is not supported; no script generated", d.Type))
			continue
		}
		scripts, warnings := strategy(d)
		plan.Scripts = append(plan.Scripts, scripts...)
		plan.Warnings = append(plan.Warnings, warnings...)
	}

	plan.sortScripts()
	plan.detectCollisions()

	for _, w := range plan.Warnings {
		p.logger.Warn("script planning", "kind", w.Kind, "key", w.Key, "message", w.Message)
	}
	return plan
}

// Policy returns the policy applied to objectType.
func (p *Planner) Policy(objectType dbtypes.ObjectType) Policy {
	if policy, ok := p.policies[objectType]; ok {
		return policy
	}
	return FallbackPolicy()
}

func (p *Planner) strategyFor(d difftypes.Difference) Strategy {
	policy, fallback := p.Policy(d.ObjectType), FallbackPolicy()
	switch d.Type {
	case difftypes.Added:
		return orElse(policy.Create, fallback.Create)
	case difftypes.Removed:
		return orElse(policy.Drop, fallback.Drop)
	case difftypes.Modified:
		return orElse(policy.Modify, fallback.Modify)
	default:
		return nil
	}
}

func orElse(s, fallback Strategy) Strategy {
	if s != nil {
		return s
	}
	return fallback
}
