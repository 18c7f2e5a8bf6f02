package policy

import "fmt"

// Registry holds all content-blocking rules, in registration order.
// Rules are shipped with the app; this is the fixed in-memory rule store.
type Registry struct {
	rules []ContentRule
	byID  map[string]ContentRule

	// Lookup tables rebuilt on registration so the decision path never
	// iterates rule lists per event.
	wholeAppPackages map[string]struct{}
	blockedViewIDs   []string
}

// NewRegistry creates a registry with all default rules.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]ContentRule)}

	// Register default rules
	r.Register(NewTikTokRule())
	r.Register(NewInstagramRule())
	r.Register(NewYouTubeRule())

	return r
}

// NewRegistryWithRules creates a registry with custom rules (for testing).
func NewRegistryWithRules(rules ...ContentRule) *Registry {
	r := &Registry{byID: make(map[string]ContentRule)}
	for _, rule := range rules {
		r.Register(rule)
	}
	return r
}

// Register adds a rule to the registry and rebuilds the lookup tables.
func (r *Registry) Register(rule ContentRule) {
	if _, exists := r.byID[rule.ID()]; exists {
		return
	}
	r.rules = append(r.rules, rule)
	r.byID[rule.ID()] = rule

	if r.wholeAppPackages == nil {
		r.wholeAppPackages = make(map[string]struct{})
	}
	if rule.BlockWholeApp() {
		for _, pkg := range rule.Packages() {
			r.wholeAppPackages[pkg] = struct{}{}
		}
	}
	r.blockedViewIDs = append(r.blockedViewIDs, rule.BlockedViewIDs()...)
}

// Get returns a rule by ID.
func (r *Registry) Get(id string) (ContentRule, error) {
	rule, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("content rule not found: %s", id)
	}
	return rule, nil
}

// GetAll returns all registered rules in registration order.
func (r *Registry) GetAll() []ContentRule {
	out := make([]ContentRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// IsWholeAppBlocked reports whether pkg belongs to an always-block app.
func (r *Registry) IsWholeAppBlocked(pkg string) bool {
	_, ok := r.wholeAppPackages[pkg]
	return ok
}

// BlockedViewIDs returns every known blocked view identifier, in rule
// registration order. The content engine checks them all regardless of the
// event's package: identifiers are namespaced per app so cross-matches
// cannot occur.
func (r *Registry) BlockedViewIDs() []string {
	return r.blockedViewIDs
}

// TargetPackages returns every package any rule applies to, deduplicated.
// The daemon reports it at startup so logs show which apps are under
// content inspection.
func (r *Registry) TargetPackages() []string {
	var pkgs []string
	seen := make(map[string]struct{})
	for _, rule := range r.rules {
		for _, pkg := range rule.Packages() {
			if _, dup := seen[pkg]; dup {
				continue
			}
			seen[pkg] = struct{}{}
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs
}
