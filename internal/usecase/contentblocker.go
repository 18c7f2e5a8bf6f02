package usecase

import (
	"go.uber.org/zap"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
	"github.com/lorenzoconte/exizt/blockd/internal/policy"
)

// ContentBlocker is the content decision engine. It inspects the accessible
// view hierarchy of content-change and scroll events for known short-form
// feed containers and bounces the user home silently when one is on screen.
//
// This path fires at high frequency, so there is deliberately no warning
// interstitial here: a silent home-bounce instead of an interstitial per
// scroll tick.
type ContentBlocker struct {
	store  domain.PolicyStore
	rules  *policy.Registry
	logger *zap.Logger
}

// NewContentBlocker creates the content decision engine.
func NewContentBlocker(store domain.PolicyStore, rules *policy.Registry, logger *zap.Logger) *ContentBlocker {
	return &ContentBlocker{store: store, rules: rules, logger: logger}
}

// Evaluate decides, for one content event, whether to bounce home.
// Tree-walk failures (missing snapshot, malformed nodes) are treated as
// "no match": fail open, never block on error.
func (b *ContentBlocker) Evaluate(event domain.DecisionEvent) domain.Decision {
	// Cheap short-circuit: no tree walks when the feature is off.
	if !b.store.Snapshot().ContentBlockEnabled {
		return domain.Decision{Kind: domain.DecisionNoOp}
	}

	// Whole-app rules match on package identity, cheaper than a tree walk.
	if b.rules.IsWholeAppBlocked(event.PackageName) {
		b.logger.Debug("blocking short-video app", zap.String("package", event.PackageName))
		return domain.Decision{Kind: domain.DecisionRedirectHome}
	}

	if event.Content == nil {
		return domain.Decision{Kind: domain.DecisionNoOp}
	}

	for _, viewID := range b.rules.BlockedViewIDs() {
		if findByViewID(event.Content, viewID) != nil {
			b.logger.Debug("blocking content region",
				zap.String("package", event.PackageName),
				zap.String("viewId", viewID))
			return domain.Decision{Kind: domain.DecisionRedirectHome}
		}
	}

	return domain.Decision{Kind: domain.DecisionNoOp}
}

// findByViewID walks the snapshot depth-first for the first node carrying
// the given view identifier. Nil nodes anywhere in the tree are skipped.
func findByViewID(root *domain.ContentNode, viewID string) *domain.ContentNode {
	if root == nil || viewID == "" {
		return nil
	}

	stack := []*domain.ContentNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == nil {
			continue
		}
		if node.ViewID == viewID {
			return node
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}
	return nil
}
