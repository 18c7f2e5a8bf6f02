// Package policy implements the Strategy pattern for app-specific
// content-blocking rules. Each app (Instagram, YouTube, TikTok) has its own
// rule defining which packages and view regions to block.
package policy

// ContentRule defines the strategy interface for content-level blocking of
// one application. Rules ship with the app and are not user-configurable.
type ContentRule interface {
	// ID returns unique identifier (e.g., "instagram", "tiktok").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// Packages returns the package names this rule applies to.
	// Some apps ship under several package names (regional builds, mods).
	Packages() []string

	// BlockedViewIDs returns accessibility view identifiers marking
	// blocked regions (e.g. the reels container). Empty when the whole
	// app is blocked.
	BlockedViewIDs() []string

	// BlockWholeApp reports whether the app is blocked on package
	// identity alone, without inspecting content. Used for apps that
	// are short-form video feeds end to end.
	BlockWholeApp() bool
}
