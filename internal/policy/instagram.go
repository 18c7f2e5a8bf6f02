package policy

// InstagramRule implements ContentRule for Instagram Reels.
type InstagramRule struct{}

// NewInstagramRule creates the Instagram content rule.
func NewInstagramRule() *InstagramRule {
	return &InstagramRule{}
}

func (r *InstagramRule) ID() string {
	return "instagram"
}

func (r *InstagramRule) Name() string {
	return "Instagram"
}

func (r *InstagramRule) Packages() []string {
	return []string{"com.instagram.android"}
}

// BlockedViewIDs returns the Reels container identifier.
// The rest of Instagram stays usable.
func (r *InstagramRule) BlockedViewIDs() []string {
	return []string{
		"com.instagram.android:id/root_clips_layout",
	}
}

func (r *InstagramRule) BlockWholeApp() bool {
	return false
}

// Ensure InstagramRule implements ContentRule.
var _ ContentRule = (*InstagramRule)(nil)
