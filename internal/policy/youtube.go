package policy

// YouTubeRule implements ContentRule for YouTube Shorts.
// Covers the official client and the ReVanced build, which reuses the
// Shorts view hierarchy under its own package name.
type YouTubeRule struct{}

// NewYouTubeRule creates the YouTube content rule.
func NewYouTubeRule() *YouTubeRule {
	return &YouTubeRule{}
}

func (r *YouTubeRule) ID() string {
	return "youtube"
}

func (r *YouTubeRule) Name() string {
	return "YouTube"
}

func (r *YouTubeRule) Packages() []string {
	return []string{
		"com.google.android.youtube",
		"app.revanced.android.youtube",
	}
}

// BlockedViewIDs returns the Shorts recycler identifiers.
func (r *YouTubeRule) BlockedViewIDs() []string {
	return []string{
		"com.google.android.youtube:id/reel_recycler",
		"app.revanced.android.youtube:id/reel_recycler",
	}
}

func (r *YouTubeRule) BlockWholeApp() bool {
	return false
}

// Ensure YouTubeRule implements ContentRule.
var _ ContentRule = (*YouTubeRule)(nil)
