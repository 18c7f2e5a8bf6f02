package policy

// TikTokRule implements ContentRule for TikTok.
// TikTok is a short-form feed end to end, so the whole app is blocked on
// package identity alone - cheaper than a content-tree walk.
type TikTokRule struct{}

// NewTikTokRule creates the TikTok content rule.
func NewTikTokRule() *TikTokRule {
	return &TikTokRule{}
}

func (r *TikTokRule) ID() string {
	return "tiktok"
}

func (r *TikTokRule) Name() string {
	return "TikTok"
}

// Packages returns the known TikTok package names across regions.
func (r *TikTokRule) Packages() []string {
	return []string{
		"com.ss.android.ugc.trill",
		"com.zhiliaoapp.musically",
		"com.ss.android.ugc.aweme",
	}
}

func (r *TikTokRule) BlockedViewIDs() []string {
	return nil
}

func (r *TikTokRule) BlockWholeApp() bool {
	return true
}

// Ensure TikTokRule implements ContentRule.
var _ ContentRule = (*TikTokRule)(nil)
