package extract

import "strings"

// PathConfidence is the fixed confidence for path-derived guesses. A
// folder name is a strong hint but never strong enough to auto-commit
// on its own.
const PathConfidence = 0.6

// pathPattern ties a canonical feature name to the path keywords that
// imply it. Order matters: the first matching entry wins.
var pathPatterns = []struct {
	feature  string
	keywords []string
}{
	{"KYC", []string{"kyc", "kimlik", "verification", "identity"}},
	{"Onboarding", []string{"onboarding", "welcome", "intro"}},
	{"Trading", []string{"trade", "trading", "al-sat", "buy-sell"}},
	{"Staking", []string{"staking", "stake", "earn"}},
	{"Wallet", []string{"wallet", "cüzdan", "balance", "bakiye"}},
	{"Convert", []string{"convert", "swap", "dönüştür"}},
	{"P2P Trading", []string{"p2p", "peer-to-peer"}},
	{"Mobile App", []string{"mobile", "app"}},
	{"AI Sentimentals", []string{"ai", "sentiment", "analysis"}},
}

// GuessFromPath infers a feature name from directory and file naming
// conventions. Returns the empty string when nothing matches.
func GuessFromPath(filePath string) (string, float64) {
	lower := strings.ToLower(filePath)
	for _, p := range pathPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return p.feature, PathConfidence
			}
		}
	}
	return "", 0
}
