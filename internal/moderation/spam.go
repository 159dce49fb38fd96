// Package moderation holds the pure policy core: spam scoring, the status
// decision table, and write-capability checks. Nothing here touches storage
// or the network.
package moderation

import (
	"regexp"
	"time"
)

// AuthorProfile is the slice of a user the scorer is allowed to see.
type AuthorProfile struct {
	CreatedAt  time.Time
	Reputation int
}

// Scoring weights. The URL terms stack (a flat per-link hit plus an
// excess-link multiplier); both only arm once a comment carries more than
// two links, so an ordinary "here's the article" comment is never penalized
// for linking.
const (
	weightSpamVocab    = 10
	weightPromoPhrase  = 10
	weightURLFlat      = 10
	weightURLExcess    = 15
	weightShoutingRun  = 10
	weightYoungAccount = 20
	weightLowRep       = 15

	excessURLCount  = 2
	youngAccountAge = 24 * time.Hour
	lowRepCutoff    = 10

	maxScore = 100
)

var (
	spamVocabPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bviagra\b`),
		regexp.MustCompile(`(?i)\bcasino\b`),
		regexp.MustCompile(`(?i)\blottery\b`),
		regexp.MustCompile(`(?i)\bjackpot\b`),
		regexp.MustCompile(`(?i)\bfree money\b`),
		regexp.MustCompile(`(?i)\bwork from home\b`),
		regexp.MustCompile(`(?i)\bmake money fast\b`),
		regexp.MustCompile(`(?i)\bcheap (?:meds|pills)\b`),
		regexp.MustCompile(`(?i)\bcrypto giveaway\b`),
	}

	promoPhrasePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bbuy now\b`),
		regexp.MustCompile(`(?i)\bclick here\b`),
		regexp.MustCompile(`(?i)\bact now\b`),
		regexp.MustCompile(`(?i)\border today\b`),
		regexp.MustCompile(`(?i)\blimited time offer\b`),
		regexp.MustCompile(`(?i)\bvisit my (?:site|store|shop)\b`),
		regexp.MustCompile(`(?i)\bsubscribe to my\b`),
	}

	urlPattern      = regexp.MustCompile(`https?://[^\s]+`)
	shoutingPattern = regexp.MustCompile(`[A-Z]{5,}`)
)

// Score rates content from an author at a given instant, returning an
// integer in [0,100]. It is a pure function: no I/O, no randomness, and the
// caller supplies the clock, so identical inputs always score identically.
//
// The account-age and low-reputation terms are mutually exclusive; a
// brand-new account is already maximally suspect and does not get dinged
// twice for the reputation it has not had time to earn.
func Score(content string, author AuthorProfile, now time.Time) int {
	score := 0

	for _, pattern := range spamVocabPatterns {
		score += weightSpamVocab * len(pattern.FindAllStringIndex(content, -1))
	}
	for _, pattern := range promoPhrasePatterns {
		score += weightPromoPhrase * len(pattern.FindAllStringIndex(content, -1))
	}

	if urls := len(urlPattern.FindAllStringIndex(content, -1)); urls > excessURLCount {
		score += weightURLFlat * urls
		score += weightURLExcess * urls
	}

	score += weightShoutingRun * len(shoutingPattern.FindAllStringIndex(content, -1))

	if now.Sub(author.CreatedAt) < youngAccountAge {
		score += weightYoungAccount
	} else if author.Reputation < lowRepCutoff {
		score += weightLowRep
	}

	if score > maxScore {
		score = maxScore
	}
	if score < 0 {
		score = 0
	}
	return score
}
