// Package scoring turns name similarity and contextual evidence into a single
// 0-100 confidence that a deed buyer still owns another property.
package scoring

import "chainlead/internal/chain/names"

// Signal names reported alongside a score. Only signals that contributed
// points appear in a result.
const (
	SignalExactNameMatch   = "exactNameMatch"
	SignalFuzzyNameMatch   = "fuzzyNameMatch"
	SignalPartialNameMatch = "partialNameMatch"
	SignalMailingMismatch  = "mailingMismatch"
	SignalSameState        = "sameState"
	SignalRecentSale       = "recentSale"
)

// Points awarded per signal.
const (
	exactNamePoints       = 40
	fuzzyNamePoints       = 25
	partialNamePoints     = 15
	mailingMismatchPoints = 20
	sameStatePoints       = 10
	recentSalePoints      = 5

	maxScore = 100
)

// Name-match thresholds on the names.Match scale.
const (
	exactNameThreshold   = 100
	fuzzyNameThreshold   = 85
	partialNameThreshold = 60
)

// Input is the evidence for one buyer/owned-property pairing.
type Input struct {
	BuyerName string
	OwnerName string
	// MailingMismatch is set when the owner's mailing address differs from the
	// owned property's address, i.e. they appear not to live there.
	MailingMismatch bool
	SameState       bool
	// RecentSale is set when the buyer's purchase closed within the recency window.
	RecentSale bool
}

// Result is a confidence score and the signals that produced it.
type Result struct {
	Score   int
	Signals map[string]bool
}

// Score computes the confidence for in. It is pure: equal inputs give equal results.
func Score(in Input) Result {
	score := 0
	signals := make(map[string]bool, 4)

	switch nameScore := names.Match(in.BuyerName, in.OwnerName); {
	case nameScore >= exactNameThreshold:
		score += exactNamePoints
		signals[SignalExactNameMatch] = true
	case nameScore >= fuzzyNameThreshold:
		score += fuzzyNamePoints
		signals[SignalFuzzyNameMatch] = true
	case nameScore >= partialNameThreshold:
		score += partialNamePoints
		signals[SignalPartialNameMatch] = true
	}

	if in.MailingMismatch {
		score += mailingMismatchPoints
		signals[SignalMailingMismatch] = true
	}
	if in.SameState {
		score += sameStatePoints
		signals[SignalSameState] = true
	}
	if in.RecentSale {
		score += recentSalePoints
		signals[SignalRecentSale] = true
	}

	return Result{Score: min(score, maxScore), Signals: signals}
}
