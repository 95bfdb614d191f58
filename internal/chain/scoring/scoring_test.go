package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreAllSignals(t *testing.T) {
	got := Score(Input{
		BuyerName:       "Jane Doe",
		OwnerName:       "Jane Doe",
		MailingMismatch: true,
		SameState:       true,
		RecentSale:      true,
	})

	assert.Equal(t, 75, got.Score)
	assert.Equal(t, map[string]bool{
		SignalExactNameMatch:  true,
		SignalMailingMismatch: true,
		SignalSameState:       true,
		SignalRecentSale:      true,
	}, got.Signals)
}

func TestScoreNameBands(t *testing.T) {
	tests := []struct {
		name       string
		buyer      string
		owner      string
		wantScore  int
		wantSignal string
	}{
		{"exact", "John Smith", "JOHN A SMITH", 40, SignalExactNameMatch},
		{"substring is fuzzy", "John Smith", "John Smith Jr", 25, SignalFuzzyNameMatch},
		{"token overlap is partial", "Smith John", "John Smith", 15, SignalPartialNameMatch},
		{"weak overlap earns nothing", "John Smith", "John Doe", 0, ""},
		{"blank owner is a substring", "Jane Doe", "", 25, SignalFuzzyNameMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(Input{BuyerName: tt.buyer, OwnerName: tt.owner})
			assert.Equal(t, tt.wantScore, got.Score)
			if tt.wantSignal == "" {
				assert.Empty(t, got.Signals)
				return
			}
			assert.Equal(t, map[string]bool{tt.wantSignal: true}, got.Signals)
		})
	}
}

func TestScoreOmitsSignalsThatDidNotFire(t *testing.T) {
	got := Score(Input{BuyerName: "Jane Doe", OwnerName: "Jane Doe", SameState: true})

	assert.Equal(t, 50, got.Score)
	_, hasMailing := got.Signals[SignalMailingMismatch]
	assert.False(t, hasMailing, "absent signals must not be reported as false")
	_, hasRecent := got.Signals[SignalRecentSale]
	assert.False(t, hasRecent)
}

func TestScoreMonotoneAndCapped(t *testing.T) {
	withSignals := func(owner string, mask int) Input {
		return Input{
			BuyerName:       "Jane Doe",
			OwnerName:       owner,
			MailingMismatch: mask&1 != 0,
			SameState:       mask&2 != 0,
			RecentSale:      mask&4 != 0,
		}
	}

	for _, owner := range []string{"Jane Doe", "Jane Doe Smith", "Doe Jane", "Bob Roe"} {
		for mask := 0; mask < 8; mask++ {
			got := Score(withSignals(owner, mask)).Score
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)

			for bit := 0; bit < 3; bit++ {
				superset := mask | 1<<bit
				assert.GreaterOrEqual(t, Score(withSignals(owner, superset)).Score, got,
					"owner %q: adding signal bit %d lowered the score", owner, bit)
			}
		}
	}
}

func TestScoreContextAloneNeverQualifies(t *testing.T) {
	got := Score(Input{BuyerName: "Jane Doe", OwnerName: "Bob Roe", MailingMismatch: true, SameState: true, RecentSale: true})
	assert.Equal(t, 35, got.Score)
	assert.Less(t, got.Score, 60)
}

func TestScoreIsDeterministic(t *testing.T) {
	in := Input{BuyerName: "Ann Lee", OwnerName: "Ann B. Lee", MailingMismatch: true}
	assert.Equal(t, Score(in), Score(in))
}
