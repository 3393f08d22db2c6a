package jury

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecore/internal/policy"
)

func makeVotes(buy, sell, hold int) []Vote {
	votes := make([]Vote, 0, buy+sell+hold)
	id := 1
	for i := 0; i < buy; i++ {
		votes = append(votes, Vote{AgentID: id, Choice: ChoiceBuy, Reasoning: "bullish"})
		id++
	}
	for i := 0; i < sell; i++ {
		votes = append(votes, Vote{AgentID: id, Choice: ChoiceSell, Reasoning: "bearish"})
		id++
	}
	for i := 0; i < hold; i++ {
		votes = append(votes, Vote{AgentID: id, Choice: ChoiceHold, Reasoning: "neutral"})
		id++
	}
	return votes
}

func TestAggregate_FiveFiveTieEscalates(t *testing.T) {
	result, err := Aggregate(makeVotes(5, 5, 0))
	require.NoError(t, err)

	assert.Equal(t, ChoiceEscalated, result.Decision)
	assert.True(t, result.EscalatedToHuman)
	assert.True(t, result.Spawned)
	assert.Equal(t, Tally{Buy: 5, Sell: 5, Hold: 0}, result.Tally)
}

func TestAggregate_TieEscalatesForAnyPair(t *testing.T) {
	for _, votes := range [][]Vote{
		makeVotes(5, 0, 5),
		makeVotes(0, 5, 5),
	} {
		result, err := Aggregate(votes)
		require.NoError(t, err)
		assert.Equal(t, ChoiceEscalated, result.Decision)
		assert.True(t, result.EscalatedToHuman)
	}
}

func TestAggregate_DecisiveMajority(t *testing.T) {
	cases := []struct {
		buy, sell, hold int
		want            Choice
	}{
		{6, 3, 1, ChoiceBuy},
		{2, 7, 1, ChoiceSell},
		{1, 3, 6, ChoiceHold},
		{10, 0, 0, ChoiceBuy},
	}

	for _, tc := range cases {
		result, err := Aggregate(makeVotes(tc.buy, tc.sell, tc.hold))
		require.NoError(t, err)
		assert.Equal(t, tc.want, result.Decision, "tally %d/%d/%d", tc.buy, tc.sell, tc.hold)
		assert.False(t, result.EscalatedToHuman)
	}
}

func TestAggregate_NoMajorityMeansHold(t *testing.T) {
	cases := [][3]int{
		{4, 3, 3},
		{5, 4, 1},
		{4, 4, 2},
		{5, 3, 2},
	}

	for _, tc := range cases {
		result, err := Aggregate(makeVotes(tc[0], tc[1], tc[2]))
		require.NoError(t, err)
		assert.Equal(t, ChoiceHold, result.Decision, "tally %d/%d/%d", tc[0], tc[1], tc[2])
		assert.False(t, result.EscalatedToHuman)
	}
}

// 同一组票的任意排列必须得出完全一致的结论。
func TestAggregate_OrderIndependence(t *testing.T) {
	base := makeVotes(5, 5, 0)
	baseline, err := Aggregate(base)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Vote(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		result, err := Aggregate(shuffled)
		require.NoError(t, err)
		assert.Equal(t, baseline.Decision, result.Decision)
		assert.Equal(t, baseline.Tally, result.Tally)
		assert.Equal(t, baseline.EscalatedToHuman, result.EscalatedToHuman)
	}
}

func TestAggregate_RejectsWrongCount(t *testing.T) {
	_, err := Aggregate(makeVotes(4, 3, 2))
	require.Error(t, err)

	_, err = Aggregate(makeVotes(6, 3, 2))
	require.Error(t, err)

	_, err = Aggregate(nil)
	require.Error(t, err)
}

func TestAggregate_RejectsIllegalChoice(t *testing.T) {
	votes := makeVotes(5, 4, 0)
	votes = append(votes, Vote{AgentID: 10, Choice: ChoiceEscalated})
	require.Len(t, votes, policy.JurySize)

	_, err := Aggregate(votes)
	require.Error(t, err)
}

func TestAggregate_PreservesVoteList(t *testing.T) {
	votes := makeVotes(6, 2, 2)
	result, err := Aggregate(votes)
	require.NoError(t, err)

	require.Len(t, result.Votes, policy.JurySize)
	assert.Equal(t, votes, result.Votes)
}
