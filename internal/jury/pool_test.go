package jury

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecore/internal/policy"
)

func TestCollect_GathersExactlyTenVotes(t *testing.T) {
	voter := func(ctx context.Context, agentID int) (Vote, error) {
		return Vote{Choice: ChoiceBuy, Reasoning: fmt.Sprintf("agent %d", agentID)}, nil
	}

	pool, err := NewPool(voter, time.Second, nil)
	require.NoError(t, err)

	votes, err := pool.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, votes, policy.JurySize)

	// 结果按 agent 序号排列，与完成顺序无关。
	for i, vote := range votes {
		assert.Equal(t, i+1, vote.AgentID)
		assert.Equal(t, ChoiceBuy, vote.Choice)
	}
}

func TestCollect_RetriesOnceThenDegrades(t *testing.T) {
	var mu sync.Mutex
	attempts := make(map[int]int)

	voter := func(ctx context.Context, agentID int) (Vote, error) {
		mu.Lock()
		attempts[agentID]++
		n := attempts[agentID]
		mu.Unlock()

		if agentID == 3 {
			return Vote{}, errors.New("model unavailable")
		}
		if agentID == 5 && n == 1 {
			return Vote{}, errors.New("transient failure")
		}
		return Vote{Choice: ChoiceSell, Reasoning: "bearish"}, nil
	}

	pool, err := NewPool(voter, time.Second, nil)
	require.NoError(t, err)

	votes, err := pool.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, votes, policy.JurySize)

	mu.Lock()
	defer mu.Unlock()

	// Agent 3 fails twice and degrades to HOLD.
	assert.Equal(t, 2, attempts[3], "failing voter must be retried exactly once")
	degraded := votes[2]
	assert.Equal(t, ChoiceHold, degraded.Choice)
	assert.True(t, degraded.Degraded)
	assert.Contains(t, degraded.Reasoning, "model unavailable")

	// Agent 5 succeeds on the retry.
	assert.Equal(t, 2, attempts[5])
	assert.Equal(t, ChoiceSell, votes[4].Choice)
	assert.False(t, votes[4].Degraded)
}

func TestCollect_DegradedVotesStillAggregate(t *testing.T) {
	voter := func(ctx context.Context, agentID int) (Vote, error) {
		if agentID%2 == 0 {
			return Vote{}, errors.New("voter down")
		}
		return Vote{Choice: ChoiceBuy, Reasoning: "bullish"}, nil
	}

	pool, err := NewPool(voter, time.Second, nil)
	require.NoError(t, err)

	votes, err := pool.Collect(context.Background())
	require.NoError(t, err)

	result, err := Aggregate(votes)
	require.NoError(t, err)
	assert.Equal(t, Tally{Buy: 5, Sell: 0, Hold: 5}, result.Tally)
	assert.Equal(t, ChoiceEscalated, result.Decision)
}

func TestCollect_CancelAbortsGroup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	voter := func(voteCtx context.Context, agentID int) (Vote, error) {
		if agentID == 1 {
			cancel()
		}
		<-voteCtx.Done()
		return Vote{}, voteCtx.Err()
	}

	pool, err := NewPool(voter, time.Second, nil)
	require.NoError(t, err)

	_, err = pool.Collect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPool_RequiresVoter(t *testing.T) {
	_, err := NewPool(nil, time.Second, nil)
	require.Error(t, err)
}
