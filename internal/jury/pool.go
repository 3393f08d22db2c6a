package jury

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradecore/internal/policy"
)

// VoterFunc 产出单个陪审员的投票，由外部协作方（大模型）实现。
type VoterFunc func(ctx context.Context, agentID int) (Vote, error)

// Pool 并发收集固定规模的陪审团投票。
type Pool struct {
	voter        VoterFunc
	voterTimeout time.Duration
	logger       *zap.Logger
}

// NewPool 创建投票池。
func NewPool(voter VoterFunc, voterTimeout time.Duration, logger *zap.Logger) (*Pool, error) {
	if voter == nil {
		return nil, fmt.Errorf("jury: voter 不能为空")
	}
	if voterTimeout <= 0 {
		voterTimeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		voter:        voter,
		voterTimeout: voterTimeout,
		logger:       logger,
	}, nil
}

// Collect 以 scatter-gather 方式并发发起恰好 policy.JurySize 个投票任务，
// 全部完成后按 agent 序号返回结果。单个任务失败重试一次，
// 两次均失败则降级为带失败原因的 HOLD 票，绝不阻塞整条流水线。
// 调用方取消时整组任务一起取消。
func (p *Pool) Collect(ctx context.Context) ([]Vote, error) {
	votes := make([]Vote, policy.JurySize)

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < policy.JurySize; i++ {
		agentID := i + 1
		group.Go(func() error {
			vote, err := p.voteWithRetry(groupCtx, agentID)
			if err != nil {
				// 只有上下文取消才中止整组，其余失败都已降级吸收。
				return err
			}
			votes[agentID-1] = vote
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("jury: 收集投票被中止: %w", err)
	}

	return votes, nil
}

func (p *Pool) voteWithRetry(ctx context.Context, agentID int) (Vote, error) {
	var lastErr error

	for attempt := 1; attempt <= 2; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Vote{}, ctxErr
		}

		voteCtx, cancel := context.WithTimeout(ctx, p.voterTimeout)
		vote, err := p.voter(voteCtx, agentID)
		cancel()

		if err == nil {
			vote.AgentID = agentID
			return vote, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Vote{}, ctxErr
		}

		p.logger.Warn("陪审员投票失败",
			zap.Int("agent_id", agentID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	// 重试仍失败：降级为 HOLD 票并记录原因，保证裁决可以继续。
	return Vote{
		AgentID:   agentID,
		Choice:    ChoiceHold,
		Reasoning: fmt.Sprintf("投票失败已降级为 HOLD: %v", lastErr),
		FocusArea: "degraded",
		Degraded:  true,
	}, nil
}
