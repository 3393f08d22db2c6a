package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"tradecore/internal/config"
	"tradecore/internal/jury"
	"tradecore/internal/quant"
)

// Client 封装 OpenAI 调用逻辑，充当裁定、辩论与陪审员三类协作方。
type Client struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
	sdk    *openai.Client
}

// NewClient 使用给定配置创建 AI 客户端。
func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api_key 不能为空")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sdkConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkConfig.BaseURL = cfg.BaseURL
	}
	sdkConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		sdk:    openai.NewClientWithConfig(sdkConfig),
	}, nil
}

// GenerateVerdict 获取裁定。超时与调用失败同义，由上层决定如何上报。
func (c *Client) GenerateVerdict(ctx context.Context, ticker string, scores quant.ScoreSet) (Verdict, error) {
	scoresPayload, err := scoresJSON(scores)
	if err != nil {
		return Verdict{}, err
	}

	prompt, err := renderPrompt(verdictTmpl, promptContext{Ticker: ticker, ScoresJSON: scoresPayload})
	if err != nil {
		return Verdict{}, err
	}

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return Verdict{}, fmt.Errorf("生成裁定失败: %w", err)
	}

	var verdict Verdict
	if err := unmarshalPayload(raw, &verdict); err != nil {
		c.logger.Error("解析裁定失败", zap.Error(err), zap.String("raw_content", raw))
		return Verdict{}, err
	}
	verdict.Category = VerdictCategory(strings.ToUpper(strings.TrimSpace(string(verdict.Category))))
	if err := verdict.Validate(); err != nil {
		return Verdict{}, err
	}

	// 低信心 VETO 在生成侧降级，核心只会看到最终结论。
	verdict = verdict.Normalize()

	c.logger.Info("裁定生成成功",
		zap.String("ticker", ticker),
		zap.String("category", string(verdict.Category)),
		zap.Float64("confidence", verdict.Confidence),
	)

	return verdict, nil
}

// GenerateDebate 获取一轮多空辩论结果。
func (c *Client) GenerateDebate(ctx context.Context, ticker string, scores quant.ScoreSet) (Debate, error) {
	scoresPayload, err := scoresJSON(scores)
	if err != nil {
		return Debate{}, err
	}

	prompt, err := renderPrompt(debateTmpl, promptContext{Ticker: ticker, ScoresJSON: scoresPayload})
	if err != nil {
		return Debate{}, err
	}

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return Debate{}, fmt.Errorf("生成辩论失败: %w", err)
	}

	var debate Debate
	if err := unmarshalPayload(raw, &debate); err != nil {
		c.logger.Error("解析辩论结果失败", zap.Error(err), zap.String("raw_content", raw))
		return Debate{}, err
	}
	debate.Outcome = DebateOutcome(strings.ToLower(strings.TrimSpace(string(debate.Outcome))))
	if err := debate.Validate(); err != nil {
		return Debate{}, err
	}

	return debate, nil
}

// JuryVoter 返回绑定给定上下文的投票函数，供 jury.Pool 并发调用。
func (c *Client) JuryVoter(ticker string, scores quant.ScoreSet, debate Debate) jury.VoterFunc {
	return func(ctx context.Context, agentID int) (jury.Vote, error) {
		scoresPayload, err := scoresJSON(scores)
		if err != nil {
			return jury.Vote{}, err
		}

		focusArea := FocusAreaFor(agentID)
		prompt, err := renderPrompt(voterTmpl, promptContext{
			Ticker:     ticker,
			ScoresJSON: scoresPayload,
			AgentID:    agentID,
			FocusArea:  focusArea,
			BullCase:   debate.BullCase,
			BearCase:   debate.BearCase,
		})
		if err != nil {
			return jury.Vote{}, err
		}

		raw, err := c.complete(ctx, prompt)
		if err != nil {
			return jury.Vote{}, fmt.Errorf("陪审员 %d 投票失败: %w", agentID, err)
		}

		var payload voterPayload
		if err := unmarshalPayload(raw, &payload); err != nil {
			return jury.Vote{}, err
		}
		if err := payload.validate(); err != nil {
			return jury.Vote{}, err
		}

		if strings.TrimSpace(payload.FocusArea) == "" {
			payload.FocusArea = focusArea
		}

		return jury.Vote{
			AgentID:   agentID,
			Choice:    jury.Choice(strings.ToUpper(strings.TrimSpace(payload.Vote))),
			Reasoning: payload.Reasoning,
			FocusArea: payload.FocusArea,
		}, nil
	}
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	response, err := c.sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("调用OpenAI失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", errors.New("OpenAI 返回结果为空")
	}

	rawContent := strings.TrimSpace(response.Choices[0].Message.Content)
	if rawContent == "" {
		return "", errors.New("OpenAI 返回内容为空")
	}

	return rawContent, nil
}

func unmarshalPayload(content string, target interface{}) error {
	payload, err := extractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("解析模型输出JSON失败: %w", err)
	}
	return nil
}

func extractJSON(content string) ([]byte, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("模型输出未找到有效JSON: %s", content)
	}

	return []byte(content[start : end+1]), nil
}
