package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/metrics"
	openai "github.com/sashabaranov/go-openai"
)

// Summarizer 检索结果摘要接口，调用方按尽力而为处理失败
type Summarizer interface {
	Summarize(ctx context.Context, texts []string) (string, error)
	Ready() bool
}

// OpenAISummarizer 使用Chat Completion生成摘要
type OpenAISummarizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAISummarizer 创建摘要器，apiKey 为空时返回 nil
func NewOpenAISummarizer(apiKey, model string, timeout time.Duration) *OpenAISummarizer {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = defaultAICallTimeout
	}
	return &OpenAISummarizer{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

func (s *OpenAISummarizer) Ready() bool {
	return s != nil && s.client != nil
}

// Summarize 将多段检索文本合并为一段摘要
func (s *OpenAISummarizer) Summarize(ctx context.Context, texts []string) (string, error) {
	if len(texts) == 0 {
		return "", nil
	}

	joined := strings.Join(texts, "\n---\n")
	prompt := fmt.Sprintf("用一段话总结以下内容：\n\n%s", joined)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	metrics.AICallDuration.WithLabelValues("summarize").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AICalls.WithLabelValues("summarize", "error").Inc()
		return "", apperrors.NewExternalServiceError("openai", err)
	}
	if len(resp.Choices) == 0 {
		metrics.AICalls.WithLabelValues("summarize", "error").Inc()
		return "", apperrors.NewExternalServiceError("openai", fmt.Errorf("empty chat response"))
	}
	metrics.AICalls.WithLabelValues("summarize", "ok").Inc()

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
