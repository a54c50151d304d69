package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/metrics"
	openai "github.com/sashabaranov/go-openai"
)

// SectionCatalogEntry 分类候选分区
type SectionCatalogEntry struct {
	SectionID   uint
	Name        string
	Description string
}

// Classification 分类结果
// 置信度是二值的：命中分区为 1.0，模型返回 None 为 0.0。
// SectionID 来自模型输出，属于不可信外键，使用前必须对照候选目录校验。
type Classification struct {
	PredictedSectionName string  `json:"predicted_section_name"`
	SectionID            *uint   `json:"section_id"`
	ConfidenceScore      float64 `json:"confidence_score"`
}

// Classifier 文本分类接口
type Classifier interface {
	Classify(ctx context.Context, text string, catalog []SectionCatalogEntry) (*Classification, error)
	Ready() bool
}

// classifierResponse 模型必须返回的严格两字段结构
type classifierResponse struct {
	PredictedSectionName string `json:"predicted_section_name"`
	SectionID            *uint  `json:"section_id"`
}

// OpenAIClassifier 使用Chat Completion做分区分类
type OpenAIClassifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClassifier 创建分类器，apiKey 为空时返回 nil
func NewOpenAIClassifier(apiKey, model string, timeout time.Duration) *OpenAIClassifier {
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
	return &OpenAIClassifier{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

func (c *OpenAIClassifier) Ready() bool {
	return c != nil && c.client != nil
}

// Classify 将文本匹配到候选分区之一，或返回 None
func (c *OpenAIClassifier) Classify(ctx context.Context, text string, catalog []SectionCatalogEntry) (*Classification, error) {
	if len(catalog) == 0 {
		return nil, apperrors.NewValidationError("sections catalog is empty")
	}

	prompt := buildClassifyPrompt(text, catalog)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "你是一个分类助手。只输出JSON，不要输出任何其他内容。",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0,
	})
	metrics.AICallDuration.WithLabelValues("classify").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AICalls.WithLabelValues("classify", "error").Inc()
		return nil, apperrors.NewExternalServiceError("openai", err)
	}
	if len(resp.Choices) == 0 {
		metrics.AICalls.WithLabelValues("classify", "error").Inc()
		return nil, apperrors.NewExternalServiceError("openai", fmt.Errorf("empty chat response"))
	}
	metrics.AICalls.WithLabelValues("classify", "ok").Inc()

	return ParseClassification(resp.Choices[0].Message.Content)
}

// ParseClassification 严格解析模型输出
// 非法JSON或缺字段是硬性校验失败，不做静默默认。
func ParseClassification(raw string) (*Classification, error) {
	cleaned := stripCodeFence(raw)

	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.DisallowUnknownFields()

	var parsed classifierResponse
	if err := decoder.Decode(&parsed); err != nil {
		return nil, apperrors.NewValidationError("classification response is not valid JSON").WithCause(err)
	}
	if parsed.PredictedSectionName == "" {
		return nil, apperrors.NewValidationError("classification response missing predicted_section_name")
	}

	result := &Classification{
		PredictedSectionName: parsed.PredictedSectionName,
		SectionID:            parsed.SectionID,
	}
	if parsed.PredictedSectionName == "None" {
		result.SectionID = nil
		result.ConfidenceScore = 0.0
	} else {
		result.ConfidenceScore = 1.0
	}
	return result, nil
}

func buildClassifyPrompt(text string, catalog []SectionCatalogEntry) string {
	var builder strings.Builder
	builder.WriteString("将下面的文本归类到一个最合适的分区。候选分区：\n")
	for _, entry := range catalog {
		desc := entry.Description
		if desc == "" {
			desc = entry.Name
		}
		builder.WriteString(fmt.Sprintf("- 名称: %s, 描述: %s, ID: %d\n", entry.Name, desc, entry.SectionID))
	}
	builder.WriteString("\n文本：\n")
	builder.WriteString(text)
	builder.WriteString("\n\n如果没有合适的分区，predicted_section_name 填 \"None\"，section_id 填 null。")
	builder.WriteString("\n只返回如下JSON：{\"predicted_section_name\": \"...\", \"section_id\": 数字或null}")
	return builder.String()
}

// stripCodeFence 去掉模型常见的 markdown 代码块包裹
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
