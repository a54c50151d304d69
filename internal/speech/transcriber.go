package speech

import (
	"bytes"
	"context"
	"strings"
	"time"

	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/metrics"
	openai "github.com/sashabaranov/go-openai"
)

// Transcriber 语音转文字接口
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	Ready() bool
}

// defaultTranscribeTimeout 未配置超时时的兜底值，音频转写偏慢
const defaultTranscribeTimeout = 30 * time.Second

// WhisperTranscriber 使用OpenAI Whisper API
type WhisperTranscriber struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewWhisperTranscriber 创建转写器，apiKey 为空时返回 nil
func NewWhisperTranscriber(apiKey, model string, timeout time.Duration) *WhisperTranscriber {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = openai.Whisper1
	}
	if timeout <= 0 {
		timeout = defaultTranscribeTimeout
	}
	return &WhisperTranscriber{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

func (t *WhisperTranscriber) Ready() bool {
	return t != nil && t.client != nil
}

// Transcribe 将音频字节转为文本
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", apperrors.NewValidationError("audio is empty")
	}
	if filename == "" {
		filename = "audio.mp3"
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	metrics.AICallDuration.WithLabelValues("transcribe").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AICalls.WithLabelValues("transcribe", "error").Inc()
		return "", apperrors.NewExternalServiceError("whisper", err)
	}
	metrics.AICalls.WithLabelValues("transcribe", "ok").Inc()

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", apperrors.NewValidationError("transcription produced no text")
	}
	return text, nil
}
