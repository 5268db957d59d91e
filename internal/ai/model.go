// Package ai 封装简历分析与职位检索参数提取所用的大模型调用。
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared/constant"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gpt-4o-mini"

// Model 返回提示词对应的 JSON 文本补全。
type Model interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// OpenAIModel 基于 OpenAI Chat Completions 实现 Model。
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel 构造 OpenAIModel；apiKey 为空时返回 nil，调用方据此进入示例数据模式。
func NewOpenAIModel(apiKey, model string, opts ...option.RequestOption) *OpenAIModel {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = DefaultModel
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIModel{client: &client, model: model}
}

// Complete requests a JSON object response at low temperature.
func (m *OpenAIModel) Complete(ctx context.Context, system, prompt string) (string, error) {
	completion, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(m.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: constant.JSONObject("json_object"),
			},
		},
		Temperature: openai.Float(0.2),
		MaxTokens:   openai.Int(1500),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no response from openai")
	}
	return completion.Choices[0].Message.Content, nil
}
