package receipt

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel is the default OpenAI vision model.
const DefaultOpenAIModel = "gpt-4o-mini"

// ChatCompleter is the part of the OpenAI SDK used for extraction.
// *openai.ChatCompletionService implements it.
type ChatCompleter interface {
	New(
		ctx context.Context,
		body openai.ChatCompletionNewParams,
		opts ...option.RequestOption,
	) (*openai.ChatCompletion, error)
}

// OpenAICompleter calls the chat completions endpoint with the receipt image
// attached as a data URL.
type OpenAICompleter struct {
	chat ChatCompleter
}

// NewOpenAICompleter creates a completer for the given key and base URL.
func NewOpenAICompleter(apiKey, baseURL string, httpClient *http.Client) *OpenAICompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	client := openai.NewClient(opts...)
	return &OpenAICompleter{chat: &client.Chat.Completions}
}

// NewOpenAICompleterWithChat creates a completer around a custom
// ChatCompleter. Used in tests.
func NewOpenAICompleterWithChat(chat ChatCompleter) *OpenAICompleter {
	return &OpenAICompleter{chat: chat}
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL:    req.DataURL(),
					Detail: "high",
				}),
			}),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if req.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxOutputTokens))
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("no choices in chat completion")
	}
	return resp.Choices[0].Message.Content, nil
}
