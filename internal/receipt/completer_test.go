package receipt

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"gitlab.com/storeops/inventory-expense/internal/config"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

type fakeChat struct {
	resp   *openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
}

func (f *fakeChat) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.params = body
	return f.resp, f.err
}

type fakeGenerator struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	config *genai.GenerateContentConfig
	parts  []*genai.Part
}

func (f *fakeGenerator) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 {
		f.parts = contents[0].Parts
	}
	return f.resp, f.err
}

func testRequest() CompletionRequest {
	return CompletionRequest{
		Model:           "gpt-4o-mini",
		SystemPrompt:    DefaultExtractionPrompt,
		Image:           []byte{0xff, 0xd8},
		MimeType:        "image/jpeg",
		MaxOutputTokens: MaxOutputTokens,
	}
}

func TestNewCompleter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing OpenAI key is a configuration error", func(t *testing.T) {
		t.Parallel()
		c, err := NewCompleter(ctx, &config.Config{AIProvider: config.ProviderOpenAI})
		require.Nil(t, c)
		require.True(t, models.IsConfigurationError(err))
		require.Equal(t, MsgOpenAIKeyMissing, err.Error())
	})

	t.Run("missing Gemini key is a configuration error", func(t *testing.T) {
		t.Parallel()
		c, err := NewCompleter(ctx, &config.Config{AIProvider: config.ProviderGemini, OpenAIAPIKey: "sk-test"})
		require.Nil(t, c)
		require.True(t, models.IsConfigurationError(err))
		require.Contains(t, err.Error(), "GEMINI_API_KEY")
	})

	t.Run("builds OpenAI completer", func(t *testing.T) {
		t.Parallel()
		c, err := NewCompleter(ctx, &config.Config{
			AIProvider:    config.ProviderOpenAI,
			OpenAIAPIKey:  "sk-test",
			OpenAIBaseURL: "https://api.openai.com/v1",
		})
		require.NoError(t, err)
		require.IsType(t, &OpenAICompleter{}, c)
	})

	t.Run("builds Gemini completer", func(t *testing.T) {
		t.Parallel()
		c, err := NewCompleter(ctx, &config.Config{AIProvider: config.ProviderGemini, GeminiAPIKey: "test-key"})
		require.NoError(t, err)
		require.IsType(t, &GeminiCompleter{}, c)
	})
}

func TestDefaultModel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "gpt-4o-mini", DefaultModel(config.ProviderOpenAI))
	require.Equal(t, "gemini-2.5-flash", DefaultModel(config.ProviderGemini))
}

func TestOpenAICompleter_Complete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns first choice content", func(t *testing.T) {
		t.Parallel()
		chat := &fakeChat{resp: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: `{"total": 10}`}},
			},
		}}
		c := NewOpenAICompleterWithChat(chat)

		content, err := c.Complete(ctx, testRequest())
		require.NoError(t, err)
		require.Equal(t, `{"total": 10}`, content)

		require.Equal(t, "gpt-4o-mini", string(chat.params.Model))
		require.Len(t, chat.params.Messages, 2)
		require.NotNil(t, chat.params.Messages[0].OfSystem)
		require.NotNil(t, chat.params.Messages[1].OfUser)
		require.NotNil(t, chat.params.ResponseFormat.OfJSONObject)
		require.Equal(t, openai.Int(500), chat.params.MaxTokens)
	})

	t.Run("no choices", func(t *testing.T) {
		t.Parallel()
		c := NewOpenAICompleterWithChat(&fakeChat{resp: &openai.ChatCompletion{}})
		_, err := c.Complete(ctx, testRequest())
		require.Error(t, err)
	})

	t.Run("wraps SDK errors", func(t *testing.T) {
		t.Parallel()
		c := NewOpenAICompleterWithChat(&fakeChat{err: errors.New("401 unauthorized")})
		_, err := c.Complete(ctx, testRequest())
		require.Error(t, err)
		require.Contains(t, err.Error(), "401 unauthorized")
	})
}

func TestGeminiCompleter_Complete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("joins text parts and sends inline image", func(t *testing.T) {
		t.Parallel()
		gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{Text: `{"total":`}, {Text: ` 10}`}}}},
			},
		}}
		c := NewGeminiCompleterWithGenerator(gen)

		req := testRequest()
		req.Model = DefaultGeminiModel
		content, err := c.Complete(ctx, req)
		require.NoError(t, err)
		require.Equal(t, `{"total": 10}`, content)

		require.Equal(t, DefaultGeminiModel, gen.model)
		require.Equal(t, "application/json", gen.config.ResponseMIMEType)
		require.Equal(t, int32(500), gen.config.MaxOutputTokens)
		require.Equal(t, DefaultExtractionPrompt, gen.config.SystemInstruction.Parts[0].Text)
		require.Len(t, gen.parts, 1)
		require.Equal(t, "image/jpeg", gen.parts[0].InlineData.MIMEType)
	})

	t.Run("empty candidates", func(t *testing.T) {
		t.Parallel()
		c := NewGeminiCompleterWithGenerator(&fakeGenerator{resp: &genai.GenerateContentResponse{}})
		_, err := c.Complete(ctx, testRequest())
		require.Error(t, err)
	})

	t.Run("generator error", func(t *testing.T) {
		t.Parallel()
		c := NewGeminiCompleterWithGenerator(&fakeGenerator{err: errors.New("quota exceeded")})
		_, err := c.Complete(ctx, testRequest())
		require.ErrorContains(t, err, "quota exceeded")
	})
}
