package receipt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	image := []byte{0x89, 'P', 'N', 'G'}

	t.Run("maps all four fields", func(t *testing.T) {
		t.Parallel()
		fc := &fakeCompleter{content: `{"vendor_name": "Costco Business Center", "date": "2024-01-05", "subtotal": 100.00, "total": 109.00}`}
		x := NewExtractor(fc)

		res := x.Extract(ctx, image, "image/png", ModelConfig{Model: "gpt-4o-mini"})
		require.NotNil(t, res)
		require.Equal(t, "Costco Business Center", *res.VendorName)
		require.Equal(t, "2024-01-05", *res.Date)
		require.Equal(t, "100.00", res.Subtotal.StringFixed(2))
		require.Equal(t, "109.00", res.Total.StringFixed(2))
	})

	t.Run("sends one bounded request with the default prompt", func(t *testing.T) {
		t.Parallel()
		fc := &fakeCompleter{content: `{}`}
		x := NewExtractor(fc)

		x.Extract(ctx, image, "image/png", ModelConfig{Model: "gpt-4o"})
		require.Equal(t, 1, fc.calls)
		require.Equal(t, "gpt-4o", fc.last.Model)
		require.Equal(t, DefaultExtractionPrompt, fc.last.SystemPrompt)
		require.Equal(t, MaxOutputTokens, fc.last.MaxOutputTokens)
		require.Equal(t, "image/png", fc.last.MimeType)
		require.Equal(t, image, fc.last.Image)
	})

	t.Run("custom prompt and default mime type", func(t *testing.T) {
		t.Parallel()
		fc := &fakeCompleter{content: `{}`}
		x := NewExtractor(fc)

		x.Extract(ctx, image, "", ModelConfig{Model: "m", Prompt: "read it"})
		require.Equal(t, "read it", fc.last.SystemPrompt)
		require.Equal(t, "image/jpeg", fc.last.MimeType)
	})

	t.Run("collaborator error yields nil without retry", func(t *testing.T) {
		t.Parallel()
		fc := &fakeCompleter{err: errors.New("connection reset")}
		x := NewExtractor(fc)

		require.Nil(t, x.Extract(ctx, image, "image/jpeg", ModelConfig{Model: "m"}))
		require.Equal(t, 1, fc.calls)
	})

	t.Run("malformed json yields nil", func(t *testing.T) {
		t.Parallel()
		x := NewExtractor(&fakeCompleter{content: `{"vendor_name": "Walmart", "total": `})
		require.Nil(t, x.Extract(ctx, image, "image/jpeg", ModelConfig{Model: "m"}))
	})

	t.Run("empty content yields nil", func(t *testing.T) {
		t.Parallel()
		x := NewExtractor(&fakeCompleter{content: "  "})
		require.Nil(t, x.Extract(ctx, image, "image/jpeg", ModelConfig{Model: "m"}))
	})
}

func TestParseResponse(t *testing.T) {
	t.Parallel()

	t.Run("null and missing fields stay nil", func(t *testing.T) {
		t.Parallel()
		res, err := ParseResponse(`{"vendor_name": "Walmart", "date": null, "subtotal": null}`)
		require.NoError(t, err)
		require.Equal(t, "Walmart", *res.VendorName)
		require.Nil(t, res.Date)
		require.Nil(t, res.Subtotal)
		require.Nil(t, res.Total)
	})

	t.Run("numeric strings are accepted", func(t *testing.T) {
		t.Parallel()
		res, err := ParseResponse(`{"subtotal": "50.00", "total": " 54.50 "}`)
		require.NoError(t, err)
		require.Equal(t, "50.00", res.Subtotal.StringFixed(2))
		require.Equal(t, "54.50", res.Total.StringFixed(2))
	})

	t.Run("unreadable values map to nil", func(t *testing.T) {
		t.Parallel()
		res, err := ParseResponse(`{"vendor_name": "", "date": 20240105, "subtotal": "about ten", "total": true}`)
		require.NoError(t, err)
		require.Nil(t, res.VendorName)
		require.Nil(t, res.Date)
		require.Nil(t, res.Subtotal)
		require.Nil(t, res.Total)
	})

	t.Run("markdown fences are stripped", func(t *testing.T) {
		t.Parallel()
		res, err := ParseResponse("```json\n{\"vendor_name\": \"Store\", \"total\": 10.5}\n```")
		require.NoError(t, err)
		require.Equal(t, "Store", *res.VendorName)
		require.Equal(t, "10.50", res.Total.StringFixed(2))
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		for _, input := range []string{"", "not json", `["a"]`, `{"total": }`} {
			_, err := ParseResponse(input)
			require.Error(t, err, "input %q", input)
		}
	})

	t.Run("sentinel errors", func(t *testing.T) {
		t.Parallel()
		_, err := ParseResponse("```json\n  \n```")
		require.ErrorIs(t, err, ErrEmptyResponse)

		_, err = ParseResponse(`["a"]`)
		require.ErrorIs(t, err, ErrNotJSONObject)
	})
}

func TestMimeType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
	}{
		{"receipt.jpg", "image/jpeg"},
		{"receipt.JPEG", "image/jpeg"},
		{"scan.png", "image/png"},
		{"anim.gif", "image/gif"},
		{"photo.webp", "image/webp"},
		{"invoice.pdf", "application/pdf"},
		{"archive.tar.gz", "image/jpeg"},
		{"noextension", "image/jpeg"},
		{"", "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, MimeType(tt.filename))
		})
	}
}

func TestCompletionRequest_DataURL(t *testing.T) {
	t.Parallel()

	req := CompletionRequest{Image: []byte("hi"), MimeType: "image/png"}
	require.Equal(t, "data:image/png;base64,aGk=", req.DataURL())
}
