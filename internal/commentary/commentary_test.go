package commentary

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrabble-score/internal/config"
)

type fakeCompleter struct {
	text      string
	err       error
	prompts   []string
	maxTokens []int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, maxTokens int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.maxTokens = append(f.maxTokens, maxTokens)
	return f.text, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSlowTurnQuip(t *testing.T) {
	ctx := context.Background()

	t.Run("uses completion", func(t *testing.T) {
		fake := &fakeCompleter{text: "  Bob is carving each tile by hand.  "}
		g := NewGenerator(fake, discardLogger())

		assert.Equal(t, "Bob is carving each tile by hand.", g.SlowTurnQuip(ctx, "Bob", 90*time.Second))
		require.Len(t, fake.prompts, 1)
		assert.Contains(t, fake.prompts[0], "mocking Bob for taking 1 minute on")
		assert.Equal(t, quipMaxTokens, fake.maxTokens[0])

		g.SlowTurnQuip(ctx, "Bob", 3*time.Minute)
		assert.Contains(t, fake.prompts[1], "taking 3 minutes on")
	})

	t.Run("cycles fallbacks on failure", func(t *testing.T) {
		g := NewGenerator(&fakeCompleter{err: errors.New("boom")}, discardLogger())
		var got []string
		for i := 0; i < len(slowTurnFallbacks)+1; i++ {
			got = append(got, g.SlowTurnQuip(ctx, "Bob", 2*time.Minute))
		}
		assert.Equal(t, "Bob is playing Scrabble or writing a novel?", got[0])
		assert.Equal(t, "Did Bob fall asleep on the tiles?", got[1])
		assert.Equal(t, `Bob: Making "quick thinking" an oxymoron since today.`, got[4])
		assert.Equal(t, got[0], got[5])
	})

	t.Run("blank completion falls back", func(t *testing.T) {
		g := NewGenerator(&fakeCompleter{text: "   "}, discardLogger())
		assert.Equal(t, "Bob is playing Scrabble or writing a novel?", g.SlowTurnQuip(ctx, "Bob", 2*time.Minute))
	})
}

func TestVictoryPoem(t *testing.T) {
	ctx := context.Background()

	fake := &fakeCompleter{text: "Roses are red"}
	g := NewGenerator(fake, discardLogger())
	assert.Equal(t, "Roses are red", g.VictoryPoem(ctx, "Alice", "Bob", 50, 30))
	assert.Contains(t, fake.prompts[0], "praising Alice for their glorious Scrabble victory over Bob. The final score was 50 to 30.")
	assert.Equal(t, poemMaxTokens, fake.maxTokens[0])

	disabled := NewGenerator(nil, discardLogger())
	poem := disabled.VictoryPoem(ctx, "Alice", "Bob", 50, 30)
	assert.Equal(t, "All hail Alice, the Scrabble sovereign!\n"+
		"Whose letters aligned in ways most buoyant!\n"+
		"While Bob tried their best, it's true,\n"+
		"But 50 to 30? There's nothing they could do!", poem)
}

type sentMessage struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got sentMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",`+
			`"content":[{"type":"text","text":"Line one"},{"type":"text","text":"Line two"}],`+
			`"stop_reason":"end_turn","usage":{"input_tokens":5,"output_tokens":4}}`)
	}))
	defer srv.Close()

	client := NewAnthropicClient(&config.CommentaryConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/",
		Model:   "claude-sonnet-4-20250514",
		Timeout: time.Second,
	})

	text, err := client.Complete(context.Background(), "write", 200)
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two", text)
	assert.Equal(t, "claude-sonnet-4-20250514", got.Model)
	assert.Equal(t, 200, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 1)
	assert.Equal(t, "write", got.Messages[0].Content[0].Text)
}

func TestAnthropicClient_Errors(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"content":`)
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","content":[]}`)
		},
	}
	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			client := NewAnthropicClient(&config.CommentaryConfig{
				APIKey:  "sk-test",
				BaseURL: srv.URL,
				Model:   "claude-sonnet-4-20250514",
				Timeout: time.Second,
			})
			_, err := client.Complete(context.Background(), "write", 200)
			assert.Error(t, err)
		})
	}
}
