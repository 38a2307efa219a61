package commentary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

const (
	quipMaxTokens = 200
	poemMaxTokens = 1000
)

// DrawPoem is shown when a game ends level. It never needs a remote call.
const DrawPoem = "A draw! Both minds equally matched,\n" +
	"No victor, no vanquished, no pride scratched.\n" +
	"Shake hands, dear foes, and play once more,\n" +
	"For next time, someone must settle the score!"

var slowTurnFallbacks = []string{
	"%s is playing Scrabble or writing a novel?",
	"Did %s fall asleep on the tiles?",
	"%s's turn sponsored by continental drift.",
	"Somewhere, a glacier moved faster than %s.",
	"%s: Making \"quick thinking\" an oxymoron since today.",
}

// Generator produces commentary, falling back to fixed text whenever the
// completer is missing or fails. Its methods always return usable text.
type Generator struct {
	completer Completer
	logger    *slog.Logger
	next      atomic.Uint64
}

// NewGenerator creates a generator. A nil completer always uses the fallbacks.
func NewGenerator(completer Completer, logger *slog.Logger) *Generator {
	return &Generator{completer: completer, logger: logger}
}

// SlowTurnQuip mocks a player for a long turn
func (g *Generator) SlowTurnQuip(ctx context.Context, player string, duration time.Duration) string {
	if text, ok := g.complete(ctx, quipPrompt(player, duration), quipMaxTokens); ok {
		return text
	}
	i := g.next.Add(1) - 1
	return fmt.Sprintf(slowTurnFallbacks[i%uint64(len(slowTurnFallbacks))], player)
}

// VictoryPoem celebrates the winner over the loser
func (g *Generator) VictoryPoem(ctx context.Context, winner, loser string, winnerScore, loserScore int) string {
	if text, ok := g.complete(ctx, poemPrompt(winner, loser, winnerScore, loserScore), poemMaxTokens); ok {
		return text
	}
	return fallbackPoem(winner, loser, winnerScore, loserScore)
}

func (g *Generator) complete(ctx context.Context, prompt string, maxTokens int) (string, bool) {
	if g.completer == nil {
		return "", false
	}
	text, err := g.completer.Complete(ctx, prompt, maxTokens)
	if err != nil {
		g.logger.Debug("commentary unavailable, using fallback", "error", err)
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func quipPrompt(player string, duration time.Duration) string {
	minutes := int(duration / time.Minute)
	plural := ""
	if minutes > 1 {
		plural = "s"
	}
	return fmt.Sprintf("Write a single short, cheeky one-liner (max 15 words) gently mocking %s "+
		"for taking %d minute%s on their Scrabble turn. Be playful and funny, not mean. "+
		"Just the quip, nothing else.", player, minutes, plural)
}

func poemPrompt(winner, loser string, winnerScore, loserScore int) string {
	return fmt.Sprintf("Write a short, playful, slightly over-the-top celebratory poem (4-6 lines) "+
		"praising %s for their glorious Scrabble victory over %s. The final score was %d to %d. "+
		"Be funny and theatrical, perhaps gently teasing the loser. Keep it lighthearted and fun. "+
		"Just the poem, no introduction.", winner, loser, winnerScore, loserScore)
}

func fallbackPoem(winner, loser string, winnerScore, loserScore int) string {
	return fmt.Sprintf("All hail %s, the Scrabble sovereign!\n"+
		"Whose letters aligned in ways most buoyant!\n"+
		"While %s tried their best, it's true,\n"+
		"But %d to %d? There's nothing they could do!", winner, loser, winnerScore, loserScore)
}
