package agent

import (
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/brensch/snekserve/game"
)

// Starter picks uniformly among safe moves and falls back to "down".
type Starter struct {
	info   game.SnakeInfo
	logger *log.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

var _ Agent = (*Starter)(nil)

// NewStarter creates a Starter. A zero seed seeds from the clock.
func NewStarter(info game.SnakeInfo, seed int64, logger *log.Logger) *Starter {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Starter{
		info:   info,
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (s *Starter) Info() game.SnakeInfo {
	return s.info
}

func (s *Starter) OnGameStart(state *game.GameState) {
	s.logger.Info("game start", "turn", state.Turn, "you", game.StringValue(state.You.Name))
}

func (s *Starter) OnGameEnd(state *game.GameState) {
	s.logger.Info("game end", "turn", state.Turn, "you", game.StringValue(state.You.Name))
}

func (s *Starter) DecideMove(state *game.GameState) game.MoveResult {
	moves := SafeMoves(state)
	if len(moves) == 0 {
		s.logger.Warn("no safe moves", "turn", state.Turn, "fallback", game.FallbackMove)
		return game.MoveResult{Move: game.FallbackMove}
	}

	s.mu.Lock()
	idx := s.rng.Intn(len(moves))
	s.mu.Unlock()

	s.logger.Debug("move", "turn", state.Turn, "safe", len(moves), "move", moves[idx])
	return game.MoveResult{Move: moves[idx]}
}

// SafeMoves returns the directions that keep You on the board and out of
// every snake body, never including a step back onto the neck.
func SafeMoves(state *game.GameState) []game.Direction {
	you := &state.You
	head := you.HeadCoord()
	neck, hasNeck := you.Neck()

	moves := make([]game.Direction, 0, len(game.Directions))
	for _, d := range game.Directions {
		p := d.Apply(head)
		if hasNeck && p == neck {
			continue
		}
		if !isSafe(state, p) {
			continue
		}
		moves = append(moves, d)
	}
	return moves
}

func isSafe(state *game.GameState, p game.Coord) bool {
	// An unknown board size disables the bounds check.
	if state.Board.Width > 0 && state.Board.Height > 0 && !state.Board.InBounds(p) {
		return false
	}
	if state.Board.Occupied(p) {
		return false
	}
	// Board.Snakes normally includes You, but do not rely on it.
	for _, bp := range state.You.Body {
		if bp == p {
			return false
		}
	}
	return true
}
