// Package agent defines the callbacks the HTTP harness invokes at each
// lifecycle point of a game, plus a small default agent.
package agent

import "github.com/brensch/snekserve/game"

// Agent is implemented by a snake. The router calls it synchronously, one
// call per request, and has no timeout of its own: implementations must
// return in bounded time. Calls for different games may run concurrently.
type Agent interface {
	// Info describes the snake's appearance. It may be called at any time.
	Info() game.SnakeInfo
	// OnGameStart is called once when a game begins.
	OnGameStart(state *game.GameState)
	// DecideMove chooses the next move. It should always return one of the
	// four directions, using game.FallbackMove when undecided.
	DecideMove(state *game.GameState) game.MoveResult
	// OnGameEnd is called once when a game finishes.
	OnGameEnd(state *game.GameState)
}

// Funcs adapts plain functions to Agent. Nil fields fall back to defaults:
// an empty SnakeInfo, no-op start/end, and game.FallbackMove.
type Funcs struct {
	InfoFunc  func() game.SnakeInfo
	StartFunc func(*game.GameState)
	MoveFunc  func(*game.GameState) game.MoveResult
	EndFunc   func(*game.GameState)
}

var _ Agent = Funcs{}

func (f Funcs) Info() game.SnakeInfo {
	if f.InfoFunc == nil {
		return game.SnakeInfo{}
	}
	return f.InfoFunc()
}

func (f Funcs) OnGameStart(state *game.GameState) {
	if f.StartFunc != nil {
		f.StartFunc(state)
	}
}

func (f Funcs) DecideMove(state *game.GameState) game.MoveResult {
	if f.MoveFunc == nil {
		return game.MoveResult{Move: game.FallbackMove}
	}
	return f.MoveFunc(state)
}

func (f Funcs) OnGameEnd(state *game.GameState) {
	if f.EndFunc != nil {
		f.EndFunc(state)
	}
}
