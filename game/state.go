// Package game defines the Battlesnake game state model served to agents.
//
// Every GameState is built fresh from one request body and owns all of its
// strings and slices; nothing is shared between requests. Optional string
// fields are pointers so that an absent key stays distinguishable from an
// empty string.
package game

// Coord is a board coordinate.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Customizations are the optional appearance overrides reported for a snake.
type Customizations struct {
	Color *string `json:"color,omitempty"`
	Head  *string `json:"head,omitempty"`
	Tail  *string `json:"tail,omitempty"`
}

// Snake is one snake on the board. Body is head-first; Length is whatever
// the engine declared and is not reconciled against len(Body).
type Snake struct {
	ID             *string         `json:"id,omitempty"`
	Name           *string         `json:"name,omitempty"`
	Health         int             `json:"health"`
	Length         int             `json:"length"`
	Head           Coord           `json:"head"`
	Body           []Coord         `json:"body"`
	Customizations *Customizations `json:"customizations,omitempty"`
}

// Board is the grid snapshot for one turn.
type Board struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Food    []Coord `json:"food"`
	Hazards []Coord `json:"hazards"`
	Snakes  []Snake `json:"snakes"`
}

// GameState is the complete snapshot handed to an agent for one request.
// The engine also lists You inside Board.Snakes; it is not deduplicated.
type GameState struct {
	Turn  int   `json:"turn"`
	Board Board `json:"board"`
	You   Snake `json:"you"`
}

// SnakeInfo is the appearance returned from the info operation.
type SnakeInfo struct {
	Color string `json:"color"`
	Head  string `json:"head"`
	Tail  string `json:"tail"`
}

// MoveResult is an agent's answer to a move request. Taunt is omitted from
// the reply only when nil; a non-nil empty string is sent as "".
type MoveResult struct {
	Move  Direction `json:"move"`
	Taunt *string   `json:"taunt,omitempty"`
}

// StringValue returns *p, or "" when p is nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// HeadCoord returns the snake's head. body[0] is preferred when present,
// otherwise the parsed head field (zero when that was absent too).
func (s *Snake) HeadCoord() Coord {
	if len(s.Body) > 0 {
		return s.Body[0]
	}
	return s.Head
}

// Neck returns body[1] and true, or false when the body is shorter than two.
func (s *Snake) Neck() (Coord, bool) {
	if len(s.Body) < 2 {
		return Coord{}, false
	}
	return s.Body[1], true
}

// InBounds reports whether c lies on the board.
func (b *Board) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < b.Width && c.Y >= 0 && c.Y < b.Height
}

// Occupied reports whether any snake body segment sits on c.
func (b *Board) Occupied(c Coord) bool {
	for _, s := range b.Snakes {
		for _, p := range s.Body {
			if p == c {
				return true
			}
		}
	}
	return false
}
