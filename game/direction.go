package game

// Direction is a move answer understood by the engine.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// FallbackMove is answered whenever no safe or valid move is known.
const FallbackMove = Down

// Directions lists every move in a stable order.
var Directions = [...]Direction{Up, Down, Left, Right}

// Valid reports whether d is one of the four cardinal moves.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Apply returns the coordinate one step from c in direction d.
// An invalid direction leaves c unchanged.
func (d Direction) Apply(c Coord) Coord {
	switch d {
	case Up:
		c.Y++
	case Down:
		c.Y--
	case Left:
		c.X--
	case Right:
		c.X++
	}
	return c
}
