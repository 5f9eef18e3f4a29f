package game

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var (
	// ErrInvalidJSON is returned when a body is empty or not valid JSON.
	ErrInvalidJSON = errors.New("invalid json")
	// ErrNotObject is returned when the document root is not a JSON object.
	ErrNotObject = errors.New("game state is not a json object")
)

// ParseGameState decodes an engine request body into a GameState.
//
// Only a body that is not JSON, or whose root is not an object, is an
// error. Every missing or mistyped field below the root defaults to its
// zero value.
func ParseGameState(data []byte) (*GameState, error) {
	if len(bytes.TrimSpace(data)) == 0 || !json.Valid(data) {
		return nil, ErrInvalidJSON
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return DecodeGameState(doc)
}

// DecodeGameState converts an already decoded JSON document (as produced by
// a decoder with UseNumber) into a GameState.
func DecodeGameState(doc any) (*GameState, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}

	state := &GameState{
		Turn: intField(root, "turn"),
	}

	if board, ok := objectField(root, "board"); ok {
		state.Board.Width = intField(board, "width")
		state.Board.Height = intField(board, "height")
		state.Board.Food = coordsField(board, "food")
		state.Board.Hazards = coordsField(board, "hazards")

		if raw, ok := arrayField(board, "snakes"); ok {
			state.Board.Snakes = make([]Snake, len(raw))
			for i, v := range raw {
				obj, _ := v.(map[string]any)
				state.Board.Snakes[i] = parseSnake(obj)
			}
		}
	}

	you, _ := objectField(root, "you")
	state.You = parseSnake(you)

	return state, nil
}

// parseSnake tolerates a nil object and yields a zero Snake for it.
func parseSnake(obj map[string]any) Snake {
	s := Snake{
		ID:     stringField(obj, "id"),
		Name:   stringField(obj, "name"),
		Health: intField(obj, "health"),
		Length: intField(obj, "length"),
		Body:   coordsField(obj, "body"),
	}
	if head, ok := objectField(obj, "head"); ok {
		s.Head = parseCoord(head)
	}
	if cust, ok := objectField(obj, "customizations"); ok {
		s.Customizations = &Customizations{
			Color: stringField(cust, "color"),
			Head:  stringField(cust, "head"),
			Tail:  stringField(cust, "tail"),
		}
	}
	return s
}

func parseCoord(obj map[string]any) Coord {
	return Coord{X: intField(obj, "x"), Y: intField(obj, "y")}
}

// coordsField returns a slice sized exactly to the source array, or nil
// when the key is absent or not an array.
func coordsField(obj map[string]any, key string) []Coord {
	raw, ok := arrayField(obj, key)
	if !ok {
		return nil
	}
	out := make([]Coord, len(raw))
	for i, v := range raw {
		c, _ := v.(map[string]any)
		out[i] = parseCoord(c)
	}
	return out
}

func intField(obj map[string]any, key string) int {
	switch v := obj[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case float64:
		// Documents decoded without UseNumber.
		if v == float64(int64(v)) {
			return int(v)
		}
	}
	return 0
}

func stringField(obj map[string]any, key string) *string {
	v, ok := obj[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func objectField(obj map[string]any, key string) (map[string]any, bool) {
	v, ok := obj[key].(map[string]any)
	return v, ok
}

func arrayField(obj map[string]any, key string) ([]any, bool) {
	v, ok := obj[key].([]any)
	return v, ok
}
