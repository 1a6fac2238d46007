package entity

import (
	"errors"
	"fmt"
)

var ErrUnknownPlayer = errors.New("unknown player")

// Player - side in a game. The numeric values are load-bearing: the opponent of p is 3 - p.
type Player int8

const (
	Black Player = 1
	White Player = 2
)

// Opponent - returns the other side.
func (that Player) Opponent() Player {
	return 3 - that
}

// Square - returns the stone this player puts on the board.
func (that Player) Square() Square {
	return Square(that)
}

func (that Player) IsValid() bool {
	return that == Black || that == White
}

func (that Player) String() string {
	switch that {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return fmt.Sprintf("player(%d)", int8(that))
	}
}

// ParsePlayer - converts "black"/"white" into a Player.
func ParsePlayer(name string) (Player, error) {
	switch name {
	case "black":
		return Black, nil
	case "white":
		return White, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}
}
