package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/reversi-backend/internal/apperror"
)

const (
	// MaxTurnCount - 64 cells minus the 4 opening stones.
	MaxTurnCount = 60

	MinLevel     = 0
	MaxLevel     = 5
	DefaultLevel = 3
)

// GameStatus - once a game leaves StatusInProgress it never comes back.
type GameStatus string

const (
	StatusInProgress GameStatus = "in_progress"
	StatusBlackWins  GameStatus = "black_wins"
	StatusWhiteWins  GameStatus = "white_wins"
	StatusDraw       GameStatus = "draw"
)

var ErrUnknownGameStatus = errors.New("unknown game status")

type Game struct {
	ID          string     `json:"id"`
	Board       Board      `json:"board"`
	Turn        Player     `json:"turn"`
	TurnCount   int        `json:"turn_count"`
	Status      GameStatus `json:"status"`
	HumanPlayer Player     `json:"human_player"`
	Level       int        `json:"level"`
	Thinking    bool       `json:"thinking"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewGame - returns a game in the opening position with Black to move.
func NewGame(id string, human Player, level int) *Game {
	now := time.Now()

	return &Game{
		ID:          id,
		Board:       InitialBoard(),
		Turn:        Black,
		TurnCount:   1,
		Status:      StatusInProgress,
		HumanPlayer: human,
		Level:       level,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone - returns a deep copy; the board is an array so a value copy is enough.
func (that *Game) Clone() *Game {
	clone := *that
	return &clone
}

func (that *Game) IsFinished() bool {
	return that.Status != StatusInProgress
}

func (that *Game) IsInProgress() bool {
	return that.Status == StatusInProgress
}

// AIPlayer - the side played by the computer.
func (that *Game) AIPlayer() Player {
	return that.HumanPlayer.Opponent()
}

func (that *Game) IsAITurn() bool {
	return that.IsInProgress() && that.Turn == that.AIPlayer()
}

func (that *Game) Score() Score {
	return that.Board.Score()
}

// ConfirmOngoingState - returns an error when the game no longer accepts moves.
func (that *Game) ConfirmOngoingState() error {
	switch that.Status {
	case StatusInProgress:
		return nil
	case StatusBlackWins, StatusWhiteWins, StatusDraw:
		return apperror.ErrGameFinished
	default:
		return fmt.Errorf("%w: %s", ErrUnknownGameStatus, that.Status)
	}
}

// ValidateLevel - checks that a difficulty level is within range.
func ValidateLevel(level int) error {
	if level < MinLevel || level > MaxLevel {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidLevel, level)
	}

	return nil
}
