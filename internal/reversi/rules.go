package reversi

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/reversi-backend/internal/apperror"
	"github.com/rocketscienceinc/reversi-backend/internal/entity"
)

// maxAdvanceSteps bounds the pass loop in nextTurn.
const maxAdvanceSteps = 2 * entity.BoardSize * entity.BoardSize

var directions = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

func inBounds(x, y int) bool {
	return x >= 0 && x < entity.BoardSize && y >= 0 && y < entity.BoardSize
}

// CountFlippable - number of opponent stones captured in direction (dx, dy) by playing at (x, y).
func CountFlippable(board *entity.Board, x, y, dx, dy int, player entity.Player) int {
	if !inBounds(x, y) {
		return 0
	}

	return countFlippable(board, x+1, y+1, dx, dy, player)
}

// countFlippable works in sentinel-relative coordinates; the border stops every walk.
func countFlippable(board *entity.Board, x, y, dx, dy int, player entity.Player) int {
	if dx == 0 && dy == 0 {
		return 0
	}

	opponent := player.Opponent().Square()

	cursor := 1
	for board[y+cursor*dy][x+cursor*dx] == opponent {
		cursor++
	}

	if board[y+cursor*dy][x+cursor*dx] == player.Square() {
		return cursor - 1
	}

	return 0
}

// CanPlace - reports whether player may put a stone at (x, y).
func CanPlace(board *entity.Board, x, y int, player entity.Player) bool {
	if !inBounds(x, y) || board.At(x, y) != entity.Blank {
		return false
	}

	for _, d := range directions {
		if countFlippable(board, x+1, y+1, d[0], d[1], player) > 0 {
			return true
		}
	}

	return false
}

// CanPlaceAnywhere - reports whether player has at least one legal move.
func CanPlaceAnywhere(board *entity.Board, player entity.Player) bool {
	for y := range entity.BoardSize {
		for x := range entity.BoardSize {
			if CanPlace(board, x, y, player) {
				return true
			}
		}
	}

	return false
}

// LegalMoves - all legal moves of player in row-major order.
func LegalMoves(board *entity.Board, player entity.Player) []entity.Move {
	var moves []entity.Move

	for y := range entity.BoardSize {
		for x := range entity.BoardSize {
			if CanPlace(board, x, y, player) {
				moves = append(moves, entity.Move{X: x, Y: y})
			}
		}
	}

	return moves
}

// ApplyMove - plays (x, y) for player and returns the changes needed to undo it.
// An illegal move, or any move on a finished game, returns nil and leaves the game untouched.
func ApplyMove(game *entity.Game, x, y int, player entity.Player, advanceTurn bool) []entity.Change {
	if game.IsFinished() || !CanPlace(&game.Board, x, y, player) {
		return nil
	}

	bx, by := x+1, y+1
	stone := player.Square()

	changes := make([]entity.Change, 0, 8)
	for _, d := range directions {
		count := countFlippable(&game.Board, bx, by, d[0], d[1], player)
		for cursor := 1; cursor <= count; cursor++ {
			cx, cy := bx+cursor*d[0], by+cursor*d[1]
			changes = append(changes, entity.Change{X: cx, Y: cy, Prev: game.Board[cy][cx]})
			game.Board[cy][cx] = stone
		}
	}

	changes = append(changes, entity.Change{X: bx, Y: by, Prev: game.Board[by][bx]})
	game.Board[by][bx] = stone

	if advanceTurn {
		nextTurn(game)
	}

	return changes
}

// UndoMove - restores every recorded cell. Turn, turn count and status are left as they are.
func UndoMove(game *entity.Game, changes []entity.Change) {
	for i := len(changes) - 1; i >= 0; i-- {
		change := changes[i]
		game.Board[change.Y][change.X] = change.Prev
	}
}

// MakeTurn - plays (x, y) for the side to move and advances the turn.
func MakeTurn(game *entity.Game, x, y int) error {
	if err := game.ConfirmOngoingState(); err != nil {
		return err
	}

	if changes := ApplyMove(game, x, y, game.Turn, true); len(changes) == 0 {
		return fmt.Errorf("%w: %s at (%d, %d)", apperror.ErrIllegalMove, game.Turn, x, y)
	}

	game.UpdatedAt = time.Now()

	return nil
}

// nextTurn - hands the turn to the next side able to move, or finishes the game.
func nextTurn(game *entity.Game) {
	for range maxAdvanceSteps {
		if game.TurnCount >= entity.MaxTurnCount {
			Finalize(game)
			return
		}

		game.Turn = game.Turn.Opponent()
		game.TurnCount++

		if CanPlaceAnywhere(&game.Board, game.Turn) {
			return
		}

		if !CanPlaceAnywhere(&game.Board, game.Turn.Opponent()) {
			Finalize(game)
			return
		}
	}

	Finalize(game)
}

// Finalize - sets the terminal status from the stone count. A finished game keeps its status.
func Finalize(game *entity.Game) {
	if game.IsFinished() {
		return
	}

	score := game.Board.Score()

	switch {
	case score.Black > score.White:
		game.Status = entity.StatusBlackWins
	case score.White > score.Black:
		game.Status = entity.StatusWhiteWins
	default:
		game.Status = entity.StatusDraw
	}
}
