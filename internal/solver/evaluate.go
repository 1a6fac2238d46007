package solver

import (
	"slices"

	"github.com/rocketscienceinc/reversi-backend/internal/entity"
	"github.com/rocketscienceinc/reversi-backend/internal/reversi"
)

const (
	openingStones  = 20
	endgameStones  = 50
	mobilityWeight = 5
	materialWeight = 10
)

// weights favor corners and punish the cells that give corners away, addressed [y][x].
var weights = [entity.BoardSize][entity.BoardSize]int{
	{100, -20, 10, 5, 5, 10, -20, 100},
	{-20, -30, -5, -5, -5, -5, -30, -20},
	{10, -5, 0, 0, 0, 0, -5, 10},
	{5, -5, 0, 0, 0, 0, -5, 5},
	{5, -5, 0, 0, 0, 0, -5, 5},
	{10, -5, 0, 0, 0, 0, -5, 10},
	{-20, -30, -5, -5, -5, -5, -30, -20},
	{100, -20, 10, 5, 5, 10, -20, 100},
}

// Evaluate - static score of the board from forPlayer's point of view.
//
// The positional term always applies. With fewer than 20 stones on the board mobility is
// added, with more than 50 the stone difference is added.
func Evaluate(board *entity.Board, forPlayer entity.Player) int {
	own := forPlayer.Square()
	opponent := forPlayer.Opponent().Square()

	var score, ownStones, opponentStones int

	for y := range entity.BoardSize {
		for x := range entity.BoardSize {
			switch board.At(x, y) {
			case own:
				score += weights[y][x]
				ownStones++
			case opponent:
				score -= weights[y][x]
				opponentStones++
			}
		}
	}

	switch total := ownStones + opponentStones; {
	case total < openingStones:
		ownMobility := len(reversi.LegalMoves(board, forPlayer))
		opponentMobility := len(reversi.LegalMoves(board, forPlayer.Opponent()))
		score += mobilityWeight * (ownMobility - opponentMobility)
	case total > endgameStones:
		score += materialWeight * (ownStones - opponentStones)
	}

	return score
}

// orderMoves - sorts moves by positional weight, best first. Ties keep their order.
func orderMoves(moves []entity.Move) []entity.Move {
	slices.SortStableFunc(moves, func(a, b entity.Move) int {
		return weights[b.Y][b.X] - weights[a.Y][a.X]
	})

	return moves
}
