package solver

import (
	"math"

	"github.com/rocketscienceinc/reversi-backend/internal/entity"
	"github.com/rocketscienceinc/reversi-backend/internal/reversi"
)

type searchResult struct {
	move  entity.Move
	score int
	ok    bool
}

// search - one alpha-beta run over a private copy of a game.
// Scores are always from root's point of view.
type search struct {
	game     *entity.Game
	root     entity.Player
	table    *Table
	deadline deadline

	timedOut bool
	nodes    int
}

func newSearch(game *entity.Game, table *Table, deadline deadline) *search {
	return &search{
		game:     game.Clone(),
		root:     game.Turn,
		table:    table,
		deadline: deadline,
	}
}

func (that *search) leaf() searchResult {
	return searchResult{score: Evaluate(&that.game.Board, that.root)}
}

// minimax - alpha-beta search of the side to move, depth plies deep.
func (that *search) minimax(depth, alpha, beta int, maximizing bool) searchResult {
	that.nodes++

	if that.timedOut || that.deadline.expired() {
		that.timedOut = true
		return that.leaf()
	}

	if depth == 0 {
		return that.leaf()
	}

	side := that.game.Turn
	moves := reversi.LegalMoves(&that.game.Board, side)
	if len(moves) == 0 {
		return that.leaf()
	}

	key := tableKey{
		perspective: that.root,
		side:        side,
		depth:       depth,
		board:       that.game.Board.Key(),
	}
	if entry, ok := that.table.lookup(key); ok && entry.usable(depth, alpha, beta) {
		return searchResult{move: entry.move, score: entry.score, ok: true}
	}

	alphaOrig, betaOrig := alpha, beta

	best := searchResult{score: math.MaxInt}
	if maximizing {
		best.score = math.MinInt
	}

	for _, move := range orderMoves(moves) {
		changes := reversi.ApplyMove(that.game, move.X, move.Y, side, false)
		if len(changes) == 0 {
			continue
		}

		that.game.Turn = side.Opponent()
		child := that.minimax(depth-1, alpha, beta, !maximizing)
		reversi.UndoMove(that.game, changes)
		that.game.Turn = side

		if maximizing {
			if child.score > best.score {
				best = searchResult{move: move, score: child.score, ok: true}
			}
			alpha = max(alpha, child.score)
		} else {
			if child.score < best.score {
				best = searchResult{move: move, score: child.score, ok: true}
			}
			beta = min(beta, child.score)
		}

		if beta <= alpha || that.timedOut {
			break
		}
	}

	if best.ok && !that.timedOut {
		that.table.store(key, tableEntry{
			score: best.score,
			depth: depth,
			bound: boundOf(best.score, alphaOrig, betaOrig),
			move:  best.move,
		})
	}

	return best
}

func boundOf(score, alpha, beta int) Bound {
	switch {
	case score <= alpha:
		return BoundUpper
	case score >= beta:
		return BoundLower
	default:
		return BoundExact
	}
}
