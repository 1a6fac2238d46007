package solver

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rocketscienceinc/reversi-backend/internal/entity"
	"github.com/rocketscienceinc/reversi-backend/internal/reversi"
	"github.com/stretchr/testify/require"
)

// manualClock returns the frozen time for the first freeze reads and jumps an hour ahead after.
// A negative freeze never jumps.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	reads  int
	freeze int
}

func frozenClock() *manualClock {
	return &manualClock{now: time.Unix(0, 0), freeze: -1}
}

func (that *manualClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.reads++
	if that.freeze >= 0 && that.reads > that.freeze {
		return that.now.Add(time.Hour)
	}

	return that.now
}

// boardFrom builds a board from eight rows of 'B', 'W' and '.'.
func boardFrom(t *testing.T, rows ...string) entity.Board {
	t.Helper()
	require.Len(t, rows, entity.BoardSize)

	board := entity.InitialBoard()
	for y, row := range rows {
		require.Len(t, row, entity.BoardSize)
		for x, c := range row {
			switch c {
			case 'B':
				board[y+1][x+1] = entity.BlackStone
			case 'W':
				board[y+1][x+1] = entity.WhiteStone
			default:
				board[y+1][x+1] = entity.Blank
			}
		}
	}

	return board
}

// playout returns games reached by random play, one snapshot every few turns.
func playout(t *testing.T, seed int64, every int) []*entity.Game {
	t.Helper()

	rnd := rand.New(rand.NewSource(seed))
	game := entity.NewGame("playout", entity.Black, entity.DefaultLevel)

	var snapshots []*entity.Game
	for game.IsInProgress() {
		if game.TurnCount%every == 0 {
			snapshots = append(snapshots, game.Clone())
		}

		moves := reversi.LegalMoves(&game.Board, game.Turn)
		move := moves[rnd.Intn(len(moves))]
		require.NoError(t, reversi.MakeTurn(game, move.X, move.Y))
	}

	return snapshots
}
