package solver

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rocketscienceinc/reversi-backend/internal/entity"
	"github.com/rocketscienceinc/reversi-backend/internal/reversi"
)

const (
	baseBudget     = 100 * time.Millisecond
	budgetPerLevel = 100 * time.Millisecond
	randomPerLevel = 0.1
)

type Options struct {
	// Clock defaults to the wall clock.
	Clock Clock
	// Rand defaults to a time-seeded source.
	Rand *rand.Rand
	// TableSize caps per-search transposition tables.
	TableSize int
	// Table, when set, is shared by every search of this solver instead of a fresh one per call.
	Table *Table
}

// Solver - picks computer moves. One Solver may serve many games concurrently: every search
// works on its own copy of the game.
type Solver struct {
	logger *slog.Logger
	clock  Clock

	tableSize int
	table     *Table

	mu  sync.Mutex
	rnd *rand.Rand
}

func New(logger *slog.Logger, opts Options) *Solver {
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}

	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint: gosec // it's ok
	}

	if opts.TableSize <= 0 {
		opts.TableSize = DefaultTableSize
	}

	return &Solver{
		logger:    logger.With("component", "solver"),
		clock:     opts.Clock,
		tableSize: opts.TableSize,
		table:     opts.Table,
		rnd:       opts.Rand,
	}
}

// ChooseMove - picks a move for the side to move at the given difficulty level (0..5).
// Returns false when the game is finished or the side to move has no legal move.
func (that *Solver) ChooseMove(game *entity.Game, level int) (entity.Move, bool) {
	if game.IsFinished() {
		return entity.Move{}, false
	}

	moves := reversi.LegalMoves(&game.Board, game.Turn)
	if len(moves) == 0 {
		return entity.Move{}, false
	}

	level = min(max(level, entity.MinLevel), entity.MaxLevel)

	if level == 0 || that.float64() < float64(entity.MaxLevel-level)*randomPerLevel {
		return moves[that.intn(len(moves))], true
	}

	result := that.iterativeDeepening(game, level)
	if !result.ok {
		return orderMoves(moves)[0], true
	}

	return result.move, true
}

// iterativeDeepening - searches one ply deeper at a time until the depth limit or the time
// budget is reached, keeping the deepest result that finished in time.
func (that *Solver) iterativeDeepening(game *entity.Game, level int) searchResult {
	log := that.logger.With("method", "iterativeDeepening", "gameID", game.ID, "level", level)

	budget := baseBudget + time.Duration(level)*budgetPerLevel
	score := game.Score()
	maxDepth := min(level+1, max(2, (score.Black+score.White)/10))

	table := that.table
	if table == nil {
		table = NewTable(that.tableSize)
	}

	s := newSearch(game, table, newDeadline(that.clock, budget))

	var best, first searchResult
	for depth := 1; depth <= maxDepth; depth++ {
		if depth > 1 && s.deadline.nearlyExpired() {
			break
		}

		result := s.minimax(depth, math.MinInt, math.MaxInt, true)
		if depth == 1 {
			first = result
		}

		if s.timedOut {
			log.Debug("search timed out", "depth", depth, "nodes", s.nodes)
			break
		}

		best = result
		log.Debug("depth completed", "depth", depth, "score", result.score, "move", result.move, "nodes", s.nodes)
	}

	if !best.ok {
		return first
	}

	return best
}

func (that *Solver) float64() float64 {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.rnd.Float64()
}

func (that *Solver) intn(n int) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.rnd.Intn(n)
}
