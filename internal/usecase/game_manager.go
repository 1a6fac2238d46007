package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/reversi-backend/internal/apperror"
	"github.com/rocketscienceinc/reversi-backend/internal/entity"
	"github.com/rocketscienceinc/reversi-backend/internal/reversi"
)

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
}

type moveSolver interface {
	ChooseMove(game *entity.Game, level int) (entity.Move, bool)
}

// GameManager - owns games between requests. Human moves are applied synchronously; computer
// moves are searched in the background on a copy of the game, and every human move or reset is
// refused until the search has been applied. The stored Thinking flag is for display only: the
// in-flight set below decides whether a search is running.
type GameManager struct {
	logger   *slog.Logger
	gameRepo gameRepo
	solver   moveSolver

	// mu serializes every read-modify-write of a stored game. It is never held during a search.
	mu       sync.Mutex
	inFlight map[string]struct{}
	searches sync.WaitGroup

	updates *updates
}

func NewGameManager(logger *slog.Logger, gameRepo gameRepo, solver moveSolver) *GameManager {
	return &GameManager{
		logger:   logger.With("component", "game_manager"),
		gameRepo: gameRepo,
		solver:   solver,
		inFlight: make(map[string]struct{}),
		updates:  newUpdates(),
	}
}

// NewGame - creates a game in the opening position. If the human plays White the computer opens.
func (that *GameManager) NewGame(ctx context.Context, human entity.Player, level int) (*entity.Game, error) {
	if !human.IsValid() {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownPlayer, human)
	}

	if err := entity.ValidateLevel(level); err != nil {
		return nil, err
	}

	game := entity.NewGame(uuid.NewString(), human, level)

	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.saveAndSchedule(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	return game.Clone(), nil
}

// ResetGame - puts an existing game back into the opening position with new settings.
func (that *GameManager) ResetGame(ctx context.Context, id string, human entity.Player, level int) (*entity.Game, error) {
	if !human.IsValid() {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownPlayer, human)
	}

	if err := entity.ValidateLevel(level); err != nil {
		return nil, err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	if that.searching(id) {
		return nil, apperror.ErrSearchInFlight
	}

	fresh := entity.NewGame(game.ID, human, level)
	fresh.CreatedAt = game.CreatedAt

	if err = that.saveAndSchedule(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to reset game: %w", err)
	}

	return fresh.Clone(), nil
}

func (that *GameManager) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// LegalMoves - moves available to the side to move; empty once the game is over.
func (that *GameManager) LegalMoves(ctx context.Context, id string) ([]entity.Move, error) {
	game, err := that.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	if game.IsFinished() {
		return []entity.Move{}, nil
	}

	moves := reversi.LegalMoves(&game.Board, game.Turn)
	if moves == nil {
		moves = []entity.Move{}
	}

	return moves, nil
}

// MakeTurn - applies the human move at (x, y).
func (that *GameManager) MakeTurn(ctx context.Context, id string, x, y int) (*entity.Game, error) {
	log := that.logger.With("method", "MakeTurn", "gameID", id)

	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	if that.searching(id) {
		return nil, apperror.ErrSearchInFlight
	}

	if err = game.ConfirmOngoingState(); err != nil {
		return nil, err
	}

	if game.Turn != game.HumanPlayer {
		// nothing is searching for the computer, e.g. after a failed search or a restart
		if err = that.saveAndSchedule(ctx, game); err != nil {
			log.Error("failed to resume computer", "error", err)
		}

		return nil, apperror.ErrNotYourTurn
	}

	if err = reversi.MakeTurn(game, x, y); err != nil {
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	if err = that.saveAndSchedule(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	log.Debug("human move applied", "x", x, "y", y, "turn", game.Turn, "status", game.Status)

	return game.Clone(), nil
}

// RequestAIMove - the move the computer would play for the side to move at the given level.
// The game is not modified. Returns false when the side to move has no move.
func (that *GameManager) RequestAIMove(ctx context.Context, id string, level int) (entity.Move, bool, error) {
	if err := entity.ValidateLevel(level); err != nil {
		return entity.Move{}, false, err
	}

	game, err := that.GetGame(ctx, id)
	if err != nil {
		return entity.Move{}, false, err
	}

	if err = game.ConfirmOngoingState(); err != nil {
		return entity.Move{}, false, err
	}

	move, ok := that.solver.ChooseMove(game, level)

	return move, ok, nil
}

func (that *GameManager) DeleteGame(ctx context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.gameRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	that.updates.closeGame(id)

	return nil
}

// Subscribe - snapshots of the game after every stored change, until cancel is called.
func (that *GameManager) Subscribe(id string) (<-chan *entity.Game, func()) {
	return that.updates.subscribe(id)
}

// Wait - blocks until every background search has finished.
func (that *GameManager) Wait() {
	that.searches.Wait()
}

// saveAndSchedule - stores the game and starts the computer when it is its turn. Caller holds mu.
func (that *GameManager) saveAndSchedule(ctx context.Context, game *entity.Game) error {
	game.Thinking = game.IsAITurn()

	if err := that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return err
	}

	that.updates.publish(game)

	if game.Thinking && !that.searching(game.ID) {
		that.inFlight[game.ID] = struct{}{}
		that.searches.Add(1)
		go that.playAI(context.WithoutCancel(ctx), game.ID)
	}

	return nil
}

// searching - reports whether a computer search owns the game. Caller holds mu.
func (that *GameManager) searching(id string) bool {
	_, ok := that.inFlight[id]
	return ok
}

// playAI - plays computer moves for as long as the computer is to move.
func (that *GameManager) playAI(ctx context.Context, id string) {
	defer that.searches.Done()
	defer that.release(ctx, id)

	log := that.logger.With("method", "playAI", "gameID", id)

	for {
		that.mu.Lock()
		game, err := that.gameRepo.GetByID(ctx, id)
		that.mu.Unlock()

		if err != nil {
			log.Error("failed to get game", "error", err)
			return
		}

		if !game.IsAITurn() {
			return
		}

		start := time.Now()
		move, ok := that.solver.ChooseMove(game, game.Level)

		result, err := that.applyAIMove(ctx, game, move, ok)
		if err != nil {
			log.Error("failed to apply computer move", "error", err)
			return
		}

		if result == moveStale {
			log.Debug("game changed during search, searching again")
			continue
		}

		log.Debug("computer move applied", "x", move.X, "y", move.Y, "took", time.Since(start))

		if result == moveFinal {
			return
		}
	}
}

type moveResult int

const (
	// moveStale - the stored game no longer is the searched position; nothing was applied.
	moveStale moveResult = iota
	// moveApplied - applied, and the computer is to move again.
	moveApplied
	// moveFinal - applied, and the computer is done.
	moveFinal
)

// applyAIMove - plays move on the stored game if it still is the position that was searched.
func (that *GameManager) applyAIMove(ctx context.Context, searched *entity.Game, move entity.Move, ok bool) (moveResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, searched.ID)
	if err != nil {
		return moveFinal, fmt.Errorf("failed to get game: %w", err)
	}

	if game.Board != searched.Board || game.Turn != searched.Turn || game.TurnCount != searched.TurnCount {
		return moveStale, nil
	}

	if !ok {
		return moveFinal, fmt.Errorf("%w: no move for %s", apperror.ErrIllegalMove, game.Turn)
	}

	if err = reversi.MakeTurn(game, move.X, move.Y); err != nil {
		return moveFinal, err
	}

	game.Thinking = game.IsAITurn()

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return moveFinal, fmt.Errorf("failed to update game: %w", err)
	}

	that.updates.publish(game)

	if game.Thinking {
		return moveApplied, nil
	}

	return moveFinal, nil
}

// release - hands the game back to the human. A Thinking flag left behind by a failed search is
// cleared on a best-effort basis; the game is playable either way.
func (that *GameManager) release(ctx context.Context, id string) {
	log := that.logger.With("method", "release", "gameID", id)

	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.inFlight, id)

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		log.Warn("failed to get game", "error", err)
		return
	}

	if !game.Thinking {
		return
	}

	game.Thinking = false

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		log.Warn("failed to update game", "error", err)
		return
	}

	that.updates.publish(game)
}
