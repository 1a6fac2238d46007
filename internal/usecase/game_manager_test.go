package usecase

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/reversi-backend/internal/apperror"
	"github.com/rocketscienceinc/reversi-backend/internal/entity"
	"github.com/rocketscienceinc/reversi-backend/internal/repository"
	"github.com/rocketscienceinc/reversi-backend/internal/reversi"
)

var errRedisDown = errors.New("redis down")

type mockGameRepo struct {
	mock.Mock
}

func (that *mockGameRepo) CreateOrUpdate(ctx context.Context, game *entity.Game) error {
	args := that.Called(ctx, game)
	return args.Error(0)
}

func (that *mockGameRepo) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	args := that.Called(ctx, id)
	game, _ := args.Get(0).(*entity.Game)
	return game, args.Error(1)
}

func (that *mockGameRepo) DeleteByID(ctx context.Context, id string) error {
	args := that.Called(ctx, id)
	return args.Error(0)
}

// flakyGameRepo fails the next failGets reads.
type flakyGameRepo struct {
	repository.GameRepository
	failGets atomic.Int32
}

func (that *flakyGameRepo) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	if that.failGets.Add(-1) >= 0 {
		return nil, errRedisDown
	}

	return that.GameRepository.GetByID(ctx, id)
}

// firstMoveSolver always plays the first legal move in row-major order.
type firstMoveSolver struct{}

func (firstMoveSolver) ChooseMove(game *entity.Game, _ int) (entity.Move, bool) {
	moves := reversi.LegalMoves(&game.Board, game.Turn)
	if len(moves) == 0 {
		return entity.Move{}, false
	}

	return moves[0], true
}

// blockingSolver waits for release before answering like firstMoveSolver.
type blockingSolver struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingSolver() *blockingSolver {
	return &blockingSolver{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (that *blockingSolver) ChooseMove(game *entity.Game, level int) (entity.Move, bool) {
	that.started <- struct{}{}
	<-that.release

	return firstMoveSolver{}.ChooseMove(game, level)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func newManager(solver moveSolver) (*GameManager, repository.GameRepository) {
	repo := repository.NewMemoryGameRepository()
	return NewGameManager(newLogger(), repo, solver), repo
}

func TestGameManager_NewGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Human playing Black moves first", func(t *testing.T) {
		// Given: a manager
		manager, repo := newManager(firstMoveSolver{})

		// When: creating a game for a human playing Black
		game, err := manager.NewGame(ctx, entity.Black, 3)
		require.NoError(t, err)

		// Then: the opening position is stored and nobody is thinking
		stored, err := repo.GetByID(ctx, game.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, game.ID)
		assert.Equal(t, entity.Black, stored.Turn)
		assert.Equal(t, 1, stored.TurnCount)
		assert.False(t, stored.Thinking)
		assert.Equal(t, entity.Score{Black: 2, White: 2}, stored.Score())
	})

	t.Run("Computer opens when the human plays White", func(t *testing.T) {
		// Given: a manager
		manager, _ := newManager(firstMoveSolver{})

		// When: creating a game for a human playing White
		game, err := manager.NewGame(ctx, entity.White, 3)
		require.NoError(t, err)
		assert.True(t, game.Thinking)
		manager.Wait()

		// Then: Black has played (3,2) and White is to move
		stored, err := manager.GetGame(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.White, stored.Turn)
		assert.Equal(t, 2, stored.TurnCount)
		assert.False(t, stored.Thinking)
		assert.Equal(t, entity.BlackStone, stored.Board.At(3, 2))
		assert.Equal(t, entity.Score{Black: 4, White: 1}, stored.Score())
	})

	t.Run("Rejects invalid settings", func(t *testing.T) {
		manager, _ := newManager(firstMoveSolver{})

		_, err := manager.NewGame(ctx, entity.Player(0), 3)
		require.ErrorIs(t, err, entity.ErrUnknownPlayer)

		_, err = manager.NewGame(ctx, entity.Black, 9)
		require.ErrorIs(t, err, apperror.ErrInvalidLevel)
	})

	t.Run("Returns error if the repository fails", func(t *testing.T) {
		repo := &mockGameRepo{}
		repo.On("CreateOrUpdate", mock.Anything, mock.AnythingOfType("*entity.Game")).Return(errRedisDown).Once()
		manager := NewGameManager(newLogger(), repo, firstMoveSolver{})

		game, err := manager.NewGame(ctx, entity.Black, 3)

		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, game)
		repo.AssertExpectations(t)
	})
}

func TestGameManager_MakeTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("Human move is followed by the computer reply", func(t *testing.T) {
		// Given: a new game with the human playing Black
		manager, _ := newManager(firstMoveSolver{})
		game, err := manager.NewGame(ctx, entity.Black, 3)
		require.NoError(t, err)

		// When: Black plays (2,3)
		afterMove, err := manager.MakeTurn(ctx, game.ID, 2, 3)
		require.NoError(t, err)
		assert.True(t, afterMove.Thinking)
		assert.Equal(t, entity.Score{Black: 4, White: 1}, afterMove.Score())
		manager.Wait()

		// Then: White has replied and Black is to move again
		stored, err := manager.GetGame(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.Black, stored.Turn)
		assert.Equal(t, 3, stored.TurnCount)
		assert.False(t, stored.Thinking)
	})

	t.Run("Illegal move returns ErrIllegalMove and keeps the game", func(t *testing.T) {
		manager, _ := newManager(firstMoveSolver{})
		game, err := manager.NewGame(ctx, entity.Black, 3)
		require.NoError(t, err)

		_, err = manager.MakeTurn(ctx, game.ID, 0, 0)
		require.ErrorIs(t, err, apperror.ErrIllegalMove)

		stored, err := manager.GetGame(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.InitialBoard(), stored.Board)
		assert.Equal(t, 1, stored.TurnCount)
	})

	t.Run("Moves are refused while the computer is thinking", func(t *testing.T) {
		// Given: the computer searching its opening move
		solver := newBlockingSolver()
		manager, _ := newManager(solver)
		game, err := manager.NewGame(ctx, entity.White, 3)
		require.NoError(t, err)
		<-solver.started

		// When: the human tries to move
		_, err = manager.MakeTurn(ctx, game.ID, 2, 3)

		// Then: the move is refused and so is a reset
		require.ErrorIs(t, err, apperror.ErrSearchInFlight)
		_, err = manager.ResetGame(ctx, game.ID, entity.Black, 3)
		require.ErrorIs(t, err, apperror.ErrSearchInFlight)

		close(solver.release)
		manager.Wait()

		stored, err := manager.GetGame(ctx, game.ID)
		require.NoError(t, err)
		assert.False(t, stored.Thinking)
		assert.Equal(t, entity.White, stored.Turn)
	})

	t.Run("Returns ErrNotYourTurn when the computer is to move", func(t *testing.T) {
		// Given: a stored game where the computer is to move but no search runs
		manager, repo := newManager(firstMoveSolver{})
		game := entity.NewGame("g1", entity.White, 3)
		require.NoError(t, repo.CreateOrUpdate(ctx, game))

		// When: the human tries to move
		_, err := manager.MakeTurn(ctx, "g1", 2, 3)

		// Then: the move is refused and the computer is started
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		manager.Wait()

		stored, err := manager.GetGame(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, entity.White, stored.Turn)
		assert.Equal(t, 2, stored.TurnCount)
		assert.False(t, stored.Thinking)
	})

	t.Run("A failed search leaves the game playable", func(t *testing.T) {
		// Given: a repository whose next read fails, hit by the computer's opening search
		repo := &flakyGameRepo{GameRepository: repository.NewMemoryGameRepository()}
		repo.failGets.Store(1)
		manager := NewGameManager(newLogger(), repo, firstMoveSolver{})

		game, err := manager.NewGame(ctx, entity.White, 3)
		require.NoError(t, err)
		manager.Wait()

		// Then: the search gave up without leaving the game marked as thinking
		stored, err := manager.GetGame(ctx, game.ID)
		require.NoError(t, err)
		assert.False(t, stored.Thinking)
		assert.Equal(t, 1, stored.TurnCount)

		// When: the human tries to move
		_, err = manager.MakeTurn(ctx, game.ID, 2, 3)

		// Then: it is still the computer's turn, and the computer moves again
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		manager.Wait()

		stored, err = manager.GetGame(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.White, stored.Turn)
		assert.Equal(t, 2, stored.TurnCount)
		assert.False(t, stored.Thinking)

		_, err = manager.ResetGame(ctx, game.ID, entity.Black, 2)
		require.NoError(t, err)
	})

	t.Run("A stored Thinking flag without a search does not block", func(t *testing.T) {
		// Given: a game saved as thinking by a process that is gone
		manager, repo := newManager(firstMoveSolver{})
		game := entity.NewGame("g1", entity.Black, 3)
		game.Thinking = true
		require.NoError(t, repo.CreateOrUpdate(ctx, game))

		// When: the human moves
		afterMove, err := manager.MakeTurn(ctx, "g1", 2, 3)
		manager.Wait()

		// Then: the move is accepted
		require.NoError(t, err)
		assert.Equal(t, entity.Score{Black: 4, White: 1}, afterMove.Score())
	})

	t.Run("Returns ErrGameFinished for finished games", func(t *testing.T) {
		manager, repo := newManager(firstMoveSolver{})
		game := entity.NewGame("g1", entity.Black, 3)
		game.Status = entity.StatusWhiteWins
		require.NoError(t, repo.CreateOrUpdate(ctx, game))

		_, err := manager.MakeTurn(ctx, "g1", 2, 3)

		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Returns error if gameRepo.GetByID fails", func(t *testing.T) {
		repo := &mockGameRepo{}
		repo.On("GetByID", mock.Anything, "g1").Return(nil, errRedisDown).Once()
		manager := NewGameManager(newLogger(), repo, firstMoveSolver{})

		game, err := manager.MakeTurn(ctx, "g1", 2, 3)

		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, game)
		repo.AssertExpectations(t)
	})

	t.Run("A full game ends in a terminal status", func(t *testing.T) {
		// Given: a game where the human always plays its first legal move
		manager, _ := newManager(firstMoveSolver{})
		game, err := manager.NewGame(ctx, entity.Black, 3)
		require.NoError(t, err)

		// When: playing until the end
		for range entity.MaxTurnCount {
			manager.Wait()

			moves, err := manager.LegalMoves(ctx, game.ID)
			require.NoError(t, err)
			if len(moves) == 0 {
				break
			}

			_, err = manager.MakeTurn(ctx, game.ID, moves[0].X, moves[0].Y)
			require.NoError(t, err)
		}
		manager.Wait()

		// Then: the game is over and its status matches the stone count
		stored, err := manager.GetGame(ctx, game.ID)
		require.NoError(t, err)
		require.True(t, stored.IsFinished())
		assert.LessOrEqual(t, stored.TurnCount, entity.MaxTurnCount)

		score := stored.Score()
		switch {
		case score.Black > score.White:
			assert.Equal(t, entity.StatusBlackWins, stored.Status)
		case score.White > score.Black:
			assert.Equal(t, entity.StatusWhiteWins, stored.Status)
		default:
			assert.Equal(t, entity.StatusDraw, stored.Status)
		}
	})
}

func TestGameManager_LegalMoves(t *testing.T) {
	ctx := context.Background()
	manager, _ := newManager(firstMoveSolver{})
	game, err := manager.NewGame(ctx, entity.Black, 3)
	require.NoError(t, err)

	moves, err := manager.LegalMoves(ctx, game.ID)

	require.NoError(t, err)
	assert.ElementsMatch(t, []entity.Move{{X: 2, Y: 3}, {X: 3, Y: 2}, {X: 4, Y: 5}, {X: 5, Y: 4}}, moves)

	_, err = manager.LegalMoves(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrGameNotFound)
}

func TestGameManager_RequestAIMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Suggests a move without changing the game", func(t *testing.T) {
		manager, _ := newManager(firstMoveSolver{})
		game, err := manager.NewGame(ctx, entity.Black, 3)
		require.NoError(t, err)

		move, ok, err := manager.RequestAIMove(ctx, game.ID, 5)

		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, entity.Move{X: 3, Y: 2}, move)

		stored, err := manager.GetGame(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.InitialBoard(), stored.Board)
	})

	t.Run("Rejects invalid levels and finished games", func(t *testing.T) {
		manager, repo := newManager(firstMoveSolver{})
		game := entity.NewGame("g1", entity.Black, 3)
		game.Status = entity.StatusDraw
		require.NoError(t, repo.CreateOrUpdate(ctx, game))

		_, _, err := manager.RequestAIMove(ctx, "g1", -1)
		require.ErrorIs(t, err, apperror.ErrInvalidLevel)

		_, _, err = manager.RequestAIMove(ctx, "g1", 2)
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})
}

func TestGameManager_ResetGame(t *testing.T) {
	ctx := context.Background()

	// Given: a game with a few moves played
	manager, _ := newManager(firstMoveSolver{})
	game, err := manager.NewGame(ctx, entity.Black, 3)
	require.NoError(t, err)
	_, err = manager.MakeTurn(ctx, game.ID, 2, 3)
	require.NoError(t, err)
	manager.Wait()

	// When: resetting it with the human as White at level 1
	reset, err := manager.ResetGame(ctx, game.ID, entity.White, 1)
	require.NoError(t, err)
	manager.Wait()

	// Then: the same game restarted and the computer opened
	stored, err := manager.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, game.ID, reset.ID)
	assert.Equal(t, 1, stored.Level)
	assert.Equal(t, entity.White, stored.HumanPlayer)
	assert.Equal(t, 2, stored.TurnCount)
	assert.Equal(t, entity.White, stored.Turn)
}

func TestGameManager_DeleteGame(t *testing.T) {
	ctx := context.Background()
	manager, _ := newManager(firstMoveSolver{})
	game, err := manager.NewGame(ctx, entity.Black, 3)
	require.NoError(t, err)

	snapshots, cancel := manager.Subscribe(game.ID)
	defer cancel()

	require.NoError(t, manager.DeleteGame(ctx, game.ID))

	_, open := <-snapshots
	assert.False(t, open)

	_, err = manager.GetGame(ctx, game.ID)
	assert.ErrorIs(t, err, repository.ErrGameNotFound)
	assert.ErrorIs(t, manager.DeleteGame(ctx, game.ID), repository.ErrGameNotFound)
}

func TestGameManager_Subscribe(t *testing.T) {
	ctx := context.Background()

	// Given: a subscriber on a new game
	manager, _ := newManager(firstMoveSolver{})
	game, err := manager.NewGame(ctx, entity.Black, 3)
	require.NoError(t, err)

	snapshots, cancel := manager.Subscribe(game.ID)

	// When: the human moves and the computer replies
	_, err = manager.MakeTurn(ctx, game.ID, 2, 3)
	require.NoError(t, err)
	manager.Wait()
	cancel()

	// Then: the subscriber saw the human move first and the settled reply last
	var seen []*entity.Game
	for snapshot := range snapshots {
		seen = append(seen, snapshot)
	}

	require.GreaterOrEqual(t, len(seen), 2)
	assert.Equal(t, 2, seen[0].TurnCount)
	assert.True(t, seen[0].Thinking)
	assert.Equal(t, 3, seen[len(seen)-1].TurnCount)
	assert.False(t, seen[len(seen)-1].Thinking)
}

func TestGameManager_applyAIMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Stale search applies nothing", func(t *testing.T) {
		// Given: a search result for a position the stored game has moved past
		manager, repo := newManager(firstMoveSolver{})
		game := entity.NewGame("g1", entity.White, 3)
		require.NoError(t, repo.CreateOrUpdate(ctx, game))

		searched := game.Clone()
		searched.TurnCount = 7

		// When: the move is applied
		result, err := manager.applyAIMove(ctx, searched, entity.Move{X: 3, Y: 2}, true)

		// Then: it is reported stale and the game is unchanged
		require.NoError(t, err)
		assert.Equal(t, moveStale, result)

		stored, err := repo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, entity.InitialBoard(), stored.Board)
	})

	t.Run("Applied move hands the turn back", func(t *testing.T) {
		manager, repo := newManager(firstMoveSolver{})
		game := entity.NewGame("g1", entity.White, 3)
		require.NoError(t, repo.CreateOrUpdate(ctx, game))

		result, err := manager.applyAIMove(ctx, game.Clone(), entity.Move{X: 3, Y: 2}, true)

		require.NoError(t, err)
		assert.Equal(t, moveFinal, result)

		stored, err := repo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, entity.White, stored.Turn)
		assert.False(t, stored.Thinking)
	})
}
