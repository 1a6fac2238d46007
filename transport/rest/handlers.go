package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/reversi-backend/internal/apperror"
	"github.com/rocketscienceinc/reversi-backend/internal/entity"
	"github.com/rocketscienceinc/reversi-backend/internal/repository"
)

var errBadRequest = errors.New("bad request")

type gameManager interface {
	NewGame(ctx context.Context, human entity.Player, level int) (*entity.Game, error)
	ResetGame(ctx context.Context, id string, human entity.Player, level int) (*entity.Game, error)
	GetGame(ctx context.Context, id string) (*entity.Game, error)
	LegalMoves(ctx context.Context, id string) ([]entity.Move, error)
	MakeTurn(ctx context.Context, id string, x, y int) (*entity.Game, error)
	RequestAIMove(ctx context.Context, id string, level int) (entity.Move, bool, error)
	DeleteGame(ctx context.Context, id string) error
}

type handlers struct {
	logger       *slog.Logger
	games        gameManager
	defaultLevel int
}

type settingsRequest struct {
	Player string `json:"player"`
	Level  *int   `json:"level"`
}

type moveRequest struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

// GameResponse - the public view of a game: the playable 8x8 board without the border.
type GameResponse struct {
	ID          string              `json:"id"`
	Board       entity.PlayableView `json:"board"`
	Turn        string              `json:"turn"`
	TurnCount   int                 `json:"turn_count"`
	Status      entity.GameStatus   `json:"status"`
	HumanPlayer string              `json:"human_player"`
	Level       int                 `json:"level"`
	Thinking    bool                `json:"thinking"`
	Score       entity.Score        `json:"score"`
}

type movesResponse struct {
	Moves []entity.Move `json:"moves"`
}

type hintResponse struct {
	Found bool         `json:"found"`
	Move  *entity.Move `json:"move,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewGameResponse(game *entity.Game) GameResponse {
	return GameResponse{
		ID:          game.ID,
		Board:       game.Board.View(),
		Turn:        game.Turn.String(),
		TurnCount:   game.TurnCount,
		Status:      game.Status,
		HumanPlayer: game.HumanPlayer.String(),
		Level:       game.Level,
		Thinking:    game.Thinking,
		Score:       game.Score(),
	}
}

func (that *handlers) createGame(w http.ResponseWriter, r *http.Request) {
	human, level, err := that.decodeSettings(r)
	if err != nil {
		that.writeError(w, err)
		return
	}

	game, err := that.games.NewGame(r.Context(), human, level)
	if err != nil {
		that.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, NewGameResponse(game))
}

func (that *handlers) resetGame(w http.ResponseWriter, r *http.Request) {
	human, level, err := that.decodeSettings(r)
	if err != nil {
		that.writeError(w, err)
		return
	}

	game, err := that.games.ResetGame(r.Context(), chi.URLParam(r, "id"), human, level)
	if err != nil {
		that.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewGameResponse(game))
}

func (that *handlers) getGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.games.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewGameResponse(game))
}

func (that *handlers) deleteGame(w http.ResponseWriter, r *http.Request) {
	if err := that.games.DeleteGame(r.Context(), chi.URLParam(r, "id")); err != nil {
		that.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *handlers) legalMoves(w http.ResponseWriter, r *http.Request) {
	moves, err := that.games.LegalMoves(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, movesResponse{Moves: moves})
}

func (that *handlers) makeTurn(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	if req.X == nil || req.Y == nil {
		that.writeError(w, fmt.Errorf("%w: x and y are required", errBadRequest))
		return
	}

	game, err := that.games.MakeTurn(r.Context(), chi.URLParam(r, "id"), *req.X, *req.Y)
	if err != nil {
		that.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewGameResponse(game))
}

// hint - the move the computer would play for the side to move, at ?level= or else at the
// game's own level.
func (that *handlers) hint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var level int
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			that.writeError(w, fmt.Errorf("%w: level %q", apperror.ErrInvalidLevel, raw))
			return
		}

		level = parsed
	} else {
		game, err := that.games.GetGame(r.Context(), id)
		if err != nil {
			that.writeError(w, err)
			return
		}

		level = game.Level
	}

	move, ok, err := that.games.RequestAIMove(r.Context(), id, level)
	if err != nil {
		that.writeError(w, err)
		return
	}

	resp := hintResponse{Found: ok}
	if ok {
		resp.Move = &move
	}

	writeJSON(w, http.StatusOK, resp)
}

// decodeSettings - reads player and level; an empty body means Black at the default level.
func (that *handlers) decodeSettings(r *http.Request) (entity.Player, int, error) {
	req := settingsRequest{Player: entity.Black.String()}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return 0, 0, fmt.Errorf("%w: %w", errBadRequest, err)
	}

	human, err := entity.ParsePlayer(req.Player)
	if err != nil {
		return 0, 0, err
	}

	level := that.defaultLevel
	if req.Level != nil {
		level = *req.Level
	}

	return human, level, nil
}

func (that *handlers) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "error", err)
		writeJSON(w, status, errorResponse{Error: "Internal Server Error"})
		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, repository.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, entity.ErrUnknownPlayer),
		errors.Is(err, apperror.ErrInvalidLevel),
		errors.Is(err, apperror.ErrIllegalMove):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrSearchInFlight):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
