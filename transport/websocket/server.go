package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/reversi-backend/internal/entity"
	"github.com/rocketscienceinc/reversi-backend/internal/repository"
	"github.com/rocketscienceinc/reversi-backend/transport/rest"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

type gameSource interface {
	GetGame(ctx context.Context, id string) (*entity.Game, error)
	Subscribe(id string) (<-chan *entity.Game, func())
}

// Message - one frame sent to the client.
type Message struct {
	Type string            `json:"type"`
	Game rest.GameResponse `json:"game"`
}

// Server - streams a game to websocket clients: its current state on connect, then every
// stored change until the client goes away.
type Server struct {
	logger   *slog.Logger
	games    gameSource
	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, games gameSource) *Server {
	return &Server{
		logger: logger.With("component", "websocket"),
		games:  games,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	log := that.logger.With("method", "ServeHTTP", "gameID", id)

	// subscribe first so nothing stored between the read and the upgrade is missed
	snapshots, cancel := that.games.Subscribe(id)
	defer cancel()

	game, err := that.games.GetGame(r.Context(), id)
	if errors.Is(err, repository.ErrGameNotFound) {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to get game", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if err = that.stream(conn, game, snapshots); err != nil {
		log.Debug("stream closed", "error", err)
	}
}

func (that *Server) stream(conn *websocket.Conn, game *entity.Game, snapshots <-chan *entity.Game) error {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		// control frames are only processed while reading
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeGame(conn, game); err != nil {
		return err
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return nil
		case snapshot, ok := <-snapshots:
			if !ok {
				// the game was deleted
				message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game deleted")
				return conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeTimeout))
			}

			if err := writeGame(conn, snapshot); err != nil {
				return err
			}
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return err
			}
		}
	}
}

func writeGame(conn *websocket.Conn, game *entity.Game) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return conn.WriteJSON(Message{Type: "game", Game: rest.NewGameResponse(game)})
}
