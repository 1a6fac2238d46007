package usecase

import (
	"sync"

	"github.com/rocketscienceinc/reversi-backend/internal/entity"
)

const updatesBuffer = 8

// updates - fan-out of stored game snapshots to per-game subscribers. A slow subscriber loses its
// oldest snapshots, never the latest one.
type updates struct {
	mu   sync.Mutex
	subs map[string]map[chan *entity.Game]struct{}
}

func newUpdates() *updates {
	return &updates{subs: make(map[string]map[chan *entity.Game]struct{})}
}

func (that *updates) subscribe(id string) (<-chan *entity.Game, func()) {
	ch := make(chan *entity.Game, updatesBuffer)

	that.mu.Lock()
	if that.subs[id] == nil {
		that.subs[id] = make(map[chan *entity.Game]struct{})
	}
	that.subs[id][ch] = struct{}{}
	that.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			that.mu.Lock()
			defer that.mu.Unlock()

			// closeGame may have closed it already
			if _, ok := that.subs[id][ch]; !ok {
				return
			}

			delete(that.subs[id], ch)
			if len(that.subs[id]) == 0 {
				delete(that.subs, id)
			}
			close(ch)
		})
	}
}

func (that *updates) publish(game *entity.Game) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for ch := range that.subs[game.ID] {
		snapshot := game.Clone()

		select {
		case ch <- snapshot:
		default:
			// full: drop the oldest; only publish sends, so there is room afterwards
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

// closeGame - ends every subscription of the game.
func (that *updates) closeGame(id string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for ch := range that.subs[id] {
		close(ch)
	}
	delete(that.subs, id)
}
