package apperror

import "errors"

var (
	ErrGameFinished   = errors.New("game is already finished")
	ErrNotYourTurn    = errors.New("it's not your turn")
	ErrIllegalMove    = errors.New("illegal move")
	ErrSearchInFlight = errors.New("computer is thinking")
	ErrInvalidLevel   = errors.New("invalid difficulty level")
)
