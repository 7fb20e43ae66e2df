package apperror

import "errors"

var (
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrInvalidCell   = errors.New("invalid cell index")
	ErrInvalidSeat   = errors.New("invalid seat")
	ErrChannelClosed = errors.New("message channel is closed")
)
