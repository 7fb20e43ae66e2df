package game

import (
	"fmt"

	"github.com/roomloop/tictactoe-server/internal/apperror"
)

// Cell values: 0 is empty, 1 and 2 are the two seats.
const (
	EmptyCell = 0
	Seat1     = 1
	Seat2     = 2
)

// WinLines are the eight winning lines: rows, columns, diagonals.
var WinLines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is the 9-cell grid of one match.
type Board struct {
	cells [9]int
}

func NewBoard() *Board {
	return &Board{}
}

// MakeMove marks a cell for a seat. An accepted move is final: the cell can
// never be rewritten.
func (that *Board) MakeMove(seat, cell int) error {
	if seat != Seat1 && seat != Seat2 {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidSeat, seat)
	}

	if cell < 0 || cell >= len(that.cells) {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidCell, cell)
	}

	if that.cells[cell] != EmptyCell {
		return fmt.Errorf("%w: %d", apperror.ErrCellOccupied, cell)
	}

	that.cells[cell] = seat

	return nil
}

// Winner scans the eight lines and returns the seat fully owning one, or 0.
func (that *Board) Winner() int {
	for _, line := range WinLines {
		a, b, c := that.cells[line[0]], that.cells[line[1]], that.cells[line[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	return 0
}

// IsFull reports whether every cell is owned.
func (that *Board) IsFull() bool {
	for _, cell := range that.cells {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// Cells returns a snapshot of the grid.
func (that *Board) Cells() [9]int {
	return that.cells
}
