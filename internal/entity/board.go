package entity

const (
	// BoardSize is the playable width and height.
	BoardSize = 8

	// gridSize includes the one-cell sentinel ring.
	gridSize = BoardSize + 2
)

// Square - content of one board cell.
type Square int8

const (
	Sentinel   Square = -1
	Blank      Square = 0
	BlackStone Square = Square(Black)
	WhiteStone Square = Square(White)
)

// Board - the playable grid surrounded by a ring of Sentinel cells so direction scans never
// need bounds checks. Cells are addressed [y][x] in sentinel-relative coordinates.
type Board [gridSize][gridSize]Square

// PlayableView - the 8x8 board without its border, addressed [y][x].
type PlayableView [BoardSize][BoardSize]Square

// Move - a cell in 0-based playable coordinates.
type Move struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Change - previous value of one cell touched by a move, in sentinel-relative coordinates.
type Change struct {
	X    int
	Y    int
	Prev Square
}

// Score - stone count per color.
type Score struct {
	Black int `json:"black"`
	White int `json:"white"`
}

// InitialBoard - returns the bordered board with the four opening stones in the center.
func InitialBoard() Board {
	var board Board

	for y := range gridSize {
		for x := range gridSize {
			if y == 0 || x == 0 || y == gridSize-1 || x == gridSize-1 {
				board[y][x] = Sentinel
			}
		}
	}

	board[4][4] = WhiteStone
	board[5][5] = WhiteStone
	board[5][4] = BlackStone
	board[4][5] = BlackStone

	return board
}

// At - returns the cell at 0-based playable coordinates.
func (that *Board) At(x, y int) Square {
	return that[y+1][x+1]
}

// View - returns a fresh copy of the playable cells.
func (that *Board) View() PlayableView {
	var view PlayableView

	for y := range BoardSize {
		for x := range BoardSize {
			view[y][x] = that[y+1][x+1]
		}
	}

	return view
}

// Score - counts the stones of both colors.
func (that *Board) Score() Score {
	var score Score

	for y := 1; y <= BoardSize; y++ {
		for x := 1; x <= BoardSize; x++ {
			switch that[y][x] {
			case BlackStone:
				score.Black++
			case WhiteStone:
				score.White++
			}
		}
	}

	return score
}

// Key - serializes the playable cells, one byte per cell.
func (that *Board) Key() string {
	var buf [BoardSize * BoardSize]byte

	for y := range BoardSize {
		for x := range BoardSize {
			buf[y*BoardSize+x] = byte('0' + that[y+1][x+1])
		}
	}

	return string(buf[:])
}
