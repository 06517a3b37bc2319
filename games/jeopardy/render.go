package jeopardy

import (
	"errors"
	"fmt"
)

// Placeholder is shown in a body cell until its question is revealed.
const Placeholder = "?"

var ErrNoClue = errors.New("no clue at position")

// Coord locates a body cell: Row indexes the clue within its category,
// Col indexes the category.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Coord) String() string {
	return fmt.Sprintf("r%d c%d", c.Row, c.Col)
}

// Cell is one body cell of the rendered grid. Cells are built with their
// coordinates attached, so a click resolves straight back to its clue.
type Cell struct {
	Coord
	Text      string `json:"text"`
	Revealed  bool   `json:"revealed"`
	Clickable bool   `json:"clickable"`
}

// Grid is the display projection of a Board: one header row of category
// titles and Rows[i][j] holding clue i of category j.
type Grid struct {
	Headers []string `json:"headers"`
	Rows    [][]Cell `json:"rows"`
}

// Size returns the number of header and body cells in the grid.
func (g Grid) Size() (headers, cells int) {
	for _, row := range g.Rows {
		cells += len(row)
	}
	return len(g.Headers), cells
}

func cellFor(b *Board, at Coord) Cell {
	clue, err := b.Clue(at)
	if err != nil {
		return Cell{Coord: at}
	}

	return Cell{
		Coord:     at,
		Text:      clue.Text(),
		Revealed:  clue.Showing == Answer,
		Clickable: clue.Showing != Answer,
	}
}

// RenderGrid lays the board out as numCategories columns and numClues rows.
// Positions the board cannot fill are rendered as empty, unclickable cells.
func RenderGrid(b *Board, numCategories, numClues int) Grid {
	g := Grid{
		Headers: make([]string, numCategories),
		Rows:    make([][]Cell, numClues),
	}

	for j := 0; j < numCategories; j++ {
		if j < b.Len() && b.Categories[j] != nil {
			g.Headers[j] = b.Categories[j].Title
		}
	}

	for i := 0; i < numClues; i++ {
		row := make([]Cell, numCategories)
		for j := 0; j < numCategories; j++ {
			row[j] = cellFor(b, Coord{Row: i, Col: j})
		}
		g.Rows[i] = row
	}

	return g
}

// HandleCellClick advances the clue under the clicked cell. The returned
// cell carries the text to display; changed is false when the answer was
// already showing and nothing happened.
func HandleCellClick(b *Board, at Coord) (cell Cell, changed bool, err error) {
	clue, err := b.Clue(at)
	if err != nil {
		return Cell{Coord: at}, false, err
	}

	_, changed = clue.Reveal()

	return cellFor(b, at), changed, nil
}
