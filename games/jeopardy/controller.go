package jeopardy

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotReady   = errors.New("board is not ready")
	ErrSuperseded = errors.New("load superseded by a newer game")
)

// Fetcher is the subset of the trivia client the controller needs.
type Fetcher interface {
	FetchRandomCategoryIDs(ctx context.Context, count int) ([]int, error)
	FetchCategory(ctx context.Context, id int) (*Category, error)
}

type State int

const (
	Ready State = iota
	Loading
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Loading:
		return "loading"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	LabelStart   = "Start!"
	LabelLoading = "Loading..."
	LabelRestart = "Restart!"
	LabelRetry   = "Try again"
)

// View is everything outside the grid that the page shows: the start
// button, the loading spinner, whether the grid is visible, and any error.
type View struct {
	State         State  `json:"state"`
	Button        string `json:"button"`
	ButtonEnabled bool   `json:"button_enabled"`
	Loading       bool   `json:"loading"`
	ShowGrid      bool   `json:"show_grid"`
	Error         string `json:"error,omitempty"`
}

// Controller runs the lifecycle of one board. Starting a game while another
// is still loading cancels the older load, and only the newest load may
// publish a board.
type Controller struct {
	fetcher       Fetcher
	numCategories int
	numClues      int

	mu     sync.Mutex
	state  State
	board  *Board
	err    error
	gen    uint64
	cancel context.CancelFunc
}

// NewController returns a controller in the Ready state with no board.
// Non-positive dimensions fall back to the defaults.
func NewController(f Fetcher, numCategories, numClues int) *Controller {
	if numCategories <= 0 {
		numCategories = NumCategories
	}
	if numClues <= 0 {
		numClues = NumCluesPerCategory
	}

	return &Controller{
		fetcher:       f,
		numCategories: numCategories,
		numClues:      numClues,
		state:         Ready,
	}
}

// Start discards the current board, loads a new one and renders it.
// It blocks until the load finishes, fails, or is superseded by a later
// call to Start, in which case it returns ErrSuperseded and changes nothing.
func (c *Controller) Start(ctx context.Context) (Grid, error) {
	return c.Begin(ctx)()
}

// Begin switches to Loading right away, cancelling any older load, and
// returns the load itself for the caller to run, typically on its own
// goroutine.
func (c *Controller) Begin(ctx context.Context) func() (Grid, error) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.state = Loading
	c.board = nil
	c.err = nil
	c.mu.Unlock()

	return func() (Grid, error) {
		defer cancel()

		board, err := c.load(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()

		if gen != c.gen {
			return Grid{}, ErrSuperseded
		}
		c.cancel = nil

		if err != nil {
			c.state = Failed
			c.err = err
			return Grid{}, err
		}

		c.board = board
		c.state = Ready

		return RenderGrid(board, c.numCategories, c.numClues), nil
	}
}

func (c *Controller) load(ctx context.Context) (*Board, error) {
	ids, err := c.fetcher.FetchRandomCategoryIDs(ctx, c.numCategories)
	if err != nil {
		return nil, fmt.Errorf("fetching category ids: %w", err)
	}

	board := NewBoard()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cat, err := c.fetcher.FetchCategory(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetching category %d: %w", id, err)
		}
		board.Append(cat)
	}

	return board, nil
}

// Stop cancels any in-flight load.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Loading:
		return View{
			State:   Loading,
			Button:  LabelLoading,
			Loading: true,
		}
	case Failed:
		return View{
			State:         Failed,
			Button:        LabelRetry,
			ButtonEnabled: true,
			Error:         "Could not load the board: " + c.err.Error(),
		}
	default:
		if c.board == nil {
			return View{
				State:         Ready,
				Button:        LabelStart,
				ButtonEnabled: true,
			}
		}
		return View{
			State:         Ready,
			Button:        LabelRestart,
			ButtonEnabled: true,
			ShowGrid:      true,
		}
	}
}

// Grid renders the current board, and reports false when there is none.
func (c *Controller) Grid() (Grid, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Ready || c.board == nil {
		return Grid{}, false
	}

	return RenderGrid(c.board, c.numCategories, c.numClues), true
}

// Board returns the current board, or nil while none is loaded.
func (c *Controller) Board() *Board {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.board
}

// Reveal handles a click on the cell at the given coordinate.
func (c *Controller) Reveal(at Coord) (Cell, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Ready || c.board == nil {
		return Cell{Coord: at}, false, ErrNotReady
	}
	if at.Row >= c.numClues || at.Col >= c.numCategories {
		return Cell{Coord: at}, false, fmt.Errorf("%w: %s", ErrNoClue, at)
	}

	return HandleCellClick(c.board, at)
}
