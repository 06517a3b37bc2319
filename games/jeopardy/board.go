/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package jeopardy holds the board, its grid projection and the game
// lifecycle for a single trivia board.
package jeopardy

import (
	"fmt"
)

const (
	NumCategories       = 6
	NumCluesPerCategory = 5
)

// RevealState tracks what a clue cell is currently displaying.
// It only ever moves forward: Hidden, then Question, then Answer.
type RevealState int

const (
	Hidden RevealState = iota
	Question
	Answer
)

func (s RevealState) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Question:
		return "question"
	case Answer:
		return "answer"
	default:
		return fmt.Sprintf("RevealState(%d)", int(s))
	}
}

func (s RevealState) MarshalText() ([]byte, error) {
	switch s {
	case Hidden, Question, Answer:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("invalid reveal state: %d", int(s))
	}
}

func (s *RevealState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "hidden", "":
		*s = Hidden
	case "question":
		*s = Question
	case "answer":
		*s = Answer
	default:
		return fmt.Errorf("invalid reveal state: %q", text)
	}
	return nil
}

type Clue struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Showing  RevealState `json:"showing"`
}

// Reveal advances the clue one step and returns the text to display.
// changed is false once the answer is showing; further calls are no-ops.
func (c *Clue) Reveal() (text string, changed bool) {
	switch c.Showing {
	case Hidden:
		c.Showing = Question
		return c.Question, true
	case Question:
		c.Showing = Answer
		return c.Answer, true
	default:
		return c.Answer, false
	}
}

// Text is what the clue's cell shows for its current state.
func (c *Clue) Text() string {
	switch c.Showing {
	case Question:
		return c.Question
	case Answer:
		return c.Answer
	default:
		return Placeholder
	}
}

type Category struct {
	Title string  `json:"title"`
	Clues []*Clue `json:"clues"`
}

// Board is the set of categories for one game. Its shape is whatever the
// trivia service returned; nothing here checks that it is rectangular.
type Board struct {
	Categories []*Category `json:"categories"`
}

func NewBoard() *Board {
	return &Board{
		Categories: make([]*Category, 0, NumCategories),
	}
}

func (b *Board) Append(c *Category) {
	b.Categories = append(b.Categories, c)
}

func (b *Board) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Categories)
}

// Clue returns the clue at the given coordinate, or ErrNoClue when the
// board has no category for the column or no clue for the row.
func (b *Board) Clue(at Coord) (*Clue, error) {
	if b == nil || at.Col < 0 || at.Col >= len(b.Categories) {
		return nil, fmt.Errorf("%w: %s", ErrNoClue, at)
	}

	cat := b.Categories[at.Col]
	if cat == nil || at.Row < 0 || at.Row >= len(cat.Clues) || cat.Clues[at.Row] == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoClue, at)
	}

	return cat.Clues[at.Row], nil
}
