package io

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/errors"
)

// CSVHeader is the column order written by [WriteCSV].
var CSVHeader = []string{"name", "type", "cost", "cost_type", "atk", "def", "stb", "init", "rng", "move", "description"}

const imagePathColumn = "image_path"

// record is the JSON shape of one card.
type record struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Cost        int    `json:"cost"`
	CostType    string `json:"cost_type"`
	Description string `json:"description"`
	ImagePath   string `json:"image_path,omitempty"`
	ATK         *int   `json:"atk,omitempty"`
	DEF         *int   `json:"def,omitempty"`
	STB         *int   `json:"stb,omitempty"`
	Init        *int   `json:"init,omitempty"`
	Rng         *int   `json:"rng,omitempty"`
	Move        *int   `json:"move,omitempty"`
}

type deckFile struct {
	DeckColor string   `json:"deck_color"`
	Cards     []record `json:"cards"`
}

func (r record) toCard(row int) (card.Card, error) {
	t, err := card.ParseType(r.Type)
	if err != nil {
		return card.Card{}, rowError(row, "type", err)
	}
	if r.Cost < 0 {
		return card.Card{}, errors.Invalid(errors.ErrCodeInvalidCard, fmt.Sprintf("cards[%d].cost", row), "must be >= 0")
	}
	c := card.Card{
		Name:        r.Name,
		Type:        t,
		Cost:        r.Cost,
		CostType:    r.CostType,
		Description: r.Description,
		ImagePath:   r.ImagePath,
	}
	if r.hasStats() {
		c.Stats = &card.Stats{
			ATK:  deref(r.ATK),
			DEF:  deref(r.DEF),
			STB:  deref(r.STB),
			Init: deref(r.Init),
			Rng:  deref(r.Rng),
			Move: deref(r.Move),
		}
	}
	c.Normalize()
	return c, nil
}

// hasStats reports whether any stat field is set. Missing stats of a unit
// read as zero.
func (r record) hasStats() bool {
	for _, p := range []*int{r.ATK, r.DEF, r.STB, r.Init, r.Rng, r.Move} {
		if p != nil {
			return true
		}
	}
	return false
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func rowError(row int, field string, err error) error {
	return errors.Invalid(errors.ErrCodeInvalidCard, fmt.Sprintf("cards[%d].%s", row, field), "%s", errors.UserMessage(err))
}

// ReadJSON decodes a deck file from r.
// It returns the cards in file order and the deck colour (empty if absent).
func ReadJSON(r io.Reader) ([]card.Card, string, error) {
	var data deckFile
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, "", errors.Invalid(errors.ErrCodeInvalidCard, "", "decode: %v", err)
	}
	cards := make([]card.Card, 0, len(data.Cards))
	for i, rec := range data.Cards {
		c, err := rec.toCard(i)
		if err != nil {
			return nil, "", err
		}
		cards = append(cards, c)
	}
	return cards, data.DeckColor, nil
}

// ReadCSV decodes a card table from r. Columns are matched by header name.
func ReadCSV(r io.Reader) ([]card.Card, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Invalid(errors.ErrCodeInvalidCard, "", "decode: %v", err)
	}
	if len(rows) < 1 {
		return nil, errors.Invalid(errors.ErrCodeInvalidCard, "", "csv has no header")
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "﻿"))] = i
	}
	get := func(row []string, name string) string {
		if idx, ok := cols[name]; ok && idx < len(row) {
			return row[idx]
		}
		return ""
	}
	atoi := func(s string, row int, field string) (*int, error) {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Invalid(errors.ErrCodeInvalidCard, fmt.Sprintf("cards[%d].%s", row, field), "not an integer: %q", s)
		}
		return &v, nil
	}

	cards := make([]card.Card, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec := record{
			Name:        get(row, "name"),
			Type:        get(row, "type"),
			CostType:    get(row, "cost_type"),
			Description: get(row, "description"),
			ImagePath:   get(row, imagePathColumn),
		}
		cost, err := atoi(get(row, "cost"), i, "cost")
		if err != nil {
			return nil, err
		}
		rec.Cost = deref(cost)
		stats := []**int{&rec.ATK, &rec.DEF, &rec.STB, &rec.Init, &rec.Rng, &rec.Move}
		for j, name := range card.StatNames {
			v, err := atoi(get(row, name), i, name)
			if err != nil {
				return nil, err
			}
			*stats[j] = v
		}
		c, err := rec.toCard(i)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// LoadFile reads cards from a .csv or .json file, choosing the format by extension.
// The deck colour is empty for CSV files.
func LoadFile(path string) ([]card.Card, string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ReadJSON(f)
	case ".csv":
		cards, err := ReadCSV(f)
		return cards, "", err
	default:
		return nil, "", errors.New(errors.ErrCodeInvalidFormat, "unsupported card file %s (want .csv or .json)", path)
	}
}
