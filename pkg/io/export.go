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

func toRecord(c card.Card) record {
	rec := record{
		Name:        c.Name,
		Type:        string(c.Type),
		Cost:        c.Cost,
		CostType:    c.CostType,
		Description: c.Description,
		ImagePath:   c.ImagePath,
	}
	if c.Stats != nil {
		s := *c.Stats
		rec.ATK, rec.DEF, rec.STB = &s.ATK, &s.DEF, &s.STB
		rec.Init, rec.Rng, rec.Move = &s.Init, &s.Rng, &s.Move
	}
	return rec
}

// WriteJSON encodes cards as a deck file and writes it to w.
// An empty deckColor is replaced with [card.DefaultDeckColor].
func WriteJSON(cards []card.Card, deckColor string, w io.Writer) error {
	if deckColor == "" {
		deckColor = card.DefaultDeckColor
	}
	out := deckFile{DeckColor: deckColor, Cards: make([]record, len(cards))}
	for i, c := range cards {
		out.Cards[i] = toRecord(c)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteCSV encodes cards as a CSV table and writes it to w.
func WriteCSV(cards []card.Card, w io.Writer) error {
	header := CSVHeader
	withImages := false
	for _, c := range cards {
		if c.ImagePath != "" {
			withImages = true
			break
		}
	}
	if withImages {
		header = append(append([]string{}, CSVHeader...), imagePathColumn)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	for _, c := range cards {
		row := []string{c.Name, string(c.Type), strconv.Itoa(c.Cost), c.CostType}
		for _, name := range card.StatNames {
			cell := ""
			if c.Stats != nil {
				v, _ := c.Stats.Get(name)
				cell = strconv.Itoa(v)
			}
			row = append(row, cell)
		}
		row = append(row, c.Description)
		if withImages {
			row = append(row, c.ImagePath)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveFile writes cards to a .csv or .json file, choosing the format by extension.
// deckColor is ignored for CSV.
func SaveFile(cards []card.Card, deckColor, path string) error {
	var write func(io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		write = func(w io.Writer) error { return WriteJSON(cards, deckColor, w) }
	case ".csv":
		write = func(w io.Writer) error { return WriteCSV(cards, w) }
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported card file %s (want .csv or .json)", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
