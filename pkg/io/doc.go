// Package io provides CSV and JSON import and export for card lists.
//
// # Overview
//
// Card data is authored outside cardforge (spreadsheets, editors) and lives in
// one of two flat file formats. Both round-trip losslessly for every documented
// field: reading a file written by this package yields equal cards.
//
// # CSV Format
//
// The header is fixed:
//
//	name,type,cost,cost_type,atk,def,stb,init,rng,move,description
//
// Stat cells are empty for non-unit rows. Columns are matched by name, so
// reordered or partial headers are accepted on import. When any card carries an
// image path, [WriteCSV] appends an image_path column.
//
// # JSON Format
//
//	{
//	  "deck_color": "#7B1F1F",
//	  "cards": [
//	    {"name": "Striker", "type": "unit", "cost": 2, "cost_type": "BF",
//	     "description": "...", "atk": 3, "def": 1, "stb": 2, "init": 0, "rng": 1, "move": 2},
//	    {"name": "Smoke", "type": "tactic", "cost": 1, "cost_type": "BF", "description": "..."}
//	  ]
//	}
//
// Stat keys are present only when the card has stats.
//
// # Normalization
//
// Every imported card is passed through [card.Card.Normalize], so the stats
// invariant holds for everything this package returns: units always have
// stats, other types never do. Unknown card types and malformed numbers are
// reported as validation errors naming the row.
//
// [card.Card.Normalize]: github.com/matzehuels/cardforge/pkg/card.Card.Normalize
package io
