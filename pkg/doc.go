// Package pkg provides the core libraries for cardforge card production.
//
// # Overview
//
// Cardforge turns card definitions into print-ready sheets. The pkg
// directory is organized into these areas:
//
//  1. [card], [io] - The card model and its CSV/JSON files
//  2. [template] - JSON layout templates, preserving unknown members
//  3. [render], [fonts], [assets] - Compositing cards into raster images
//  4. [pack] - Laying images out on PDF pages
//  5. [generate] - Artwork generation jobs
//  6. [pipeline] - Orchestration (load → render → pack) with caching
//  7. [cache], [i18n], [observability] - Supporting infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	cards.csv / cards.json
//	         ↓
//	    [io] package (load cards)
//	         ↓
//	    [render] package (card + template → image)
//	         ↓
//	    [pack] package (images → PDF pages)
//	         ↓
//	    print-ready PDF
//
// Artwork produced by [generate] is referenced from a card's image path and
// picked up by the next render.
//
// # Quick Start
//
//	cards, _, _ := io.LoadFile("cards.csv")
//	tmpl, _ := template.LoadFile("templates/default.json")
//	runner := pipeline.NewRunner(nil, nil, render.New(render.WithAssets(assets.New("resources"))), nil)
//	f, _ := os.Create("deck.pdf")
//	defer f.Close()
//	res, err := runner.Export(ctx, cards, pipeline.Options{Template: tmpl}, f)
//
// # Error Handling
//
// All packages return errors from [errors]: coded errors that can be
// tested with errors.Is(err, code), plus typed validation, render and
// packing errors carrying the failing field, resource or item index.
package pkg
