// Package render composites cards from a template into raster images.
//
// # Overview
//
// The [Compositor] turns a card and a template into an *image.NRGBA:
//
//	c := render.New(render.WithAssets(store), render.WithLogger(logger))
//	res, err := c.Render(ctx, card, tmpl)
//	// res.Image is the card, res.Warnings lists skipped elements
//
// Rendering is deterministic. The same card, template, fonts and assets
// always produce the same pixels; no randomness or clock is involved.
//
// # Paint Order
//
// The canvas starts fully transparent. The frame asset, when present, is
// scaled to the canvas and painted first. Items follow in ascending z,
// declaration order breaking ties, so later items cover earlier ones.
//
// # Bindings
//
// Text items show a card field chosen by their binding (the item's "bind"
// member, or its key):
//
//	title, name   card name
//	description   card description
//	cost          card cost
//	cost_type     card cost type
//	type          card type, upper-cased
//	stat_<name>   "<LABEL> <value>", units only
//
// Any other binding shows the item's literal text. Image items bound to
// "artwork" show the card's image, scaled to the item size without keeping
// the aspect ratio; image items with a "src" show that asset.
//
// # Degradation
//
// Missing optional resources never fail a render: absent or undecodable
// artwork, a broken frame, missing icons or assets, and fonts that cannot be
// found all become entries in [Result.Warnings] and are logged. A missing
// template or a font file that exists but cannot be parsed is a
// *errors.RenderError naming the resource.
//
// # Card Backs
//
// [Compositor.RenderBack] draws a plain card back in the deck colour with a
// QR code of the deck name, for decks that have no back artwork.
package render
