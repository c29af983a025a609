package template

// DefaultName is the store name used for the built-in template.
const DefaultName = "default"

const defaultFamily = "Montserrat"

// Default returns the built-in 744x1038 layout. It is a starting point for
// editing, not a fallback: rendering without a template is an error.
func Default() *Template {
	opaque := 1.0
	wide := 520.0

	text := func(key, literal string, x, y, size float64, bold bool, color string, z int) Item {
		return Item{
			Key:  key,
			Kind: KindText,
			Pos:  Point{X: x, Y: y},
			Z:    z,
			Text: &TextSpec{
				Text:  literal,
				Font:  Font{Family: defaultFamily, Size: size, Bold: bold},
				Color: color,
			},
		}
	}

	title := text("title", "Card name", 60, 40, 32, true, "#FFFFFF", 5)
	title.Text.TextWidth = &wide
	description := text("description", "Ability text...", 60, 520, 18, false, "#FFFFFF", 5)
	description.Text.TextWidth = &wide

	return &Template{
		Meta: Meta{
			Width:      744,
			Height:     1038,
			DPI:        300,
			Background: "#1a1a1a",
			Grid:       25,
			Snap:       5,
		},
		Items: []Item{
			{
				Key:     "artwork",
				Kind:    KindImage,
				Pos:     Point{X: 112, Y: 150},
				Z:       1,
				Opacity: &opaque,
				Image:   &ImageSpec{Size: Size{W: 520, H: 320}},
			},
			title,
			text("type", "UNIT", 60, 90, 20, true, "#F7D56E", 5),
			description,
			text("cost", "0", 620, 34, 28, true, "#FFFFFF", 6),
			text("cost_type", "BF", 620, 74, 20, false, "#F7D56E", 6),
			text("stat_atk", "ATK 0", 80, 740, 20, true, "#FFFFFF", 6),
			text("stat_def", "DEF 0", 80, 780, 20, true, "#FFFFFF", 6),
			text("stat_stb", "STB 0", 80, 820, 20, true, "#FFFFFF", 6),
		},
	}
}
