package render

var (
	defaultPalette = []rune(" .'`:-=+*o%#@")
	dotsPalette    = []rune(" ·.:•oO●")
	blockPalette   = []rune(" ░▒▓█")
	asciiPalette   = []rune(" .:-=+*#%@")
)

// Palette returns characters used for brightness mapping, darkest first.
func Palette(name string) []rune {
	switch name {
	case "dots":
		return dotsPalette
	case "blocks":
		return blockPalette
	case "ascii":
		return asciiPalette
	default:
		return defaultPalette
	}
}

// PaletteNames returns all palette identifiers.
func PaletteNames() []string {
	return []string{"default", "dots", "blocks", "ascii"}
}
