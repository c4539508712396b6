package dicts

// UKToUSSpelling normalizes British spellings to American spellings for
// single tokens. Intentionally non-exhaustive; extend by adding
// entries.
var UKToUSSpelling = map[string]string{
	"colour":        "color",
	"colours":       "colors",
	"favourite":     "favorite",
	"favourites":    "favorites",
	"neighbour":     "neighbor",
	"neighbourhood": "neighborhood",
	"organise":      "organize",
	"organised":     "organized",
	"recognise":     "recognize",
	"centre":        "center",
	"centres":       "centers",
	"theatre":       "theater",
	"metre":         "meter",
	"metres":        "meters",
	"litre":         "liter",
	"litres":        "liters",
	"tyre":          "tire",
	"tyres":         "tires",
	"grey":          "gray",
	"fibre":         "fiber",
	"aluminium":     "aluminum",
	"defence":       "defense",
	"licence":       "license",
	"practise":      "practice",
	"programme":     "program",
	"travelled":     "traveled",
	"travelling":    "traveling",
	"labour":        "labor",
	"mould":         "mold",
	"cheque":        "check",
	"jewellery":     "jewelry",
	"catalogue":     "catalog",
	"dialogue":      "dialog",
	"analyse":       "analyze",
	"storey":        "story",
}
