package dicts

// Abbreviations expands common shorthand to its full form. The table
// covers common marketplace-listing vocabulary and is intentionally
// non-exhaustive; extend by adding entries.
var Abbreviations = map[string]string{
	"ac":    "air conditioning",
	"a/c":   "air conditioning",
	"bd":    "bedroom",
	"bdr":   "bedroom",
	"br":    "bedroom",
	"ba":    "bathroom",
	"sqft":  "square feet",
	"sq ft": "square feet",
	"sqm":   "square meters",
	"sq m":  "square meters",
	"yr":    "year",
	"yrs":   "years",
	"mo":    "month",
	"mos":   "months",
	"hr":    "hour",
	"hrs":   "hours",
	"min":   "minimum",
	"max":   "maximum",
	"qty":   "quantity",
	"avail": "available",
	"immed": "immediate",
	"neg":   "negotiable",
	"obo":   "or best offer",
	"firm":  "fixed",
	"exp":   "experience",
	"yoe":   "years of experience",
	"ft":    "full time",
	"pt":    "part time",
	"wfh":   "work from home",
	"auto":  "automatic",
	"manu":  "manual",
	"4wd":   "four wheel drive",
	"awd":   "all wheel drive",
	"fwd":   "front wheel drive",
	"rwd":   "rear wheel drive",
	"mi":    "miles",
	"km":    "kilometers",
	"lbs":   "pounds",
	"kg":    "kilograms",
}
