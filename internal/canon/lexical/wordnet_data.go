package lexical

// wnSynset mirrors one NLTK-style synset: an offset+POS id, its lemma
// set, a gloss, and the offset+POS ids of its direct hypernyms
// (closest parent first when more than one is recorded, matching how
// WordNet itself orders multiple inheritance rarely occurring in
// practice for the common nouns/adjectives this table covers).
type wnSynset struct {
	ID        string
	POS       string // "n" noun, "a" adjective, "v" verb, "r" adverb
	Lemmas    []string
	Gloss     string
	Hypernyms []string
}

// wordnetSynsets is a representative, hand-built subset of Princeton
// WordNet's noun/adjective hierarchy, loaded once at process start. The
// full corpus (~117,000 synsets) isn't embeddable in a source tree this
// size; this subset covers the hierarchy depth the engine's worked
// domains exercise (animal/dog/puppy, vehicle/car, computer/laptop,
// color terms, condition adjectives, medical-practitioner/dentist as
// the documented over-collapse hazard) and is structured so a generated
// full-corpus
// data file can replace it without touching wordnet.go.
var wordnetSynsets = map[string]*wnSynset{
	"00015388-n": {
		ID: "00015388-n", POS: "n",
		Lemmas: []string{"animal", "animate being", "beast", "brute", "creature", "fauna"},
		Gloss:  "a living organism characterized by voluntary movement",
	},
	"02083346-n": {
		ID: "02083346-n", POS: "n",
		Lemmas:    []string{"canine", "canid"},
		Gloss:     "any of various fissiped mammals with nonretractile claws",
		Hypernyms: []string{"00015388-n"},
	},
	"02084071-n": {
		ID: "02084071-n", POS: "n",
		Lemmas:    []string{"dog", "domestic dog", "canis familiaris"},
		Gloss:     "a member of the genus canis that has been domesticated by man since prehistoric times",
		Hypernyms: []string{"02083346-n"},
	},
	"02085272-n": {
		ID: "02085272-n", POS: "n",
		Lemmas:    []string{"puppy"},
		Gloss:     "a young dog",
		Hypernyms: []string{"02084071-n"},
	},
	"04524313-n": {
		ID: "04524313-n", POS: "n",
		Lemmas: []string{"vehicle"},
		Gloss:  "a conveyance that transports people or objects",
	},
	"04530566-n": {
		ID: "04530566-n", POS: "n",
		Lemmas:    []string{"wheeled vehicle"},
		Gloss:     "a vehicle that moves on wheels and usually has a container body",
		Hypernyms: []string{"04524313-n"},
	},
	"03790512-n": {
		ID: "03790512-n", POS: "n",
		Lemmas:    []string{"motor vehicle", "automotive vehicle"},
		Gloss:     "a self-propelled wheeled vehicle that does not run on rails",
		Hypernyms: []string{"04530566-n"},
	},
	"02958343-n": {
		ID: "02958343-n", POS: "n",
		Lemmas:    []string{"car", "auto", "automobile", "machine", "motorcar"},
		Gloss:     "a motor vehicle with four wheels; usually propelled by an internal combustion engine",
		Hypernyms: []string{"03790512-n"},
	},
	"03082979-n": {
		ID: "03082979-n", POS: "n",
		Lemmas: []string{"computer", "computing machine", "computing device", "data processor", "electronic computer", "information processing system"},
		Gloss:  "a machine for performing calculations automatically",
	},
	"03621049-n": {
		ID: "03621049-n", POS: "n",
		Lemmas:    []string{"portable computer"},
		Gloss:     "a personal computer that can easily be carried by hand",
		Hypernyms: []string{"03082979-n"},
	},
	"03642806-n": {
		ID: "03642806-n", POS: "n",
		Lemmas:    []string{"laptop", "laptop computer", "notebook", "notebook computer"},
		Gloss:     "a portable computer small enough to use in your lap",
		Hypernyms: []string{"03621049-n"},
	},
	"05061977-n": {
		ID: "05061977-n", POS: "n",
		Lemmas: []string{"color", "colour", "coloring", "colouring"},
		Gloss:  "a visual attribute of things that results from the light they emit or transmit or reflect",
	},
	"05062748-n": {
		ID: "05062748-n", POS: "n",
		Lemmas:    []string{"chromatic color", "chromatic colour", "spectral color", "spectral colour"},
		Gloss:     "a color that has a hue, as opposed to the achromatic colors white, black, and gray",
		Hypernyms: []string{"05061977-n"},
	},
	"05076778-n": {
		ID: "05076778-n", POS: "n",
		Lemmas:    []string{"red", "redness"},
		Gloss:     "red color or pigment; the chromatic color resembling the hue of blood",
		Hypernyms: []string{"05062748-n"},
	},
	"05076419-n": {
		ID: "05076419-n", POS: "n",
		Lemmas:    []string{"blue", "blueness"},
		Gloss:     "blue color or pigment; resembling the color of the clear sky in the daytime",
		Hypernyms: []string{"05062748-n"},
	},
	"01940403-a": {
		ID: "01940403-a", POS: "a",
		Lemmas: []string{"used", "secondhand", "second-hand"},
		Gloss:  "previously used or owned by another",
	},
	"01640850-a": {
		ID: "01640850-a", POS: "a",
		Lemmas: []string{"new"},
		Gloss:  "not of long duration; having just or relatively recently come into being",
	},
	"02586158-a": {
		ID: "02586158-a", POS: "a",
		Lemmas: []string{"worn"},
		Gloss:  "affected by wear; damaged by long use",
	},
	"10305802-n": {
		ID: "10305802-n", POS: "n",
		Lemmas: []string{"medical practitioner", "medical man"},
		Gloss:  "a person skilled in the practice of medicine",
	},
	"10020031-n": {
		ID: "10020031-n", POS: "n",
		Lemmas:    []string{"dentist", "tooth doctor", "dental practitioner"},
		Gloss:     "a person qualified to treat diseases and disorders of the teeth",
		Hypernyms: []string{"10305802-n"},
	},
}

// wnLemmaIndex maps a lowercase, underscore-joined lemma to the ids of
// every synset that contains it, in no particular order; synsetsFor
// applies the noun/adjective-first ordering so item-type tokens are
// never classified as verbs.
var wnLemmaIndex = buildLemmaIndex()

func buildLemmaIndex() map[string][]string {
	idx := make(map[string][]string)
	for id, ss := range wordnetSynsets {
		for _, lemma := range ss.Lemmas {
			key := normalizeLemma(lemma)
			idx[key] = append(idx[key], id)
		}
	}
	return idx
}

func normalizeLemma(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ' ' {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return toLowerASCII(string(out))
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
