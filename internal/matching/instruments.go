package matching

import (
	"sort"
	"strings"
)

// instrumentAliases maps common spellings and nicknames to canonical instrument names
var instrumentAliases = map[string]string{
	"acoustic guitar":  "guitar",
	"electric guitar":  "electric guitar",
	"classical guitar": "classical guitar",
	"guitars":          "guitar",
	"bass guitar":      "bass",
	"electric bass":    "bass",
	"upright bass":     "double bass",
	"contrabass":       "double bass",
	"uke":              "ukulele",
	"keys":             "piano",
	"keyboard":         "keyboard",
	"keyboards":        "keyboard",
	"grand piano":      "piano",
	"synth":            "synthesizer",
	"synths":           "synthesizer",
	"fiddle":           "violin",
	"violoncello":      "cello",
	"drum":             "drums",
	"drum kit":         "drums",
	"drumkit":          "drums",
	"drum set":         "drums",
	"sax":              "saxophone",
	"alto sax":         "saxophone",
	"tenor sax":        "saxophone",
	"horn":             "french horn",
	"singing":          "voice",
	"vocals":           "voice",
	"vocal":            "voice",
	"singer":           "voice",
	"dj":               "turntables",
	"production":       "music production",
	"beatmaking":       "music production",
}

// instrumentFamilies groups canonical instruments for partial credit
var instrumentFamilies = map[string]string{
	"guitar":           "guitar",
	"electric guitar":  "guitar",
	"classical guitar": "guitar",
	"bass":             "guitar",
	"ukulele":          "guitar",
	"banjo":            "guitar",
	"mandolin":         "guitar",
	"piano":            "keyboard",
	"keyboard":         "keyboard",
	"organ":            "keyboard",
	"synthesizer":      "keyboard",
	"accordion":        "keyboard",
	"violin":           "strings",
	"viola":            "strings",
	"cello":            "strings",
	"double bass":      "strings",
	"harp":             "strings",
	"drums":            "percussion",
	"percussion":       "percussion",
	"cajon":            "percussion",
	"marimba":          "percussion",
	"xylophone":        "percussion",
	"flute":            "woodwind",
	"clarinet":         "woodwind",
	"oboe":             "woodwind",
	"bassoon":          "woodwind",
	"saxophone":        "woodwind",
	"recorder":         "woodwind",
	"trumpet":          "brass",
	"trombone":         "brass",
	"french horn":      "brass",
	"tuba":             "brass",
	"voice":            "voice",
	"turntables":       "electronic",
	"music production": "electronic",
}

// NormalizeInstrument returns the canonical lowercase name for an instrument.
// Unknown instruments are lowercased and trimmed.
func NormalizeInstrument(name string) string {
	lower := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if lower == "" {
		return ""
	}
	if canonical, ok := instrumentAliases[lower]; ok {
		return canonical
	}
	return lower
}

// InstrumentFamily returns the family of an instrument, or "" when unknown.
func InstrumentFamily(name string) string {
	return instrumentFamilies[NormalizeInstrument(name)]
}

// FamilyMembers lists the canonical instruments of a family in alphabetical order.
func FamilyMembers(family string) []string {
	var members []string
	for inst, f := range instrumentFamilies {
		if f == family {
			members = append(members, inst)
		}
	}
	sort.Strings(members)
	return members
}

// KnownInstruments lists every recognised spelling, longest first.
func KnownInstruments() []string {
	seen := make(map[string]bool, len(instrumentAliases)+len(instrumentFamilies))
	for alias := range instrumentAliases {
		seen[alias] = true
	}
	for inst := range instrumentFamilies {
		seen[inst] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}
