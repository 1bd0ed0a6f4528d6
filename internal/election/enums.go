// Package election defines the canonical domain model: the election result
// record, the closed Category/Municipality/Party enumerations, and the filter
// vocabulary shared by every aggregation backend.
//
// Each enumeration is integer-coded (the row store persists the code) and
// carries a canonical name (CSV cells, query parameters, and search-index
// documents use the name). Code 0 is the reserved "TeGjitha" wildcard, valid
// only inside a Filter and never on a stored record.
package election

import (
	"fmt"
	"strings"
	"unicode"
)

// Category classifies an electoral contest.
type Category int

const (
	CategoryAll Category = iota
	CategoryLokale
	CategoryNacionale
)

var categoryNames = map[Category]string{
	CategoryAll:       "TeGjitha",
	CategoryLokale:    "Lokale",
	CategoryNacionale: "Nacionale",
}

// Municipality is the administrative region grouping polling centers.
type Municipality int

const (
	MunicipalityAll Municipality = iota
	MunicipalityTirana
	MunicipalityDurres
	MunicipalityVlora
	MunicipalityShkodra
	MunicipalityElbasan
	MunicipalityKorca
	MunicipalityFier
	MunicipalityBerat
	MunicipalityLushnja
	MunicipalityPogradec
	MunicipalityKukes
	MunicipalityLezha
	MunicipalityGjirokastra
	MunicipalityKavaja
)

var municipalityNames = map[Municipality]string{
	MunicipalityAll:         "TeGjitha",
	MunicipalityTirana:      "Tirana",
	MunicipalityDurres:      "Durres",
	MunicipalityVlora:       "Vlora",
	MunicipalityShkodra:     "Shkodra",
	MunicipalityElbasan:     "Elbasan",
	MunicipalityKorca:       "Korca",
	MunicipalityFier:        "Fier",
	MunicipalityBerat:       "Berat",
	MunicipalityLushnja:     "Lushnja",
	MunicipalityPogradec:    "Pogradec",
	MunicipalityKukes:       "Kukes",
	MunicipalityLezha:       "Lezha",
	MunicipalityGjirokastra: "Gjirokastra",
	MunicipalityKavaja:      "Kavaja",
}

// Party identifies a recognised political entity.
type Party int

const (
	PartyAll Party = iota
	PartyPS
	PartyPD
	PartyLSI
	PartyPSD
	PartyPDIU
	PartyPBDNJ
	PartyPR
	PartyFRD
)

var partyNames = map[Party]string{
	PartyAll:   "TeGjitha",
	PartyPS:    "PS",
	PartyPD:    "PD",
	PartyLSI:   "LSI",
	PartyPSD:   "PSD",
	PartyPDIU:  "PDIU",
	PartyPBDNJ: "PBDNJ",
	PartyPR:    "PR",
	PartyFRD:   "FRD",
}

// Lookup tables from fold-cased canonical name back to the member, built once
// from the declared members.
var (
	categoriesByName     = make(map[string]Category, len(categoryNames))
	municipalitiesByName = make(map[string]Municipality, len(municipalityNames))
	partiesByName        = make(map[string]Party, len(partyNames))
)

func init() {
	for c, name := range categoryNames {
		categoriesByName[strings.ToLower(name)] = c
	}
	for m, name := range municipalityNames {
		municipalitiesByName[strings.ToLower(name)] = m
	}
	for p, name := range partyNames {
		partiesByName[strings.ToLower(name)] = p
	}
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

func (m Municipality) String() string {
	if name, ok := municipalityNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Municipality(%d)", int(m))
}

func (p Party) String() string {
	if name, ok := partyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Party(%d)", int(p))
}

// Known reports whether the code belongs to the enumeration (wildcard
// included).
func (c Category) Known() bool { _, ok := categoryNames[c]; return ok }

func (m Municipality) Known() bool { _, ok := municipalityNames[m]; return ok }

func (p Party) Known() bool { _, ok := partyNames[p]; return ok }

// Storable reports whether the value may appear on a stored record: a known
// member other than the wildcard.
func (c Category) Storable() bool { return c != CategoryAll && c.Known() }

func (m Municipality) Storable() bool { return m != MunicipalityAll && m.Known() }

func (p Party) Storable() bool { return p != PartyAll && p.Known() }

// ParseCategory resolves a canonical name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	if c, ok := categoriesByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return CategoryAll, fmt.Errorf("unknown category %q", s)
}

// ParseMunicipality resolves a canonical name, case-insensitively.
func ParseMunicipality(s string) (Municipality, error) {
	if m, ok := municipalitiesByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return MunicipalityAll, fmt.Errorf("unknown municipality %q", s)
}

// ParseParty resolves a canonical name, case-insensitively.
func ParseParty(s string) (Party, error) {
	if p, ok := partiesByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return PartyAll, fmt.Errorf("unknown party %q", s)
}

// ResolvePartyColumn maps a party column header to its enum member. The
// header is normalised by stripping all whitespace and fold-casing; if that
// name is not a member, one fallback pass strips a single leading "Partia"
// prefix and tries again ("Partia PS" → "PartiaPS" → "PS"). Headers that
// survive neither pass are rejected.
func ResolvePartyColumn(header string) (Party, bool) {
	normalized := strings.ToLower(stripSpace(header))
	if p, ok := partiesByName[normalized]; ok && p != PartyAll {
		return p, true
	}
	if rest, ok := strings.CutPrefix(normalized, "partia"); ok && rest != "" {
		if p, ok := partiesByName[rest]; ok && p != PartyAll {
			return p, true
		}
	}
	return PartyAll, false
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Parties returns every storable party, in declaration order.
func Parties() []Party {
	return []Party{PartyPS, PartyPD, PartyLSI, PartyPSD, PartyPDIU, PartyPBDNJ, PartyPR, PartyFRD}
}

// Municipalities returns every storable municipality, in declaration order.
func Municipalities() []Municipality {
	out := make([]Municipality, 0, len(municipalityNames)-1)
	for m := MunicipalityTirana; m.Known(); m++ {
		out = append(out, m)
	}
	return out
}
