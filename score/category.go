package score

import (
	"slices"
	"strings"
)

// DefaultCategoryScore is the score of any sector or actor type outside the
// known enumerations.
const DefaultCategoryScore = 0.5

// Sector is a targeted industry sector.
type Sector string

const (
	SectorProfessionalServices  Sector = "Professional, Scientific, and Technical Services"
	SectorInformation           Sector = "Information"
	SectorEducation             Sector = "Educational Services"
	SectorArts                  Sector = "Arts, Entertainment, and Recreation"
	SectorFinance               Sector = "Finance and Insurance"
	SectorPublicAdministration  Sector = "Public Administration"
	SectorHealthCare            Sector = "Health Care and Social Assistance"
	SectorOtherServices         Sector = "Other Services (Except Public Administration)"
	SectorRetail                Sector = "Retail Trade"
	SectorManufacturing         Sector = "Manufacturing"
	SectorAdministrativeSupport Sector = "Administrative, Support, Waste Management & Remediation Services"
	SectorAccommodation         Sector = "Accomodation & Food Services"
	SectorTransportation        Sector = "Transportation & Warehousing"
	SectorUtilities             Sector = "Utilities"
	SectorWholesale             Sector = "Wholesale Trade"
	SectorAgriculture           Sector = "Agriculture, Forestry, Fishing & Hunting"
	SectorManagement            Sector = "Management of Companies & Enterprises"
	SectorRealEstate            Sector = "Real Estate, Rental & Leasing"
	SectorMining                Sector = "Mining, Quarrying and Oil/Gas Extraction"
	SectorConstruction          Sector = "Construction"

	// SectorUnknown is any label outside the enumeration.
	SectorUnknown Sector = "Unknown"
)

// sectorScores rates how critical a targeted sector is.
var sectorScores = map[Sector]float64{
	SectorProfessionalServices:  0.6,
	SectorInformation:           0.9,
	SectorEducation:             0.5,
	SectorArts:                  0.3,
	SectorFinance:               0.9,
	SectorPublicAdministration:  1.0,
	SectorHealthCare:            0.9,
	SectorOtherServices:         0.4,
	SectorRetail:                0.6,
	SectorManufacturing:         0.8,
	SectorAdministrativeSupport: 0.7,
	SectorAccommodation:         0.5,
	SectorTransportation:        0.8,
	SectorUtilities:             1.0,
	SectorWholesale:             0.7,
	SectorAgriculture:           0.8,
	SectorManagement:            0.6,
	SectorRealEstate:            0.2,
	SectorMining:                0.8,
	SectorConstruction:          0.4,
}

// ParseSector maps a sector label to the enumeration. Matching ignores case and
// surrounding whitespace, and accepts "and" for "&". Unknown labels yield SectorUnknown.
func ParseSector(s string) Sector {
	key := categoryKey(s)
	for sector := range sectorScores {
		if categoryKey(string(sector)) == key {
			return sector
		}
	}
	return SectorUnknown
}

// IsValid returns true if the sector is one of the known sectors.
func (s Sector) IsValid() bool {
	_, ok := sectorScores[s]
	return ok
}

// Score returns the criticality of the sector, DefaultCategoryScore when unknown.
func (s Sector) Score() float64 {
	if v, ok := sectorScores[s]; ok {
		return v
	}
	return DefaultCategoryScore
}

// String returns the string representation of the sector.
func (s Sector) String() string {
	return string(s)
}

// AllSectors returns the known sectors sorted by label.
func AllSectors() []Sector {
	out := make([]Sector, 0, len(sectorScores))
	for s := range sectorScores {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// ActorType is the archetype of a threat actor.
type ActorType string

const (
	ActorTypeNationState ActorType = "Nation-State"
	ActorTypeCriminal    ActorType = "Criminal"
	ActorTypeTerrorist   ActorType = "Terrorist"
	ActorTypeHacktivist  ActorType = "Hacktivist"
	ActorTypeHobbyist    ActorType = "Hobbyist"

	// ActorTypeUnknown is any label outside the enumeration.
	ActorTypeUnknown ActorType = "Unknown"
)

var actorTypeScores = map[ActorType]float64{
	ActorTypeNationState: 1.0,
	ActorTypeCriminal:    0.8,
	ActorTypeTerrorist:   0.6,
	ActorTypeHacktivist:  0.4,
	ActorTypeHobbyist:    0.2,
}

// ParseActorType maps an actor type label to the enumeration. Matching ignores
// case, spaces and hyphens ("nation state" is ActorTypeNationState).
// Unknown labels yield ActorTypeUnknown.
func ParseActorType(s string) ActorType {
	key := strings.NewReplacer("-", "", " ", "").Replace(categoryKey(s))
	for t := range actorTypeScores {
		if strings.NewReplacer("-", "", " ", "").Replace(categoryKey(string(t))) == key {
			return t
		}
	}
	return ActorTypeUnknown
}

// IsValid returns true if the actor type is one of the known archetypes.
func (t ActorType) IsValid() bool {
	_, ok := actorTypeScores[t]
	return ok
}

// Score returns the severity of the archetype, DefaultCategoryScore when unknown.
func (t ActorType) Score() float64 {
	if v, ok := actorTypeScores[t]; ok {
		return v
	}
	return DefaultCategoryScore
}

// String returns the string representation of the actor type.
func (t ActorType) String() string {
	return string(t)
}

// AllActorTypes returns the known archetypes from most to least severe.
func AllActorTypes() []ActorType {
	return []ActorType{
		ActorTypeNationState,
		ActorTypeCriminal,
		ActorTypeTerrorist,
		ActorTypeHacktivist,
		ActorTypeHobbyist,
	}
}

func categoryKey(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.ReplaceAll(s, " and ", " & ")
}
