package renovation

import "strings"

// Room is a room-type tag selected in the wizard.
type Room string

const (
	RoomCuisine      Room = "cuisine"
	RoomSalleDeBain  Room = "salle-de-bain"
	RoomSalon        Room = "salon"
	RoomChambre      Room = "chambre"
	RoomSalleAManger Room = "salle-a-manger"
	RoomSousSol      Room = "sous-sol"
	RoomBureau       Room = "bureau"
	RoomEntree       Room = "entree"
	RoomBuanderie    Room = "buanderie"
	RoomExterieur    Room = "exterieur"
	RoomOther        Room = "autre"
)

// Rooms lists every known room in wizard order.
var Rooms = []Room{
	RoomCuisine, RoomSalleDeBain, RoomSalon, RoomChambre, RoomSalleAManger,
	RoomSousSol, RoomBureau, RoomEntree, RoomBuanderie, RoomExterieur, RoomOther,
}

var roomAliases = map[string]Room{
	"salle-de-bains": RoomSalleDeBain,
	"sdb":            RoomSalleDeBain,
	"salle_de_bain":  RoomSalleDeBain,
	"salle-manger":   RoomSalleAManger,
	"salle_a_manger": RoomSalleAManger,
	"soussol":        RoomSousSol,
	"entrée":         RoomEntree,
	"extérieur":      RoomExterieur,
	"facade":         RoomExterieur,
}

// ParseRoom normalises a room tag. ok is false for unknown tags.
func ParseRoom(tag string) (Room, bool) {
	clean := strings.ToLower(strings.TrimSpace(tag))
	for _, r := range Rooms {
		if string(r) == clean {
			return r, true
		}
	}
	if r, ok := roomAliases[clean]; ok {
		return r, true
	}
	return RoomOther, false
}

// PriceRange is a regional cost band in CAD.
type PriceRange struct {
	Min float64
	Max float64
}

// RoomProfile carries everything the adapters need to know about a room.
type RoomProfile struct {
	Label      string
	Search     string
	Price      PriceRange
	SeedOffset int
}

// Describe returns the profile for a room. Unknown rooms get the generic profile.
func (r Room) Describe() RoomProfile {
	switch r {
	case RoomCuisine:
		return RoomProfile{Label: "cuisine", Search: "kitchen", Price: PriceRange{8000, 18000}, SeedOffset: 10}
	case RoomSalleDeBain:
		return RoomProfile{Label: "salle de bain", Search: "bathroom", Price: PriceRange{6000, 15000}, SeedOffset: 20}
	case RoomSalon:
		return RoomProfile{Label: "salon", Search: "living room", Price: PriceRange{4000, 10000}, SeedOffset: 30}
	case RoomChambre:
		return RoomProfile{Label: "chambre", Search: "bedroom", Price: PriceRange{3000, 8000}, SeedOffset: 40}
	case RoomSalleAManger:
		return RoomProfile{Label: "salle à manger", Search: "dining room", Price: PriceRange{3000, 8000}, SeedOffset: 50}
	case RoomSousSol:
		return RoomProfile{Label: "sous-sol", Search: "finished basement", Price: PriceRange{10000, 25000}, SeedOffset: 60}
	case RoomBureau:
		return RoomProfile{Label: "bureau", Search: "home office", Price: PriceRange{2500, 6000}, SeedOffset: 70}
	case RoomEntree:
		return RoomProfile{Label: "entrée", Search: "entryway hallway", Price: PriceRange{1500, 4000}, SeedOffset: 80}
	case RoomBuanderie:
		return RoomProfile{Label: "buanderie", Search: "laundry room", Price: PriceRange{2000, 5000}, SeedOffset: 90}
	case RoomExterieur:
		return RoomProfile{Label: "extérieur", Search: "house exterior facade", Price: PriceRange{5000, 20000}, SeedOffset: 95}
	default:
		return RoomProfile{Label: "pièce", Search: "room", Price: PriceRange{3000, 8000}, SeedOffset: 0}
	}
}

// Style is one of the fixed design aesthetics.
type Style string

const (
	StyleModerne     Style = "moderne"
	StyleScandinave  Style = "scandinave"
	StyleIndustriel  Style = "industriel"
	StyleClassique   Style = "classique"
	StyleCampagne    Style = "campagne"
	StyleMinimaliste Style = "minimaliste"
	StyleSpa         Style = "spa"
)

// Styles lists every known style.
var Styles = []Style{
	StyleModerne, StyleScandinave, StyleIndustriel, StyleClassique,
	StyleCampagne, StyleMinimaliste, StyleSpa,
}

// ParseStyle normalises a style tag; "rustique" is an alias of campagne.
func ParseStyle(tag string) (Style, bool) {
	clean := strings.ToLower(strings.TrimSpace(tag))
	switch clean {
	case "rustique", "campagne/rustique", "champetre", "champêtre":
		return StyleCampagne, true
	}
	for _, s := range Styles {
		if string(s) == clean {
			return s, true
		}
	}
	return StyleModerne, false
}

// StyleProfile carries everything the adapters need to know about a style.
type StyleProfile struct {
	Label            string
	Description      string
	Search           string
	CostMultiplier   float64
	ComplexityFactor float64
	BaseSeed         int
}

// Describe returns the profile for a style. Unknown styles get a neutral profile.
func (s Style) Describe() StyleProfile {
	switch s {
	case StyleModerne:
		return StyleProfile{
			Label:            "Moderne",
			Description:      "lignes épurées, couleurs neutres, matériaux contemporains, éclairage encastré",
			Search:           "modern contemporary",
			CostMultiplier:   1.2,
			ComplexityFactor: 1.0,
			BaseSeed:         100,
		}
	case StyleScandinave:
		return StyleProfile{
			Label:            "Scandinave",
			Description:      "bois clair, tons blancs et pastel, textiles naturels, ambiance lumineuse et chaleureuse",
			Search:           "scandinavian nordic minimalist",
			CostMultiplier:   1.1,
			ComplexityFactor: 1.0,
			BaseSeed:         200,
		}
	case StyleIndustriel:
		return StyleProfile{
			Label:            "Industriel",
			Description:      "briques apparentes, métal noir, béton, luminaires suspendus, esprit loft",
			Search:           "industrial loft exposed brick",
			CostMultiplier:   1.15,
			ComplexityFactor: 1.2,
			BaseSeed:         300,
		}
	case StyleClassique:
		return StyleProfile{
			Label:            "Classique",
			Description:      "moulures, boiseries, tons crème et or, mobilier élégant et intemporel",
			Search:           "classic traditional elegant",
			CostMultiplier:   1.4,
			ComplexityFactor: 1.4,
			BaseSeed:         400,
		}
	case StyleCampagne:
		return StyleProfile{
			Label:            "Campagne / Rustique",
			Description:      "bois vieilli, poutres apparentes, pierre naturelle, couleurs chaudes et terreuses",
			Search:           "rustic farmhouse country",
			CostMultiplier:   1.0,
			ComplexityFactor: 1.2,
			BaseSeed:         500,
		}
	case StyleMinimaliste:
		return StyleProfile{
			Label:            "Minimaliste",
			Description:      "espaces dégagés, rangements intégrés, palette monochrome, aucun superflu",
			Search:           "minimalist clean simple",
			CostMultiplier:   0.9,
			ComplexityFactor: 0.9,
			BaseSeed:         600,
		}
	case StyleSpa:
		return StyleProfile{
			Label:            "Spa",
			Description:      "ambiance zen, pierre et bois naturels, douche à l'italienne, éclairage tamisé",
			Search:           "spa zen wellness luxury",
			CostMultiplier:   1.3,
			ComplexityFactor: 1.3,
			BaseSeed:         700,
		}
	default:
		return StyleProfile{
			Label:            "Personnalisé",
			Description:      "rénovation soignée et harmonieuse",
			Search:           "renovated",
			CostMultiplier:   1.0,
			ComplexityFactor: 1.0,
			BaseSeed:         0,
		}
	}
}
