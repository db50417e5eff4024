package renovation

import (
	"regexp"
	"strings"
	"time"
)

const (
	MinPhotos = 3
	MaxPhotos = 10
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail applies the simple address check used across the service.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// NormalizeRooms maps aliases onto canonical tags and drops duplicates.
// The second return value lists the tags that could not be recognised.
func NormalizeRooms(rooms []Room) ([]Room, []string) {
	seen := make(map[Room]bool, len(rooms))
	out := make([]Room, 0, len(rooms))
	var unknown []string
	for _, raw := range rooms {
		r, ok := ParseRoom(string(raw))
		if !ok {
			unknown = append(unknown, string(raw))
			continue
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out, unknown
}

// ValidateSelection checks the room and style choices shared by every endpoint.
// It returns the normalised rooms and style.
func ValidateSelection(rooms []Room, style Style) ([]Room, Style, error) {
	if len(rooms) == 0 {
		return nil, "", Invalid("selectedRooms", "au moins une pièce doit être sélectionnée")
	}
	normalized, unknown := NormalizeRooms(rooms)
	if len(unknown) > 0 {
		return nil, "", Invalid("selectedRooms", "pièce inconnue: %s", strings.Join(unknown, ", "))
	}
	if strings.TrimSpace(string(style)) == "" {
		return nil, "", Invalid("selectedStyle", "le style est requis")
	}
	parsed, ok := ParseStyle(string(style))
	if !ok {
		return nil, "", Invalid("selectedStyle", "style inconnu: %s", style)
	}
	return normalized, parsed, nil
}

// Validate checks the full request and normalises room and style tags in place.
// Photo payload decoding is left to the media package.
func (r *Request) Validate(now time.Time) error {
	c := r.Client
	switch {
	case strings.TrimSpace(c.FirstName) == "":
		return Invalid("client.firstName", "le prénom est requis")
	case strings.TrimSpace(c.LastName) == "":
		return Invalid("client.lastName", "le nom est requis")
	case !ValidEmail(c.Email):
		return Invalid("client.email", "adresse courriel invalide")
	case strings.TrimSpace(c.Phone) == "":
		return Invalid("client.phone", "le téléphone est requis")
	case strings.TrimSpace(c.Address) == "":
		return Invalid("client.address", "l'adresse est requise")
	case strings.TrimSpace(c.City) == "":
		return Invalid("client.city", "la ville est requise")
	case strings.TrimSpace(c.PostalCode) == "":
		return Invalid("client.postalCode", "le code postal est requis")
	}

	h := r.House
	if !h.PropertyType.Valid() {
		return Invalid("house.propertyType", "type de propriété inconnu: %s", h.PropertyType)
	}
	if h.ConstructionYear < 1800 || h.ConstructionYear > now.Year() {
		return Invalid("house.constructionYear", "année de construction hors limites (1800-%d)", now.Year())
	}
	if h.SurfaceSqFt <= 0 {
		return Invalid("house.surfaceSqFt", "la superficie doit être positive")
	}
	if h.RoomCount <= 0 {
		return Invalid("house.roomCount", "le nombre de pièces doit être positif")
	}

	rooms, style, err := ValidateSelection(r.Project.SelectedRooms, r.Project.SelectedStyle)
	if err != nil {
		return err
	}
	r.Project.SelectedRooms = rooms
	r.Project.SelectedStyle = style

	if n := len(r.Project.Photos); n < MinPhotos || n > MaxPhotos {
		return Invalid("project.photos", "entre %d et %d photos sont requises (reçu %d)", MinPhotos, MaxPhotos, n)
	}

	if len(r.Project.RoomDimensions) > 0 {
		dims := make(map[Room]Dimensions, len(r.Project.RoomDimensions))
		for tag, d := range r.Project.RoomDimensions {
			room, ok := ParseRoom(string(tag))
			if !ok {
				continue
			}
			dims[room] = d
		}
		r.Project.RoomDimensions = dims
	}
	return nil
}
