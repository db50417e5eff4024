// Package transform holds the image transformation tiers. Each tier either draws a new
// image of the room in the requested style or, when it can only see the photo, describes
// the transformation next to the original. Simulate is the last resort and never fails.
package transform

import (
	"context"
	"fmt"
	"time"

	"renoquote/internal/media"
	"renoquote/internal/renovation"
)

// Request is the raw transformation input as received from the caller.
type Request struct {
	Photo        string
	Room         renovation.Room
	Style        renovation.Style
	CustomPrompt string
	Dimensions   *renovation.Dimensions
}

// Input is a validated request with the photo decoded.
type Input struct {
	Photo        media.Photo
	Room         renovation.Room
	Style        renovation.Style
	CustomPrompt string
	Dimensions   *renovation.Dimensions
}

// Tier is one provider strategy in the transformation chain.
type Tier interface {
	Name() string
	Transform(ctx context.Context, in Input) (renovation.TransformationResult, error)
}

// Prepare validates the request before any network call. Anything other than a
// base64 image data URI is a *renovation.ValidationError.
func Prepare(req Request) (Input, error) {
	photo, err := media.ParseDataURI("photo", req.Photo)
	if err != nil {
		return Input{}, err
	}
	room, ok := renovation.ParseRoom(string(req.Room))
	if !ok {
		return Input{}, renovation.Invalid("roomType", "pièce inconnue: %s", req.Room)
	}
	style, ok := renovation.ParseStyle(string(req.Style))
	if !ok {
		return Input{}, renovation.Invalid("style", "style inconnu: %s", req.Style)
	}
	return Input{
		Photo:        photo,
		Room:         room,
		Style:        style,
		CustomPrompt: req.CustomPrompt,
		Dimensions:   req.Dimensions,
	}, nil
}

const (
	SimulationModel      = "simulation-fallback"
	SimulationConfidence = 75
)

// Simulate echoes the input photo as a clearly labelled placeholder result.
func Simulate(in Input, started time.Time) renovation.TransformationResult {
	sp := in.Style.Describe()
	return renovation.TransformationResult{
		TransformedPhoto: in.Photo.URI(),
		Description: fmt.Sprintf(
			"Aperçu simulé: votre %s en style %s (%s). La transformation visuelle n'est pas disponible pour le moment.",
			in.Room.Describe().Label, sp.Label, sp.Description),
		Confidence:     SimulationConfidence,
		ProcessingTime: time.Since(started).Milliseconds(),
		Model:          SimulationModel,
		Mode:           renovation.ModeSimulated,
		Degraded:       true,
	}
}
