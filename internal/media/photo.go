package media

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"renoquote/internal/renovation"
)

// MaxPhotoBytes bounds a decoded photo payload.
const MaxPhotoBytes = 20 << 20

// Photo is a decoded data-URI image payload.
type Photo struct {
	MIMEType string
	Data     []byte
	Format   string
	Width    int
	Height   int
}

// URI re-encodes the photo as a data URI.
func (p Photo) URI() string {
	return DataURI(p.MIMEType, p.Data)
}

// ParseDataURI decodes a base64 data URI and checks that it holds a readable image.
// Object URLs and remote links are rejected; photos must be inlined by the client.
func ParseDataURI(field, uri string) (Photo, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case uri == "":
		return Photo{}, renovation.Invalid(field, "photo manquante")
	case strings.HasPrefix(uri, "blob:"):
		return Photo{}, renovation.Invalid(field, "les URL blob: ne sont pas acceptées, la photo doit être encodée en base64")
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return Photo{}, renovation.Invalid(field, "les liens distants ne sont pas acceptés, la photo doit être encodée en base64")
	case !strings.HasPrefix(uri, "data:"):
		return Photo{}, renovation.Invalid(field, "format de photo invalide, data URI attendu")
	}

	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return Photo{}, renovation.Invalid(field, "data URI sans encodage base64")
	}
	mimeType := strings.TrimSuffix(header, ";base64")
	if mimeType != "" && !strings.HasPrefix(mimeType, "image/") {
		return Photo{}, renovation.Invalid(field, "type de contenu non supporté: %s", mimeType)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxPhotoBytes {
		return Photo{}, renovation.Invalid(field, "photo trop volumineuse (max %d Mo)", MaxPhotoBytes>>20)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Photo{}, renovation.Invalid(field, "base64 invalide: %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Photo{}, renovation.Invalid(field, "image illisible: %v", err)
	}
	if mimeType == "" {
		mimeType = "image/" + format
	}
	return Photo{MIMEType: mimeType, Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// DataURI encodes raw bytes as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Extension maps an image MIME type to a file extension.
func Extension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
