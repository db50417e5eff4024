package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"renoquote/internal/config"
	"renoquote/internal/renovation"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestParseDataURI_ValidPNG(t *testing.T) {
	uri := DataURI("image/png", pngBytes(t, 4, 3))

	photo, err := ParseDataURI("photo", uri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if photo.Format != "png" || photo.Width != 4 || photo.Height != 3 {
		t.Errorf("unexpected photo: format=%s %dx%d", photo.Format, photo.Width, photo.Height)
	}
	if photo.URI() != uri {
		t.Error("expected URI to round-trip")
	}
}

func TestParseDataURI_Rejections(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{name: "blob url", uri: "blob:http://localhost:3000/8c1f"},
		{name: "remote url", uri: "https://example.com/kitchen.jpg"},
		{name: "empty", uri: "  "},
		{name: "not base64 header", uri: "data:image/png,raw"},
		{name: "bad base64", uri: "data:image/png;base64,@@@"},
		{name: "not an image", uri: "data:image/png;base64,aGVsbG8="},
		{name: "wrong mime", uri: "data:text/plain;base64,aGVsbG8="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDataURI("project.photos[0]", tt.uri)
			if !errors.Is(err, renovation.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var verr *renovation.ValidationError
			if errors.As(err, &verr) && verr.Field != "project.photos[0]" {
				t.Errorf("expected field name to be kept, got %q", verr.Field)
			}
		})
	}
}

func TestInlineStore(t *testing.T) {
	stored, err := Inline().Save(context.Background(), Image{Data: []byte{1, 2, 3}, MIMEType: "image/jpeg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.URL != "data:image/jpeg;base64,AQID" {
		t.Errorf("unexpected data URI %q", stored.URL)
	}
}

func TestLocalStore_WritesFileAndReturnsPrefixedURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "media/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := store.Save(context.Background(), Image{Data: []byte("webp"), MIMEType: "image/webp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(stored.URL, "/media/") || !strings.HasSuffix(stored.URL, ".webp") {
		t.Errorf("unexpected URL %q", stored.URL)
	}
	data, err := os.ReadFile(filepath.Join(dir, stored.Key))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "webp" {
		t.Errorf("expected file contents to match, got %q", data)
	}
}

type fakePutter struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Store_SaveBuildsKeyAndURL(t *testing.T) {
	putter := &fakePutter{}
	store := newS3Store(putter, config.MediaConfig{Bucket: "renders", Region: "ca-central-1", KeyPrefix: "/quotes/"})

	stored, err := store.Save(context.Background(), Image{Data: []byte("x"), MIMEType: "image/jpeg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(stored.Key, "quotes/renders/") || !strings.HasSuffix(stored.Key, ".jpg") {
		t.Errorf("unexpected key %q", stored.Key)
	}
	want := "https://renders.s3.ca-central-1.amazonaws.com/" + stored.Key
	if stored.URL != want {
		t.Errorf("expected %q, got %q", want, stored.URL)
	}
	if *putter.input.ContentType != "image/jpeg" || *putter.input.Bucket != "renders" {
		t.Errorf("unexpected put input: %+v", putter.input)
	}
}

func TestS3Store_PathStyleEndpointURL(t *testing.T) {
	store := newS3Store(&fakePutter{}, config.MediaConfig{
		Bucket: "renders", Region: "us-east-1", Endpoint: "http://minio:9000/", ForcePathStyle: true,
	})
	stored, err := store.Save(context.Background(), Image{Data: []byte("x"), MIMEType: "image/png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(stored.URL, "http://minio:9000/renders/renders/") {
		t.Errorf("unexpected URL %q", stored.URL)
	}
}

type failingStore struct{}

func (failingStore) Save(context.Context, Image) (Stored, error) {
	return Stored{}, errors.New("bucket gone")
}

func TestPublish_FallsBackToInline(t *testing.T) {
	url := Publish(context.Background(), failingStore{}, Image{Data: []byte{1}, MIMEType: "image/png"})
	if url != "data:image/png;base64,AQ==" {
		t.Errorf("expected inline fallback, got %q", url)
	}
}

func TestNew_PicksBackend(t *testing.T) {
	store, err := New(context.Background(), config.MediaConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(inlineStore); !ok {
		t.Errorf("expected inline store, got %T", store)
	}

	store, err = New(context.Background(), config.MediaConfig{LocalDir: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Errorf("expected local store, got %T", store)
	}
}
