package uniquify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"uniqbot/internal/domain"
)

type memBlobs struct {
	data      map[string][]byte
	failAfter int // fail Write once this many writes succeeded; 0 disables
	writes    int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: map[string][]byte{}}
}

func (m *memBlobs) Read(_ context.Context, key string) ([]byte, error) {
	data, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return data, nil
}

func (m *memBlobs) Write(_ context.Context, key string, data []byte) (string, error) {
	if m.failAfter > 0 && m.writes >= m.failAfter {
		return "", errors.New("disk full")
	}
	m.writes++
	m.data[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *memBlobs) Remove(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeImage(&buf, imaging.New(w, h, c), domain.FormatPNG); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func testPreset() domain.Preset {
	return domain.Preset{
		ID: 1,
		Methods: []domain.MethodSpec{
			{Name: "noise", Enabled: true, ParamRange: domain.Range{Min: 5, Max: 15}},
			{Name: "brightness", Enabled: true, ParamRange: domain.Range{Min: 0.95, Max: 1.05}},
			{Name: "rotate", Enabled: true, ParamRange: domain.Range{Min: -3, Max: 3}},
		},
	}
}

func baseRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		BaseAssetRef: "uploads/base.png",
		CopiesCount:  3,
		PresetID:     1,
		FileFormat:   domain.FormatPNG,
	}
}

func TestGenerateProducesRequestedCopies(t *testing.T) {
	blobs := newMemBlobs()
	blobs.data["uploads/base.png"] = pngBytes(t, 64, 48, color.NRGBA{R: 100, G: 120, B: 140, A: 255})

	engine := NewEngine(blobs, zerolog.Nop(), WithRandSeed(42))
	keys, err := engine.Generate(context.Background(), "job-1", baseRequest(), testPreset())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("Generate() returned %d keys, want 3", len(keys))
	}
	for i, key := range keys {
		want := fmt.Sprintf("artifacts/job-1/copy-%02d.png", i+1)
		if key != want {
			t.Fatalf("key[%d] = %q, want %q", i, key, want)
		}
		decoded, err := DecodeImage(blobs.data[key])
		if err != nil {
			t.Fatalf("artifact %s does not decode: %v", key, err)
		}
		// Rotation crops back to the source dimensions.
		if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
			t.Fatalf("artifact %s bounds = %v, want 64x48", key, decoded.Bounds())
		}
	}
	if bytes.Equal(blobs.data[keys[0]], blobs.data[keys[1]]) {
		t.Fatal("copies 1 and 2 are byte-identical, want independent perturbations")
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	fixture := pngBytes(t, 48, 48, color.NRGBA{R: 10, G: 200, B: 30, A: 255})

	run := func() map[string][]byte {
		blobs := newMemBlobs()
		blobs.data["uploads/base.png"] = fixture
		engine := NewEngine(blobs, zerolog.Nop(), WithRandSeed(7))
		if _, err := engine.Generate(context.Background(), "job-1", baseRequest(), testPreset()); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		return blobs.data
	}

	first, second := run(), run()
	for key, data := range first {
		if !bytes.Equal(data, second[key]) {
			t.Fatalf("artifact %s differs across identically seeded runs", key)
		}
	}
}

func TestGenerateUnknownMethod(t *testing.T) {
	blobs := newMemBlobs()
	blobs.data["uploads/base.png"] = pngBytes(t, 32, 32, color.NRGBA{A: 255})

	preset := domain.Preset{ID: 9, Methods: []domain.MethodSpec{{Name: "vortex", Enabled: true}}}
	engine := NewEngine(blobs, zerolog.Nop())
	_, err := engine.Generate(context.Background(), "job-1", baseRequest(), preset)
	if !errors.Is(err, domain.ErrUnknownMethod) {
		t.Fatalf("Generate() error = %v, want ErrUnknownMethod", err)
	}
	if len(blobs.data) != 1 {
		t.Fatalf("Generate() wrote artifacts before failing resolution")
	}
}

func TestGenerateMissingAsset(t *testing.T) {
	engine := NewEngine(newMemBlobs(), zerolog.Nop())
	_, err := engine.Generate(context.Background(), "job-1", baseRequest(), testPreset())
	if !errors.Is(err, domain.ErrAssetUnreadable) {
		t.Fatalf("Generate() error = %v, want ErrAssetUnreadable", err)
	}
}

func TestGenerateCorruptAsset(t *testing.T) {
	blobs := newMemBlobs()
	blobs.data["uploads/base.png"] = []byte("definitely not a png")

	engine := NewEngine(blobs, zerolog.Nop())
	_, err := engine.Generate(context.Background(), "job-1", baseRequest(), testPreset())
	if !errors.Is(err, domain.ErrAssetUnreadable) {
		t.Fatalf("Generate() error = %v, want ErrAssetUnreadable", err)
	}
}

func TestGenerateAbortDiscardsPartialArtifacts(t *testing.T) {
	blobs := newMemBlobs()
	blobs.data["uploads/base.png"] = pngBytes(t, 32, 32, color.NRGBA{R: 50, A: 255})
	blobs.failAfter = 2 // input fixture counts as pre-seeded, not written

	engine := NewEngine(blobs, zerolog.Nop(), WithRandSeed(1))
	_, err := engine.Generate(context.Background(), "job-1", baseRequest(), testPreset())
	if err == nil {
		t.Fatal("Generate() succeeded despite write failure")
	}
	for key := range blobs.data {
		if key != "uploads/base.png" {
			t.Fatalf("partial artifact %s survived the abort", key)
		}
	}
}

func TestGenerateWithCaptionFlipAndOverlay(t *testing.T) {
	blobs := newMemBlobs()
	blobs.data["uploads/base.png"] = pngBytes(t, 120, 90, color.NRGBA{R: 30, G: 30, B: 200, A: 255})
	blobs.data["uploads/logo.png"] = pngBytes(t, 40, 40, color.NRGBA{R: 250, G: 250, B: 250, A: 255})

	pos := domain.PositionBottomRight
	opacity := 70
	req := baseRequest()
	req.CopiesCount = 1
	req.FlipHorizontal = true
	req.OverlayText = "sale"
	req.OverlayPhotoRef = "uploads/logo.png"
	req.OverlayPosition = &pos
	req.OverlayOpacity = &opacity

	engine := NewEngine(blobs, zerolog.Nop(), WithRandSeed(3))
	keys, err := engine.Generate(context.Background(), "job-2", req, testPreset())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("Generate() returned %d keys, want 1", len(keys))
	}
	if _, err := DecodeImage(blobs.data[keys[0]]); err != nil {
		t.Fatalf("artifact does not decode: %v", err)
	}
}

func TestGenerateMissingOverlayAsset(t *testing.T) {
	blobs := newMemBlobs()
	blobs.data["uploads/base.png"] = pngBytes(t, 32, 32, color.NRGBA{A: 255})

	pos := domain.PositionCenter
	opacity := 50
	req := baseRequest()
	req.OverlayPhotoRef = "uploads/missing.png"
	req.OverlayPosition = &pos
	req.OverlayOpacity = &opacity

	engine := NewEngine(blobs, zerolog.Nop())
	_, err := engine.Generate(context.Background(), "job-1", req, testPreset())
	if !errors.Is(err, domain.ErrAssetUnreadable) {
		t.Fatalf("Generate() error = %v, want ErrAssetUnreadable", err)
	}
}
