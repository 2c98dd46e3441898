package uniquify

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math/rand"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"uniqbot/internal/domain"
)

// BlobStore is the slice of the asset store the engine needs: reading input
// assets and writing/removing artifacts.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) (string, error)
	Remove(ctx context.Context, key string) error
}

// Engine produces the artifact set for one generation request. Each Generate
// call consumes its own fresh random draws; nothing is shared across calls.
type Engine struct {
	blobs   BlobStore
	logger  zerolog.Logger
	newRand func() *rand.Rand
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRandSeed pins the random source, for deterministic tests.
func WithRandSeed(seed int64) EngineOption {
	return func(e *Engine) {
		e.newRand = func() *rand.Rand { return rand.New(rand.NewSource(seed)) }
	}
}

// NewEngine constructs an engine over the given blob store.
func NewEngine(blobs BlobStore, logger zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		blobs:  blobs,
		logger: logger,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ArtifactPrefix is the storage prefix all artifacts of a job live under.
// Retries remove the whole prefix before re-running, which keeps redelivery
// idempotent.
func ArtifactPrefix(jobID string) string {
	return "artifacts/" + jobID
}

type overlayInput struct {
	img      *image.NRGBA
	position domain.OverlayPosition
	opacity  int
}

// Generate produces req.CopiesCount artifacts and returns their storage
// keys, in copy order. The whole job aborts on the first failed copy: a
// partial artifact set is never returned, and partially written artifacts
// are removed before the error surfaces.
func (e *Engine) Generate(ctx context.Context, jobID string, req domain.GenerationRequest, preset domain.Preset) ([]string, error) {
	resolved, err := ResolvePreset(preset)
	if err != nil {
		return nil, err
	}

	base, err := e.loadImage(ctx, req.BaseAssetRef)
	if err != nil {
		return nil, err
	}

	var overlay *overlayInput
	if req.HasOverlay() {
		img, err := e.loadImage(ctx, req.OverlayPhotoRef)
		if err != nil {
			return nil, err
		}
		overlay = &overlayInput{
			img:      img,
			position: *req.OverlayPosition,
			opacity:  *req.OverlayOpacity,
		}
	}

	rng := e.newRand()
	written := make([]string, 0, req.CopiesCount)

	for i := 0; i < req.CopiesCount; i++ {
		key, err := e.generateCopy(ctx, jobID, i, base, overlay, resolved, req, rng)
		if err != nil {
			e.discard(ctx, written)
			return nil, fmt.Errorf("copy %d/%d: %w", i+1, req.CopiesCount, err)
		}
		written = append(written, key)
		e.logger.Debug().Str("job_id", jobID).Str("artifact", key).
			Int("copy", i+1).Int("total", req.CopiesCount).Msg("engine: artifact written")
	}
	return written, nil
}

func (e *Engine) generateCopy(
	ctx context.Context,
	jobID string,
	index int,
	base *image.NRGBA,
	overlay *overlayInput,
	resolved []ResolvedMethod,
	req domain.GenerationRequest,
	rng *rand.Rand,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Every copy starts from its own clone so no pixel state leaks between
	// copies.
	img := imaging.Clone(base)

	for _, m := range resolved {
		param := m.Range.Min + rng.Float64()*(m.Range.Max-m.Range.Min)
		next, err := m.fn(img, param, rng)
		if err != nil {
			return "", fmt.Errorf("method %s: %w", m.Name, err)
		}
		img = next
	}

	if req.FlipHorizontal {
		img = imaging.FlipH(img)
	}
	if req.OverlayText != "" {
		if err := drawCaption(img, req.OverlayText); err != nil {
			return "", fmt.Errorf("%v: %w", err, domain.ErrTransformFailed)
		}
	}
	if overlay != nil {
		img = Compose(img, overlay.img, overlay.position, overlay.opacity)
	}

	var buf bytes.Buffer
	if err := EncodeImage(&buf, img, req.FileFormat); err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrTransformFailed)
	}

	key := fmt.Sprintf("%s/copy-%02d%s", ArtifactPrefix(jobID), index+1, Extension(req.FileFormat))
	return e.blobs.Write(ctx, key, buf.Bytes())
}

func (e *Engine) loadImage(ctx context.Context, ref string) (*image.NRGBA, error) {
	data, err := e.blobs.Read(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, domain.ErrAssetUnreadable)
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", ref, err, domain.ErrAssetUnreadable)
	}
	nrgba := imaging.Clone(img)
	if nrgba.Bounds().Empty() {
		return nil, fmt.Errorf("empty image %s: %w", ref, domain.ErrAssetUnreadable)
	}
	return nrgba, nil
}

func (e *Engine) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := e.blobs.Remove(ctx, key); err != nil {
			e.logger.Warn().Err(err).Str("artifact", key).Msg("engine: discard artifact failed")
		}
	}
}
