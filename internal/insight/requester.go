// Package insight wraps the generative-text collaborator behind a single
// call that always returns usable text. The trial flow treats the insight as
// a deferred amendment to an already-visible record, never a precondition,
// so this package is forbidden from propagating errors to its caller.
package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"chromatic/internal/trial"
)

const defaultModel = "gemini-3-flash-preview"

// The two fixed fallbacks. FallbackEmpty covers a call that succeeded but
// returned nothing; FallbackFailure covers everything else (timeout, quota,
// network, unconfigured key). Both read as plausible insights so the
// participant always gets a non-empty explanation.
const (
	FallbackEmpty   = "Fascinating result! This afterimage occurs because your retinal cones become temporarily desensitized to the stimulus color, leaving the complementary pathways dominant when you look at white."
	FallbackFailure = "Your brain is processing the contrast by compensating for the specific wavelengths you were focused on."
)

// Requester asks the Gemini API for a short trial explanation.
type Requester struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

// NewRequester builds a requester. An empty API key yields a requester whose
// Generate always returns the failure fallback without touching the network;
// the exhibit stays fully usable offline.
func NewRequester(ctx context.Context, apiKey, model string, log *zap.Logger) (*Requester, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if model == "" {
		model = defaultModel
	}
	r := &Requester{model: model, timeout: 30 * time.Second, log: log}
	if apiKey == "" {
		log.Info("insight requester running without an API key; using fallbacks")
		return r, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	r.client = client
	return r, nil
}

// Generate returns a short explanation keyed to the record's stimulus and
// timing values. It always resolves with non-empty text.
func (r *Requester) Generate(ctx context.Context, rec trial.Record) string {
	if r.client == nil {
		return FallbackFailure
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := r.client.Models.GenerateContent(ctx, r.model,
		genai.Text(buildPrompt(rec)),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0.7),
			TopP:        genai.Ptr[float32](0.95),
		},
	)
	if err != nil {
		r.log.Warn("insight generation failed",
			zap.String("record", rec.ID),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return FallbackFailure
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		r.log.Warn("insight generation returned empty response", zap.String("record", rec.ID))
		return FallbackEmpty
	}

	r.log.Debug("insight generated",
		zap.String("record", rec.ID),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("length", len(text)))
	return text
}

// buildPrompt carries the stimulus name, stare duration, and persistence
// duration as context for a two-sentence explanation.
func buildPrompt(rec trial.Record) string {
	return fmt.Sprintf(`Context: The user is participating in a visual perception experiment about "Negative Afterimages" (retinal fatigue).

Trial Data:
- Stimulus Color: %s
- Stare Duration: %d seconds
- Afterimage Persistence: %.2f seconds

Provide a concise, scientific but engaging 2-sentence explanation of why they saw the specific complementary color and what their persistence time says about their visual processing in this instance. Use a tone of a curious neuroscientist.`,
		rec.ColorName, rec.StareDuration, rec.PersistenceDuration)
}
