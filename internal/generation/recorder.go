// Package generation turns provider results into persisted history rows.
// Both the synchronous endpoints and the queue processor record through
// the same code path, so cost splitting and variant grouping stay uniform.
package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sakuga/internal/domain"
	"sakuga/internal/infra"
	"sakuga/internal/providers"
	"sakuga/internal/storage"
)

// Request carries the metadata shared by every history row a batch
// produces. Count is the requested image count, used to decide variant
// grouping; the provider may return fewer.
type Request struct {
	Prompt      string
	Type        domain.GenerationType
	Provider    string
	Model       string
	AspectRatio string
	Count       int
}

// Recorder persists one provider result as history rows with stored
// image files.
type Recorder struct {
	store   *storage.FileStore
	history domain.HistoryRepository
	log     infra.Logger
}

func NewRecorder(store *storage.FileStore, history domain.HistoryRepository, log infra.Logger) *Recorder {
	return &Recorder{store: store, history: history, log: log}
}

// Record saves every image in the result and writes one history row per
// image. The result's Cost covers the whole batch and is split evenly
// across the images actually returned. When the request asked for more
// than one image, all rows of the batch share a fresh variant group id.
func (r *Recorder) Record(ctx context.Context, req Request, result *providers.Result) ([]domain.HistoryEntry, error) {
	if result == nil || len(result.Images) == 0 {
		return nil, providers.ErrEmptyResult
	}
	if req.Count > 1 && len(result.Images) < req.Count {
		r.log.Warn().
			Str("provider", req.Provider).
			Int("requested", req.Count).
			Int("returned", len(result.Images)).
			Msg("provider returned fewer images than requested")
	}

	perImageCost := result.Cost / float64(len(result.Images))
	var variantGroup *string
	if req.Count > 1 {
		group := uuid.NewString()
		variantGroup = &group
	}

	entries := make([]domain.HistoryEntry, 0, len(result.Images))
	for i, img := range result.Images {
		saved, err := r.store.Save(ctx, img.Data, img.MIME)
		if err != nil {
			return entries, fmt.Errorf("save image %d: %w", i, err)
		}
		entry := domain.HistoryEntry{
			ID:           uuid.NewString(),
			Prompt:       req.Prompt,
			Type:         req.Type,
			Provider:     req.Provider,
			Model:        req.Model,
			AspectRatio:  req.AspectRatio,
			ImageURL:     saved.ImageURL,
			ThumbURL:     saved.ThumbURL,
			Cost:         perImageCost,
			VariantGroup: variantGroup,
			CreatedAt:    time.Now().UTC(),
		}
		if err := r.history.Add(ctx, &entry); err != nil {
			return entries, fmt.Errorf("record history: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
