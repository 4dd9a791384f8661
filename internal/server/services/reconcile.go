package services

import (
	"context"
	"strings"

	"equiptrack/internal/logging"
	"equiptrack/internal/server/models"
	"equiptrack/internal/server/repositories/records"
)

// Image classifications reported by Status.
const (
	ImageRemoteOK        = "remote-ok"
	ImageLocalOK         = "local-ok"
	ImageLocalDeprecated = "local-deprecated"
)

// ReconcileService repairs records whose images still reference the
// deprecated local-serving URL shape, rewriting them to durable object
// store URLs resolved from the stored object key.
type ReconcileService struct {
	repo   records.Repository
	blobs  BlobStore
	logger logging.Logger
}

func NewReconcileService(repo records.Repository, blobs BlobStore, logger logging.Logger) *ReconcileService {
	return &ReconcileService{
		repo:   repo,
		blobs:  blobs,
		logger: logger.With("module", "reconcile_service"),
	}
}

// RepairResult aggregates one repair run.
type RepairResult struct {
	RecordsUpdated int `json:"recordsUpdated"`
	ImagesScanned  int `json:"imagesScanned"`
}

// Repair scans every record carrying images and rewrites each image whose
// URL still contains the deprecated marker: the fresh public URL is
// resolved from the image's object key, the old URL is preserved in
// previousUrl and correctedAt is stamped. Each dirty record is written back
// in one update; a write failure is logged and skipped so the remaining
// records still get repaired. The operation is idempotent: corrected URLs
// no longer contain the marker.
func (s *ReconcileService) Repair(ctx context.Context) (*RepairResult, error) {
	recs, err := s.repo.ListWithImages(ctx)
	if err != nil {
		return nil, err
	}

	result := &RepairResult{}

	for _, rec := range recs {
		dirty := false

		for i, img := range rec.Images {
			result.ImagesScanned++

			if !strings.Contains(img.URL, models.DeprecatedURLMarker) {
				continue
			}

			corrected := timeNow()
			img.PreviousURL = img.URL
			img.URL = s.blobs.PublicURL(img.Filename)
			img.CorrectedAt = &corrected
			rec.Images[i] = img
			dirty = true
		}

		if !dirty {
			continue
		}

		if err := s.repo.UpdateImages(ctx, rec.ID, rec.Images); err != nil {
			s.logger.Error(ctx, "skipping record: image write-back failed",
				"id", rec.ID, "equipoId", rec.EquipoID, "error", err)
			continue
		}
		result.RecordsUpdated++
	}

	s.logger.Info(ctx, "image reconciliation finished",
		"recordsUpdated", result.RecordsUpdated, "imagesScanned", result.ImagesScanned)
	return result, nil
}

// ImageStatus classifies one image without mutating anything.
type ImageStatus struct {
	Title    string `json:"title,omitempty"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Status   string `json:"status"`
}

// RecordImageStatus groups the classification per record.
type RecordImageStatus struct {
	RecordID int64         `json:"recordId"`
	EquipoID string        `json:"equipoId"`
	Images   []ImageStatus `json:"images"`
}

// StatusReport is the full diagnostic classification.
type StatusReport struct {
	Records       []RecordImageStatus `json:"records"`
	RemoteOK      int                 `json:"remoteOk"`
	LocalOK       int                 `json:"localOk"`
	NeedingRepair int                 `json:"needingRepair"`
}

// Status classifies every image across all records into exactly one of
// remote-ok, local-ok or local-deprecated, for diagnostic reporting.
func (s *ReconcileService) Status(ctx context.Context) (*StatusReport, error) {
	recs, err := s.repo.ListWithImages(ctx)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{Records: []RecordImageStatus{}}

	for _, rec := range recs {
		entry := RecordImageStatus{RecordID: rec.ID, EquipoID: rec.EquipoID}

		for _, img := range rec.Images {
			status := classifyImage(img)
			switch status {
			case ImageRemoteOK:
				report.RemoteOK++
			case ImageLocalOK:
				report.LocalOK++
			case ImageLocalDeprecated:
				report.NeedingRepair++
			}
			entry.Images = append(entry.Images, ImageStatus{
				Title:    img.Title,
				Filename: img.Filename,
				URL:      img.URL,
				Status:   status,
			})
		}

		report.Records = append(report.Records, entry)
	}

	return report, nil
}

func classifyImage(img models.ImageDescriptor) string {
	if strings.Contains(img.URL, models.DeprecatedURLMarker) {
		return ImageLocalDeprecated
	}
	if _, remote := img.Ref().(models.RemoteRef); remote {
		return ImageRemoteOK
	}
	return ImageLocalOK
}
