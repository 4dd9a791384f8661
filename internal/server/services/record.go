package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"equiptrack/internal/common"
	"equiptrack/internal/filex"
	"equiptrack/internal/imaging"
	"equiptrack/internal/logging"
	"equiptrack/internal/server/models"
	"equiptrack/internal/server/repositories/records"
)

// uploadConcurrency bounds the per-request image upload fan-out. Each image
// keeps its original 1-based sequence index, so parallel uploads still get
// distinct object keys.
const uploadConcurrency = 4

// RecordService orchestrates image persistence and record mutation for the
// create/update/delete flows.
type RecordService struct {
	repo   records.Repository
	blobs  BlobStore
	local  LocalFiles
	pinger Pinger
	logger logging.Logger
}

func NewRecordService(repo records.Repository, blobs BlobStore, local LocalFiles, pinger Pinger, logger logging.Logger) *RecordService {
	return &RecordService{
		repo:   repo,
		blobs:  blobs,
		local:  local,
		pinger: pinger,
		logger: logger.With("module", "record_service"),
	}
}

// ImageInput is one client-supplied image. On create each image carries an
// embedded data URI in Base64; on update an image carries either fresh
// Base64 data or an existing descriptor's Filename.
type ImageInput struct {
	Title    string `json:"title,omitempty"`
	Base64   string `json:"base64,omitempty"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// RecordInput carries the client-supplied record fields for create and
// update.
type RecordInput struct {
	EquipoID             string       `json:"equipoId"`
	SerialNumber         string       `json:"serialNumber"`
	PlacaML              string       `json:"placaMl,omitempty"`
	Responsible          string       `json:"responsible"`
	Role                 string       `json:"role"`
	Latitude             *float64     `json:"latitude,omitempty"`
	Longitude            *float64     `json:"longitude,omitempty"`
	AutoAddress          string       `json:"autoAddress,omitempty"`
	ManualLocation       string       `json:"manualLocation,omitempty"`
	State                string       `json:"state"`
	WindowsUpdateApplied string       `json:"windowsUpdateApplied"`
	Observations         string       `json:"observations,omitempty"`
	DetectedProblems     string       `json:"detectedProblems,omitempty"`
	Reviewer             string       `json:"reviewer,omitempty"`
	Images               []ImageInput `json:"images"`
}

// ValidationError lists the required fields absent from a request.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "validation error: missing fields: " + strings.Join(e.Missing, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == common.ErrorValidation
}

func (in *RecordInput) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"equipoId", in.EquipoID},
		{"serialNumber", in.SerialNumber},
		{"responsible", in.Responsible},
		{"role", in.Role},
		{"state", in.State},
		{"windowsUpdateApplied", in.WindowsUpdateApplied},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}

	if !models.ValidState(in.State) {
		return fmt.Errorf("%w: state %q", common.ErrorConstraintViolation, in.State)
	}
	if !models.ValidWindowsUpdate(in.WindowsUpdateApplied) {
		return fmt.Errorf("%w: windowsUpdateApplied %q", common.ErrorConstraintViolation, in.WindowsUpdateApplied)
	}

	return nil
}

func (in *RecordInput) toModel() *models.EquipmentRecord {
	return &models.EquipmentRecord{
		EquipoID:             in.EquipoID,
		SerialNumber:         in.SerialNumber,
		PlacaML:              in.PlacaML,
		Responsible:          in.Responsible,
		Role:                 in.Role,
		Latitude:             in.Latitude,
		Longitude:            in.Longitude,
		AutoAddress:          in.AutoAddress,
		ManualLocation:       in.ManualLocation,
		State:                in.State,
		WindowsUpdateApplied: in.WindowsUpdateApplied,
		Observations:         in.Observations,
		DetectedProblems:     in.DetectedProblems,
		Reviewer:             in.Reviewer,
	}
}

func imageTitle(title string, seq int) string {
	if title != "" {
		return title
	}
	return fmt.Sprintf("Image %d", seq)
}

// uploadEmbedded decodes and uploads every input that carries base64 data,
// fanning out with bounded concurrency. Images that fail to decode or
// upload are dropped, never fatal: a partial image set is accepted.
// Sequence indexes follow the original array order.
func (s *RecordService) uploadEmbedded(ctx context.Context, namespace string, inputs []ImageInput) []models.ImageDescriptor {
	results := make([]*models.ImageDescriptor, len(inputs))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for i, in := range inputs {
		if in.Base64 == "" {
			continue
		}
		seq := i + 1

		g.Go(func() error {
			d := s.uploadOne(ctx, namespace, seq, in)
			if d != nil {
				mu.Lock()
				results[seq-1] = d
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	saved := make([]models.ImageDescriptor, 0, len(inputs))
	for _, d := range results {
		if d != nil {
			saved = append(saved, *d)
		}
	}
	return saved
}

// uploadOne returns nil when the image had to be dropped.
func (s *RecordService) uploadOne(ctx context.Context, namespace string, seq int, in ImageInput) *models.ImageDescriptor {
	subtype, data, err := imaging.DecodeDataURI(in.Base64)
	if err != nil {
		s.logger.Warn(ctx, "dropping image: decode failed", "namespace", namespace, "seq", seq, "error", err)
		return nil
	}

	res, err := s.blobs.Upload(ctx, data, namespace, seq, subtype)
	if err != nil {
		s.logger.Warn(ctx, "dropping image: upload failed", "namespace", namespace, "seq", seq, "error", err)
		return nil
	}

	return &models.ImageDescriptor{
		Title:      imageTitle(in.Title, seq),
		Filename:   res.Key,
		URL:        res.URL,
		Size:       res.Size,
		UploadedAt: timeNow(),
	}
}

// passThrough carries an existing image into the updated sequence. An image
// the record already holds keeps its original upload metadata unchanged;
// only a descriptor the record has never seen gets a fresh stamp.
func (s *RecordService) passThrough(in ImageInput, seq int, url string, prior map[string]models.ImageDescriptor) models.ImageDescriptor {
	d := models.ImageDescriptor{
		Title:      imageTitle(in.Title, seq),
		Filename:   in.Filename,
		URL:        url,
		Size:       in.Size,
		UploadedAt: timeNow(),
	}

	if p, ok := prior[in.Filename]; ok {
		d.UploadedAt = p.UploadedAt
		if d.Size == 0 {
			d.Size = p.Size
		}
		if in.Title == "" && p.Title != "" {
			d.Title = p.Title
		}
	}

	return d
}

// Create validates the record, persists each embedded image to the object
// store under the equipment's namespace, and inserts the row with the
// successfully stored image set.
func (s *RecordService) Create(ctx context.Context, in *RecordInput) (*models.EquipmentRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	namespace := filex.SanitizeName(in.EquipoID)
	rec := in.toModel()
	rec.Images = s.uploadEmbedded(ctx, namespace, in.Images)
	rec.ReviewedAt = timeNow()

	rec, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "record created", "id", rec.ID, "equipoId", rec.EquipoID, "imagesSaved", len(rec.Images))
	return rec, nil
}

// Update replaces the full field set and image sequence of one record.
// Replacement images carrying base64 data are uploaded under the
// "<equipoId>-update" namespace so they never collide with create-time
// keys; remote-hosted images pass through unchanged; locally-hosted ones
// are kept only if their file still exists on disk.
func (s *RecordService) Update(ctx context.Context, id int64, in *RecordInput) (*models.EquipmentRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	// 404 before any image upload: a PUT on a nonexistent id must not
	// mutate object storage.
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prior := make(map[string]models.ImageDescriptor, len(current.Images))
	for _, img := range current.Images {
		prior[img.Filename] = img
	}

	namespace := filex.SanitizeName(in.EquipoID) + "-update"
	rec := in.toModel()
	rec.Images = make([]models.ImageDescriptor, 0, len(in.Images))

	for i, img := range in.Images {
		seq := i + 1

		if img.Base64 != "" {
			if d := s.uploadOne(ctx, namespace, seq, img); d != nil {
				rec.Images = append(rec.Images, *d)
			}
			continue
		}

		switch ref := models.ClassifyImage(img.Filename, img.URL).(type) {
		case models.RemoteRef:
			rec.Images = append(rec.Images, s.passThrough(img, seq, ref.URL, prior))
		case models.LocalRef:
			if !s.local.Exists(ref.Path) {
				s.logger.Warn(ctx, "dropping image: local file missing", "filename", ref.Path)
				continue
			}
			rec.Images = append(rec.Images, s.passThrough(img, seq, img.URL, prior))
		}
	}

	if err := s.repo.Update(ctx, id, rec); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "record updated", "id", id, "imagesSaved", len(rec.Images))
	return rec, nil
}

// Delete removes the record and best-effort deletes its locally-hosted
// image files. Cleanup failures are logged, never surfaced: the delete has
// already succeeded. Remote-hosted blobs are left untouched.
func (s *RecordService) Delete(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	images, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	for _, img := range images {
		if ref, ok := img.Ref().(models.LocalRef); ok {
			if !s.local.Delete(ref.Path) {
				s.logger.Warn(ctx, "local image cleanup failed", "id", id, "filename", ref.Path)
			}
		}
	}

	s.logger.Info(ctx, "record deleted", "id", id, "images", len(images))
	return nil
}

// Get returns one record with its images re-validated.
func (s *RecordService) Get(ctx context.Context, id int64) (*models.EquipmentRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rec.Images = s.verifiedImages(rec.Images)
	return rec, nil
}

// List returns records matching the filter. Locally-hosted images whose
// file is gone from disk are filtered out of each response record.
func (s *RecordService) List(ctx context.Context, filter models.RecordFilter) ([]*models.EquipmentRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	recs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	for _, rec := range recs {
		rec.Images = s.verifiedImages(rec.Images)
	}

	return recs, nil
}

func (s *RecordService) verifiedImages(images []models.ImageDescriptor) []models.ImageDescriptor {
	kept := make([]models.ImageDescriptor, 0, len(images))
	for _, img := range images {
		if ref, ok := img.Ref().(models.LocalRef); ok && !s.local.Exists(ref.Path) {
			continue
		}
		kept = append(kept, img)
	}
	return kept
}

// Health reports per-dependency readiness for the health endpoint.
func (s *RecordService) Health(ctx context.Context) (dbReady, storageReady bool) {
	return s.pinger.Ping(ctx) == nil, s.blobs.Ready(ctx)
}

// ready gates every record operation on store reachability, replacing the
// original's process-wide ready flag with a live check.
func (s *RecordService) ready(ctx context.Context) error {
	if err := s.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorStoreUnavailable, err)
	}
	return nil
}
