package services

import (
	"context"
	"fmt"
	"log/slog"

	"equiptrack/internal/blob"
	"equiptrack/internal/common"
	"equiptrack/internal/logging"
	"equiptrack/internal/server/models"
	"equiptrack/internal/server/repositories/records"
)

// -------- test fakes --------

type fakeRepo struct {
	records.Repository

	byID map[int64]*models.EquipmentRecord

	listResult []*models.EquipmentRecord
	listErr    error

	inserted  *models.EquipmentRecord
	insertErr error

	updated   *models.EquipmentRecord
	updateErr error

	deletedID     int64
	deleteImages  []models.ImageDescriptor
	deleteErr     error

	imagesByID      map[int64][]models.ImageDescriptor
	updateImagesErr map[int64]error
}

func (f *fakeRepo) List(ctx context.Context, filter models.RecordFilter) ([]*models.EquipmentRecord, error) {
	return f.listResult, f.listErr
}

func (f *fakeRepo) ListWithImages(ctx context.Context) ([]*models.EquipmentRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	// Fresh copies: write-backs must go through UpdateImages to stick.
	out := make([]*models.EquipmentRecord, 0, len(f.listResult))
	for _, r := range f.listResult {
		cp := *r
		cp.Images = append([]models.ImageDescriptor(nil), r.Images...)
		if imgs, ok := f.imagesByID[r.ID]; ok {
			cp.Images = append([]models.ImageDescriptor(nil), imgs...)
		}
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (*models.EquipmentRecord, error) {
	if r, ok := f.byID[id]; ok {
		return r, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRepo) Insert(ctx context.Context, r *models.EquipmentRecord) (*models.EquipmentRecord, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	r.ID = 42
	f.inserted = r
	return r, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, r *models.EquipmentRecord) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	r.ID = id
	f.updated = r
	return nil
}

func (f *fakeRepo) UpdateImages(ctx context.Context, id int64, images []models.ImageDescriptor) error {
	if err, ok := f.updateImagesErr[id]; ok {
		return err
	}
	if f.imagesByID == nil {
		f.imagesByID = map[int64][]models.ImageDescriptor{}
	}
	f.imagesByID[id] = append([]models.ImageDescriptor(nil), images...)
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) ([]models.ImageDescriptor, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deletedID = id
	return f.deleteImages, nil
}

type fakeBlobs struct {
	uploads   int
	failEvery map[int]error // keyed by sequence index
	ready     bool
}

func (f *fakeBlobs) Upload(ctx context.Context, data []byte, namespace string, seq int, subtype string) (*blob.UploadResult, error) {
	f.uploads++
	if err, ok := f.failEvery[seq]; ok {
		return nil, err
	}
	key := fmt.Sprintf("%s/1700000000000-%d.%s", namespace, seq, subtype)
	return &blob.UploadResult{
		Key:  key,
		URL:  f.PublicURL(key),
		Size: int64(len(data)),
	}, nil
}

func (f *fakeBlobs) PublicURL(key string) string {
	return "http://127.0.0.1:9000/equipment/" + key
}

func (f *fakeBlobs) Ready(ctx context.Context) bool { return f.ready }

type fakeLocal struct {
	files   map[string]bool
	deleted []string
}

func (f *fakeLocal) Exists(key string) bool { return f.files[key] }

func (f *fakeLocal) Delete(key string) bool {
	f.deleted = append(f.deleted, key)
	if f.files[key] {
		delete(f.files, key)
		return true
	}
	return false
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

// -------- helpers --------

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

func validInput() *RecordInput {
	return &RecordInput{
		EquipoID:             "PC-01",
		SerialNumber:         "SN001",
		Responsible:          "Ana",
		Role:                 "Tech",
		State:                models.StateOperational,
		WindowsUpdateApplied: models.WindowsUpdateYes,
	}
}
