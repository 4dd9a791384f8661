package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"equiptrack/internal/common"
	"equiptrack/internal/server/models"
)

func newRecordService(repo *fakeRepo, blobs *fakeBlobs, local *fakeLocal) *RecordService {
	if blobs.failEvery == nil {
		blobs.failEvery = map[int]error{}
	}
	blobs.ready = true
	if local.files == nil {
		local.files = map[string]bool{}
	}
	return NewRecordService(repo, blobs, local, &fakePinger{}, discardLogger())
}

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})
}

func TestCreate_MissingFieldsListed(t *testing.T) {
	svc := newRecordService(&fakeRepo{}, &fakeBlobs{}, &fakeLocal{})

	in := &RecordInput{EquipoID: "PC-01", State: models.StateOperational}
	_, err := svc.Create(context.Background(), in)

	require.True(t, errors.Is(err, common.ErrorValidation))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.ElementsMatch(t,
		[]string{"serialNumber", "responsible", "role", "windowsUpdateApplied"},
		verr.Missing)
}

func TestCreate_InvalidEnumRejectedBeforeStore(t *testing.T) {
	repo := &fakeRepo{}
	svc := newRecordService(repo, &fakeBlobs{}, &fakeLocal{})

	in := validInput()
	in.State = "exploded"
	_, err := svc.Create(context.Background(), in)

	require.True(t, errors.Is(err, common.ErrorConstraintViolation))
	require.Nil(t, repo.inserted, "store must not be touched")
}

func TestCreate_Success(t *testing.T) {
	repo := &fakeRepo{}
	svc := newRecordService(repo, &fakeBlobs{}, &fakeLocal{})

	in := validInput()
	in.Images = []ImageInput{{Base64: pngDataURI()}}

	rec, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, int64(42), rec.ID)
	require.Len(t, rec.Images, 1)
	require.Regexp(t, `^PC-01/\d+-1\.png$`, rec.Images[0].Filename)
	require.Equal(t, "Image 1", rec.Images[0].Title)
	require.Contains(t, rec.Images[0].URL, "http://127.0.0.1:9000/equipment/PC-01/")
	require.False(t, rec.ReviewedAt.IsZero())
}

func TestCreate_BadImageDroppedRecordStillCreated(t *testing.T) {
	repo := &fakeRepo{}
	svc := newRecordService(repo, &fakeBlobs{}, &fakeLocal{})

	in := validInput()
	in.Images = []ImageInput{{Base64: "not a data uri"}}

	rec, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, rec.Images, "undecodable image is dropped, record survives")
}

func TestCreate_UploadConflictDropsOnlyThatImage(t *testing.T) {
	repo := &fakeRepo{}
	blobs := &fakeBlobs{failEvery: map[int]error{1: common.ErrorUploadConflict}}
	svc := newRecordService(repo, blobs, &fakeLocal{})

	in := validInput()
	in.Images = []ImageInput{{Base64: pngDataURI()}, {Base64: pngDataURI()}}

	rec, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, rec.Images, 1)
	require.Regexp(t, `-2\.png$`, rec.Images[0].Filename, "surviving image keeps its original sequence index")
}

func TestCreate_DuplicateEquipoIDPropagates(t *testing.T) {
	repo := &fakeRepo{insertErr: common.ErrorDuplicateKey}
	svc := newRecordService(repo, &fakeBlobs{}, &fakeLocal{})

	_, err := svc.Create(context.Background(), validInput())
	require.True(t, errors.Is(err, common.ErrorDuplicateKey))
}

func TestCreate_StoreUnavailable(t *testing.T) {
	svc := NewRecordService(&fakeRepo{}, &fakeBlobs{ready: true}, &fakeLocal{},
		&fakePinger{err: errors.New("connection refused")}, discardLogger())

	_, err := svc.Create(context.Background(), validInput())
	require.True(t, errors.Is(err, common.ErrorStoreUnavailable))
}

func TestUpdate_NotFoundBeforeAnyUpload(t *testing.T) {
	repo := &fakeRepo{byID: map[int64]*models.EquipmentRecord{}}
	blobs := &fakeBlobs{}
	svc := newRecordService(repo, blobs, &fakeLocal{})

	in := validInput()
	in.Images = []ImageInput{{Base64: pngDataURI()}}

	_, err := svc.Update(context.Background(), 99, in)
	require.True(t, errors.Is(err, common.ErrorNotFound))
	require.Zero(t, blobs.uploads, "no object-store mutation on 404")
}

func TestUpdate_ImageMerge(t *testing.T) {
	repo := &fakeRepo{byID: map[int64]*models.EquipmentRecord{7: {ID: 7}}}
	blobs := &fakeBlobs{}
	local := &fakeLocal{files: map[string]bool{"PC-01/old-2.png": true}}
	svc := newRecordService(repo, blobs, local)

	in := validInput()
	in.Images = []ImageInput{
		{Base64: pngDataURI()},
		{Filename: "PC-01/old-2.png", URL: "/uploads/PC-01/old-2.png"},
		{Filename: "PC-01/gone-3.png", URL: "/uploads/PC-01/gone-3.png"},
		{Filename: "https://s3.example.com/equipment/PC-01/4.png"},
	}

	rec, err := svc.Update(context.Background(), 7, in)
	require.NoError(t, err)
	require.Len(t, rec.Images, 3)

	// Fresh upload goes to the update namespace.
	require.Regexp(t, `^PC-01-update/\d+-1\.png$`, rec.Images[0].Filename)
	// Existing local file kept.
	require.Equal(t, "PC-01/old-2.png", rec.Images[1].Filename)
	// Missing local file dropped; remote passed through with its own URL.
	require.Equal(t, "https://s3.example.com/equipment/PC-01/4.png", rec.Images[2].Filename)
	require.Equal(t, "https://s3.example.com/equipment/PC-01/4.png", rec.Images[2].URL)
}

func TestCreate_GetRoundTripKeepsStoredImage(t *testing.T) {
	repo := &fakeRepo{}
	svc := newRecordService(repo, &fakeBlobs{}, &fakeLocal{})

	in := validInput()
	in.Images = []ImageInput{{Base64: pngDataURI()}}

	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, created.Images, 1)

	repo.byID = map[int64]*models.EquipmentRecord{created.ID: created}

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, got.Images, 1, "object-store image must survive a read")
	require.Equal(t, created.Images[0].Filename, got.Images[0].Filename)
	require.Equal(t, created.Images[0].URL, got.Images[0].URL)
}

func TestUpdate_RoundTripPreservesOwnImages(t *testing.T) {
	repo := &fakeRepo{}
	blobs := &fakeBlobs{}
	svc := newRecordService(repo, blobs, &fakeLocal{})

	in := validInput()
	in.Images = []ImageInput{{Title: "front", Base64: pngDataURI()}}

	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, created.Images, 1)

	repo.byID = map[int64]*models.EquipmentRecord{created.ID: created}
	uploadsAfterCreate := blobs.uploads

	// Feed the record's own descriptors back, as a client PUT does.
	upd := validInput()
	upd.Images = []ImageInput{{
		Title:    created.Images[0].Title,
		Filename: created.Images[0].Filename,
		URL:      created.Images[0].URL,
		Size:     created.Images[0].Size,
	}}

	rec, err := svc.Update(context.Background(), created.ID, upd)
	require.NoError(t, err)
	require.Len(t, rec.Images, 1, "object-store image must survive a PUT round trip")
	require.Equal(t, created.Images[0].Filename, rec.Images[0].Filename)
	require.Equal(t, created.Images[0].URL, rec.Images[0].URL)
	require.Equal(t, created.Images[0].UploadedAt, rec.Images[0].UploadedAt, "pass-through keeps the original stamp")
	require.Equal(t, created.Images[0].Size, rec.Images[0].Size)
	require.Equal(t, uploadsAfterCreate, blobs.uploads, "pass-through must not re-upload")
}

func TestDelete_CleansUpOnlyLocalImages(t *testing.T) {
	repo := &fakeRepo{deleteImages: []models.ImageDescriptor{
		{Filename: "PC-01/1-1.png"},
		{Filename: "https://s3.example.com/equipment/PC-01/2-2.png"},
		{Filename: "PC-01/3-3.png", URL: "http://127.0.0.1:9000/equipment/PC-01/3-3.png"},
	}}
	local := &fakeLocal{files: map[string]bool{"PC-01/1-1.png": true}}
	svc := newRecordService(repo, &fakeBlobs{}, local)

	require.NoError(t, svc.Delete(context.Background(), 7))
	require.Equal(t, int64(7), repo.deletedID)
	require.Equal(t, []string{"PC-01/1-1.png"}, local.deleted, "remote blobs are never deleted")
}

func TestDelete_CleanupFailureDoesNotFailDelete(t *testing.T) {
	repo := &fakeRepo{deleteImages: []models.ImageDescriptor{
		{Filename: "PC-01/missing.png"},
	}}
	svc := newRecordService(repo, &fakeBlobs{}, &fakeLocal{})

	require.NoError(t, svc.Delete(context.Background(), 7))
}

func TestDelete_NotFound(t *testing.T) {
	repo := &fakeRepo{deleteErr: common.ErrorNotFound}
	svc := newRecordService(repo, &fakeBlobs{}, &fakeLocal{})

	err := svc.Delete(context.Background(), 99)
	require.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestList_FiltersMissingLocalImages(t *testing.T) {
	repo := &fakeRepo{listResult: []*models.EquipmentRecord{
		{ID: 1, Images: []models.ImageDescriptor{
			{Filename: "PC-01/kept.png"},
			{Filename: "PC-01/gone.png"},
			{Filename: "https://s3.example.com/equipment/PC-01/kept.png"},
		}},
	}}
	local := &fakeLocal{files: map[string]bool{"PC-01/kept.png": true}}
	svc := newRecordService(repo, &fakeBlobs{}, local)

	recs, err := svc.List(context.Background(), models.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, recs[0].Images, 2)
}

func TestHealth_ReportsBothDependencies(t *testing.T) {
	svc := NewRecordService(&fakeRepo{}, &fakeBlobs{ready: false}, &fakeLocal{},
		&fakePinger{}, discardLogger())

	dbReady, storageReady := svc.Health(context.Background())
	require.True(t, dbReady)
	require.False(t, storageReady)
}

func TestCreate_ReviewedAtStamped(t *testing.T) {
	orig := timeNow
	fixed := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = orig })

	repo := &fakeRepo{}
	svc := newRecordService(repo, &fakeBlobs{}, &fakeLocal{})

	rec, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, fixed, rec.ReviewedAt)
}
