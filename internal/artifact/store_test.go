package artifact

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"voicecast/internal/model"
)

type fakeObjects struct {
	objects  map[string][]byte
	modified map[string]time.Time
	putErr   error
	delErr   error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{
		objects:  map[string][]byte{},
		modified: map[string]time.Time{},
	}
}

func (f *fakeObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	f.modified[*in.Key] = time.Now()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.delErr != nil {
		return nil, f.delErr
	}
	delete(f.objects, *in.Key)
	delete(f.modified, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeObjects) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var contents []s3types.Object
	for key := range f.objects {
		k := key
		mod := f.modified[key]
		contents = append(contents, s3types.Object{Key: &k, LastModified: &mod})
	}
	return &s3.ListObjectsV2Output{Contents: contents}, nil
}

type fakeArtifactRepo struct {
	records   map[string]*model.Artifact // by filename
	insertErr error
	deleted   []string
}

func newFakeArtifactRepo() *fakeArtifactRepo {
	return &fakeArtifactRepo{records: map[string]*model.Artifact{}}
}

func (r *fakeArtifactRepo) Insert(ctx context.Context, a *model.Artifact) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.records[a.Filename] = a
	return nil
}

func (r *fakeArtifactRepo) GetByFilename(ctx context.Context, filename string) (*model.Artifact, error) {
	return r.records[filename], nil
}

func (r *fakeArtifactRepo) ListExpired(ctx context.Context, now time.Time) ([]model.Artifact, error) {
	var out []model.Artifact
	for _, a := range r.records {
		if a.ExpiresAt.Before(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeArtifactRepo) Delete(ctx context.Context, id string) error {
	for filename, a := range r.records {
		if a.ID == id {
			delete(r.records, filename)
			r.deleted = append(r.deleted, id)
			return nil
		}
	}
	return nil
}

func (r *fakeArtifactRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.Artifact, error) {
	var out []model.Artifact
	for _, a := range r.records {
		if a.UserID != nil && *a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func newTestStore() (*Store, *fakeObjects, *fakeArtifactRepo) {
	objects := newFakeObjects()
	repo := newFakeArtifactRepo()
	return NewStore(objects, repo, "test-bucket", zerolog.Nop()), objects, repo
}

func TestSaveWritesObjectAndRecord(t *testing.T) {
	store, objects, repo := newTestStore()

	a := &model.Artifact{ID: "id1", Filename: "tts-gemini-id1.wav", Provider: "gemini"}
	if err := store.Save(context.Background(), a, []byte("wav-bytes")); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, ok := objects.objects["audio/tts-gemini-id1.wav"]; !ok {
		t.Error("object not written under the audio prefix")
	}
	if repo.records["tts-gemini-id1.wav"] == nil {
		t.Error("metadata record not written")
	}
	if a.FileSize != len("wav-bytes") {
		t.Errorf("file size = %d", a.FileSize)
	}
	if ttl := a.ExpiresAt.Sub(a.CreatedAt); ttl != model.ArtifactTTL {
		t.Errorf("expiry TTL = %v, want %v", ttl, model.ArtifactTTL)
	}
}

func TestSaveRecordFailureLeavesObjectForSweep(t *testing.T) {
	store, objects, repo := newTestStore()
	repo.insertErr = errors.New("db down")

	a := &model.Artifact{ID: "id1", Filename: "tts-gemini-id1.wav"}
	if err := store.Save(context.Background(), a, []byte("x")); err == nil {
		t.Fatal("expected record write failure")
	}
	if _, ok := objects.objects["audio/tts-gemini-id1.wav"]; !ok {
		t.Error("object should remain for the orphan sweep to reclaim")
	}
}

func TestFetchProbesCandidatesInOrder(t *testing.T) {
	store, objects, _ := newTestStore()

	// Legacy naming only.
	legacy := &model.Artifact{ID: "old1", Filename: "gemini25-tts-old1.wav"}
	if err := store.Save(context.Background(), legacy, []byte("legacy-bytes")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	audio, filename, contentType, err := store.Fetch(context.Background(), "old1")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(audio) != "legacy-bytes" {
		t.Errorf("audio = %q", audio)
	}
	if filename != "gemini25-tts-old1.wav" {
		t.Errorf("filename = %q", filename)
	}
	if contentType != "audio/wav" {
		t.Errorf("content type = %q", contentType)
	}

	// Current gemini naming wins over the probe order tail.
	objects.objects["audio/tts-google-two.mp3"] = []byte("mp3")
	objects.objects["audio/tts-gemini-two.wav"] = []byte("wav")
	_, filename, contentType, err = store.Fetch(context.Background(), "two")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if filename != "tts-gemini-two.wav" || contentType != "audio/wav" {
		t.Errorf("probe order broken: got %q (%q)", filename, contentType)
	}
}

func TestFetchUnknownID(t *testing.T) {
	store, _, _ := newTestStore()
	if _, _, _, err := store.Fetch(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSweepExpiredRemovesFileAndRecord(t *testing.T) {
	store, objects, repo := newTestStore()

	a := &model.Artifact{ID: "id1", Filename: "tts-gemini-id1.wav"}
	if err := store.Save(context.Background(), a, []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Age the record past the TTL, as if the sweep runs 25h later.
	a.ExpiresAt = time.Now().Add(-time.Hour)
	objects.modified["audio/tts-gemini-id1.wav"] = time.Now().Add(-25 * time.Hour)

	removed, err := store.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired returned error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if len(objects.objects) != 0 {
		t.Error("object still present after sweep")
	}
	if len(repo.records) != 0 {
		t.Error("record still present after sweep")
	}
	if _, _, _, err := store.Fetch(context.Background(), "id1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("fetch after sweep = %v, want ErrNotFound", err)
	}
}

func TestSweepDeletesRecordEvenWhenObjectDeleteFails(t *testing.T) {
	store, objects, repo := newTestStore()

	a := &model.Artifact{ID: "id1", Filename: "tts-gemini-id1.wav"}
	if err := store.Save(context.Background(), a, []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	a.ExpiresAt = time.Now().Add(-time.Hour)
	objects.delErr = errors.New("storage down")

	if _, err := store.SweepExpired(context.Background()); err != nil {
		t.Fatalf("SweepExpired returned error: %v", err)
	}
	if len(repo.records) != 0 {
		t.Error("record must be deleted even when the object delete fails")
	}
}

func TestSweepReclaimsOrphans(t *testing.T) {
	store, objects, _ := newTestStore()

	// An object with no record, older than the TTL.
	objects.objects["audio/tts-gemini-orphan.wav"] = []byte("x")
	objects.modified["audio/tts-gemini-orphan.wav"] = time.Now().Add(-25 * time.Hour)
	// A fresh object with no record yet: its record write may still be in
	// flight, so the sweep must leave it alone.
	objects.objects["audio/tts-gemini-fresh.wav"] = []byte("y")
	objects.modified["audio/tts-gemini-fresh.wav"] = time.Now()

	removed, err := store.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired returned error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1 orphan", removed)
	}
	if _, ok := objects.objects["audio/tts-gemini-orphan.wav"]; ok {
		t.Error("aged orphan not reclaimed")
	}
	if _, ok := objects.objects["audio/tts-gemini-fresh.wav"]; !ok {
		t.Error("fresh object must not be reclaimed")
	}
}

func TestContentTypeFor(t *testing.T) {
	if got := ContentTypeFor("tts-google-x.mp3"); got != "audio/mpeg" {
		t.Errorf("mp3 content type = %q", got)
	}
	if got := ContentTypeFor("tts-gemini-x.wav"); got != "audio/wav" {
		t.Errorf("wav content type = %q", got)
	}
}
