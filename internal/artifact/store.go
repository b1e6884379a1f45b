package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"voicecast/internal/model"
	"voicecast/internal/repository"
)

// ErrNotFound is returned when no stored object matches any known filename
// convention for an artifact id.
var ErrNotFound = errors.New("artifact_not_found")

// keyPrefix is the flat storage namespace all audio objects live under.
const keyPrefix = "audio/"

// ObjectAPI is the slice of the S3 client the store needs. *s3.Client
// satisfies it.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store persists generated audio: one object in durable storage backed by
// one metadata record, deleted together by the expiry sweep.
type Store struct {
	objects ObjectAPI
	repo    repository.ArtifactRepository
	bucket  string
	logger  zerolog.Logger
}

// NewStore creates an artifact store over the given bucket.
func NewStore(objects ObjectAPI, repo repository.ArtifactRepository, bucket string, logger zerolog.Logger) *Store {
	return &Store{
		objects: objects,
		repo:    repo,
		bucket:  bucket,
		logger:  logger.With().Str("service", "ArtifactStore").Logger(),
	}
}

// Save writes the audio object and then its metadata record, with
// expires_at pinned to the fixed TTL. The object write happens first; if
// the record write fails the object is left behind for the orphan sweep to
// reclaim.
func (s *Store) Save(ctx context.Context, a *model.Artifact, audio []byte) error {
	a.FileSize = len(audio)
	a.CreatedAt = time.Now()
	a.ExpiresAt = a.CreatedAt.Add(model.ArtifactTTL)

	_, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(keyPrefix + a.Filename),
		Body:        bytes.NewReader(audio),
		ContentType: aws.String(ContentTypeFor(a.Filename)),
	})
	if err != nil {
		return fmt.Errorf("writing audio object %s: %w", a.Filename, err)
	}

	if err := s.repo.Insert(ctx, a); err != nil {
		return fmt.Errorf("writing artifact record %s: %w", a.ID, err)
	}
	return nil
}

// candidateFilenames lists every naming convention an artifact id may be
// stored under, in precedence order. The last entry is the legacy format
// written by earlier revisions.
func candidateFilenames(artifactID string) []string {
	return []string{
		"tts-gemini-" + artifactID + ".wav",
		"tts-google-" + artifactID + ".mp3",
		"gemini25-tts-" + artifactID + ".wav",
	}
}

// Fetch streams an artifact's bytes, probing each filename convention and
// returning the first object that exists.
func (s *Store) Fetch(ctx context.Context, artifactID string) ([]byte, string, string, error) {
	for _, filename := range candidateFilenames(artifactID) {
		out, err := s.objects.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(keyPrefix + filename),
		})
		if err != nil {
			continue
		}
		audio, err := io.ReadAll(out.Body)
		_ = out.Body.Close()
		if err != nil {
			return nil, "", "", fmt.Errorf("reading audio object %s: %w", filename, err)
		}
		return audio, filename, ContentTypeFor(filename), nil
	}
	return nil, "", "", ErrNotFound
}

// SweepExpired deletes every artifact whose expiry has passed, object and
// record as a unit, then reclaims orphaned objects older than the TTL that
// have no record. The metadata record is authoritative: an object-delete
// failure is logged but does not keep the record alive.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now()
	expired, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, a := range expired {
		_, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(keyPrefix + a.Filename),
		})
		if err != nil {
			s.logger.Error().Err(err).Str("filename", a.Filename).Msg("Failed to delete expired audio object")
		}
		if err := s.repo.Delete(ctx, a.ID); err != nil {
			s.logger.Error().Err(err).Str("artifact_id", a.ID).Msg("Failed to delete artifact record")
			continue
		}
		removed++
	}

	orphans, err := s.sweepOrphans(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("Orphan sweep failed")
	}

	if removed > 0 || orphans > 0 {
		s.logger.Info().Int("expired", removed).Int("orphaned", orphans).Msg("Cleanup complete")
	}
	return removed + orphans, nil
}

// sweepOrphans scans storage for objects past the TTL with no metadata
// record, e.g. left behind by a record write that failed after the object
// write succeeded.
func (s *Store) sweepOrphans(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	paginator := s3.NewListObjectsV2Paginator(s.objects, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return removed, fmt.Errorf("listing audio objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil {
				continue
			}
			if now.Sub(*obj.LastModified) < model.ArtifactTTL {
				continue
			}
			filename := strings.TrimPrefix(*obj.Key, keyPrefix)
			record, err := s.repo.GetByFilename(ctx, filename)
			if err != nil {
				return removed, err
			}
			if record != nil {
				continue
			}
			if _, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			}); err != nil {
				s.logger.Error().Err(err).Str("filename", filename).Msg("Failed to delete orphaned object")
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// ContentTypeFor maps a filename to its audio content type.
func ContentTypeFor(filename string) string {
	if strings.HasSuffix(filename, ".mp3") {
		return "audio/mpeg"
	}
	return "audio/wav"
}
