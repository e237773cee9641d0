package recording

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"meetdesk-backend/internal/domain"
	"meetdesk-backend/internal/service/video"
	apperrors "meetdesk-backend/pkg/errors"
	"meetdesk-backend/pkg/resilience"
	"meetdesk-backend/pkg/sanitize"
)

// ObjectStorage is the subset of the MinIO client used for recordings
type ObjectStorage interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// MeetingSource resolves the meetings a user may see recordings of
type MeetingSource interface {
	GetMeeting(ctx context.Context, meetingID string) (*domain.Meeting, error)
	ListMeetings(ctx context.Context, userID uuid.UUID, filter video.ListFilter, limit, offset int) ([]*domain.Meeting, error)
}

// Service lists meeting recordings stored in MinIO
type Service struct {
	storage   ObjectStorage
	meetings  MeetingSource
	bucket    string
	urlExpiry time.Duration
	breaker   *resilience.CircuitBreaker
}

// NewService creates a new recording service. A nil breaker calls storage directly.
func NewService(storage ObjectStorage, meetings MeetingSource, bucket string, urlExpiry time.Duration, breaker *resilience.CircuitBreaker) *Service {
	if urlExpiry <= 0 {
		urlExpiry = time.Hour
	}
	return &Service{
		storage:   storage,
		meetings:  meetings,
		bucket:    bucket,
		urlExpiry: urlExpiry,
		breaker:   breaker,
	}
}

// NewMinioClient connects to MinIO and makes sure the bucket exists
func NewMinioClient(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return client, nil
}

// ObjectPrefix is where the recordings of a meeting live in the bucket
func ObjectPrefix(meetingID string) string {
	return meetingID + "/"
}

// meetingPageSize is how many past meetings are read per page
const meetingPageSize = 100

// ListRecordings returns the recordings of one meeting, or of every meeting
// the user created when meetingID is empty. Newest first.
func (s *Service) ListRecordings(ctx context.Context, userID uuid.UUID, meetingID string) ([]*domain.Recording, error) {
	var meetingIDs []string

	if meetingID != "" {
		m, err := s.meetings.GetMeeting(ctx, meetingID)
		if err != nil {
			return nil, err
		}
		if m.CreatedBy != userID {
			return nil, apperrors.MeetingNotFoundError()
		}
		meetingIDs = append(meetingIDs, m.MeetingID)
	} else {
		for offset := 0; ; offset += meetingPageSize {
			meetings, err := s.meetings.ListMeetings(ctx, userID, video.ListPrevious, meetingPageSize, offset)
			if err != nil {
				return nil, apperrors.DatabaseError(err)
			}
			for _, m := range meetings {
				meetingIDs = append(meetingIDs, m.MeetingID)
			}
			if len(meetings) < meetingPageSize {
				break
			}
		}
	}

	recordings := make([]*domain.Recording, 0)
	for _, id := range meetingIDs {
		var found []*domain.Recording
		err := s.guard(ctx, "list_recordings", func(ctx context.Context) error {
			var err error
			found, err = s.listMeeting(ctx, id)
			return err
		})
		if err != nil {
			return nil, apperrors.StorageError(err)
		}
		recordings = append(recordings, found...)
	}

	sort.SliceStable(recordings, func(i, j int) bool {
		return recordings[i].RecordedAt.After(recordings[j].RecordedAt)
	})
	return recordings, nil
}

func (s *Service) guard(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	return s.breaker.Execute(ctx, operation, fn)
}

func (s *Service) listMeeting(ctx context.Context, meetingID string) ([]*domain.Recording, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var recordings []*domain.Recording
	objects := s.storage.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    ObjectPrefix(meetingID),
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list recordings: %w", obj.Err)
		}

		filename := sanitize.Filename(path.Base(obj.Key))
		params := url.Values{}
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))

		presigned, err := s.storage.PresignedGetObject(ctx, s.bucket, obj.Key, s.urlExpiry, params)
		if err != nil {
			return nil, fmt.Errorf("failed to generate download URL: %w", err)
		}

		recordings = append(recordings, &domain.Recording{
			MeetingID:   meetingID,
			ObjectName:  obj.Key,
			Filename:    filename,
			Size:        obj.Size,
			ContentType: obj.ContentType,
			RecordedAt:  obj.LastModified,
			URL:         presigned.String(),
		})
	}
	return recordings, nil
}
