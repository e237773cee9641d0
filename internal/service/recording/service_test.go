package recording

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meetdesk-backend/internal/domain"
	"meetdesk-backend/internal/service/video"
	apperrors "meetdesk-backend/pkg/errors"
	"meetdesk-backend/pkg/resilience"
)

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	objects := args.Get(0).([]minio.ObjectInfo)

	ch := make(chan minio.ObjectInfo, len(objects))
	for _, obj := range objects {
		ch <- obj
	}
	close(ch)
	return ch
}

func (m *MockObjectStorage) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expiry, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

type MockMeetingSource struct {
	mock.Mock
}

func (m *MockMeetingSource) GetMeeting(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	args := m.Called(ctx, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Meeting), args.Error(1)
}

func (m *MockMeetingSource) ListMeetings(ctx context.Context, userID uuid.UUID, filter video.ListFilter, limit, offset int) ([]*domain.Meeting, error) {
	args := m.Called(ctx, userID, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Meeting), args.Error(1)
}

func prefixed(prefix string) interface{} {
	return mock.MatchedBy(func(opts minio.ListObjectsOptions) bool {
		return opts.Prefix == prefix && opts.Recursive
	})
}

func TestListRecordings_AllMeetingsNewestFirst(t *testing.T) {
	storage := new(MockObjectStorage)
	meetings := new(MockMeetingSource)
	service := NewService(storage, meetings, "recordings", 0, nil)
	userID := uuid.New()

	older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	meetings.On("ListMeetings", mock.Anything, userID, video.ListPrevious, 100, 0).
		Return([]*domain.Meeting{{MeetingID: "a"}, {MeetingID: "b"}}, nil)
	storage.On("ListObjects", mock.Anything, "recordings", prefixed("a/")).
		Return([]minio.ObjectInfo{{Key: "a/standup.mp4", Size: 42, LastModified: older}})
	storage.On("ListObjects", mock.Anything, "recordings", prefixed("b/")).
		Return([]minio.ObjectInfo{{Key: "b/retro.mp4", Size: 7, LastModified: newer}})

	signed, _ := url.Parse("https://minio.local/recordings/signed")
	storage.On("PresignedGetObject", mock.Anything, "recordings", mock.Anything, time.Hour, mock.Anything).
		Return(signed, nil)

	recordings, err := service.ListRecordings(context.Background(), userID, "")

	require.NoError(t, err)
	require.Len(t, recordings, 2)
	assert.Equal(t, "retro.mp4", recordings[0].Filename)
	assert.Equal(t, "b", recordings[0].MeetingID)
	assert.Equal(t, "standup.mp4", recordings[1].Filename)
	assert.Equal(t, int64(42), recordings[1].Size)
	assert.Equal(t, signed.String(), recordings[1].URL)
	storage.AssertExpectations(t)
	meetings.AssertExpectations(t)
}

func TestListRecordings_PagesThroughAllMeetings(t *testing.T) {
	storage := new(MockObjectStorage)
	meetings := new(MockMeetingSource)
	service := NewService(storage, meetings, "recordings", 0, nil)
	userID := uuid.New()

	firstPage := make([]*domain.Meeting, 0, meetingPageSize)
	for i := 0; i < meetingPageSize; i++ {
		firstPage = append(firstPage, &domain.Meeting{MeetingID: uuid.NewString()})
	}
	meetings.On("ListMeetings", mock.Anything, userID, video.ListPrevious, meetingPageSize, 0).
		Return(firstPage, nil).Once()
	meetings.On("ListMeetings", mock.Anything, userID, video.ListPrevious, meetingPageSize, meetingPageSize).
		Return([]*domain.Meeting{{MeetingID: "oldest"}}, nil).Once()

	storage.On("ListObjects", mock.Anything, "recordings", prefixed("oldest/")).
		Return([]minio.ObjectInfo{{Key: "oldest/kickoff.mp4", LastModified: time.Now()}})
	storage.On("ListObjects", mock.Anything, "recordings", mock.Anything).
		Return([]minio.ObjectInfo{})

	signed, _ := url.Parse("https://minio.local/recordings/signed")
	storage.On("PresignedGetObject", mock.Anything, "recordings", "oldest/kickoff.mp4", time.Hour, mock.Anything).
		Return(signed, nil)

	recordings, err := service.ListRecordings(context.Background(), userID, "")

	require.NoError(t, err)
	require.Len(t, recordings, 1)
	assert.Equal(t, "oldest", recordings[0].MeetingID)
	storage.AssertNumberOfCalls(t, "ListObjects", meetingPageSize+1)
	meetings.AssertExpectations(t)
}

func TestListRecordings_SingleMeetingOwnership(t *testing.T) {
	storage := new(MockObjectStorage)
	meetings := new(MockMeetingSource)
	service := NewService(storage, meetings, "recordings", time.Minute, nil)
	owner := uuid.New()

	meetings.On("GetMeeting", mock.Anything, "abc").Return(&domain.Meeting{MeetingID: "abc", CreatedBy: owner}, nil)
	storage.On("ListObjects", mock.Anything, "recordings", prefixed("abc/")).Return([]minio.ObjectInfo{})

	recordings, err := service.ListRecordings(context.Background(), owner, "abc")
	require.NoError(t, err)
	assert.Empty(t, recordings)

	_, err = service.ListRecordings(context.Background(), uuid.New(), "abc")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeMeetingNotFound, appErr.Code)
}

func TestListRecordings_StorageFailure(t *testing.T) {
	storage := new(MockObjectStorage)
	meetings := new(MockMeetingSource)
	service := NewService(storage, meetings, "recordings", time.Minute, nil)
	userID := uuid.New()

	meetings.On("ListMeetings", mock.Anything, userID, video.ListPrevious, 100, 0).
		Return([]*domain.Meeting{{MeetingID: "a"}}, nil)
	storage.On("ListObjects", mock.Anything, "recordings", prefixed("a/")).
		Return([]minio.ObjectInfo{{Err: errors.New("connection refused")}})

	_, err := service.ListRecordings(context.Background(), userID, "")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeStorage, appErr.Code)
}

func TestListRecordings_BreakerStopsCallingStorage(t *testing.T) {
	storage := new(MockObjectStorage)
	meetings := new(MockMeetingSource)
	breaker := resilience.NewCircuitBreaker("minio", resilience.Config{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
		MaxAttempts:  2,
		Backoff:      time.Millisecond,
	}, nil)
	service := NewService(storage, meetings, "recordings", time.Minute, breaker)
	userID := uuid.New()

	meetings.On("ListMeetings", mock.Anything, userID, video.ListPrevious, 100, 0).
		Return([]*domain.Meeting{{MeetingID: "a"}}, nil)
	storage.On("ListObjects", mock.Anything, "recordings", prefixed("a/")).
		Return([]minio.ObjectInfo{{Err: errors.New("connection refused")}})

	_, err := service.ListRecordings(context.Background(), userID, "")
	require.Error(t, err)
	assert.Equal(t, resilience.CircuitBreakerOpen, breaker.State())

	_, err = service.ListRecordings(context.Background(), userID, "")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	storage.AssertNumberOfCalls(t, "ListObjects", 2)
}

func TestListRecordings_FilenameIsSanitized(t *testing.T) {
	storage := new(MockObjectStorage)
	meetings := new(MockMeetingSource)
	service := NewService(storage, meetings, "recordings", time.Minute, nil)
	owner := uuid.New()
	link, _ := url.Parse("https://minio.local/recordings/abc/x")

	meetings.On("GetMeeting", mock.Anything, "abc").Return(&domain.Meeting{MeetingID: "abc", CreatedBy: owner}, nil)
	storage.On("ListObjects", mock.Anything, "recordings", prefixed("abc/")).
		Return([]minio.ObjectInfo{{Key: "abc/weekly\"sync\".mp4"}})
	storage.On("PresignedGetObject", mock.Anything, "recordings", "abc/weekly\"sync\".mp4", time.Minute, mock.Anything).
		Return(link, nil)

	recordings, err := service.ListRecordings(context.Background(), owner, "abc")

	require.NoError(t, err)
	require.Len(t, recordings, 1)
	assert.Equal(t, "weekly_sync_.mp4", recordings[0].Filename)
	assert.Equal(t, "abc/weekly\"sync\".mp4", recordings[0].ObjectName)
}
