package meeting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meetdesk-backend/internal/domain"
)

// Mocks
type MockVideoClient struct {
	mock.Mock
}

func (m *MockVideoClient) Call(category, id string) CallHandle {
	args := m.Called(category, id)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(CallHandle)
}

type MockCallHandle struct {
	mock.Mock
	id string
}

func (m *MockCallHandle) ID() string {
	return m.id
}

func (m *MockCallHandle) GetOrCreate(ctx context.Context, data CallData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

type staticIdentity struct {
	user *domain.User
}

func (s staticIdentity) CurrentUser(context.Context) (*domain.User, bool) {
	return s.user, s.user != nil
}

type recordingIO struct {
	mu       sync.Mutex
	paths    []string
	notices  []string
	copied   []string
	copyFail error
}

func (r *recordingIO) Push(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recordingIO) Show(_ context.Context, notice domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice.Title)
}

func (r *recordingIO) WriteText(_ context.Context, text string) error {
	if r.copyFail != nil {
		return r.copyFail
	}
	r.copied = append(r.copied, text)
	return nil
}

func (r *recordingIO) collaborators() Collaborators {
	return Collaborators{Router: r, Notifier: r, Clipboard: r}
}

const testBaseURL = "https://meet.example.com"

var fixedNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestDesk(t *testing.T, video VideoClient, ids ...string) (*Desk, *recordingIO) {
	t.Helper()
	io := &recordingIO{}
	user := &domain.User{UserID: uuid.New(), Username: "alice"}
	next := 0
	cfg := Config{
		Identity: staticIdentity{user: user},
		Video:    video,
		BaseURL:  testBaseURL,
		Now:      func() time.Time { return fixedNow },
		NewID: func() string {
			require.Less(t, next, len(ids), "unexpected id generation")
			id := ids[next]
			next++
			return id
		},
	}
	return NewDesk(domain.NewDeskSession(user.UserID, fixedNow), cfg, io.collaborators()), io
}

func TestCreateMeeting_InstantNavigates(t *testing.T) {
	video := new(MockVideoClient)
	call := &MockCallHandle{id: "call-1"}
	desk, io := newTestDesk(t, video, "call-1")

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	desk.SetScheduledAt(at)
	desk.SetMode(domain.MeetingModeInstant)

	video.On("Call", domain.DefaultCallCategory, "call-1").Return(call)
	call.On("GetOrCreate", mock.Anything, CallData{
		StartsAt:  at,
		CreatedBy: desk.Session().UserID,
		Custom:    map[string]string{"description": "Instant Meeting"},
	}).Return(nil).Once()

	err := desk.CreateMeeting(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"/meeting/call-1"}, io.paths)
	assert.Equal(t, []string{NoticeMeetingCreated}, io.notices)
	assert.Equal(t, "call-1", desk.CreatedCallID())
	assert.Empty(t, desk.Session().PendingCallID)
	assert.Equal(t, domain.MeetingModeInstant, desk.Mode())
	video.AssertExpectations(t)
	call.AssertExpectations(t)
}

func TestCreateMeeting_ScheduledDoesNotNavigate(t *testing.T) {
	video := new(MockVideoClient)
	call := &MockCallHandle{id: "call-2"}
	desk, io := newTestDesk(t, video, "call-2")

	at := time.Date(2024, 3, 5, 14, 30, 0, 0, time.FixedZone("CET", 3600))
	desk.SetScheduledAt(at)
	desk.SetDescription("Weekly sync")

	video.On("Call", domain.DefaultCallCategory, "call-2").Return(call)
	call.On("GetOrCreate", mock.Anything, mock.MatchedBy(func(data CallData) bool {
		return data.StartsAt.Equal(at) && data.StartsAt.Location() == time.UTC &&
			data.Custom["description"] == "Weekly sync"
	})).Return(nil).Once()

	err := desk.CreateMeeting(context.Background())

	require.NoError(t, err)
	assert.Empty(t, io.paths)
	assert.Equal(t, []string{NoticeMeetingCreated}, io.notices)

	link, err := desk.MeetingLink()
	require.NoError(t, err)
	assert.Equal(t, testBaseURL+"/meeting/call-2", link)
	call.AssertExpectations(t)
}

func TestCreateMeeting_WhitespaceDescriptionIsScheduled(t *testing.T) {
	video := new(MockVideoClient)
	call := &MockCallHandle{id: "call-9"}
	desk, io := newTestDesk(t, video, "call-9")
	desk.SetDescription("   ")

	video.On("Call", domain.DefaultCallCategory, "call-9").Return(call)
	call.On("GetOrCreate", mock.Anything, mock.MatchedBy(func(data CallData) bool {
		return data.Custom["description"] == "   "
	})).Return(nil).Once()

	err := desk.CreateMeeting(context.Background())

	require.NoError(t, err)
	assert.Empty(t, io.paths)
	assert.Equal(t, []string{NoticeMeetingCreated}, io.notices)
	assert.Equal(t, "call-9", desk.CreatedCallID())
	call.AssertExpectations(t)
}

func TestCreateMeeting_MissingSchedule(t *testing.T) {
	video := new(MockVideoClient)
	desk, io := newTestDesk(t, video)
	desk.SetMode(domain.MeetingModeScheduling)
	desk.ClearScheduledAt()

	err := desk.CreateMeeting(context.Background())

	assert.ErrorIs(t, err, ErrMissingSchedule)
	assert.Equal(t, []string{NoticeSelectDateTime}, io.notices)
	assert.Empty(t, io.paths)
	assert.Equal(t, domain.MeetingModeScheduling, desk.Mode())
	video.AssertNotCalled(t, "Call", mock.Anything, mock.Anything)
}

func TestCreateMeeting_BackendFailure(t *testing.T) {
	video := new(MockVideoClient)
	call := &MockCallHandle{id: "call-3"}
	desk, io := newTestDesk(t, video, "call-3")
	desk.SetMode(domain.MeetingModeInstant)

	video.On("Call", domain.DefaultCallCategory, "call-3").Return(call)
	call.On("GetOrCreate", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()

	err := desk.CreateMeeting(context.Background())

	assert.Error(t, err)
	assert.Equal(t, []string{NoticeCreateFailed}, io.notices)
	assert.Empty(t, io.paths)
	assert.Empty(t, desk.CreatedCallID())
	assert.Equal(t, domain.MeetingModeInstant, desk.Mode())
}

func TestCreateMeeting_RetryReusesPendingID(t *testing.T) {
	video := new(MockVideoClient)
	call := &MockCallHandle{id: "call-4"}
	// Only one id may be generated across both attempts.
	desk, io := newTestDesk(t, video, "call-4")

	video.On("Call", domain.DefaultCallCategory, "call-4").Return(call)
	call.On("GetOrCreate", mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()
	call.On("GetOrCreate", mock.Anything, mock.Anything).Return(nil).Once()

	assert.Error(t, desk.CreateMeeting(context.Background()))
	assert.Equal(t, "call-4", desk.Session().PendingCallID)

	require.NoError(t, desk.CreateMeeting(context.Background()))
	assert.Equal(t, "call-4", desk.CreatedCallID())
	assert.Equal(t, []string{NoticeCreateFailed, NoticeMeetingCreated}, io.notices)
	video.AssertNumberOfCalls(t, "Call", 2)
}

func TestCreateMeeting_EditAfterFailureGetsNewID(t *testing.T) {
	video := new(MockVideoClient)
	first := &MockCallHandle{id: "call-5"}
	second := &MockCallHandle{id: "call-6"}
	desk, _ := newTestDesk(t, video, "call-5", "call-6")

	video.On("Call", domain.DefaultCallCategory, "call-5").Return(first)
	video.On("Call", domain.DefaultCallCategory, "call-6").Return(second)
	first.On("GetOrCreate", mock.Anything, mock.Anything).Return(errors.New("timeout"))
	second.On("GetOrCreate", mock.Anything, mock.Anything).Return(nil)

	assert.Error(t, desk.CreateMeeting(context.Background()))
	desk.SetDescription("Planning")
	require.NoError(t, desk.CreateMeeting(context.Background()))

	assert.Equal(t, "call-6", desk.CreatedCallID())
}

func TestCreateMeeting_NilHandle(t *testing.T) {
	video := new(MockVideoClient)
	desk, io := newTestDesk(t, video, "call-7")

	video.On("Call", domain.DefaultCallCategory, "call-7").Return(nil)

	err := desk.CreateMeeting(context.Background())

	assert.ErrorIs(t, err, ErrCallInitialization)
	assert.Equal(t, []string{NoticeCreateFailed}, io.notices)
}

func TestCreateMeeting_NotReady(t *testing.T) {
	io := &recordingIO{}
	desk := NewDesk(nil, Config{Identity: staticIdentity{}, Video: new(MockVideoClient)}, io.collaborators())

	assert.ErrorIs(t, desk.CreateMeeting(context.Background()), ErrNotReady)
	assert.Empty(t, io.notices)

	noClient := NewDesk(nil, Config{Identity: staticIdentity{user: &domain.User{UserID: uuid.New()}}}, io.collaborators())
	assert.ErrorIs(t, noClient.CreateMeeting(context.Background()), ErrNotReady)
}

func TestCreateMeeting_RejectsConcurrentCreation(t *testing.T) {
	video := new(MockVideoClient)
	call := &MockCallHandle{id: "call-8"}
	desk, _ := newTestDesk(t, video, "call-8")

	started := make(chan struct{})
	unblock := make(chan struct{})
	video.On("Call", domain.DefaultCallCategory, "call-8").Return(call)
	call.On("GetOrCreate", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-unblock
	}).Return(nil).Once()

	done := make(chan error, 1)
	go func() { done <- desk.CreateMeeting(context.Background()) }()
	<-started

	// A second desk for the same user sharing the guard, as a second request would.
	second := NewDesk(domain.NewDeskSession(desk.Session().UserID, fixedNow), desk.cfg, Collaborators{})
	assert.ErrorIs(t, second.CreateMeeting(context.Background()), ErrCreationInProgress)

	close(unblock)
	require.NoError(t, <-done)
	call.AssertExpectations(t)
}

func TestCreateMeeting_ClearsPreviousHandle(t *testing.T) {
	video := new(MockVideoClient)
	ok := &MockCallHandle{id: "call-9"}
	bad := &MockCallHandle{id: "call-10"}
	desk, _ := newTestDesk(t, video, "call-9", "call-10")

	video.On("Call", domain.DefaultCallCategory, "call-9").Return(ok)
	video.On("Call", domain.DefaultCallCategory, "call-10").Return(bad)
	ok.On("GetOrCreate", mock.Anything, mock.Anything).Return(nil)
	bad.On("GetOrCreate", mock.Anything, mock.Anything).Return(errors.New("boom"))

	require.NoError(t, desk.CreateMeeting(context.Background()))
	assert.Equal(t, "call-9", desk.CreatedCallID())

	assert.Error(t, desk.CreateMeeting(context.Background()))
	assert.Empty(t, desk.CreatedCallID())
}

func TestJoinMeeting_PassesLinkVerbatim(t *testing.T) {
	desk, io := newTestDesk(t, new(MockVideoClient))
	desk.SetMode(domain.MeetingModeJoining)
	desk.SetJoinLink("https://example.com/meeting/abc")

	require.NoError(t, desk.JoinMeeting(context.Background()))

	assert.Equal(t, []string{"https://example.com/meeting/abc"}, io.paths)
}

func TestViewRecordings(t *testing.T) {
	desk, io := newTestDesk(t, new(MockVideoClient))

	require.NoError(t, desk.ViewRecordings(context.Background()))

	assert.Equal(t, []string{"/recordings"}, io.paths)
}

func TestMeetingLink_WithoutMeeting(t *testing.T) {
	desk, io := newTestDesk(t, new(MockVideoClient))

	link, err := desk.MeetingLink()
	assert.ErrorIs(t, err, ErrNoMeeting)
	assert.Empty(t, link)

	assert.ErrorIs(t, desk.CopyLink(context.Background()), ErrNoMeeting)
	assert.Empty(t, io.copied)
	assert.Empty(t, io.notices)
}

func TestCopyLink(t *testing.T) {
	desk, io := newTestDesk(t, new(MockVideoClient))
	desk.Session().CreatedCallID = "abc"

	require.NoError(t, desk.CopyLink(context.Background()))

	assert.Equal(t, []string{testBaseURL + "/meeting/abc"}, io.copied)
	assert.Equal(t, []string{NoticeLinkCopied}, io.notices)
}

func TestCopyLink_ClipboardFailure(t *testing.T) {
	desk, io := newTestDesk(t, new(MockVideoClient))
	desk.Session().CreatedCallID = "abc"
	io.copyFail = errors.New("denied")

	assert.Error(t, desk.CopyLink(context.Background()))
	assert.Empty(t, io.notices)
}
