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

func TestSetMode(t *testing.T) {
	desk, _ := newTestDesk(t, new(MockVideoClient))
	assert.Equal(t, domain.MeetingModeNone, desk.Mode())

	require.NoError(t, desk.SetMode(domain.MeetingModeJoining))
	require.NoError(t, desk.SetMode(domain.MeetingModeJoining))
	assert.Equal(t, domain.MeetingModeJoining, desk.Mode())

	assert.ErrorIs(t, desk.SetMode("recording"), ErrInvalidMode)
	assert.Equal(t, domain.MeetingModeJoining, desk.Mode())
}

func TestClose_AlwaysResetsMode(t *testing.T) {
	modes := []domain.MeetingMode{
		domain.MeetingModeNone,
		domain.MeetingModeScheduling,
		domain.MeetingModeJoining,
		domain.MeetingModeInstant,
	}
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			desk, _ := newTestDesk(t, new(MockVideoClient))
			require.NoError(t, desk.SetMode(mode))

			desk.Close()

			assert.Equal(t, domain.MeetingModeNone, desk.Mode())
		})
	}
}

func TestClose_CreatedPanelForgetsMeeting(t *testing.T) {
	desk, _ := newTestDesk(t, new(MockVideoClient))
	desk.Session().CreatedCallID = "abc"

	require.NoError(t, desk.SetMode(domain.MeetingModeInstant))
	desk.Close()
	assert.Equal(t, "abc", desk.CreatedCallID())

	require.NoError(t, desk.SetMode(domain.MeetingModeScheduling))
	desk.Close()
	assert.Empty(t, desk.CreatedCallID())
}

func TestReset(t *testing.T) {
	desk, _ := newTestDesk(t, new(MockVideoClient))
	desk.Session().CreatedCallID = "abc"

	desk.Reset()

	assert.Empty(t, desk.CreatedCallID())
}

func TestFormState(t *testing.T) {
	desk, _ := newTestDesk(t, new(MockVideoClient))
	require.NotNil(t, desk.Session().Input.ScheduledAt)
	assert.Equal(t, fixedNow, *desk.Session().Input.ScheduledAt)

	at := fixedNow.Add(2 * time.Hour)
	desk.SetScheduledAt(at)
	desk.SetDescription("Retro")
	desk.SetJoinLink("/meeting/xyz")

	input := desk.Session().Input
	assert.Equal(t, at, *input.ScheduledAt)
	assert.Equal(t, "Retro", input.Description)
	assert.Equal(t, "/meeting/xyz", input.JoinLink)

	desk.ClearScheduledAt()
	assert.Nil(t, desk.Session().Input.ScheduledAt)
}

func TestView(t *testing.T) {
	desk, _ := newTestDesk(t, new(MockVideoClient))
	ctx := context.Background()

	view := desk.View(ctx)
	assert.False(t, view.Loading)
	assert.Len(t, view.Cards, 4)
	assert.Nil(t, view.Panel)

	require.NoError(t, desk.SetMode(domain.MeetingModeScheduling))
	view = desk.View(ctx)
	require.NotNil(t, view.Panel)
	assert.Equal(t, domain.PanelScheduleForm, view.Panel.Kind)
	assert.False(t, view.Panel.CanCopy)
	assert.Empty(t, view.Panel.Link)

	desk.Session().CreatedCallID = "abc"
	view = desk.View(ctx)
	assert.Equal(t, domain.PanelScheduleCreated, view.Panel.Kind)
	assert.Equal(t, "Copy Meeting Link", view.Panel.ButtonText)
	assert.Equal(t, testBaseURL+"/meeting/abc", view.Panel.Link)
	assert.True(t, view.Panel.CanCopy)

	require.NoError(t, desk.SetMode(domain.MeetingModeInstant))
	assert.Equal(t, domain.PanelInstant, desk.View(ctx).Panel.Kind)

	require.NoError(t, desk.SetMode(domain.MeetingModeJoining))
	assert.Equal(t, domain.PanelJoin, desk.View(ctx).Panel.Kind)
}

func TestView_LoadingWithoutUser(t *testing.T) {
	desk := NewDesk(nil, Config{Identity: staticIdentity{}, Video: new(MockVideoClient)}, Collaborators{})

	view := desk.View(context.Background())

	assert.True(t, view.Loading)
	assert.Empty(t, view.Cards)
}

// memorySessionStore keeps desks in memory; onUpdate runs inside every Update
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.DeskSession
	ttls     []time.Duration
	getErr   error
	onUpdate func()
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[uuid.UUID]domain.DeskSession)}
}

func (s *memorySessionStore) Get(_ context.Context, userID uuid.UUID) (*domain.DeskSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	session, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *memorySessionStore) Update(_ context.Context, userID uuid.UUID, ttl time.Duration, apply func(*domain.DeskSession) *domain.DeskSession) error {
	if s.onUpdate != nil {
		s.onUpdate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var stored *domain.DeskSession
	if session, ok := s.sessions[userID]; ok {
		stored = &session
	}
	s.sessions[userID] = *apply(stored)
	s.ttls = append(s.ttls, ttl)
	return nil
}

func (s *memorySessionStore) stored(t *testing.T, userID uuid.UUID) domain.DeskSession {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	require.True(t, ok, "no stored desk")
	return session
}

func TestService_OpenStartsFreshDesk(t *testing.T) {
	store := newMemorySessionStore()
	user := &domain.User{UserID: uuid.New()}
	svc := NewService(store, Config{
		Identity: staticIdentity{user: user},
		Video:    new(MockVideoClient),
		Now:      func() time.Time { return fixedNow },
	}, 0)

	desk, err := svc.Open(context.Background(), Collaborators{})

	require.NoError(t, err)
	assert.Equal(t, user.UserID, desk.Session().UserID)
	assert.Equal(t, domain.MeetingModeNone, desk.Mode())
	assert.Equal(t, fixedNow, *desk.Session().Input.ScheduledAt)

	require.NoError(t, svc.Save(context.Background(), desk))
	assert.Equal(t, []time.Duration{DefaultSessionTTL}, store.ttls)
}

func TestService_OpenAndSave(t *testing.T) {
	store := newMemorySessionStore()
	user := &domain.User{UserID: uuid.New()}
	svc := NewService(store, Config{
		Identity: staticIdentity{user: user},
		Video:    new(MockVideoClient),
	}, time.Hour)

	stored := domain.NewDeskSession(user.UserID, fixedNow)
	stored.Mode = domain.MeetingModeJoining
	store.sessions[user.UserID] = *stored

	desk, err := svc.Open(context.Background(), Collaborators{})
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingModeJoining, desk.Mode())

	desk.SetJoinLink("/meeting/xyz")
	require.NoError(t, svc.Save(context.Background(), desk))

	saved := store.stored(t, user.UserID)
	assert.Equal(t, domain.MeetingModeJoining, saved.Mode)
	assert.Equal(t, "/meeting/xyz", saved.Input.JoinLink)
	assert.Equal(t, []time.Duration{time.Hour}, store.ttls)
}

func TestService_SaveKeepsConcurrentChanges(t *testing.T) {
	store := newMemorySessionStore()
	user := &domain.User{UserID: uuid.New()}
	svc := NewService(store, Config{
		Identity: staticIdentity{user: user},
		Video:    new(MockVideoClient),
		Now:      func() time.Time { return fixedNow },
	}, 0)
	ctx := context.Background()

	first, err := svc.Open(ctx, Collaborators{})
	require.NoError(t, err)
	require.NoError(t, first.SetMode(domain.MeetingModeScheduling))
	require.NoError(t, svc.Save(ctx, first))

	slow, err := svc.Open(ctx, Collaborators{})
	require.NoError(t, err)
	fast, err := svc.Open(ctx, Collaborators{})
	require.NoError(t, err)

	fast.Close()
	fast.SetJoinLink("/meeting/other")
	require.NoError(t, svc.Save(ctx, fast))

	slow.SetDescription("Retro")
	require.NoError(t, svc.Save(ctx, slow))

	saved := store.stored(t, user.UserID)
	assert.Equal(t, domain.MeetingModeNone, saved.Mode)
	assert.Equal(t, "/meeting/other", saved.Input.JoinLink)
	assert.Equal(t, "Retro", saved.Input.Description)
	assert.Equal(t, domain.MeetingModeNone, slow.Mode(), "desk adopts the stored state")
}

func TestService_CreationCommitsUnderGuard(t *testing.T) {
	store := newMemorySessionStore()
	user := &domain.User{UserID: uuid.New()}
	video := new(MockVideoClient)
	call := &MockCallHandle{id: "call-1"}
	guard := NewLocalGuard()
	svc := NewService(store, Config{
		Identity: staticIdentity{user: user},
		Video:    video,
		Guard:    guard,
		NewID:    func() string { return "call-1" },
	}, 0)
	ctx := context.Background()

	video.On("Call", domain.DefaultCallCategory, "call-1").Return(call)
	call.On("GetOrCreate", mock.Anything, mock.Anything).Return(nil)

	var heldDuringCommit []bool
	store.onUpdate = func() {
		release, err := guard.Acquire(ctx, creationKey(user.UserID))
		if err == nil {
			release()
		}
		heldDuringCommit = append(heldDuringCommit, errors.Is(err, ErrCreationInProgress))
	}

	desk, err := svc.Open(ctx, Collaborators{})
	require.NoError(t, err)
	require.NoError(t, desk.CreateMeeting(ctx))

	assert.Equal(t, []bool{true}, heldDuringCommit)
	assert.Equal(t, "call-1", store.stored(t, user.UserID).CreatedCallID)
}

func TestService_PendingIDDroppedWhenInputChangedMeanwhile(t *testing.T) {
	store := newMemorySessionStore()
	user := &domain.User{UserID: uuid.New()}
	video := new(MockVideoClient)
	call := &MockCallHandle{id: "call-1"}
	svc := NewService(store, Config{
		Identity: staticIdentity{user: user},
		Video:    video,
		Now:      func() time.Time { return fixedNow },
		NewID:    func() string { return "call-1" },
	}, 0)
	ctx := context.Background()

	video.On("Call", domain.DefaultCallCategory, "call-1").Return(call)
	call.On("GetOrCreate", mock.Anything, mock.Anything).Return(errors.New("late failure"))

	creating, err := svc.Open(ctx, Collaborators{})
	require.NoError(t, err)
	editing, err := svc.Open(ctx, Collaborators{})
	require.NoError(t, err)
	editing.SetDescription("Changed while creating")
	require.NoError(t, svc.Save(ctx, editing))

	assert.Error(t, creating.CreateMeeting(ctx))

	saved := store.stored(t, user.UserID)
	assert.Equal(t, "Changed while creating", saved.Input.Description)
	assert.Empty(t, saved.PendingCallID)
}

func TestService_OpenErrors(t *testing.T) {
	store := newMemorySessionStore()

	anonymous := NewService(store, Config{Identity: staticIdentity{}, Video: new(MockVideoClient)}, 0)
	_, err := anonymous.Open(context.Background(), Collaborators{})
	assert.ErrorIs(t, err, ErrNotReady)

	user := &domain.User{UserID: uuid.New()}
	svc := NewService(store, Config{Identity: staticIdentity{user: user}, Video: new(MockVideoClient)}, 0)
	store.getErr = errors.New("redis down")
	_, err = svc.Open(context.Background(), Collaborators{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotReady)
}

func TestLocalGuard(t *testing.T) {
	guard := NewLocalGuard()
	ctx := context.Background()

	release, err := guard.Acquire(ctx, "k")
	require.NoError(t, err)

	_, err = guard.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrCreationInProgress)

	other, err := guard.Acquire(ctx, "other")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := guard.Acquire(ctx, "k")
	require.NoError(t, err)
	again()
}
