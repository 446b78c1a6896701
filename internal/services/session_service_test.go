package services

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mvocoding/testmateai/internal/events"
	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"github.com/mvocoding/testmateai/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMockTestRepository is a mock implementation of MockTestRepository.
type MockMockTestRepository struct {
	mock.Mock
}

func (m *MockMockTestRepository) Create(ctx context.Context, test *models.MockTest) error {
	args := m.Called(ctx, test)
	return args.Error(0)
}

func (m *MockMockTestRepository) GetByID(ctx context.Context, id uint) (*models.MockTest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MockTest), args.Error(1)
}

func (m *MockMockTestRepository) List(ctx context.Context, limit int) ([]*models.MockTest, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.MockTest), args.Error(1)
}

func (m *MockMockTestRepository) FetchSectionQuestions(ctx context.Context, testID uint, skill models.Skill, limit int) ([]*models.Passage, []*models.Question, error) {
	args := m.Called(ctx, testID, skill, limit)
	return args.Get(0).([]*models.Passage), args.Get(1).([]*models.Question), args.Error(2)
}

func (m *MockMockTestRepository) FetchTestQuestions(ctx context.Context, testID uint) (*models.TestQuestions, error) {
	args := m.Called(ctx, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestQuestions), args.Error(1)
}

// stubRepository satisfies Repository with only the mock test repo wired.
type stubRepository struct {
	mockTests repositories.MockTestRepository
}

func (r *stubRepository) Question() repositories.QuestionRepository     { return nil }
func (r *stubRepository) MockTest() repositories.MockTestRepository     { return r.mockTests }
func (r *stubRepository) Activity() repositories.ActivityRepository     { return nil }
func (r *stubRepository) Vocabulary() repositories.VocabularyRepository { return nil }
func (r *stubRepository) User() repositories.UserRepository             { return nil }

// stubActivityService records AddActivity calls.
type stubActivityService struct {
	mu    sync.Mutex
	calls []AddActivityRequest
}

func (s *stubActivityService) AddActivity(ctx context.Context, userID uint, req AddActivityRequest) (*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	return &models.Activity{UserID: userID, Type: req.Type}, nil
}

func (s *stubActivityService) GetActivities(ctx context.Context, userID uint, filters repositories.ActivityFilters) ([]*models.Activity, int64, error) {
	return nil, 0, nil
}

func (s *stubActivityService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// fakeAudio records playback and cancellation.
type fakeAudio struct {
	mu        sync.Mutex
	plays     int
	cancelled int
}

func (f *fakeAudio) Speak(ctx context.Context, text string) (CancelFunc, error) {
	f.mu.Lock()
	f.plays++
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.cancelled++
		f.mu.Unlock()
	}, nil
}

func (f *fakeAudio) Listen(ctx context.Context) (string, error) {
	return "", nil
}

type sessionFixture struct {
	service    *sessionService
	repo       *MockMockTestRepository
	activities *stubActivityService
	publisher  *events.MockEventPublisher
	audio      *fakeAudio
}

func newSessionFixture(t *testing.T, test *models.MockTest, questions *models.TestQuestions) *sessionFixture {
	t.Helper()

	logger := utils.NewDevelopmentLogger()
	repo := &MockMockTestRepository{}
	if test != nil {
		repo.On("GetByID", mock.Anything, test.ID).Return(test, nil)
		repo.On("FetchTestQuestions", mock.Anything, test.ID).Return(questions, nil)
	}

	activities := &stubActivityService{}
	publisher := events.NewMockEventPublisher(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	audio := &fakeAudio{}
	submitter := NewSubmissionService(&stubGenerator{}, logger, 0)

	svc := NewSessionService(&stubRepository{mockTests: repo}, submitter, activities, publisher, audio, logger).(*sessionService)

	return &sessionFixture{
		service:    svc,
		repo:       repo,
		activities: activities,
		publisher:  publisher,
		audio:      audio,
	}
}

func standardTest() *models.MockTest {
	return &models.MockTest{
		ID:                7,
		Title:             "Full Mock Test",
		ListeningDuration: 1800,
		ReadingDuration:   3600,
		WritingDuration:   3600,
		SpeakingDuration:  900,
	}
}

func startedSession(t *testing.T, f *sessionFixture) string {
	t.Helper()
	view, err := f.service.Start(context.Background(), 1, 7)
	require.NoError(t, err)
	return view.SessionID
}

func waitForState(t *testing.T, f *sessionFixture, sessionID string, want models.SessionState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		view, err := f.service.Get(context.Background(), sessionID)
		require.NoError(t, err)
		if view.State == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s never reached state %s", sessionID, want)
}

func TestSessionStart(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())

	view, err := f.service.Start(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.NotEmpty(t, view.SessionID)
	assert.Equal(t, models.StateIntroduction, view.State)
	assert.Equal(t, models.SkillListening, view.Section)
	assert.Equal(t, 1800, view.RemainingSeconds)

	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTestStarted, published[0].Type)
}

func TestSessionStart_SecondActiveSessionRejected(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())

	_, err := f.service.Start(context.Background(), 1, 7)
	require.NoError(t, err)

	_, err = f.service.Start(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestSessionStart_ConcurrentStartsCreateOneSession(t *testing.T) {
	f := newSessionFixture(t, nil, nil)
	test := standardTest()

	// Hold both calls inside the repo fetch so each passes the pre-fetch
	// existence check before either inserts its session.
	arrived := make(chan struct{}, 2)
	release := make(chan struct{})
	f.repo.On("GetByID", mock.Anything, test.ID).Run(func(mock.Arguments) {
		arrived <- struct{}{}
		<-release
	}).Return(test, nil)
	f.repo.On("FetchTestQuestions", mock.Anything, test.ID).Return(fullTestQuestions(), nil)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.service.Start(context.Background(), 1, 7)
			results <- err
		}()
	}
	<-arrived
	<-arrived
	close(release)

	var started, rejected int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			started++
		case assert.ErrorIs(t, err, ErrSessionExists):
			rejected++
		}
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, rejected)

	f.service.mu.RLock()
	assert.Len(t, f.service.sessions, 1)
	f.service.mu.RUnlock()
}

func TestSessionStart_ReplacesFinishedSession(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())
	firstID := startedSession(t, f)

	_, err := f.service.Submit(context.Background(), firstID)
	require.NoError(t, err)
	waitForState(t, f, firstID, models.StateResultsShown)

	view, err := f.service.Start(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, view.SessionID)

	// The finished session was evicted when its replacement was installed.
	_, err = f.service.Get(context.Background(), firstID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	f.service.mu.RLock()
	assert.Len(t, f.service.sessions, 1)
	f.service.mu.RUnlock()
}

func TestSessionStart_EmptyFirstSectionRejected(t *testing.T) {
	f := newSessionFixture(t, standardTest(), &models.TestQuestions{
		Reading: fullTestQuestions().Reading,
	})

	_, err := f.service.Start(context.Background(), 1, 7)

	var validationError *ValidationError
	assert.ErrorAs(t, err, &validationError)
}

func TestSessionStart_UnknownTest(t *testing.T) {
	f := newSessionFixture(t, nil, nil)
	f.repo.On("GetByID", mock.Anything, uint(99)).Return(nil, assert.AnError)

	_, err := f.service.Start(context.Background(), 1, 99)
	assert.Error(t, err)
}

func TestStartSection_TransitionsAndArmsCountdown(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())
	sessionID := startedSession(t, f)

	view, err := f.service.StartSection(context.Background(), sessionID)
	require.NoError(t, err)

	assert.Equal(t, models.StateInSection, view.State)
	assert.Equal(t, 0, view.QuestionIndex)
	assert.Equal(t, models.SkillListening, view.Section)

	// Starting again from in_section is rejected.
	_, err = f.service.StartSection(context.Background(), sessionID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSaveAnswer_RequiresInSection(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())
	sessionID := startedSession(t, f)

	err := f.service.SaveAnswer(context.Background(), sessionID, models.PassageAnswerKey(1, 0), 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.service.StartSection(context.Background(), sessionID)
	require.NoError(t, err)

	err = f.service.SaveAnswer(context.Background(), sessionID, models.PassageAnswerKey(1, 0), 0)
	assert.NoError(t, err)
}

func TestNext_ClearsAnswersOfItemLeft(t *testing.T) {
	questions := fullTestQuestions()
	// Two listening passages so Next stays inside the section.
	questions.Listening = append(questions.Listening, models.Passage{
		ID: 5, Skill: models.SkillListening, Text: "second", Questions: []models.Question{
			mcQuestion(50, 0, "a", "b"),
		},
	})
	f := newSessionFixture(t, standardTest(), questions)
	sessionID := startedSession(t, f)

	_, err := f.service.StartSection(context.Background(), sessionID)
	require.NoError(t, err)

	require.NoError(t, f.service.SaveAnswer(context.Background(), sessionID, models.PassageAnswerKey(1, 0), 0))
	require.NoError(t, f.service.SaveAnswer(context.Background(), sessionID, models.PassageAnswerKey(1, 1), 1))

	view, err := f.service.Next(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.QuestionIndex)

	// The answers of passage 1 were discarded on leave.
	session, err := f.service.lookup(sessionID)
	require.NoError(t, err)
	session.mu.Lock()
	answers := session.answers[models.SkillListening]
	assert.Empty(t, answers)
	session.mu.Unlock()
}

func TestNext_CrossesSectionBoundary(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())
	sessionID := startedSession(t, f)

	_, err := f.service.StartSection(context.Background(), sessionID)
	require.NoError(t, err)

	// Single listening passage: Next moves to the reading introduction.
	view, err := f.service.Next(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StateIntroduction, view.State)
	assert.Equal(t, models.SkillReading, view.Section)
	assert.Equal(t, 0, view.QuestionIndex)
}

func TestPrev_ReturnsToPreviousSectionLastQuestion(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())
	sessionID := startedSession(t, f)

	_, err := f.service.StartSection(context.Background(), sessionID)
	require.NoError(t, err)
	_, err = f.service.Next(context.Background(), sessionID) // reading introduction
	require.NoError(t, err)
	_, err = f.service.StartSection(context.Background(), sessionID)
	require.NoError(t, err)

	view, err := f.service.Prev(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StateInSection, view.State)
	assert.Equal(t, models.SkillListening, view.Section)
	assert.Equal(t, 0, view.QuestionIndex) // last listening item
}

func TestNext_NoOpAtVeryEnd(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())
	sessionID := startedSession(t, f)

	// Walk to the final section's only question.
	for i := 0; i < len(models.SectionOrder); i++ {
		_, err := f.service.StartSection(context.Background(), sessionID)
		require.NoError(t, err)
		if i < len(models.SectionOrder)-1 {
			_, err = f.service.Next(context.Background(), sessionID)
			require.NoError(t, err)
		}
	}

	view, err := f.service.Next(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StateInSection, view.State)
	assert.Equal(t, models.SkillSpeaking, view.Section)
	assert.Equal(t, 0, view.QuestionIndex)
}

func TestPlayPassageAudio_OnlyInListening(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())
	sessionID := startedSession(t, f)

	_, err := f.service.StartSection(context.Background(), sessionID)
	require.NoError(t, err)

	require.NoError(t, f.service.PlayPassageAudio(context.Background(), sessionID))
	require.NoError(t, f.service.PlayPassageAudio(context.Background(), sessionID))

	f.audio.mu.Lock()
	assert.Equal(t, 2, f.audio.plays)
	// Replaying cancels the previous playback.
	assert.Equal(t, 1, f.audio.cancelled)
	f.audio.mu.Unlock()

	// Leaving listening cancels the in-flight playback.
	_, err = f.service.Next(context.Background(), sessionID)
	require.NoError(t, err)

	f.audio.mu.Lock()
	assert.Equal(t, 2, f.audio.cancelled)
	f.audio.mu.Unlock()

	// Reading section rejects playback.
	_, err = f.service.StartSection(context.Background(), sessionID)
	require.NoError(t, err)
	err = f.service.PlayPassageAudio(context.Background(), sessionID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitFlow_ReachesResultsAndRecordsActivity(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())
	sessionID := startedSession(t, f)

	_, err := f.service.StartSection(context.Background(), sessionID)
	require.NoError(t, err)
	require.NoError(t, f.service.SaveAnswer(context.Background(), sessionID, models.PassageAnswerKey(1, 0), 0))

	view, err := f.service.Submit(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StateSubmitting, view.State)
	assert.Equal(t, 4, view.TotalTasks)

	// Submitting twice is rejected.
	_, err = f.service.Submit(context.Background(), sessionID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	waitForState(t, f, sessionID, models.StateResultsShown)

	result, err := f.service.Result(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalTasks)

	completed, total, state, err := f.service.Progress(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, total, completed)
	assert.Equal(t, models.StateResultsShown, state)

	// One mock-test activity was recorded, fire and forget.
	deadline := time.Now().Add(2 * time.Second)
	for f.activities.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, f.activities.callCount())
	assert.Equal(t, models.ActivityMockTest, f.activities.calls[0].Type)
}

func TestResult_UnavailableBeforeCompletion(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())
	sessionID := startedSession(t, f)

	_, err := f.service.Result(context.Background(), sessionID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSectionTimeout_AutoSubmitsWholeTest(t *testing.T) {
	test := standardTest()
	test.ListeningDuration = 0 // expires immediately on section start
	f := newSessionFixture(t, test, fullTestQuestions())
	sessionID := startedSession(t, f)

	_, err := f.service.StartSection(context.Background(), sessionID)
	require.NoError(t, err)

	waitForState(t, f, sessionID, models.StateResultsShown)

	// The activity record is the last step of scoring; once it lands no
	// further events are published.
	deadline := time.Now().Add(2 * time.Second)
	for f.activities.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, f.activities.callCount())

	result, err := f.service.Result(context.Background(), sessionID)
	require.NoError(t, err)
	assert.NotNil(t, result)

	view, err := f.service.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.True(t, view.TimedOut)

	var submitted *events.TestSubmittedEvent
	for _, event := range f.publisher.GetPublishedEvents() {
		if event.Type == events.EventTestSubmitted {
			if data, ok := event.Data.(events.TestSubmittedEvent); ok {
				submitted = &data
			}
		}
	}
	require.NotNil(t, submitted)
	assert.True(t, submitted.TimedOut)
}

func TestStaleTimerCallback_DoesNotSubmit(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())
	sessionID := startedSession(t, f)

	_, err := f.service.StartSection(context.Background(), sessionID) // arms listening
	require.NoError(t, err)

	session, err := f.service.lookup(sessionID)
	require.NoError(t, err)
	session.mu.Lock()
	staleGen := session.timerGen
	session.mu.Unlock()

	// Leave listening for reading and come back; the arm above has been
	// stopped twice over by now.
	_, err = f.service.Next(context.Background(), sessionID)
	require.NoError(t, err)
	_, err = f.service.StartSection(context.Background(), sessionID)
	require.NoError(t, err)
	_, err = f.service.Prev(context.Background(), sessionID)
	require.NoError(t, err)

	// A stopped timer's callback can already be in flight when Stop returns
	// false; delivered late, it must leave the session untouched.
	f.service.handleTimeout(sessionID, staleGen)

	view, err := f.service.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StateInSection, view.State)
	assert.Equal(t, models.SkillListening, view.Section)
	assert.Greater(t, view.RemainingSeconds, 0)
	assert.Zero(t, f.activities.callCount())
}

func TestRetake_ResetsToBeginning(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())
	sessionID := startedSession(t, f)

	// Retake before results is rejected.
	_, err := f.service.Retake(context.Background(), sessionID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.service.Submit(context.Background(), sessionID)
	require.NoError(t, err)
	waitForState(t, f, sessionID, models.StateResultsShown)

	view, err := f.service.Retake(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StateIntroduction, view.State)
	assert.Equal(t, models.SkillListening, view.Section)
	assert.Equal(t, 0, view.QuestionIndex)
	assert.Equal(t, 1800, view.RemainingSeconds)
	assert.False(t, view.TimedOut)

	_, err = f.service.Result(context.Background(), sessionID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGet_UnknownSession(t *testing.T) {
	f := newSessionFixture(t, standardTest(), fullTestQuestions())

	_, err := f.service.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
