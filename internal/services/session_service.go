package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/mvocoding/testmateai/internal/events"
	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"github.com/mvocoding/testmateai/internal/utils"
)

// SessionService owns the mock-test session lifecycle: section/question
// navigation, per-section countdowns, answer collection, and the handoff to
// the submission pipeline at test end. Sessions live in memory for the
// test's duration; only the resulting activity is persisted.
type SessionService interface {
	Start(ctx context.Context, userID, testID uint) (*SessionView, error)
	Get(ctx context.Context, sessionID string) (*SessionView, error)
	StartSection(ctx context.Context, sessionID string) (*SessionView, error)
	Next(ctx context.Context, sessionID string) (*SessionView, error)
	Prev(ctx context.Context, sessionID string) (*SessionView, error)
	SaveAnswer(ctx context.Context, sessionID, key string, answer any) error
	PlayPassageAudio(ctx context.Context, sessionID string) error
	Submit(ctx context.Context, sessionID string) (*SessionView, error)
	Progress(ctx context.Context, sessionID string) (completed, total int, state models.SessionState, err error)
	Result(ctx context.Context, sessionID string) (*models.SubmissionResult, error)
	Retake(ctx context.Context, sessionID string) (*SessionView, error)
}

// SessionView is the immutable snapshot handlers render from.
type SessionView struct {
	SessionID        string              `json:"session_id"`
	TestID           uint                `json:"test_id"`
	State            models.SessionState `json:"state"`
	Section          models.Skill        `json:"section,omitempty"`
	QuestionIndex    int                 `json:"question_index"`
	SectionQuestions int                 `json:"section_questions"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	TimedOut         bool                `json:"timed_out,omitempty"`
	Completed        int                 `json:"completed_tasks,omitempty"`
	TotalTasks       int                 `json:"total_tasks,omitempty"`
}

// testSession is one user's in-flight mock test. All fields are guarded by mu.
type testSession struct {
	mu sync.Mutex

	id     string
	userID uint
	test   *models.MockTest

	state         models.SessionState
	sectionIdx    int
	questionIndex int

	questions *models.TestQuestions
	answers   models.SectionAnswers

	// Per-section countdown state. remaining is authoritative while the
	// section is paused; while in_section the live value is remaining minus
	// the time since enteredAt.
	remaining map[models.Skill]int
	enteredAt time.Time
	timer     *time.Timer
	timerGen  uint64

	// Listening audio playback state, reset when the section is left.
	playCount   int
	cancelAudio CancelFunc

	submission *Submission
	result     *models.SubmissionResult
	timedOut   bool
}

type sessionService struct {
	repo       repositories.Repository
	submitter  SubmissionService
	activities ActivityService
	publisher  events.EventPublisher
	audio      AudioIO
	logger     utils.Logger

	mu       sync.RWMutex
	sessions map[string]*testSession
	byUser   map[uint]string

	nextID func() string
	now    func() time.Time
}

func NewSessionService(
	repo repositories.Repository,
	submitter SubmissionService,
	activities ActivityService,
	publisher events.EventPublisher,
	audio AudioIO,
	logger utils.Logger,
) SessionService {
	if audio == nil {
		audio = NoopAudio{}
	}
	return &sessionService{
		repo:       repo,
		submitter:  submitter,
		activities: activities,
		publisher:  publisher,
		audio:      audio,
		logger:     logger,
		sessions:   make(map[string]*testSession),
		byUser:     make(map[uint]string),
		nextID:     newSessionID,
		now:        time.Now,
	}
}

// ===== LIFECYCLE =====

func (s *sessionService) Start(ctx context.Context, userID, testID uint) (*SessionView, error) {
	s.logger.Info("Starting mock test session", "user_id", userID, "test_id", testID)

	// Fast path: reject before the repo round-trips when the user already
	// has a live session. Re-checked under the write lock at insert time.
	s.mu.Lock()
	_, active := s.activeSessionLocked(userID)
	s.mu.Unlock()
	if active {
		return nil, ErrSessionExists
	}

	test, err := s.repo.MockTest().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get mock test: %w", err)
	}

	questions, err := s.repo.MockTest().FetchTestQuestions(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch test questions: %w", err)
	}

	// A test cannot start when its first section has nothing to show.
	first := models.SectionOrder[0]
	if questions.SectionQuestionCount(first) == 0 {
		return nil, NewValidationError("section", "no questions loaded for the first section", string(first))
	}

	session := &testSession{
		id:        s.nextID(),
		userID:    userID,
		test:      test,
		state:     models.StateIntroduction,
		questions: questions,
		answers:   newSectionAnswers(),
		remaining: map[models.Skill]int{},
	}
	for _, skill := range models.SectionOrder {
		session.remaining[skill] = test.SectionDuration(skill)
	}

	// A concurrent Start for the same user may have inserted while the repo
	// calls were in flight, so the existence check must be repeated under
	// the same lock as the insert. A finished session left behind by the
	// user is evicted when its replacement is installed.
	s.mu.Lock()
	staleID, active := s.activeSessionLocked(userID)
	if active {
		s.mu.Unlock()
		return nil, ErrSessionExists
	}
	if staleID != "" {
		delete(s.sessions, staleID)
	}
	s.sessions[session.id] = session
	s.byUser[userID] = session.id
	s.mu.Unlock()

	s.publishEvent(events.EventTestStarted, events.TestStartedEvent{
		SessionID: session.id,
		TestID:    testID,
		UserID:    userID,
		StartedAt: s.now(),
	})

	return s.view(session), nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*SessionView, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// StartSection moves from a section's introduction into its first question.
// All of the section's answers are cleared and its countdown armed.
func (s *sessionService) StartSection(ctx context.Context, sessionID string) (*SessionView, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.state != models.StateIntroduction {
		return nil, &StateError{SessionID: sessionID, State: string(session.state), Operation: "start section"}
	}

	skill := s.currentSkill(session)
	if session.questions.SectionQuestionCount(skill) == 0 {
		return nil, NewValidationError("section", "no questions loaded for this section", string(skill))
	}

	session.answers[skill] = models.AnswerMap{}
	session.state = models.StateInSection
	session.questionIndex = 0
	s.armTimer(session, skill)

	return s.viewLocked(session), nil
}

// ===== NAVIGATION =====
//
// Moving away from a question discards its stored answers unless they were
// already part of a submitted batch. This mirrors the product's established
// behavior and is covered by regression tests; callers must not "fix" it.

func (s *sessionService) Next(ctx context.Context, sessionID string) (*SessionView, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.state != models.StateInSection {
		return nil, &StateError{SessionID: sessionID, State: string(session.state), Operation: "advance"}
	}

	skill := s.currentSkill(session)
	count := session.questions.SectionQuestionCount(skill)

	switch {
	case session.questionIndex < count-1:
		s.clearItemAnswers(session, skill, session.questionIndex)
		session.questionIndex++

	case session.sectionIdx < len(models.SectionOrder)-1:
		s.leaveSection(session, skill)
		session.sectionIdx++
		session.questionIndex = 0
		next := s.currentSkill(session)
		// The upcoming section starts from a clean slate.
		session.answers[next] = models.AnswerMap{}
		session.state = models.StateIntroduction

	default:
		// Last question of the last section: advancing is a no-op, the
		// client submits instead.
	}

	return s.viewLocked(session), nil
}

func (s *sessionService) Prev(ctx context.Context, sessionID string) (*SessionView, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.state != models.StateInSection {
		return nil, &StateError{SessionID: sessionID, State: string(session.state), Operation: "go back"}
	}

	skill := s.currentSkill(session)

	switch {
	case session.questionIndex > 0:
		s.clearItemAnswers(session, skill, session.questionIndex)
		session.questionIndex--

	case session.sectionIdx > 0:
		s.clearItemAnswers(session, skill, session.questionIndex)
		s.leaveSection(session, skill)
		session.sectionIdx--
		prev := s.currentSkill(session)
		session.questionIndex = session.questions.SectionQuestionCount(prev) - 1
		s.armTimer(session, prev)

	default:
		// Already at the very first question.
	}

	return s.viewLocked(session), nil
}

func (s *sessionService) SaveAnswer(ctx context.Context, sessionID, key string, answer any) error {
	session, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.state != models.StateInSection {
		return &StateError{SessionID: sessionID, State: string(session.state), Operation: "save answer"}
	}

	skill := s.currentSkill(session)
	session.answers[skill][key] = answer
	return nil
}

// PlayPassageAudio reads the current listening passage aloud. Play state is
// tracked so leaving the section can cancel and reset it.
func (s *sessionService) PlayPassageAudio(ctx context.Context, sessionID string) error {
	session, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.state != models.StateInSection || s.currentSkill(session) != models.SkillListening {
		return &StateError{SessionID: sessionID, State: string(session.state), Operation: "play audio"}
	}
	if session.questionIndex >= len(session.questions.Listening) {
		return ErrNotFound
	}

	if session.cancelAudio != nil {
		session.cancelAudio()
	}

	cancel, err := s.audio.Speak(ctx, session.questions.Listening[session.questionIndex].Text)
	if err != nil {
		return fmt.Errorf("failed to start audio playback: %w", err)
	}
	session.cancelAudio = cancel
	session.playCount++
	return nil
}

// ===== SUBMISSION =====

func (s *sessionService) Submit(ctx context.Context, sessionID string) (*SessionView, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	return s.submitLocked(session, false)
}

func (s *sessionService) submitLocked(session *testSession, timedOut bool) (*SessionView, error) {
	switch session.state {
	case models.StateSubmitting, models.StateResultsShown:
		return nil, ErrAlreadySubmitted
	case models.StateInSection, models.StateIntroduction:
		// Submittable.
	default:
		return nil, &StateError{SessionID: session.id, State: string(session.state), Operation: "submit"}
	}

	if session.state == models.StateInSection {
		s.leaveSection(session, s.currentSkill(session))
	}

	session.state = models.StateSubmitting
	session.timedOut = timedOut

	// Detached from the request context: once a submission starts it runs
	// to completion, there is no mid-flight undo.
	session.submission = s.submitter.Submit(context.Background(), session.questions, session.answers)

	s.publishEvent(events.EventTestSubmitted, events.TestSubmittedEvent{
		SessionID:   session.id,
		TestID:      session.test.ID,
		UserID:      session.userID,
		TotalTasks:  session.submission.TotalTasks(),
		TimedOut:    timedOut,
		SubmittedAt: s.now(),
	})

	go s.finishSubmission(session)

	return s.viewLocked(session), nil
}

func (s *sessionService) finishSubmission(session *testSession) {
	result, _ := session.submission.Wait(context.Background())

	session.mu.Lock()
	session.result = result
	session.state = models.StateResultsShown
	userID := session.userID
	testID := session.test.ID
	sessionID := session.id
	session.mu.Unlock()

	s.publishEvent(events.EventTestScored, events.TestScoredEvent{
		SessionID:   sessionID,
		TestID:      testID,
		UserID:      userID,
		OverallBand: result.OverallBand,
		Results:     result.Results,
		ScoredAt:    s.now(),
	})

	// Recording the activity is fire-and-forget: a persistence failure is
	// logged and the user still sees their results.
	score := 0.0
	for _, skill := range models.SectionOrder {
		score += result.Results[skill].Percentage
	}
	score /= float64(len(models.SectionOrder))

	details, _ := json.Marshal(result.Results)
	if _, err := s.activities.AddActivity(context.Background(), userID, AddActivityRequest{
		Type:    models.ActivityMockTest,
		Score:   score,
		Band:    result.OverallBand,
		Details: details,
	}); err != nil {
		s.logger.Error("Failed to record mock test activity",
			"session_id", sessionID, "user_id", userID, "error", err)
	}
}

func (s *sessionService) Progress(ctx context.Context, sessionID string) (int, int, models.SessionState, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return 0, 0, "", err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.submission == nil {
		return 0, 0, session.state, nil
	}
	completed, total := session.submission.Progress()
	return completed, total, session.state, nil
}

func (s *sessionService) Result(ctx context.Context, sessionID string) (*models.SubmissionResult, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.state != models.StateResultsShown || session.result == nil {
		return nil, &StateError{SessionID: sessionID, State: string(session.state), Operation: "read results"}
	}
	return session.result, nil
}

// Retake resets a finished session back to the beginning of the same test.
func (s *sessionService) Retake(ctx context.Context, sessionID string) (*SessionView, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.state != models.StateResultsShown {
		return nil, &StateError{SessionID: sessionID, State: string(session.state), Operation: "retake"}
	}

	session.state = models.StateIntroduction
	session.sectionIdx = 0
	session.questionIndex = 0
	session.answers = newSectionAnswers()
	session.submission = nil
	session.result = nil
	session.timedOut = false
	session.playCount = 0
	for _, skill := range models.SectionOrder {
		session.remaining[skill] = session.test.SectionDuration(skill)
	}

	return s.viewLocked(session), nil
}

// ===== TIMERS =====

// armTimer (re)starts the countdown for a section being entered. The timer
// fires an auto-submit of the ENTIRE test, not just the section; that is the
// product's established exam-pacing behavior.
func (s *sessionService) armTimer(session *testSession, skill models.Skill) {
	remaining := session.remaining[skill]
	session.enteredAt = s.now()

	if session.timer != nil {
		session.timer.Stop()
	}
	session.timerGen++
	gen := session.timerGen
	sessionID := session.id
	session.timer = time.AfterFunc(time.Duration(remaining)*time.Second, func() {
		s.handleTimeout(sessionID, gen)
	})
}

// leaveSection pauses the countdown and resets audio playback state.
func (s *sessionService) leaveSection(session *testSession, skill models.Skill) {
	if session.timer != nil {
		session.timer.Stop()
		session.timer = nil
	}
	// Stop does not abort a callback that has already fired and is waiting
	// on the session lock; bumping the generation turns it into a no-op.
	session.timerGen++

	elapsed := int(s.now().Sub(session.enteredAt).Seconds())
	remaining := session.remaining[skill] - elapsed
	if remaining < 0 {
		remaining = 0
	}
	session.remaining[skill] = remaining

	if skill == models.SkillListening {
		if session.cancelAudio != nil {
			session.cancelAudio()
			session.cancelAudio = nil
		}
		session.playCount = 0
	}
}

func (s *sessionService) handleTimeout(sessionID string, gen uint64) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	// A stopped timer's callback may already be in flight, blocked on the
	// lock while navigation changes sections; the generation pins the
	// callback to the arm that scheduled it.
	if gen != session.timerGen || session.state != models.StateInSection {
		return
	}

	skill := s.currentSkill(session)
	session.remaining[skill] = 0

	s.logger.Info("Section time expired, auto-submitting test",
		"session_id", sessionID, "section", skill)

	if _, err := s.submitLocked(session, true); err != nil {
		s.logger.Error("Auto-submit after timeout failed", "session_id", sessionID, "error", err)
	}
}

// ===== HELPERS =====

// activeSessionLocked returns the user's registered session ID and whether
// that session is still live. Callers must hold s.mu; session locks are only
// ever taken after s.mu, never the other way around.
func (s *sessionService) activeSessionLocked(userID uint) (string, bool) {
	id, ok := s.byUser[userID]
	if !ok {
		return "", false
	}
	session, ok := s.sessions[id]
	if !ok {
		return "", false
	}
	session.mu.Lock()
	active := session.state != models.StateResultsShown
	session.mu.Unlock()
	return id, active
}

func (s *sessionService) lookup(sessionID string) (*testSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *sessionService) currentSkill(session *testSession) models.Skill {
	return models.SectionOrder[session.sectionIdx]
}

// clearItemAnswers drops the answers of the item being navigated away from:
// all of a passage's question keys for listening/reading, the single question
// key otherwise.
func (s *sessionService) clearItemAnswers(session *testSession, skill models.Skill, index int) {
	answers := session.answers[skill]

	switch skill {
	case models.SkillListening, models.SkillReading:
		passages := session.questions.Listening
		if skill == models.SkillReading {
			passages = session.questions.Reading
		}
		if index >= len(passages) {
			return
		}
		prefix := fmt.Sprintf("%d-", passages[index].ID)
		for key := range answers {
			if strings.HasPrefix(key, prefix) {
				delete(answers, key)
			}
		}

	default:
		items := session.questions.Writing
		if skill == models.SkillSpeaking {
			items = session.questions.Speaking
		}
		if index >= len(items) {
			return
		}
		delete(answers, models.QuestionAnswerKey(items[index].ID))
	}
}

func (s *sessionService) view(session *testSession) *SessionView {
	session.mu.Lock()
	defer session.mu.Unlock()
	return s.viewLocked(session)
}

func (s *sessionService) viewLocked(session *testSession) *SessionView {
	skill := s.currentSkill(session)

	remaining := session.remaining[skill]
	if session.state == models.StateInSection {
		remaining -= int(s.now().Sub(session.enteredAt).Seconds())
		if remaining < 0 {
			remaining = 0
		}
	}

	view := &SessionView{
		SessionID:        session.id,
		TestID:           session.test.ID,
		State:            session.state,
		Section:          skill,
		QuestionIndex:    session.questionIndex,
		SectionQuestions: session.questions.SectionQuestionCount(skill),
		RemainingSeconds: remaining,
		TimedOut:         session.timedOut,
	}

	if session.submission != nil {
		view.Completed, view.TotalTasks = session.submission.Progress()
	}

	return view
}

func (s *sessionService) publishEvent(eventType events.EventType, data interface{}) {
	if s.publisher == nil {
		return
	}
	event := events.NewTestEvent(eventType, data)
	if err := s.publisher.PublishTestEvent(context.Background(), event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}

func newSectionAnswers() models.SectionAnswers {
	answers := make(models.SectionAnswers, len(models.SectionOrder))
	for _, skill := range models.SectionOrder {
		answers[skill] = models.AnswerMap{}
	}
	return answers
}

func newSessionID() string {
	return watermill.NewUUID()
}
