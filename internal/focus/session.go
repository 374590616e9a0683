// Package focus implements the focus-mode logging session: local set edits
// apply immediately, persistence is debounced and best effort, and the
// session degrades to local-only logging once the backend fails.
package focus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
)

var (
	ErrClosed        = errors.New("session closed")
	ErrAlreadyLoaded = errors.New("session already loaded")
	ErrExerciseIndex = errors.New("exercise index out of range")
	ErrSetNotFound   = errors.New("set not found in exercise")
	ErrInvalidPatch  = errors.New("invalid set patch")
)

// Backend is the part of the liftlog API a session needs.
type Backend interface {
	Patcher
	GetWorkoutDetail(ctx context.Context, workoutID string) (*models.WorkoutDetail, error)
	AppendSet(ctx context.Context, workoutID string, in models.NewSet) (*models.Set, error)
}

// Set is the session-local view of a logged set. Array order is logged order.
type Set struct {
	ID       SetID
	WeightKg float64
	Reps     int
	Done     bool
}

type Exercise struct {
	ID   string
	Name string
	Sets []Set
}

// Completed reports whether the exercise has sets and all of them are done.
func (e Exercise) Completed() bool {
	if len(e.Sets) == 0 {
		return false
	}
	for _, s := range e.Sets {
		if !s.Done {
			return false
		}
	}
	return true
}

// Default values for a set added to an exercise with no sets.
const (
	defaultWeightKg = 0
	defaultReps     = 8
)

// Option configures a Session.
type Option func(*Session)

func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithOnAdvance registers fn to be called with the next exercise index when
// an edit leaves a non-final exercise fully done.
func WithOnAdvance(fn func(next int)) Option {
	return func(s *Session) { s.onAdvance = fn }
}

// WithOnStateChange registers fn to be called after availability transitions.
func WithOnStateChange(fn func(State)) Option {
	return func(s *Session) { s.onState = fn }
}

// WithClock overrides the time source used for the elapsed timer.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session holds the editable state of one workout in focus mode.
type Session struct {
	backend   Backend
	workoutID string
	log       *slog.Logger
	now       func() time.Time
	onAdvance func(next int)
	onState   func(State)

	avail      *Availability
	dispatcher *Dispatcher
	creates    sync.WaitGroup

	mu        sync.Mutex
	name      string
	exercises []Exercise
	nextTemp  uint64
	startedAt time.Time
	closed    bool
}

// New creates a session for workoutID in StateLoading. Until Load succeeds
// the session shows the offline push-day template.
func New(backend Backend, workoutID string, opts ...Option) *Session {
	s := &Session{
		backend:   backend,
		workoutID: workoutID,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("workout", workoutID)

	s.avail = NewAvailability(func(from, to State) {
		s.log.Info("backend availability changed", "from", from, "to", to)
		if s.onState != nil {
			s.onState(to)
		}
	})
	s.dispatcher = NewDispatcher(backend, s.avail, s.log)
	s.exercises = fromDetail(models.DemoExercises())
	s.startedAt = s.now()
	return s
}

// Load fetches the workout. On success the backend's exercises replace the
// template and the session goes online. Any failure, including an unknown
// workout, keeps the template and moves the session offline; it is logged
// and not returned.
func (s *Session) Load(ctx context.Context) error {
	if s.avail.State() != StateLoading {
		return ErrAlreadyLoaded
	}

	detail, err := s.backend.GetWorkoutDetail(ctx, s.workoutID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		s.mu.Unlock()
		s.log.Warn("workout unavailable; logging locally", "error", err)
		s.avail.MarkOffline()
		return nil
	}
	s.name = detail.Name
	s.exercises = fromDetail(detail.Exercises)
	s.mu.Unlock()

	s.avail.MarkOnline()
	s.log.Info("workout loaded", "exercises", len(detail.Exercises))
	return nil
}

// UpdateSetField merges patch into the set with id in the given exercise.
// When online, the patch is queued for debounced persistence.
func (s *Session) UpdateSetField(exerciseIndex int, id SetID, patch models.SetPatch) error {
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	s.mu.Lock()
	advance, err := s.updateLocked(exerciseIndex, id, patch)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.maybeAdvance(advance)
	return nil
}

// ToggleSetDone flips the done flag of a set.
func (s *Session) ToggleSetDone(exerciseIndex int, id SetID) error {
	s.mu.Lock()
	set, err := s.findLocked(exerciseIndex, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	done := !set.Done
	advance, err := s.updateLocked(exerciseIndex, id, models.SetPatch{Done: &done})
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.maybeAdvance(advance)
	return nil
}

// updateLocked applies patch and reports the exercise to advance to, or -1.
func (s *Session) updateLocked(exerciseIndex int, id SetID, patch models.SetPatch) (int, error) {
	set, err := s.findLocked(exerciseIndex, id)
	if err != nil {
		return -1, err
	}
	if patch.WeightKg != nil {
		set.WeightKg = *patch.WeightKg
	}
	if patch.Reps != nil {
		set.Reps = *patch.Reps
	}
	if patch.Done != nil {
		set.Done = *patch.Done
	}

	if !patch.Empty() && s.avail.Online() {
		s.dispatcher.Schedule(id, patch)
	}

	if exerciseIndex < len(s.exercises)-1 && s.exercises[exerciseIndex].Completed() {
		return exerciseIndex + 1, nil
	}
	return -1, nil
}

func (s *Session) findLocked(exerciseIndex int, id SetID) (*Set, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if exerciseIndex < 0 || exerciseIndex >= len(s.exercises) {
		return nil, ErrExerciseIndex
	}
	sets := s.exercises[exerciseIndex].Sets
	for i := range sets {
		if sets[i].ID == id {
			return &sets[i], nil
		}
	}
	return nil, ErrSetNotFound
}

func (s *Session) maybeAdvance(next int) {
	if next >= 0 && s.onAdvance != nil {
		s.onAdvance(next)
	}
}

// AddSet appends a set with a temporary id to the exercise, copying weight
// and reps from its last set. When online the set is created on the backend
// in the background and its id is swapped for the durable one in place.
func (s *Session) AddSet(exerciseIndex int) (SetID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return SetID{}, ErrClosed
	}
	if exerciseIndex < 0 || exerciseIndex >= len(s.exercises) {
		return SetID{}, ErrExerciseIndex
	}

	ex := &s.exercises[exerciseIndex]
	set := Set{WeightKg: defaultWeightKg, Reps: defaultReps}
	if n := len(ex.Sets); n > 0 {
		set.WeightKg = ex.Sets[n-1].WeightKg
		set.Reps = ex.Sets[n-1].Reps
	}
	s.nextTemp++
	set.ID = temporaryID(s.nextTemp)
	ex.Sets = append(ex.Sets, set)

	if s.avail.Online() {
		in := models.NewSet{ExerciseID: ex.ID, WeightKg: set.WeightKg, Reps: set.Reps}
		s.creates.Add(1)
		go s.create(ex.ID, set.ID, in)
	}
	return set.ID, nil
}

func (s *Session) create(exerciseID string, temp SetID, in models.NewSet) {
	defer s.creates.Done()

	created, err := s.backend.AppendSet(context.Background(), s.workoutID, in)
	if err != nil {
		s.log.Warn("set create failed; continuing offline", "set", temp, "error", err)
		s.avail.MarkOffline()
		s.dispatcher.Drop(temp)
		return
	}

	durable := DurableID(created.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	// Match by temporary id, not position; the set may have been edited
	// since the create was issued.
	for i := range s.exercises {
		if s.exercises[i].ID != exerciseID {
			continue
		}
		for j := range s.exercises[i].Sets {
			if s.exercises[i].Sets[j].ID == temp {
				s.exercises[i].Sets[j].ID = durable
				s.dispatcher.Resolve(temp, durable)
				s.log.Debug("set reconciled", "temp", temp, "id", durable)
				return
			}
		}
	}
	s.dispatcher.Drop(temp)
}

// Flush sends pending patches immediately instead of waiting for their
// debounce windows to elapse.
func (s *Session) Flush() {
	s.dispatcher.Flush()
}

// Close stops the session. Pending patches are discarded; in-flight calls
// are left to finish. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.dispatcher.Stop()
}

// Wait blocks until background create and patch calls started so far have
// returned.
func (s *Session) Wait() {
	s.creates.Wait()
	s.dispatcher.Wait()
}

// State reports StateClosed after Close, otherwise the backend availability.
func (s *Session) State() State {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return StateClosed
	}
	return s.avail.State()
}

// Online reports whether edits are being persisted.
func (s *Session) Online() bool { return s.State() == StateOnline }

// Name returns the backend's workout name, or a title derived from the id.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name != "" {
		return s.name
	}
	return fallbackTitle(s.workoutID)
}

func fallbackTitle(workoutID string) string {
	if workoutID == "" || workoutID == "active" {
		return "Active Workout"
	}
	return "Workout " + workoutID
}

// Exercises returns a deep copy of the current exercises.
func (s *Session) Exercises() []Exercise {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Exercise, len(s.exercises))
	for i, ex := range s.exercises {
		out[i] = Exercise{ID: ex.ID, Name: ex.Name, Sets: append([]Set(nil), ex.Sets...)}
	}
	return out
}

// ExerciseCompleted reports whether the exercise at index is fully done.
func (s *Session) ExerciseCompleted(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.exercises) {
		return false
	}
	return s.exercises[index].Completed()
}

// AllCompleted reports whether there is at least one exercise and all are done.
func (s *Session) AllCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.exercises) == 0 {
		return false
	}
	for _, ex := range s.exercises {
		if !ex.Completed() {
			return false
		}
	}
	return true
}

// Elapsed returns the whole seconds since the session was created.
func (s *Session) Elapsed() time.Duration {
	d := s.now().Sub(s.startedAt)
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}

// FormatElapsed renders d as mm:ss. Minutes are not wrapped into hours.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func fromDetail(exercises []models.ExerciseSets) []Exercise {
	out := make([]Exercise, len(exercises))
	for i, ex := range exercises {
		sets := make([]Set, len(ex.Sets))
		for j, st := range ex.Sets {
			sets[j] = Set{ID: DurableID(st.ID), WeightKg: st.WeightKg, Reps: st.Reps, Done: st.Done}
		}
		out[i] = Exercise{ID: ex.ID, Name: ex.Name, Sets: sets}
	}
	return out
}
