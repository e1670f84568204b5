package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ArowuTest/bmd-member-registry/internal/models"
	"github.com/ArowuTest/bmd-member-registry/internal/repositories"
	"github.com/ArowuTest/bmd-member-registry/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const defaultSessionTTL = 24 * time.Hour

// SessionService implements identify, register and delete on top of the
// shared Directory. Each session selects at most one current member.
//
// Session state lives in a SessionRepository. The directory selection each
// session holds is tracked per process in attached, so a session restored
// from a shared store is re-attached on its first request.
type SessionService struct {
	dir       *Directory
	repo      repositories.MemberRepository
	store     repositories.SessionRepository
	presenter Presenter
	loc       *time.Location
	ttl       time.Duration
	logger    zerolog.Logger

	// mu serializes read-modify-write of session state in this process.
	mu       sync.Mutex
	attached map[string]string
}

// NewSessionService creates a new SessionService
func NewSessionService(dir *Directory, repo repositories.MemberRepository, store repositories.SessionRepository, display utils.DisplayOptions, clock Clock, ttl time.Duration, logger zerolog.Logger) *SessionService {
	if clock == nil {
		clock = time.Now
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionService{
		dir:       dir,
		repo:      repo,
		store:     store,
		presenter: Presenter{Display: display, Clock: clock},
		loc:       display.Loc(),
		ttl:       ttl,
		logger:    logger,
		attached:  make(map[string]string),
	}
}

// Open starts a new session. Expiry follows wall time so it lines up with the
// session token.
func (s *SessionService) Open(ctx context.Context) (models.Session, error) {
	now := time.Now()
	sess := models.Session{ID: uuid.NewString(), CreatedAt: now, ExpiresAt: now.Add(s.ttl)}
	if err := s.store.Save(ctx, &sess); err != nil {
		s.logger.Error().Err(err).Msg("save session failed")
		return models.Session{}, sessionStoreError(err)
	}
	return sess, nil
}

// Close ends a session and releases its selection.
func (s *SessionService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	err := s.store.Delete(ctx, id)
	prev := s.detachLocked(id)
	s.mu.Unlock()

	s.dir.Select(prev, "")
	if err != nil {
		return sessionStoreError(err)
	}
	return nil
}

// Get returns a copy of the session state.
func (s *SessionService) Get(ctx context.Context, id string) (models.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Session{}, sessionStoreError(err)
	}
	return *sess, nil
}

var errSessionNotFound = &ServiceError{Kind: KindSessionNotFound, Message: "session not found or expired"}

func sessionStoreError(err error) error {
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return errSessionNotFound
	}
	return &ServiceError{Kind: KindStoreWrite, Message: "Session store unavailable.", Err: err}
}

func (s *SessionService) detachLocked(id string) string {
	prev := s.attached[id]
	delete(s.attached, id)
	return prev
}

// attachLocked records name as id's selection and returns the previous one.
func (s *SessionService) attachLocked(id, name string) string {
	prev := s.attached[id]
	if name == "" {
		delete(s.attached, id)
	} else {
		s.attached[id] = name
	}
	return prev
}

// update runs fn on the stored session and applies any change of the current
// selection to the directory afterwards.
func (s *SessionService) update(ctx context.Context, id string, fn func(sess *models.Session)) error {
	s.mu.Lock()
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return sessionStoreError(err)
	}
	fn(sess)
	if err := s.store.Save(ctx, sess); err != nil {
		s.mu.Unlock()
		return sessionStoreError(err)
	}
	prev := s.attachLocked(id, sess.CurrentName)
	s.mu.Unlock()

	s.dir.Select(prev, sess.CurrentName)
	return nil
}

// SweepExpired releases the selections of sessions that expired or vanished
// from the store without being closed.
func (s *SessionService) SweepExpired(ctx context.Context) int {
	s.mu.Lock()
	ids := lo.Keys(s.attached)
	s.mu.Unlock()

	released := 0
	for _, id := range ids {
		_, err := s.store.Get(ctx, id)
		if !errors.Is(err, repositories.ErrSessionNotFound) {
			continue
		}
		s.mu.Lock()
		prev := s.detachLocked(id)
		s.mu.Unlock()
		s.dir.Select(prev, "")
		released++
	}
	if released > 0 {
		s.logger.Debug().Int("released", released).Msg("expired sessions released")
	}
	return released
}

// RunSweeper calls SweepExpired every interval until ctx ends. A non-positive
// interval disables sweeping.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpired(ctx)
		}
	}
}

// Connect looks up the member named first+last. A match becomes the current
// member; a miss puts the session into pending registration for that name.
func (s *SessionService) Connect(ctx context.Context, id, first, last string) (*Dashboard, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if !s.dir.Loaded() {
		return nil, s.fail(ctx, id, &ServiceError{Kind: KindNotLoaded, Message: "Registry is still loading. Retry in a moment."})
	}

	full := utils.BuildFullName(first, last)
	if full == "" {
		return nil, s.fail(ctx, id, validationError("Enter a First Name or Last Name."))
	}

	match := s.dir.Find(full)
	if match != nil {
		name := match.Name
		if name == "" {
			name = full
		}
		if err := s.update(ctx, id, func(sess *models.Session) {
			sess.CurrentName = name
			sess.PendingName = ""
			sess.Message = ""
		}); err != nil {
			return nil, err
		}
		s.logger.Info().Str("session", id).Str("member", match.ID.Hex()).Msg("member connected")
		return s.Dashboard(ctx, id)
	}

	miss := &ServiceError{Kind: KindLookupMiss, Message: fmt.Sprintf("No record found for %q. Continue with registration below.", full)}
	if err := s.update(ctx, id, func(sess *models.Session) {
		sess.CurrentName = ""
		sess.PendingName = full
		sess.Message = miss.Message
	}); err != nil {
		return nil, err
	}
	return s.Dashboard(ctx, id)
}

// Delete removes the member named first+last. Without confirmation nothing is
// written and a KindConfirmationRequired error carries the prompt.
func (s *SessionService) Delete(ctx context.Context, id, first, last string, confirmed bool) (*Dashboard, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if !s.dir.Loaded() {
		return nil, s.fail(ctx, id, &ServiceError{Kind: KindNotLoaded, Message: "Registry is still loading. Retry in a moment."})
	}

	full := utils.BuildFullName(first, last)
	if full == "" {
		return nil, s.fail(ctx, id, validationError("Enter a First Name or Last Name to delete a record."))
	}

	match := s.dir.Find(full)
	if match == nil {
		return nil, s.fail(ctx, id, &ServiceError{Kind: KindLookupMiss, Message: fmt.Sprintf("No record found for %q, nothing to delete.", full)})
	}

	if !confirmed {
		return nil, &ServiceError{
			Kind:    KindConfirmationRequired,
			Message: fmt.Sprintf("Really delete record for %q? This operation cannot be undone.", match.Name),
		}
	}

	if err := s.repo.Delete(ctx, match.ID); err != nil {
		s.logger.Error().Err(err).Str("session", id).Str("member", match.ID.Hex()).Msg("delete member failed")
		msg := "Failed to delete member."
		if errors.Is(err, repositories.ErrMemberNotFound) {
			msg = fmt.Sprintf("Record for %q no longer exists.", match.Name)
		}
		return nil, s.fail(ctx, id, &ServiceError{Kind: KindStoreWrite, Message: msg, Err: err})
	}

	deleted := utils.NormalizeName(match.Name)
	if err := s.update(ctx, id, func(sess *models.Session) {
		if utils.NormalizeName(sess.CurrentName) == deleted {
			sess.CurrentName = ""
		}
		sess.PendingName = ""
		sess.Message = fmt.Sprintf("Record for %q was deleted.", match.Name)
	}); err != nil {
		return nil, err
	}
	s.logger.Info().Str("session", id).Str("member", match.ID.Hex()).Msg("member deleted")
	return s.Dashboard(ctx, id)
}

// Register creates a record for the session's pending name and selects it.
func (s *SessionService) Register(ctx context.Context, id string, in RegistrationInput) (*Dashboard, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.PendingName == "" {
		return nil, s.fail(ctx, id, validationError("Identify first; there is no pending registration."))
	}

	in.Name = sess.PendingName
	member, err := BuildMember(in, s.presenter.Clock(), s.loc)
	if err != nil {
		return nil, s.fail(ctx, id, err)
	}

	memberID, err := s.repo.Create(ctx, member)
	if err != nil {
		s.logger.Error().Err(err).Str("session", id).Msg("create member failed")
		return nil, s.fail(ctx, id, &ServiceError{Kind: KindStoreWrite, Message: "Failed to create member.", Err: err})
	}

	if err := s.update(ctx, id, func(sess *models.Session) {
		sess.CurrentName = member.Name
		sess.PendingName = ""
		sess.Message = ""
	}); err != nil {
		return nil, err
	}
	s.logger.Info().Str("session", id).Str("member", memberID.Hex()).Msg("member registered")
	return s.Dashboard(ctx, id)
}

// Dashboard renders the session's current view.
func (s *SessionService) Dashboard(ctx context.Context, id string) (*Dashboard, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.reattach(id, sess.CurrentName)

	current, others := s.dir.Partition(sess.CurrentName)
	d := &Dashboard{
		Today:       s.presenter.Today(),
		Loaded:      s.dir.Loaded(),
		PendingName: sess.PendingName,
		Others:      s.presenter.Views(others),
		Message:     sess.Message,
	}
	if sess.CurrentName != "" && current != nil {
		v := s.presenter.View(current)
		d.Current = &v
	}
	if err := s.dir.SubscriptionError(); err != nil {
		d.SubscriptionError = err.Error()
	}
	if err := s.dir.WriteError(); err != nil {
		d.WriteError = err.Error()
	}
	return d, nil
}

// Listen subscribes to directory changes. See Directory.Listen.
func (s *SessionService) Listen() (<-chan struct{}, func()) {
	return s.dir.Listen()
}

// Loaded reports whether the directory has received its first snapshot.
func (s *SessionService) Loaded() bool {
	return s.dir.Loaded()
}

// SubscriptionError is the directory's feed failure, if any.
func (s *SessionService) SubscriptionError() error {
	return s.dir.SubscriptionError()
}

// Roster is the read-only grid of every member.
func (s *SessionService) Roster() []MemberView {
	_, members := s.dir.Partition("")
	return s.presenter.Views(members)
}

// reattach brings this process's selection for id in line with the stored
// current name, e.g. for a session restored from Redis after a restart.
func (s *SessionService) reattach(id, name string) {
	s.mu.Lock()
	prev, known := s.attached[id]
	if (known && prev == name) || (!known && name == "") {
		s.mu.Unlock()
		return
	}
	s.attachLocked(id, name)
	s.mu.Unlock()
	s.dir.Select(prev, name)
}

// fail records err's message on the session and returns err.
func (s *SessionService) fail(ctx context.Context, id string, err error) error {
	var se *ServiceError
	msg := err.Error()
	if errors.As(err, &se) {
		msg = se.Message
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, gerr := s.store.Get(ctx, id)
	if gerr != nil {
		return err
	}
	sess.Message = msg
	if serr := s.store.Save(ctx, sess); serr != nil {
		s.logger.Warn().Err(serr).Str("session", id).Msg("failed to record session message")
	}
	return err
}
