package services

import (
	"context"
	"sync"
	"time"

	"github.com/ArowuTest/bmd-member-registry/internal/models"
	"github.com/ArowuTest/bmd-member-registry/internal/repositories"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rule derives the patch that brings a member back in line with one
// consistency invariant, or nil when the stored record already agrees.
type Rule struct {
	Name   string
	Desire func(m *models.Member, now time.Time, loc *time.Location) *models.MemberPatch
}

// ConsistencyRules are evaluated on every settle cycle, in order.
var ConsistencyRules = []Rule{
	{Name: "financial-access", Desire: FinancialAccessPatch},
	{Name: "due-date", Desire: DueDatePatch},
}

// FinancialAccessPatch keeps canFinancialTransactions and visaType in step
// with the remaining battery. Access is granted only while the percent is
// above zero; without a computable window access is revoked.
func FinancialAccessPatch(m *models.Member, now time.Time, _ *time.Location) *models.MemberPatch {
	if m == nil || m.ID.IsZero() {
		return nil
	}
	progress, ok := ComputeProgress(m.LastBatteryReplacementDate, m.BatteryDueDate, now)
	desiredFinancial := ok && progress.Percent > 0

	original := m.OriginalVisa()
	desiredVisa := models.VisaUnable
	if desiredFinancial {
		desiredVisa = original
	}

	if m.CanFinancialTransactions == desiredFinancial && m.VisaType == desiredVisa {
		return nil
	}
	return &models.MemberPatch{
		CanFinancialTransactions: &desiredFinancial,
		VisaType:                 &desiredVisa,
		VisaTypeOriginal:         lo.ToPtr(original),
		LastUpdatedClient:        now.Unix(),
	}
}

// DueDatePatch recomputes batteryDueDate from the last replacement and the
// tendency. A stored value that is not the same whole-second epoch is
// rewritten.
func DueDatePatch(m *models.Member, now time.Time, loc *time.Location) *models.MemberPatch {
	if m == nil || m.ID.IsZero() {
		return nil
	}
	due, ok := ProjectDueDate(m.LastBatteryReplacementDate, float64(m.Tendency), loc)
	if !ok {
		return nil
	}
	if m.BatteryDueDate.EqualsEpoch(due) {
		return nil
	}
	return &models.MemberPatch{
		BatteryDueDate:    &due,
		LastUpdatedClient: now.Unix(),
	}
}

// Reconciler runs the consistency rules against members and dispatches the
// resulting patches without blocking the caller. While a correction is in
// flight it is not sent again. Once it has landed, any later divergence,
// including another writer reverting it, is corrected anew.
type Reconciler struct {
	repo         repositories.MemberRepository
	clock        Clock
	loc          *time.Location
	writeTimeout time.Duration
	logger       zerolog.Logger

	mu       sync.Mutex
	issued   map[string]issuedPatch
	lastErr  error
	inflight sync.WaitGroup
}

// NewReconciler creates a new Reconciler
func NewReconciler(repo repositories.MemberRepository, clock Clock, loc *time.Location, writeTimeout time.Duration, logger zerolog.Logger) *Reconciler {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Reconciler{
		repo:         repo,
		clock:        clock,
		loc:          loc,
		writeTimeout: writeTimeout,
		logger:       logger,
		issued:       make(map[string]issuedPatch),
	}
}

// Settle evaluates every rule for m and returns how many patches it dispatched.
func (r *Reconciler) Settle(ctx context.Context, m *models.Member) int {
	if m == nil || m.ID.IsZero() {
		return 0
	}
	now := r.clock()
	sent := 0
	for _, rule := range ConsistencyRules {
		key := rule.Name + ":" + m.ID.Hex()
		patch := rule.Desire(m, now, r.loc)

		r.mu.Lock()
		if patch == nil {
			delete(r.issued, key)
			r.mu.Unlock()
			continue
		}
		sig := patch.Signature()
		if prev, ok := r.issued[key]; ok && prev.sig == sig && !prev.done {
			// Seen while the write is in flight; re-read once it lands.
			prev.dirty = true
			r.issued[key] = prev
			r.mu.Unlock()
			continue
		}
		r.issued[key] = issuedPatch{sig: sig}
		r.mu.Unlock()

		sent++
		r.dispatch(ctx, key, sig, rule.Name, m.ID, m.Name, patch)
	}
	return sent
}

// issuedPatch is the bookkeeping for one rule on one member.
type issuedPatch struct {
	sig   string
	done  bool
	dirty bool
}

func (r *Reconciler) dispatch(ctx context.Context, key, sig, rule string, id primitive.ObjectID, name string, patch *models.MemberPatch) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		writeCtx := ctx
		if r.writeTimeout > 0 {
			var cancel context.CancelFunc
			writeCtx, cancel = context.WithTimeout(ctx, r.writeTimeout)
			defer cancel()
		}

		err := r.repo.Update(writeCtx, id, patch)

		r.mu.Lock()
		if err != nil {
			// Forget the attempt so the next snapshot retries it.
			if r.issued[key].sig == sig {
				delete(r.issued, key)
			}
			r.lastErr = &ServiceError{Kind: KindStoreWrite, Message: "automatic " + rule + " update failed for " + name, Err: err}
			r.mu.Unlock()
			r.logger.Error().Err(err).Str("rule", rule).Str("member", id.Hex()).Msg("automatic update failed")
			return
		}
		r.lastErr = nil
		recheck := false
		if entry, ok := r.issued[key]; ok && entry.sig == sig {
			recheck = entry.dirty
			r.issued[key] = issuedPatch{sig: sig, done: true}
		}
		r.mu.Unlock()
		r.logger.Debug().Str("rule", rule).Str("member", id.Hex()).Interface("set", patch.Set()).Msg("automatic update applied")

		if !recheck {
			return
		}
		// A snapshot arrived mid-write and may show a newer external edit.
		fresh, err := r.repo.FindByID(ctx, id)
		if err != nil {
			r.logger.Warn().Err(err).Str("member", id.Hex()).Msg("re-read after automatic update failed")
			return
		}
		r.Settle(ctx, fresh)
	}()
}

// Forget drops bookkeeping for a member that no longer exists.
func (r *Reconciler) Forget(id primitive.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range ConsistencyRules {
		delete(r.issued, rule.Name+":"+id.Hex())
	}
}

// LastError returns the most recent automatic-update failure, cleared by the
// next successful write.
func (r *Reconciler) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Wait blocks until every dispatched write has finished.
func (r *Reconciler) Wait() {
	r.inflight.Wait()
}
