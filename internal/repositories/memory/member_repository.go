package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ArowuTest/bmd-member-registry/internal/models"
	"github.com/ArowuTest/bmd-member-registry/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure MemberRepository implements the interface
var _ repositories.MemberRepository = (*MemberRepository)(nil)

// CallCounts records how many writes reached the store.
type CallCounts struct {
	Creates int
	Updates int
	Deletes int
}

// MemberRepository is an in-process live collection. It backs local runs
// without MongoDB and the service tests.
type MemberRepository struct {
	mu       sync.Mutex
	members  map[primitive.ObjectID]*models.Member
	inserted []primitive.ObjectID
	subs     map[*subscriber]struct{}
	writeErr error
	calls    CallCounts
	hold     chan struct{}
	after    func()
}

type subscriber struct {
	ch    chan models.Snapshot
	order repositories.SortOrder
}

// offer replaces any undelivered snapshot with the newer one so writers never block.
func (s *subscriber) offer(snap models.Snapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// NewMemberRepository creates an empty in-memory MemberRepository
func NewMemberRepository(seed ...*models.Member) *MemberRepository {
	r := &MemberRepository{
		members: make(map[primitive.ObjectID]*models.Member),
		subs:    make(map[*subscriber]struct{}),
	}
	for _, m := range seed {
		c := m.Clone()
		if c.ID.IsZero() {
			c.ID = primitive.NewObjectID()
		}
		r.members[c.ID] = c
		r.inserted = append(r.inserted, c.ID)
	}
	return r
}

// WithWriteError makes every subsequent write fail with err; nil restores writes.
func (r *MemberRepository) WithWriteError(err error) *MemberRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeErr = err
	return r
}

// HoldWrites makes Update block until the returned release func is called.
func (r *MemberRepository) HoldWrites() (release func()) {
	gate := make(chan struct{})
	r.mu.Lock()
	r.hold = gate
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if r.hold == gate {
				r.hold = nil
			}
			r.mu.Unlock()
			close(gate)
		})
	}
}

// AfterUpdate runs fn after every applied update, outside the store lock.
func (r *MemberRepository) AfterUpdate(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.after = fn
}

// FailSubscriptions delivers err as the terminal snapshot to every subscriber.
func (r *MemberRepository) FailSubscriptions(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for s := range r.subs {
		s.offer(models.Snapshot{Err: err})
		delete(r.subs, s)
		close(s.ch)
	}
}

// Calls returns the write counters.
func (r *MemberRepository) Calls() CallCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Get returns a copy of a stored member.
func (r *MemberRepository) Get(id primitive.ObjectID) (*models.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Put stores m as-is, the way another client writing to the shared
// collection would, and notifies subscribers.
func (r *MemberRepository) Put(m *models.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := m.Clone()
	if _, exists := r.members[c.ID]; !exists {
		r.inserted = append(r.inserted, c.ID)
	}
	r.members[c.ID] = c
	r.broadcastLocked()
}

// Subscribe delivers the current snapshot immediately and one per change after that.
func (r *MemberRepository) Subscribe(ctx context.Context, order repositories.SortOrder) (<-chan models.Snapshot, func(), error) {
	s := &subscriber{ch: make(chan models.Snapshot, 1), order: order}

	r.mu.Lock()
	r.subs[s] = struct{}{}
	s.offer(models.Snapshot{Members: r.snapshotLocked(order)})
	r.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, ok := r.subs[s]; ok {
				delete(r.subs, s)
				close(s.ch)
			}
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			release()
		case <-done:
		}
	}()
	return s.ch, release, nil
}

// FindByID returns a copy of one member
func (r *MemberRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, ok := r.Get(id)
	if !ok {
		return nil, repositories.ErrMemberNotFound
	}
	return m, nil
}

// FindAll returns copies of all members in the requested order
func (r *MemberRepository) FindAll(ctx context.Context, order repositories.SortOrder) ([]*models.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(order), nil
}

// Create inserts a new member
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls.Creates++
	if err := r.writeErrLocked(ctx); err != nil {
		return primitive.NilObjectID, err
	}
	member.ID = primitive.NewObjectID()
	r.members[member.ID] = member.Clone()
	r.inserted = append(r.inserted, member.ID)
	r.broadcastLocked()
	return member.ID, nil
}

// Update applies a partial update
func (r *MemberRepository) Update(ctx context.Context, id primitive.ObjectID, patch *models.MemberPatch) error {
	r.mu.Lock()
	gate := r.hold
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	r.calls.Updates++
	if err := r.writeErrLocked(ctx); err != nil {
		r.mu.Unlock()
		return err
	}
	m, ok := r.members[id]
	if !ok {
		r.mu.Unlock()
		return repositories.ErrMemberNotFound
	}
	patch.Apply(m)
	r.broadcastLocked()
	after := r.after
	r.mu.Unlock()

	if after != nil {
		after()
	}
	return nil
}

// Delete removes a member
func (r *MemberRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls.Deletes++
	if err := r.writeErrLocked(ctx); err != nil {
		return err
	}
	if _, ok := r.members[id]; !ok {
		return repositories.ErrMemberNotFound
	}
	delete(r.members, id)
	for i, existing := range r.inserted {
		if existing == id {
			r.inserted = append(r.inserted[:i], r.inserted[i+1:]...)
			break
		}
	}
	r.broadcastLocked()
	return nil
}

func (r *MemberRepository) writeErrLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.writeErr
}

func (r *MemberRepository) broadcastLocked() {
	for s := range r.subs {
		s.offer(models.Snapshot{Members: r.snapshotLocked(s.order)})
	}
}

func (r *MemberRepository) snapshotLocked(order repositories.SortOrder) []*models.Member {
	out := make([]*models.Member, 0, len(r.inserted))
	for _, id := range r.inserted {
		out = append(out, r.members[id].Clone())
	}
	less := lessFunc(order)
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

// lessFunc mirrors MongoDB ordering closely enough for the fields the
// registry sorts on: missing values sort first in ascending order.
func lessFunc(order repositories.SortOrder) func(a, b *models.Member) bool {
	var cmp func(a, b *models.Member) int
	switch order.Field {
	case "batteryDueDate":
		cmp = func(a, b *models.Member) int { return compareInstants(a.BatteryDueDate.Valid(), b.BatteryDueDate.Valid(), a.BatteryDueDate.Unix(), b.BatteryDueDate.Unix()) }
	case "lastBatteryReplacementDate":
		cmp = func(a, b *models.Member) int {
			return compareInstants(a.LastBatteryReplacementDate.Valid(), b.LastBatteryReplacementDate.Valid(), a.LastBatteryReplacementDate.Unix(), b.LastBatteryReplacementDate.Unix())
		}
	case "name":
		cmp = func(a, b *models.Member) int { return strings.Compare(a.Name, b.Name) }
	default:
		return nil
	}
	return func(a, b *models.Member) bool {
		c := cmp(a, b)
		if !order.Ascending {
			c = -c
		}
		return c < 0
	}
}

func compareInstants(aValid, bValid bool, a, b int64) int {
	switch {
	case !aValid && !bValid:
		return 0
	case !aValid:
		return -1
	case !bValid:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
