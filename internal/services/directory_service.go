package services

import (
	"context"
	"errors"
	"sync"

	"github.com/ArowuTest/bmd-member-registry/internal/models"
	"github.com/ArowuTest/bmd-member-registry/internal/repositories"
	"github.com/ArowuTest/bmd-member-registry/internal/utils"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Directory keeps the latest snapshot of the shared member collection and
// runs a settle cycle for every selected member whenever it changes.
type Directory struct {
	repo       repositories.MemberRepository
	reconciler *Reconciler
	logger     zerolog.Logger

	mu        sync.RWMutex
	members   []*models.Member
	loaded    bool
	subErr    error
	selected  map[string]int
	listeners map[chan struct{}]struct{}
	writeCtx  context.Context
}

// NewDirectory creates a new Directory
func NewDirectory(repo repositories.MemberRepository, reconciler *Reconciler, logger zerolog.Logger) *Directory {
	return &Directory{
		repo:       repo,
		reconciler: reconciler,
		logger:     logger,
		selected:   make(map[string]int),
		listeners:  make(map[chan struct{}]struct{}),
		writeCtx:   context.Background(),
	}
}

// Run consumes the live subscription until ctx ends. A subscription failure
// marks the directory loaded but stale, is recorded for display and ends Run;
// it is not retried.
func (d *Directory) Run(ctx context.Context) error {
	snapshots, release, err := d.repo.Subscribe(ctx, repositories.ByDueDate)
	if err != nil {
		return d.fail(err)
	}
	defer release()

	d.mu.Lock()
	d.writeCtx = ctx
	d.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snapshots:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return d.fail(errors.New("member subscription closed"))
			}
			if snap.Err != nil {
				return d.fail(snap.Err)
			}
			d.ApplySnapshot(snap.Members)
		}
	}
}

func (d *Directory) fail(err error) error {
	serr := &ServiceError{Kind: KindSubscription, Message: "member feed unavailable, showing last known data", Err: err}
	d.mu.Lock()
	d.loaded = true
	d.subErr = serr
	d.mu.Unlock()
	d.logger.Error().Err(err).Msg("member subscription failed")
	d.notify()
	return serr
}

// ApplySnapshot replaces the local view of the collection and settles every
// member currently selected by a session.
func (d *Directory) ApplySnapshot(members []*models.Member) {
	d.mu.Lock()
	present := make(map[primitive.ObjectID]struct{}, len(members))
	for _, m := range members {
		present[m.ID] = struct{}{}
	}
	for _, old := range d.members {
		if _, ok := present[old.ID]; !ok {
			d.reconciler.Forget(old.ID)
		}
	}
	d.members = members
	d.loaded = true
	targets := d.selectedMembersLocked()
	ctx := d.writeCtx
	d.mu.Unlock()

	for _, m := range targets {
		d.reconciler.Settle(ctx, m)
	}
	d.logger.Debug().Int("members", len(members)).Int("settled", len(targets)).Msg("snapshot applied")
	d.notify()
}

func (d *Directory) selectedMembersLocked() []*models.Member {
	var out []*models.Member
	seen := make(map[primitive.ObjectID]struct{})
	for _, m := range d.members {
		if d.selected[m.NormalizedName()] == 0 {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Select moves one session's selection from prev to next (raw names, either
// may be empty) and settles the newly selected member.
func (d *Directory) Select(prev, next string) {
	prevKey, nextKey := utils.NormalizeName(prev), utils.NormalizeName(next)
	if prevKey == nextKey {
		return
	}

	d.mu.Lock()
	if prevKey != "" {
		if d.selected[prevKey] <= 1 {
			delete(d.selected, prevKey)
		} else {
			d.selected[prevKey]--
		}
	}
	var target *models.Member
	if nextKey != "" {
		d.selected[nextKey]++
		target = d.findLocked(nextKey)
	}
	ctx := d.writeCtx
	d.mu.Unlock()

	if target != nil {
		d.reconciler.Settle(ctx, target)
	}
}

// Find returns the member whose normalized name equals name's, if any.
func (d *Directory) Find(name string) *models.Member {
	key := utils.NormalizeName(name)
	if key == "" {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.findLocked(key)
}

func (d *Directory) findLocked(key string) *models.Member {
	for _, m := range d.members {
		if m.NormalizedName() == key {
			return m
		}
	}
	return nil
}

// Partition splits the snapshot into the member matching name and everyone
// else with a non-empty name, keeping snapshot order.
func (d *Directory) Partition(name string) (current *models.Member, others []*models.Member) {
	key := utils.NormalizeName(name)
	d.mu.RLock()
	defer d.mu.RUnlock()
	others = make([]*models.Member, 0, len(d.members))
	for _, m := range d.members {
		n := m.NormalizedName()
		if n == "" {
			continue
		}
		if key != "" && n == key {
			if current == nil {
				current = m
			}
			continue
		}
		others = append(others, m)
	}
	return current, others
}

// Members returns the snapshot in due-date order.
func (d *Directory) Members() []*models.Member {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*models.Member, len(d.members))
	copy(out, d.members)
	return out
}

// Loaded reports whether a snapshot (or a subscription failure) has arrived.
func (d *Directory) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// SubscriptionError is the failure that left the directory stale, if any.
func (d *Directory) SubscriptionError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.subErr
}

// WriteError is the last automatic-update failure, if any.
func (d *Directory) WriteError() error {
	return d.reconciler.LastError()
}

// Listen returns a channel signalled after every directory change and a
// release func that must be called when the listener goes away.
func (d *Directory) Listen() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	d.mu.Lock()
	d.listeners[ch] = struct{}{}
	d.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners, ch)
			d.mu.Unlock()
		})
	}
}

func (d *Directory) notify() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for ch := range d.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
