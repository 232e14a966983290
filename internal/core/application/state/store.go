package state

import (
	"slices"
	"sync"

	"dispatch/internal/core/domain/model/business"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
)

// Fetch resources. Results of one resource are ordered by their fetch sequence.
const (
	ResourceBusinesses = "businesses"
	ResourceMyOrders   = "my-orders"
)

// BusinessOrdersResource returns the resource key of one business's available orders.
func BusinessOrdersResource(businessID string) string {
	return "orders:" + businessID
}

// Listener receives every committed change. Listeners run on the goroutine that
// made the change, after the store lock is released; concurrent changes may
// reach a listener out of order, so compare Snapshot.Version when it matters.
type Listener func(snap Snapshot, change Change)

// Store is the single owner of the dispatch client's shared state.
//
// Every mutation happens under one mutex and produces a new Snapshot version.
// Fetch results follow last-write-wins per resource: BeginFetch hands out a
// sequence number and Apply* drops a result when a newer fetch of the same
// resource has already been applied.
type Store struct {
	mu      sync.Mutex
	cur     Snapshot
	seq     uint64
	floor   uint64
	applied map[string]uint64
	stale   map[string]struct{}
	// taken holds ids of orders that left the market during this session
	taken map[string]struct{}
	// inflight survives Reset so a fetch started before it still releases its slot
	inflight map[string]struct{}

	listeners    map[uint64]Listener
	nextListener uint64
}

func NewStore() *Store {
	s := &Store{listeners: make(map[uint64]Listener), inflight: make(map[string]struct{})}
	s.resetLocked()
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers l and returns the func that removes it. Cancelling twice is harmless.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextListener++
	id := s.nextListener
	s.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}
}

// UnsubscribeAll removes every listener.
func (s *Store) UnsubscribeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.listeners)
}

// SetOnline switches the courier's availability. Going offline discards the
// position and any location error: the next session starts from a fresh fix.
func (s *Store) SetOnline(online bool) {
	s.update(func(cur *Snapshot) Change {
		if cur.Online == online {
			return 0
		}
		cur.Online = online
		change := ChangeOnline
		if !online {
			if cur.Position != nil {
				change |= ChangePosition
			}
			if cur.LocationErr != nil {
				change |= ChangeLocationError
			}
			cur.Position = nil
			cur.LocationErr = nil
		}
		return change
	})
}

// SetPosition replaces the position and clears any location error.
// Samples arriving while offline are dropped.
func (s *Store) SetPosition(p kernel.Position) bool {
	if p.Validate() != nil {
		return false
	}
	var accepted bool
	s.update(func(cur *Snapshot) Change {
		if !cur.Online {
			return 0
		}
		accepted = true
		change := ChangePosition
		if cur.LocationErr != nil {
			cur.LocationErr = nil
			change |= ChangeLocationError
		}
		cur.Position = &p
		return change
	})
	return accepted
}

// SetLocationError records a terminal location failure.
func (s *Store) SetLocationError(err error) {
	s.update(func(cur *Snapshot) Change {
		if err == nil && cur.LocationErr == nil {
			return 0
		}
		cur.LocationErr = err
		return ChangeLocationError
	})
}

// BeginFetch returns the sequence number of a new fetch of resource.
func (s *Store) BeginFetch(resource string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// TryBeginFetch starts a fetch of resource unless one is already running.
// The caller must call done once the fetch ended, whatever its result.
func (s *Store) TryBeginFetch(resource string) (seq uint64, done func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[resource]; busy {
		return 0, func() {}, false
	}
	s.inflight[resource] = struct{}{}
	s.seq++

	var once sync.Once
	return s.seq, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.inflight, resource)
		})
	}, true
}

// ApplyBusinesses stores the nearby businesses fetched with seq. Cached orders
// of businesses that are neither nearby nor selected are dropped.
// It reports whether the result was applied.
func (s *Store) ApplyBusinesses(seq uint64, list []*business.Business) bool {
	var applied bool
	s.update(func(cur *Snapshot) Change {
		if !s.acceptLocked(ResourceBusinesses, seq) {
			return 0
		}
		applied = true

		nearby := make(map[string]struct{}, len(list))
		businesses := make([]*business.Business, 0, len(list))
		for _, b := range list {
			if b.Validate() != nil {
				continue
			}
			if _, dup := nearby[b.ID()]; dup {
				continue
			}
			nearby[b.ID()] = struct{}{}
			businesses = append(businesses, b)
		}
		cur.Businesses = businesses

		for bizID := range cur.BusinessOrders {
			if _, ok := nearby[bizID]; !ok && bizID != cur.SelectedBusinessID {
				delete(cur.BusinessOrders, bizID)
				delete(s.stale, BusinessOrdersResource(bizID))
			}
		}
		s.clearStaleLocked(cur, ResourceBusinesses)
		return ChangeCatalog
	})
	return applied
}

// ApplyBusinessOrders stores the available orders of businessID fetched with
// seq. Orders that are not claimable or already left the market are filtered out.
func (s *Store) ApplyBusinessOrders(seq uint64, businessID string, list []*order.Order) bool {
	var applied bool
	s.update(func(cur *Snapshot) Change {
		if !s.acceptLocked(BusinessOrdersResource(businessID), seq) {
			return 0
		}
		applied = true

		orders := make([]*order.Order, 0, len(list))
		for _, o := range list {
			if o.Validate() != nil || !o.Status().IsClaimable() {
				continue
			}
			if _, gone := s.taken[o.ID()]; gone {
				continue
			}
			if cur.ActiveOrder != nil && cur.ActiveOrder.ID() == o.ID() {
				continue
			}
			orders = append(orders, o)
		}
		cur.BusinessOrders[businessID] = orders
		s.clearStaleLocked(cur, BusinessOrdersResource(businessID))
		return ChangeCatalog
	})
	return applied
}

// ApplyMyOrders reconciles the courier's held orders fetched with seq.
//
// The active order follows the server: it is refreshed when still held,
// cleared when it is gone or final, and adopted from the list when none is set.
func (s *Store) ApplyMyOrders(seq uint64, list []*order.Order) bool {
	var applied bool
	s.update(func(cur *Snapshot) Change {
		if !s.acceptLocked(ResourceMyOrders, seq) {
			return 0
		}
		applied = true

		held := make([]*order.Order, 0, len(list))
		for _, o := range list {
			if o.Validate() == nil && o.Status().IsHeldByCourier() {
				held = append(held, o)
			}
		}
		cur.MyOrders = held

		var next *order.Order
		if cur.ActiveOrder != nil {
			if i := slices.IndexFunc(held, cur.ActiveOrder.IsEqual); i >= 0 {
				next = held[i]
			}
		}
		if next == nil && len(held) > 0 {
			next = held[0]
		}
		cur.ActiveOrder = next

		change := ChangeClaim
		for _, o := range held {
			s.taken[o.ID()] = struct{}{}
			if s.removeOrderLocked(cur, o.ID()) {
				change |= ChangeCatalog
			}
		}
		s.clearStaleLocked(cur, ResourceMyOrders)
		return change
	})
	return applied
}

// FailFetch records a failed fetch. The cached data stays; the stale flag is
// raised unless a newer fetch of the same resource already succeeded.
func (s *Store) FailFetch(seq uint64, resource string) {
	s.update(func(cur *Snapshot) Change {
		if seq <= s.floor || seq < s.applied[resource] {
			return 0
		}
		if _, ok := s.stale[resource]; ok {
			return 0
		}
		s.stale[resource] = struct{}{}
		cur.CatalogStale = true
		return ChangeCatalog
	})
}

// SelectBusiness opens the claim panel of businessID.
func (s *Store) SelectBusiness(businessID string) {
	s.update(func(cur *Snapshot) Change {
		if cur.SelectedBusinessID == businessID {
			return 0
		}
		cur.SelectedBusinessID = businessID
		return ChangeSelection
	})
}

// ClearSelection closes the claim panel.
func (s *Store) ClearSelection() {
	s.SelectBusiness("")
}

// ShowOrderDetail opens the detail panel of orderID; an empty id closes it.
func (s *Store) ShowOrderDetail(orderID string) {
	s.update(func(cur *Snapshot) Change {
		if cur.DetailOrderID == orderID {
			return 0
		}
		cur.DetailOrderID = orderID
		return ChangeSelection
	})
}

// ApplyClaimSuccess makes granted the active order, removes it from every
// available list and closes the claim panel. My-orders fetches issued before
// the claim are dropped.
func (s *Store) ApplyClaimSuccess(granted *order.Order) {
	if granted.Validate() != nil {
		return
	}
	s.update(func(cur *Snapshot) Change {
		s.supersedeLocked(ResourceMyOrders)
		s.taken[granted.ID()] = struct{}{}
		cur.ActiveOrder = granted
		cur.MyOrders = upsert(cur.MyOrders, granted)

		change := ChangeClaim
		if s.removeOrderLocked(cur, granted.ID()) {
			change |= ChangeCatalog
		}
		if cur.SelectedBusinessID != "" || cur.DetailOrderID != "" {
			cur.SelectedBusinessID = ""
			cur.DetailOrderID = ""
			change |= ChangeSelection
		}
		return change
	})
}

// ApplyClaimConflict marks orderID as won by another courier and removes it
// from every available list. The active order is never touched.
//
// It returns the cached order moved to claimed-by-other, or nil when the order
// was not cached as available.
func (s *Store) ApplyClaimConflict(orderID string) *order.Order {
	var lost *order.Order
	s.update(func(cur *Snapshot) Change {
		s.taken[orderID] = struct{}{}
		if cached, ok := findAvailableLocked(cur, orderID); ok {
			next := cached.Clone()
			if next.MarkClaimedByOther() == nil {
				lost = next
			}
		}

		var change Change
		if s.removeOrderLocked(cur, orderID) {
			change |= ChangeCatalog
		}
		if cur.DetailOrderID == orderID {
			cur.DetailOrderID = ""
			change |= ChangeSelection
		}
		return change
	})
	return lost
}

// UpdateActiveOrder applies fn to a clone of the active order orderID and
// commits the clone when fn succeeds. An order that reaches a final status
// stops being active. My-orders fetches issued before the update are dropped.
func (s *Store) UpdateActiveOrder(orderID string, fn func(o *order.Order) error) (*order.Order, error) {
	var (
		result *order.Order
		err    error
	)
	s.update(func(cur *Snapshot) Change {
		if cur.ActiveOrder == nil || cur.ActiveOrder.ID() != orderID {
			err = errs.NewObjectNotFoundError("active order", orderID)
			return 0
		}
		next := cur.ActiveOrder.Clone()
		if err = fn(next); err != nil {
			return 0
		}
		result = next
		s.supersedeLocked(ResourceMyOrders)
		if next.Status().IsFinal() {
			cur.ActiveOrder = nil
			cur.MyOrders = slices.DeleteFunc(slices.Clone(cur.MyOrders), next.IsEqual)
		} else {
			cur.ActiveOrder = next
			cur.MyOrders = upsert(cur.MyOrders, next)
		}
		return ChangeClaim
	})
	return result, err
}

// Reset clears the state. Fetches issued before Reset are never applied.
func (s *Store) Reset() {
	s.update(func(cur *Snapshot) Change {
		version := cur.Version
		s.resetLocked()
		s.floor = s.seq
		s.cur.Version = version
		return ChangeReset
	})
}

func (s *Store) update(fn func(cur *Snapshot) Change) {
	s.mu.Lock()
	change := fn(&s.cur)
	if change == 0 {
		s.mu.Unlock()
		return
	}
	s.cur.Version++
	snap := s.snapshotLocked()

	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap, change)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := s.cur
	snap.BusinessOrders = make(map[string][]*order.Order, len(s.cur.BusinessOrders))
	for k, v := range s.cur.BusinessOrders {
		snap.BusinessOrders[k] = v
	}
	return snap
}

func (s *Store) resetLocked() {
	s.cur = Snapshot{BusinessOrders: make(map[string][]*order.Order)}
	s.applied = make(map[string]uint64)
	s.stale = make(map[string]struct{})
	s.taken = make(map[string]struct{})
}

func (s *Store) acceptLocked(resource string, seq uint64) bool {
	if seq <= s.floor || seq <= s.applied[resource] {
		return false
	}
	s.applied[resource] = seq
	return true
}

// supersedeLocked drops every fetch of resource issued so far. A local change
// newer than those fetches must not be overwritten by their results.
func (s *Store) supersedeLocked(resource string) {
	s.applied[resource] = s.seq
}

func (s *Store) clearStaleLocked(cur *Snapshot, resource string) {
	delete(s.stale, resource)
	cur.CatalogStale = len(s.stale) > 0
}

// removeOrderLocked drops orderID from every available list. Lists are
// rebuilt, never edited in place, because older snapshots share them.
func (s *Store) removeOrderLocked(cur *Snapshot, orderID string) bool {
	var removed bool
	for bizID, list := range cur.BusinessOrders {
		i := slices.IndexFunc(list, func(o *order.Order) bool { return o.ID() == orderID })
		if i < 0 {
			continue
		}
		cur.BusinessOrders[bizID] = slices.Delete(slices.Clone(list), i, i+1)
		removed = true
	}
	return removed
}

func findAvailableLocked(cur *Snapshot, orderID string) (*order.Order, bool) {
	for _, list := range cur.BusinessOrders {
		if i := slices.IndexFunc(list, func(o *order.Order) bool { return o.ID() == orderID }); i >= 0 {
			return list[i], true
		}
	}
	return nil, false
}

func upsert(list []*order.Order, o *order.Order) []*order.Order {
	out := slices.Clone(list)
	if i := slices.IndexFunc(out, o.IsEqual); i >= 0 {
		out[i] = o
		return out
	}
	return append(out, o)
}
