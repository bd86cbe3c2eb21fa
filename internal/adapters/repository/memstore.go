package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/milepost/internal/domain/level"
	"github.com/okian/milepost/internal/domain/model"
)

// In-memory, versioned Store implementation.
//
// Every progress and profile document carries a version counter. A
// transaction records the versions it read; commit re-checks them under
// the write lock and applies all staged writes only if nothing moved.
// Otherwise the whole scope is retried with a fresh view, up to
// maxAttempts, after which RunTransaction returns ErrConflict.

// MemStore keeps all documents in process memory. Stations and profiles
// are provisioned through the Put methods (seeding is out-of-band);
// everything the engine writes goes through RunTransaction.
type MemStore struct {
	mu sync.RWMutex

	stations map[string]model.Station
	profiles map[string]model.Profile
	progress map[string]model.Progress
	history  map[string][]model.HistoryEntry

	// progressByTrainee indexes progress ids per trainee so the
	// eligibility sweep is one keyed lookup, not a scan per station.
	progressByTrainee map[string][]string

	progressVer map[string]uint64
	profileVer  map[string]uint64

	maxAttempts int
	clock       func() time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		stations:          make(map[string]model.Station),
		profiles:          make(map[string]model.Profile),
		progress:          make(map[string]model.Progress),
		history:           make(map[string][]model.HistoryEntry),
		progressByTrainee: make(map[string][]string),
		progressVer:       make(map[string]uint64),
		profileVer:        make(map[string]uint64),
		maxAttempts:       defaultMaxAttempts,
		clock:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutStation provisions or replaces a station document.
func (s *MemStore) PutStation(st model.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations[st.ID] = cloneStation(st)
}

// PutProfile provisions or replaces a user profile document.
func (s *MemStore) PutProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = cloneProfile(p)
	s.profileVer[p.ID]++
}

// PutProgress provisions or replaces a progress snapshot. Grading never
// creates snapshots; they must exist before the first grade lands.
func (s *MemStore) PutProgress(p model.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.progress[p.ID]; !exists {
		s.progressByTrainee[p.TraineeID] = append(s.progressByTrainee[p.TraineeID], p.ID)
	}
	s.progress[p.ID] = cloneProgress(p)
	s.progressVer[p.ID]++
}

// Station reads one station by id.
func (s *MemStore) Station(_ context.Context, id string) (model.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stations[id]
	if !ok {
		return model.Station{}, fmt.Errorf("station %q: %w", id, ErrNotFound)
	}
	return cloneStation(st), nil
}

// Stations returns all stations sorted by ascending order, ties broken by
// id for determinism.
func (s *MemStore) Stations(_ context.Context) ([]model.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Station, 0, len(s.stations))
	for _, st := range s.stations {
		out = append(out, cloneStation(st))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Profile reads one user profile by id.
func (s *MemStore) Profile(_ context.Context, id string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return model.Profile{}, fmt.Errorf("profile %q: %w", id, ErrNotFound)
	}
	return cloneProfile(p), nil
}

// Progress reads one snapshot by id.
func (s *MemStore) Progress(_ context.Context, id string) (model.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[id]
	if !ok {
		return model.Progress{}, fmt.Errorf("progress %q: %w", id, ErrNotFound)
	}
	return cloneProgress(p), nil
}

// TraineeProgress returns every snapshot owned by one trainee.
func (s *MemStore) TraineeProgress(_ context.Context, traineeID string) ([]model.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.progressByTrainee[traineeID]
	out := make([]model.Progress, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.progress[id]; ok {
			out = append(out, cloneProgress(p))
		}
	}
	return out, nil
}

// History returns a snapshot's entries ordered newest first.
func (s *MemStore) History(_ context.Context, progressID string) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[progressID]
	out := make([]model.HistoryEntry, len(entries))
	for i, e := range entries {
		// Stored oldest first; reverse for display order.
		out[len(entries)-1-i] = e
	}
	return out, nil
}

// RunTransaction executes fn with optimistic retries.
func (s *MemStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("transaction aborted: %w", err)
		}

		tx := &memTx{
			store:        s,
			now:          s.clock().UTC(),
			readProgress: make(map[string]uint64),
			readProfiles: make(map[string]uint64),
		}
		if err := fn(tx); err != nil {
			return err
		}
		if tx.commit() {
			return nil
		}
		lastErr = ErrConflict
	}
	return fmt.Errorf("gave up after %d attempts: %w", s.maxAttempts, lastErr)
}

// stagedPatch pairs a progress id with its pending partial update.
type stagedPatch struct {
	id    string
	patch ProgressPatch
}

// stagedAppend pairs a progress id with a pending history insert.
type stagedAppend struct {
	progressID string
	entry      model.HistoryEntry
}

// stagedFlags pairs a profile id with pending canEvaluate field updates.
type stagedFlags struct {
	profileID string
	flags     map[string]bool
}

type memTx struct {
	store *MemStore
	now   time.Time

	readProgress map[string]uint64
	readProfiles map[string]uint64

	patches []stagedPatch
	appends []stagedAppend
	flags   []stagedFlags
}

func (t *memTx) Progress(id string) (model.Progress, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	p, ok := t.store.progress[id]
	if !ok {
		return model.Progress{}, fmt.Errorf("progress %q: %w", id, ErrNotFound)
	}
	t.readProgress[id] = t.store.progressVer[id]
	return cloneProgress(p), nil
}

func (t *memTx) Profile(id string) (model.Profile, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	p, ok := t.store.profiles[id]
	if !ok {
		return model.Profile{}, fmt.Errorf("profile %q: %w", id, ErrNotFound)
	}
	t.readProfiles[id] = t.store.profileVer[id]
	return cloneProfile(p), nil
}

func (t *memTx) UpdateProgress(id string, patch ProgressPatch) {
	t.patches = append(t.patches, stagedPatch{id: id, patch: patch})
}

func (t *memTx) AppendHistory(progressID string, entry model.HistoryEntry) {
	t.appends = append(t.appends, stagedAppend{progressID: progressID, entry: entry})
}

func (t *memTx) SetEligibility(profileID string, flags map[string]bool) {
	copied := make(map[string]bool, len(flags))
	for k, v := range flags {
		copied[k] = v
	}
	t.flags = append(t.flags, stagedFlags{profileID: profileID, flags: copied})
}

func (t *memTx) ServerTime() time.Time {
	return t.now
}

// commit applies staged writes if every read document is unchanged.
// Returns false on version conflict so the caller can retry.
func (t *memTx) commit() bool {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ver := range t.readProgress {
		if s.progressVer[id] != ver {
			return false
		}
	}
	for id, ver := range t.readProfiles {
		if s.profileVer[id] != ver {
			return false
		}
	}

	for _, sp := range t.patches {
		p, ok := s.progress[sp.id]
		if !ok {
			continue
		}
		p.Level = sp.patch.Level
		p.Score = cloneScore(sp.patch.Score)
		p.LastEvaluatorID = sp.patch.LastEvaluatorID
		p.UpdatedAt = sp.patch.UpdatedAt
		// Increment against the committed value, never the read one.
		p.AttemptsCount += sp.patch.IncrementAttempts
		s.progress[sp.id] = p
		s.progressVer[sp.id]++
	}

	for _, sa := range t.appends {
		s.history[sa.progressID] = append(s.history[sa.progressID], sa.entry)
	}

	for _, sf := range t.flags {
		p, ok := s.profiles[sf.profileID]
		if !ok {
			continue
		}
		if p.CanEvaluate == nil {
			p.CanEvaluate = make(map[string]bool, len(sf.flags))
		} else {
			merged := make(map[string]bool, len(p.CanEvaluate)+len(sf.flags))
			for k, v := range p.CanEvaluate {
				merged[k] = v
			}
			p.CanEvaluate = merged
		}
		for k, v := range sf.flags {
			p.CanEvaluate[k] = v
		}
		s.profiles[sf.profileID] = p
		s.profileVer[sf.profileID]++
	}

	return true
}

func cloneScore(score *float64) *float64 {
	if score == nil {
		return nil
	}
	v := *score
	return &v
}

func cloneProgress(p model.Progress) model.Progress {
	p.Score = cloneScore(p.Score)
	return p
}

func cloneProfile(p model.Profile) model.Profile {
	if p.CanEvaluate != nil {
		flags := make(map[string]bool, len(p.CanEvaluate))
		for k, v := range p.CanEvaluate {
			flags[k] = v
		}
		p.CanEvaluate = flags
	}
	return p
}

func cloneStation(st model.Station) model.Station {
	if st.Categories == nil {
		return st
	}
	cats := make([]model.Category, len(st.Categories))
	copy(cats, st.Categories)
	for i, cat := range cats {
		if cat.Requirements != nil {
			reqs := make([]model.Requirement, len(cat.Requirements))
			copy(reqs, cat.Requirements)
			cats[i].Requirements = reqs
		}
		if cat.Rubric != nil {
			rub := make(map[level.Level]string, len(cat.Rubric))
			for k, v := range cat.Rubric {
				rub[k] = v
			}
			cats[i].Rubric = rub
		}
	}
	st.Categories = cats
	return st
}
