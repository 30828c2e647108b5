package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

// MemoryStore is a PlanStore kept in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[string]model.DailyPlan
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[string]model.DailyPlan)}
}

func (s *MemoryStore) CreatePlan(_ context.Context, plan model.DailyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFree(plan, ""); err != nil {
		return err
	}
	s.plans[plan.ID] = clonePlan(plan)
	return nil
}

// ReplacePlan swaps oldID for plan under a single lock.
func (s *MemoryStore) ReplacePlan(_ context.Context, oldID string, plan model.DailyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFree(plan, oldID); err != nil {
		return err
	}
	delete(s.plans, oldID)
	s.plans[plan.ID] = clonePlan(plan)
	return nil
}

// checkFree rejects plan when its id or user/day is taken by a plan other
// than ignore. Callers hold the lock.
func (s *MemoryStore) checkFree(plan model.DailyPlan, ignore string) error {
	if _, ok := s.plans[plan.ID]; ok && plan.ID != ignore {
		return fmt.Errorf("%w: id %s", ErrPlanExists, plan.ID)
	}
	for id, p := range s.plans {
		if id != ignore && p.UserID == plan.UserID && p.DateKey() == plan.DateKey() {
			return fmt.Errorf("%w: %s on %s", ErrPlanExists, plan.UserID, plan.DateKey())
		}
	}
	return nil
}

func (s *MemoryStore) GetPlan(_ context.Context, id string) (model.DailyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return model.DailyPlan{}, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return clonePlan(p), nil
}

func (s *MemoryStore) FindPlan(_ context.Context, userID string, date time.Time) (model.DailyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := date.Format(model.DateLayout)
	for _, p := range s.plans {
		if p.UserID == userID && p.DateKey() == key {
			return clonePlan(p), nil
		}
	}
	return model.DailyPlan{}, fmt.Errorf("plan for %s on %s: %w", userID, key, ErrNotFound)
}

func (s *MemoryStore) ListPlans(_ context.Context, f Filter) ([]model.DailyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.DailyPlan
	for _, p := range s.plans {
		if f.Match(p) {
			out = append(out, clonePlan(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) DeletePlan(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	delete(s.plans, id)
	return nil
}

func (s *MemoryStore) UpdatePlanStatus(_ context.Context, id string, status model.PlanStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	p.Status = status
	s.plans[id] = p
	return nil
}

func (s *MemoryStore) SaveBlocks(_ context.Context, planID string, blocks []model.TimeBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return fmt.Errorf("plan %s: %w", planID, ErrNotFound)
	}
	s.plans[planID] = upsertBlocks(p, blocks)
	return nil
}

func (s *MemoryStore) DeleteBlocks(_ context.Context, planID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return fmt.Errorf("plan %s: %w", planID, ErrNotFound)
	}
	s.plans[planID] = removeBlocks(p, ids)
	return nil
}

// ApplyDegradation writes a degradation under a single lock.
func (s *MemoryStore) ApplyDegradation(_ context.Context, planID string, deleted []string, blocks []model.TimeBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return fmt.Errorf("plan %s: %w", planID, ErrNotFound)
	}
	p = upsertBlocks(removeBlocks(p, deleted), blocks)
	p.Status = model.PlanDegraded
	s.plans[planID] = p
	return nil
}

func upsertBlocks(p model.DailyPlan, blocks []model.TimeBlock) model.DailyPlan {
	planID := p.ID
	idx := make(map[string]int, len(p.Blocks))
	for i, b := range p.Blocks {
		idx[b.ID] = i
	}
	for _, b := range blocks {
		b.PlanID = planID
		if i, ok := idx[b.ID]; ok {
			p.Blocks[i] = cloneBlock(b)
			continue
		}
		idx[b.ID] = len(p.Blocks)
		p.Blocks = append(p.Blocks, cloneBlock(b))
	}
	p.Blocks = model.BySequence(p.Blocks)
	return p
}

// removeBlocks drops ids from p, filtering its block slice in place.
func removeBlocks(p model.DailyPlan, ids []string) model.DailyPlan {
	if len(ids) == 0 {
		return p
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := p.Blocks[:0]
	for _, b := range p.Blocks {
		if !drop[b.ID] {
			kept = append(kept, b)
		}
	}
	p.Blocks = kept
	return p
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func clonePlan(p model.DailyPlan) model.DailyPlan {
	blocks := make([]model.TimeBlock, len(p.Blocks))
	for i, b := range p.Blocks {
		blocks[i] = cloneBlock(b)
	}
	p.Blocks = model.BySequence(blocks)
	if p.ExitTimes != nil {
		exits := make([]model.ExitTime, len(p.ExitTimes))
		copy(exits, p.ExitTimes)
		p.ExitTimes = exits
	}
	return p
}

func cloneBlock(b model.TimeBlock) model.TimeBlock {
	if b.Metadata != nil {
		md := *b.Metadata
		b.Metadata = &md
	}
	return b
}

var _ PlanStore = (*MemoryStore)(nil)
