package casestore

import (
	"context"
	"fmt"
	"sync"
)

type MemCaseStore struct {
	lk      sync.RWMutex
	cases   map[string]*Case
	aliases map[string]string
	// content message id -> open case id
	byContent map[string]string
}

func NewMemCaseStore() *MemCaseStore {
	return &MemCaseStore{
		cases:     make(map[string]*Case),
		aliases:   make(map[string]string),
		byContent: make(map[string]string),
	}
}

func (s *MemCaseStore) OpenCase(ctx context.Context, c *Case) error {
	if c.ID == "" {
		return fmt.Errorf("case requires an identifier")
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	if _, ok := s.cases[c.ID]; ok {
		return fmt.Errorf("case identifier already registered: %s", c.ID)
	}
	cpy := *c
	if cpy.ReportCount < 1 {
		cpy.ReportCount = 1
	}
	if cpy.Status == "" {
		cpy.Status = StatusOpen
	}
	s.cases[c.ID] = &cpy
	s.byContent[cpy.Content.Ref.MessageID] = c.ID
	return nil
}

func (s *MemCaseStore) resolve(caseID string) (*Case, bool) {
	if canonical, ok := s.aliases[caseID]; ok {
		caseID = canonical
	}
	c, ok := s.cases[caseID]
	return c, ok
}

func (s *MemCaseStore) Lookup(ctx context.Context, caseID string) (*Case, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	c, ok := s.resolve(caseID)
	if !ok {
		return nil, nil
	}
	cpy := *c
	return &cpy, nil
}

func (s *MemCaseStore) AddAlias(ctx context.Context, aliasID, caseID string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if _, ok := s.cases[caseID]; !ok {
		return ErrNotFound
	}
	s.aliases[aliasID] = caseID
	return nil
}

func (s *MemCaseStore) OpenCaseForContent(ctx context.Context, contentMessageID string) (*Case, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	caseID, ok := s.byContent[contentMessageID]
	if !ok {
		return nil, nil
	}
	c, ok := s.cases[caseID]
	if !ok || c.Status != StatusOpen {
		return nil, nil
	}
	cpy := *c
	return &cpy, nil
}

func (s *MemCaseStore) IncrementReportCount(ctx context.Context, caseID string) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	c, ok := s.resolve(caseID)
	if !ok {
		return 0, ErrNotFound
	}
	c.ReportCount++
	return c.ReportCount, nil
}

func (s *MemCaseStore) SetStatus(ctx context.Context, caseID string, status CaseStatus) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	c, ok := s.resolve(caseID)
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	if status != StatusOpen {
		// terminal states are recorded, not erased; only the open-case
		// content index entry is released
		if s.byContent[c.Content.Ref.MessageID] == c.ID {
			delete(s.byContent, c.Content.Ref.MessageID)
		}
	}
	return nil
}

func (s *MemCaseStore) SetEscalation(ctx context.Context, caseID, level, actor string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	c, ok := s.resolve(caseID)
	if !ok {
		return ErrNotFound
	}
	c.Escalation = level
	c.EscalatedBy = actor
	return nil
}
