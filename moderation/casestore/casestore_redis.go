package casestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	redisCasePrefix    string = "case/"
	redisAliasPrefix   string = "casealias/"
	redisContentPrefix string = "casecontent/"
)

type RedisCaseStore struct {
	Client *redis.Client
}

func NewRedisCaseStore(redisURL string) (*RedisCaseStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	rcs := RedisCaseStore{
		Client: rdb,
	}
	return &rcs, nil
}

func (s *RedisCaseStore) OpenCase(ctx context.Context, c *Case) error {
	if c.ID == "" {
		return fmt.Errorf("case requires an identifier")
	}
	cpy := *c
	if cpy.ReportCount < 1 {
		cpy.ReportCount = 1
	}
	if cpy.Status == "" {
		cpy.Status = StatusOpen
	}
	b, err := json.Marshal(&cpy)
	if err != nil {
		return fmt.Errorf("encoding case record: %w", err)
	}
	ok, err := s.Client.SetNX(ctx, redisCasePrefix+c.ID, b, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("case identifier already registered: %s", c.ID)
	}
	return s.Client.Set(ctx, redisContentPrefix+cpy.Content.Ref.MessageID, c.ID, 0).Err()
}

// resolves aliases and fetches the canonical case record
func (s *RedisCaseStore) fetch(ctx context.Context, caseID string) (string, *Case, error) {
	canonical, err := s.Client.Get(ctx, redisAliasPrefix+caseID).Result()
	if err == nil {
		caseID = canonical
	} else if err != redis.Nil {
		return "", nil, err
	}
	raw, err := s.Client.Get(ctx, redisCasePrefix+caseID).Bytes()
	if err == redis.Nil {
		return caseID, nil, nil
	} else if err != nil {
		return caseID, nil, err
	}
	var c Case
	if err := json.Unmarshal(raw, &c); err != nil {
		return caseID, nil, fmt.Errorf("decoding case record: %w", err)
	}
	return caseID, &c, nil
}

func (s *RedisCaseStore) store(ctx context.Context, c *Case) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding case record: %w", err)
	}
	return s.Client.Set(ctx, redisCasePrefix+c.ID, b, 0).Err()
}

func (s *RedisCaseStore) Lookup(ctx context.Context, caseID string) (*Case, error) {
	_, c, err := s.fetch(ctx, caseID)
	return c, err
}

func (s *RedisCaseStore) AddAlias(ctx context.Context, aliasID, caseID string) error {
	exists, err := s.Client.Exists(ctx, redisCasePrefix+caseID).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.Client.Set(ctx, redisAliasPrefix+aliasID, caseID, 0).Err()
}

func (s *RedisCaseStore) OpenCaseForContent(ctx context.Context, contentMessageID string) (*Case, error) {
	caseID, err := s.Client.Get(ctx, redisContentPrefix+contentMessageID).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	_, c, err := s.fetch(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Status != StatusOpen {
		return nil, nil
	}
	return c, nil
}

func (s *RedisCaseStore) IncrementReportCount(ctx context.Context, caseID string) (int, error) {
	id, c, err := s.fetch(ctx, caseID)
	if err != nil {
		return 0, err
	}
	if c == nil {
		return 0, ErrNotFound
	}
	c.ID = id
	c.ReportCount++
	if err := s.store(ctx, c); err != nil {
		return 0, err
	}
	return c.ReportCount, nil
}

func (s *RedisCaseStore) SetStatus(ctx context.Context, caseID string, status CaseStatus) error {
	id, c, err := s.fetch(ctx, caseID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNotFound
	}
	c.ID = id
	c.Status = status
	if err := s.store(ctx, c); err != nil {
		return err
	}
	if status != StatusOpen {
		cur, err := s.Client.Get(ctx, redisContentPrefix+c.Content.Ref.MessageID).Result()
		if err == nil && cur == c.ID {
			return s.Client.Del(ctx, redisContentPrefix+c.Content.Ref.MessageID).Err()
		} else if err != nil && err != redis.Nil {
			return err
		}
	}
	return nil
}

func (s *RedisCaseStore) SetEscalation(ctx context.Context, caseID, level, actor string) error {
	id, c, err := s.fetch(ctx, caseID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNotFound
	}
	c.ID = id
	c.Escalation = level
	c.EscalatedBy = actor
	return s.store(ctx, c)
}
