// Durable infraction history, kept in an external relational store.
//
// The moderation core treats this store as best-effort: when it is
// unreachable the in-memory offense ledger still drives recommendations and
// the failure is logged, never surfaced to the user-visible flow.
package infractions

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Infraction struct {
	gorm.Model
	UserID         string `gorm:"index"`
	UserName       string
	Type           string
	Reason         string
	MessageContent string
	ChannelID      string
	MessageID      string
	GuildID        string `gorm:"index"`
	// who or what detected the infraction: a report provenance or a
	// classifier method name
	DetectedBy string
	Confidence float64
	Category   string
	OccurredAt time.Time
}

type Store interface {
	AddInfraction(ctx context.Context, inf *Infraction) error
	// number of recorded infractions for the user, scoped to a guild; an
	// empty guild id counts across all guilds
	CountForUser(ctx context.Context, userID, guildID string) (int, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Infraction{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) AddInfraction(ctx context.Context, inf *Infraction) error {
	if inf.OccurredAt.IsZero() {
		inf.OccurredAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(inf).Error
}

func (s *GormStore) CountForUser(ctx context.Context, userID, guildID string) (int, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&Infraction{}).Where("user_id = ?", userID)
	if guildID != "" {
		q = q.Where("guild_id = ?", guildID)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// Store used when no database is configured; records nothing.
type DisabledStore struct{}

func (DisabledStore) AddInfraction(ctx context.Context, inf *Infraction) error {
	return nil
}

func (DisabledStore) CountForUser(ctx context.Context, userID, guildID string) (int, error) {
	return 0, nil
}
