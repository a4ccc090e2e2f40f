package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrInvalidSession indicates that a session cannot be stored.
var ErrInvalidSession = errors.New("session: invalid session")

// Record is the persisted form of the active session.
type Record struct {
	Username         string    `gorm:"column:username;primaryKey;size:190;not null"`
	AccessToken      string    `gorm:"column:access_token;type:text;not null"`
	ExpiresAtSeconds int64     `gorm:"column:expires_at_s;not null;default:0;index"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing stored sessions.
func (Record) TableName() string {
	return "sessions"
}

func (r Record) session() Session {
	current := Session{
		Username:    r.Username,
		AccessToken: r.AccessToken,
	}
	if r.ExpiresAtSeconds > 0 {
		current.ExpiresAt = time.Unix(r.ExpiresAtSeconds, 0).UTC()
	}
	return current
}

// StoreConfig describes the dependencies of the session store.
type StoreConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Store keeps the single logged-in session in SQLite so that the web frontend
// and the CLI share it.
type Store struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
}

// NewStore constructs the session store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("session: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:     cfg.Database,
		now:    clock,
		logger: logger,
	}, nil
}

// Save replaces the stored session with the provided one.
func (s *Store) Save(ctx context.Context, current Session) error {
	username := strings.TrimSpace(current.Username)
	if username == "" || strings.TrimSpace(current.AccessToken) == "" {
		return ErrInvalidSession
	}
	record := Record{
		Username:    username,
		AccessToken: current.AccessToken,
	}
	if !current.ExpiresAt.IsZero() {
		record.ExpiresAtSeconds = current.ExpiresAt.UTC().Unix()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Record{}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
}

// Current returns the stored session. Expired sessions are removed and
// reported as ErrNoSession.
func (s *Store) Current(ctx context.Context) (Session, error) {
	var record Record
	err := s.db.WithContext(ctx).Order("updated_at DESC").Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}

	current := record.session()
	if current.Expired(s.now()) {
		s.logger.Info("stored session expired", zap.String("username", current.Username))
		if err := s.db.WithContext(ctx).Delete(&Record{}, "username = ?", record.Username).Error; err != nil {
			s.logger.Warn("failed to remove expired session", zap.Error(err))
		}
		return Session{}, ErrNoSession
	}
	return current, nil
}

// Clear removes the stored session.
func (s *Store) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&Record{}).Error
}
