// Package storage はブログの永続化レイヤーを提供します。
//
// ローカルの SQLite ファイルに blog_posts / users / comments の3テーブルを保持します。
// 書き込みはすべて単一ステートメントで即時コミットされます。
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	// ErrNotFound は対象レコードが存在しない場合に返されます。
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicateTitle は同じタイトルの記事が既に存在する場合に返されます。
	ErrDuplicateTitle = errors.New("storage: post title already exists")
)

// Store は GORM 経由で SQLite にアクセスします。
type Store struct {
	db *gorm.DB
}

// Open は SQLite ファイル（または DSN）を開きます。logger が nil の場合は GORM のログを出しません。
func Open(dsn string, logger gormlogger.Interface) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("storage: database path is empty")
	}
	if logger == nil {
		logger = gormlogger.Discard
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger,
		TranslateError: true,
		// 記事削除時にコメントを残すため、外部キー制約は作成しない
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open %s: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage: failed to get sql.DB: %w", err)
	}
	// SQLite は書き込みの安全のため単一コネクションで使う
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

// Migrate はテーブルを作成・更新します。
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&User{}, &Post{}, &Comment{}); err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}

// Ping は接続を確認します。
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close はコネクションを閉じます。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
