package storage

import (
	"context"
	"errors"
	"fmt"
)

// FindUserByEmail はメールアドレスでユーザーを検索します。
// 見つからない場合は (nil, nil) を返します。
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var users []User
	err := s.db.WithContext(ctx).Where("email = ?", email).Order("id ASC").Limit(1).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// CreateUser はユーザーを作成します。Password はハッシュ済みである必要があります。
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("create user: user is nil")
	}
	if err := s.db.WithContext(ctx).Omit("Posts", "Comments").Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser は ID でユーザーを取得します。
func (s *Store) GetUser(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		err = translate(err)
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

// CountUsers はユーザー数を返します。
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
