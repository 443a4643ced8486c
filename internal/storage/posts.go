package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ListPosts はすべての記事を ID 昇順で返します。著者は事前に読み込みます。
func (s *Store) ListPosts(ctx context.Context) ([]Post, error) {
	var posts []Post
	if err := s.db.WithContext(ctx).Preload("Author").Order("id ASC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPost は記事を著者・コメント付きで取得します。
func (s *Store) GetPost(ctx context.Context, id uint) (*Post, error) {
	var post Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Comments.Commentator").
		First(&post, id).Error
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, translate(err))
	}
	return &post, nil
}

// CreatePost は記事を作成します。タイトル重複時は ErrDuplicateTitle を返します。
func (s *Store) CreatePost(ctx context.Context, post *Post) error {
	if post == nil {
		return fmt.Errorf("create post: post is nil")
	}
	// 関連の Upsert を避ける
	if err := s.db.WithContext(ctx).Omit("Author", "Comments").Create(post).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTitle
		}
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// UpdatePost はタイトル・サブタイトル・画像URL・本文を更新します。
func (s *Store) UpdatePost(ctx context.Context, id uint, fields PostFields) (*Post, error) {
	var post Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, fmt.Errorf("update post %d: %w", id, translate(err))
	}

	err := s.db.WithContext(ctx).Model(&post).Updates(map[string]any{
		"title":    fields.Title,
		"subtitle": fields.Subtitle,
		"img_url":  fields.ImgURL,
		"body":     fields.Body,
	}).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTitle
		}
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}
	post.Title = fields.Title
	post.Subtitle = fields.Subtitle
	post.ImgURL = fields.ImgURL
	post.Body = fields.Body
	return &post, nil
}

// DeletePost は記事を削除します。コメントは削除しません。
func (s *Store) DeletePost(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&Post{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete post %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete post %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountPosts は記事数を返します。
func (s *Store) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Post{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}
