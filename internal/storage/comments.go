package storage

import (
	"context"
	"fmt"
)

// CreateComment はコメントを作成します。
func (s *Store) CreateComment(ctx context.Context, comment *Comment) error {
	if comment == nil {
		return fmt.Errorf("create comment: comment is nil")
	}
	if err := s.db.WithContext(ctx).Omit("Post", "Commentator").Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetComment はコメントを親記事（とその著者）・投稿者付きで取得します。
// 親記事が削除済みの場合、Post は nil のまま返ります。
func (s *Store) GetComment(ctx context.Context, id uint) (*Comment, error) {
	var comment Comment
	err := s.db.WithContext(ctx).
		Preload("Post").
		Preload("Post.Author").
		Preload("Commentator").
		First(&comment, id).Error
	if err != nil {
		return nil, fmt.Errorf("get comment %d: %w", id, translate(err))
	}
	return &comment, nil
}

// CountComments はコメント数を返します。
func (s *Store) CountComments(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Comment{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}
