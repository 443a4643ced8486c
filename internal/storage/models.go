package storage

// Post はブログ記事です。テーブル名・カラム名は既存の blog.db と互換です。
type Post struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID uint      `gorm:"column:author_id" json:"authorId"`
	Author   *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title    string    `gorm:"type:varchar(250);uniqueIndex;not null" json:"title"`
	Subtitle string    `gorm:"type:varchar(250);not null" json:"subtitle"`
	Date     string    `gorm:"type:varchar(250);not null" json:"date"`
	Body     string    `gorm:"type:text;not null" json:"body"`
	ImgURL   string    `gorm:"column:img_url;type:varchar(250);not null" json:"imgUrl"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"comments,omitempty"`
}

// TableName は GORM が使うテーブル名を返します。
func (Post) TableName() string { return "blog_posts" }

// User は登録ユーザーです。Password には平文ではなくダイジェストを保存します。
type User struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email    string    `gorm:"type:varchar(250);not null;index" json:"email"`
	Password string    `gorm:"type:varchar(250);not null" json:"-"`
	Name     string    `gorm:"type:varchar(250);not null" json:"name"`
	Posts    []Post    `gorm:"foreignKey:AuthorID" json:"-"`
	Comments []Comment `gorm:"foreignKey:CommentatorID" json:"-"`
}

// TableName は GORM が使うテーブル名を返します。
func (User) TableName() string { return "users" }

// Comment は記事へのコメントです。
// 親記事が削除されても行は残るため、Post は nil になり得ます。
type Comment struct {
	ID            uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID        uint   `gorm:"column:post_id" json:"postId"`
	Post          *Post  `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CommentatorID uint   `gorm:"column:commentator_id" json:"commentatorId"`
	Commentator   *User  `gorm:"foreignKey:CommentatorID" json:"commentator,omitempty"`
	Text          string `gorm:"type:text;not null" json:"text"`
}

// TableName は GORM が使うテーブル名を返します。
func (Comment) TableName() string { return "comments" }

// PostFields は記事編集で変更可能な項目です。
type PostFields struct {
	Title    string
	Subtitle string
	ImgURL   string
	Body     string
}
