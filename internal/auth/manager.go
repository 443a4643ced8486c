package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/blog-forge/internal/config"
	"github.com/yourusername/blog-forge/internal/storage"
)

const (
	// SessionCookieName はセッションクッキーの名前です。
	SessionCookieName = "blog_session"
	// CSRFFieldName はフォームに埋め込む CSRF トークンのフィールド名です。
	CSRFFieldName = "csrf_token"
	// CSRFHeader は CSRF トークンを受け付けるヘッダー名です。
	CSRFHeader = "X-CSRF-Token"

	sessionKeyUserID = "user_id"
	sessionKeyCSRF   = "csrf_token"
)

var (
	loginWindow      = 15 * time.Minute
	lockDuration     = 10 * time.Minute
	maxLoginAttempts = 5
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// ErrLocked はログイン試行回数の上限に達した IP からの試行で返されます。
var ErrLocked = errors.New("auth: too many failed login attempts")

// UserStore は認証に必要なユーザー参照です。
type UserStore interface {
	GetUser(ctx context.Context, id uint) (*storage.User, error)
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	cfg    *config.Config
	users  UserStore
	logger logrus.FieldLogger
	codec  PasswordCodec

	lock     sync.Mutex
	attempts map[string]*attemptState
	now      func() time.Time
}

// NewManager は認証マネージャーを作成します。
func NewManager(cfg *config.Config, users UserStore, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		cfg:      cfg,
		users:    users,
		logger:   logger,
		codec:    PasswordCodec{Iterations: cfg.PasswordHashIterations, SaltLength: DefaultSaltLength},
		attempts: make(map[string]*attemptState),
		now:      time.Now,
	}
}

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func (m *Manager) SessionMaxAgeSeconds() int {
	return int((time.Duration(m.cfg.SessionMaxAgeHours) * time.Hour).Seconds())
}

// HashPassword は設定された反復回数でダイジェストを生成します。
func (m *Manager) HashPassword(plaintext string) (string, error) {
	return m.codec.Hash(plaintext)
}

// VerifyPassword はダイジェストと平文を照合します。
func (m *Manager) VerifyPassword(digest, plaintext string) bool {
	return m.codec.Verify(digest, plaintext)
}

// LogIn はユーザーをセッションに紐付け、CSRF トークンを更新して保存します。
func (m *Manager) LogIn(c *gin.Context, user *storage.User) error {
	if user == nil {
		return errors.New("auth: cannot log in nil user")
	}

	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("auth: generate csrf token: %w", err)
	}

	session := sessions.Default(c)
	session.Set(sessionKeyUserID, user.ID)
	session.Set(sessionKeyCSRF, token)
	if err := session.Save(); err != nil {
		return fmt.Errorf("auth: save session: %w", err)
	}

	c.Set(ContextUserKey, user)
	m.logger.WithField("userId", user.ID).Info("user logged in")
	return nil
}

// LogOut はセッションを丸ごと破棄します。
func (m *Manager) LogOut(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		return fmt.Errorf("auth: clear session: %w", err)
	}
	c.Set(ContextUserKey, (*storage.User)(nil))
	return nil
}

// CurrentUser はリクエストに紐付いたユーザーを返します。匿名の場合は nil です。
func CurrentUser(c *gin.Context) *storage.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*storage.User)
	return user
}

// CSRFToken はセッションの CSRF トークンを返します。未発行なら発行しますが、
// セッションの保存は呼び出し側で行ってください。
func CSRFToken(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if token, ok := session.Get(sessionKeyCSRF).(string); ok && token != "" {
		return token, nil
	}
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	session.Set(sessionKeyCSRF, token)
	return token, nil
}

// CheckLock は IP がロック中なら ErrLocked と残り時間を返します。
func (m *Manager) CheckLock(ip string) (time.Duration, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	state, ok := m.attempts[ip]
	if !ok {
		return 0, nil
	}
	now := m.now()
	if !now.Before(state.lockedUntil) {
		return 0, nil
	}
	return state.lockedUntil.Sub(now), ErrLocked
}

// RecordFailure はログイン失敗を記録し、ロックまでの残り回数を返します。
func (m *Manager) RecordFailure(ip string) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.now()
	m.pruneAttempts(now)
	state, ok := m.attempts[ip]
	if !ok || state.expired(now) {
		state = &attemptState{firstAttempt: now}
		m.attempts[ip] = state
	}

	state.count++
	if state.count >= maxLoginAttempts {
		state.lockedUntil = now.Add(lockDuration)
		state.count = maxLoginAttempts
		m.logger.WithField("clientIp", ip).Warn("login locked after repeated failures")
	}

	remaining := maxLoginAttempts - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// pruneAttempts は期間もロックも終わった記録を消去します。m.lock を保持して呼び出します。
func (m *Manager) pruneAttempts(now time.Time) {
	for ip, state := range m.attempts {
		if state.expired(now) {
			delete(m.attempts, ip)
		}
	}
}

// expired はロックが明けたか、ロックされないまま集計期間を過ぎたかを返します。
// ロック明けの失敗は新しい集計期間として数え直します。
func (s *attemptState) expired(now time.Time) bool {
	if !s.lockedUntil.IsZero() {
		return !now.Before(s.lockedUntil)
	}
	return now.Sub(s.firstAttempt) > loginWindow
}

// ResetAttempts はログイン成功時に失敗回数を消去します。
func (m *Manager) ResetAttempts(ip string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.attempts, ip)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func readUserID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case uint:
		return id, id > 0
	case uint64:
		return uint(id), id > 0
	case int:
		return uint(id), id > 0
	case int64:
		return uint(id), id > 0
	case float64:
		return uint(id), id > 0
	default:
		return 0, false
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
