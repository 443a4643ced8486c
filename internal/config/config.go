// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DevSessionSecret は debug モードで SESSION_SECRET 未設定時に使う署名鍵です。
// release モードでは使用されません。
const DevSessionSecret = "blog-forge-development-only-secret"

// メールプロバイダー名
const (
	MailProviderLog      = "log"
	MailProviderSendGrid = "sendgrid"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // HTTPサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)
	SiteURL string // 通知メール内のリンクに使う公開URL

	// セッション設定
	SessionSecret      string // セッションクッキー署名用の秘密鍵
	SessionMaxAgeHours int    // セッションクッキーの有効期間（時間）

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り、空ならCORS無効）

	// プロキシ設定
	TrustedProxyList string // X-Forwarded-For を信頼するプロキシの IP/CIDR（カンマ区切り、空なら信頼しない）

	// 永続化設定
	DatabasePath string // SQLiteファイルのパス

	// パスワード設定
	PasswordHashIterations int // pbkdf2 の反復回数

	// お問い合わせ
	ContactEmail string // mailto リンクの宛先

	// ログ設定
	LogLevel  string // panic, fatal, error, warn, info, debug, trace
	LogFormat string // text または json

	// ジョブ/キュー設定
	QueueRedisURL    string // Asynq用Redis接続URL（空ならコメント通知は無効）
	JobExpireMinutes int    // ジョブ記録の保持期間（分）

	// メール設定
	MailProvider   string // log または sendgrid
	MailFrom       string // 送信元アドレス
	SendGridAPIKey string // SendGrid APIキー
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	ginMode := getEnv("GIN_MODE", "debug")
	defaultLogFormat := "text"
	if ginMode == "release" {
		defaultLogFormat = "json"
	}

	config := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: ginMode,
		SiteURL: getEnv("SITE_URL", "http://localhost:8080"),

		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionMaxAgeHours: getEnvAsInt("SESSION_MAX_AGE_HOURS", 12),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		TrustedProxyList:   getEnv("TRUSTED_PROXIES", ""),

		DatabasePath: getEnv("DATABASE_PATH", "blog.db"),

		PasswordHashIterations: getEnvAsInt("PASSWORD_HASH_ITERATIONS", 600000),

		ContactEmail: getEnv("CONTACT_EMAIL", "oliulislam382@gmail.com"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", defaultLogFormat),

		QueueRedisURL:    getEnv("QUEUE_REDIS_URL", ""),
		JobExpireMinutes: getEnvAsInt("JOB_EXPIRE_MINUTES", 60),

		MailProvider:   strings.ToLower(getEnv("MAIL_PROVIDER", MailProviderLog)),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@localhost"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.SessionMaxAgeHours <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE_HOURS must be positive")
	}
	for _, proxy := range c.TrustedProxies() {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES contains invalid address %q", proxy)
		}
	}
	switch c.MailProvider {
	case MailProviderLog, MailProviderSendGrid:
	default:
		return fmt.Errorf("MAIL_PROVIDER must be log or sendgrid, got %q", c.MailProvider)
	}

	// ローカル開発では署名鍵は任意
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if c.MailProvider == MailProviderSendGrid && c.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required when MAIL_PROVIDER=sendgrid")
		}
	}

	return nil
}

// EffectiveSessionSecret はセッション署名に使う鍵を返します。
func (c *Config) EffectiveSessionSecret() string {
	if c.SessionSecret != "" {
		return c.SessionSecret
	}
	return DevSessionSecret
}

// NotificationsEnabled はコメント通知ジョブを動かすかどうかを返します。
func (c *Config) NotificationsEnabled() bool {
	return c.QueueRedisURL != ""
}

// AllowedOrigins は CORS_ALLOWED_ORIGINS を配列に変換します。
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// TrustedProxies は TRUSTED_PROXIES を配列に変換します。空ならクライアント IP は接続元アドレスになります。
func (c *Config) TrustedProxies() []string {
	return splitList(c.TrustedProxyList)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
