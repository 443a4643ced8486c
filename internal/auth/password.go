package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

const (
	// DefaultHashIterations は PBKDF2 の既定反復回数です。
	DefaultHashIterations = 600000
	// DefaultSaltLength はソルト文字数の既定値です。
	DefaultSaltLength = 8

	saltChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// PasswordCodec はパスワードダイジェストの生成と検証を行います。
//
// 生成されるダイジェストは "pbkdf2:sha256:<反復回数>$<ソルト>$<16進ハッシュ>" 形式で、
// 既存の Python 製ブログが作成した users テーブルとそのまま互換です。
type PasswordCodec struct {
	Iterations int
	SaltLength int
}

// DefaultPasswordCodec は既定パラメータのコーデックです。
var DefaultPasswordCodec = PasswordCodec{Iterations: DefaultHashIterations, SaltLength: DefaultSaltLength}

// HashPassword は既定のコーデックでダイジェストを生成します。
func HashPassword(plaintext string) (string, error) {
	return DefaultPasswordCodec.Hash(plaintext)
}

// VerifyPassword は既定のコーデックでダイジェストを検証します。
func VerifyPassword(digest, plaintext string) bool {
	return DefaultPasswordCodec.Verify(digest, plaintext)
}

// Hash はランダムなソルト付きのダイジェストを生成します。
func (p PasswordCodec) Hash(plaintext string) (string, error) {
	iterations := p.Iterations
	if iterations <= 0 {
		iterations = DefaultHashIterations
	}
	saltLength := p.SaltLength
	if saltLength <= 0 {
		saltLength = DefaultSaltLength
	}

	salt, err := generateSalt(saltLength)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	sum := pbkdf2.Key([]byte(plaintext), []byte(salt), iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", iterations, salt, hex.EncodeToString(sum)), nil
}

// Verify はダイジェストに埋め込まれた方式とソルトで再計算し、一致するかを返します。
// 解釈できないダイジェストは常に false です。
func (p PasswordCodec) Verify(digest, plaintext string) bool {
	if isBcryptDigest(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
	}

	parts := strings.SplitN(digest, "$", 3)
	if len(parts) != 3 || parts[1] == "" {
		return false
	}
	method, salt, expectedHex := parts[0], parts[1], parts[2]

	expected, err := hex.DecodeString(expectedHex)
	if err != nil || len(expected) == 0 {
		return false
	}

	actual, ok := p.derive(method, plaintext, salt, len(expected))
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

func (p PasswordCodec) derive(method, plaintext, salt string, keyLen int) ([]byte, bool) {
	fields := strings.Split(method, ":")
	switch fields[0] {
	case "pbkdf2":
		if len(fields) < 2 || len(fields) > 3 {
			return nil, false
		}
		var newHash func() hash.Hash
		switch fields[1] {
		case "sha256":
			newHash = sha256.New
		case "sha512":
			newHash = sha512.New
		default:
			return nil, false
		}
		iterations := DefaultHashIterations
		if len(fields) == 3 {
			n, err := strconv.Atoi(fields[2])
			if err != nil || n <= 0 {
				return nil, false
			}
			iterations = n
		}
		return pbkdf2.Key([]byte(plaintext), []byte(salt), iterations, keyLen, newHash), true

	case "scrypt":
		n, r, par := 32768, 8, 1
		if len(fields) == 4 {
			var err error
			if n, err = strconv.Atoi(fields[1]); err != nil {
				return nil, false
			}
			if r, err = strconv.Atoi(fields[2]); err != nil {
				return nil, false
			}
			if par, err = strconv.Atoi(fields[3]); err != nil {
				return nil, false
			}
		} else if len(fields) != 1 {
			return nil, false
		}
		key, err := scrypt.Key([]byte(plaintext), []byte(salt), n, r, par, keyLen)
		if err != nil {
			return nil, false
		}
		return key, true

	default:
		return nil, false
	}
}

func isBcryptDigest(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

func generateSalt(length int) (string, error) {
	max := big.NewInt(int64(len(saltChars)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(saltChars[idx.Int64()])
	}
	return b.String(), nil
}
