package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid download token")
	ErrTokenExpired = errors.New("download token expired")
)

// SignedFile is the content of a verified download token.
type SignedFile struct {
	Subject   string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC-signed download tokens for stored files.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting access to path on behalf of subject.
func (s *SignedURLSigner) Sign(subject, path string) (string, time.Time, error) {
	if subject == "" || path == "" {
		return "", time.Time{}, fmt.Errorf("subject and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	parts := []string{
		encode(subject),
		strconv.FormatInt(expiresAt.Unix(), 10),
		encode(path),
	}
	parts = append(parts, s.signature(parts))
	return strings.Join(parts, "."), expiresAt, nil
}

// Verify checks signature and expiry and returns the signed file.
func (s *SignedURLSigner) Verify(token string) (*SignedFile, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return nil, ErrInvalidToken
	}
	if !hmac.Equal([]byte(s.signature(parts[:3])), []byte(parts[3])) {
		return nil, ErrInvalidToken
	}
	subject, err := decode(parts[0])
	if err != nil {
		return nil, ErrInvalidToken
	}
	path, err := decode(parts[2])
	if err != nil {
		return nil, ErrInvalidToken
	}
	unix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	expiresAt := time.Unix(unix, 0)
	if s.now().After(expiresAt) {
		return nil, ErrTokenExpired
	}
	return &SignedFile{Subject: subject, Path: path, ExpiresAt: expiresAt}, nil
}

func (s *SignedURLSigner) signature(parts []string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

func encode(v string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(v))
}

func decode(v string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
