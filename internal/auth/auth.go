// Package auth manages local accounts: password checks, lockout and session tokens.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/store"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLocked             = errors.New("account is locked, try again later")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWrongPassword      = errors.New("invalid current password")
	ErrEmailMismatch      = errors.New("invalid email address")
	ErrEmptyPassword      = errors.New("password must not be empty")
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultMaxAttempts  = 5
	DefaultLockDuration = 30 * time.Minute
	DefaultTokenTTL     = 24 * time.Hour
)

const tempPasswordBytes = 8

// Options tunes lockout and token lifetime.
type Options struct {
	MaxAttempts  int
	LockDuration time.Duration
	TokenTTL     time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.LockDuration <= 0 {
		o.LockDuration = DefaultLockDuration
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = DefaultTokenTTL
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.DefaultCost
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Info is an account without its password hash.
type Info struct {
	Username       string
	Email          string
	CreatedAt      time.Time
	LastLogin      *time.Time
	FailedAttempts int
	LockedUntil    *time.Time
}

// Manager owns the account collection. Every mutation rewrites the whole map.
type Manager struct {
	store    *store.Store
	log      *zap.Logger
	opts     Options
	secret   []byte
	accounts model.Accounts
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// NewManager loads accounts from st and the signing key from secretPath,
// creating the key on first use.
func NewManager(st *store.Store, secretPath string, opts Options, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	secret, err := loadOrCreateSecret(secretPath)
	if err != nil {
		return nil, err
	}
	accounts := model.Accounts{}
	st.Load(store.Accounts, &accounts)
	if accounts == nil {
		accounts = model.Accounts{}
	}
	return &Manager{
		store:    st,
		log:      log,
		opts:     opts.withDefaults(),
		secret:   secret,
		accounts: accounts,
	}, nil
}

func loadOrCreateSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key != "" {
			return []byte(key), nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read secret key: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate secret key: %w", err)
	}
	key := hex.EncodeToString(buf)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create secret key dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(key), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write secret key: %w", err)
	}
	return []byte(key), nil
}

// Usernames lists the known accounts.
func (m *Manager) Usernames() []string {
	return m.accounts.Usernames()
}

// Create registers a new account.
func (m *Manager) Create(username, password, email string) error {
	if _, ok := m.accounts[username]; ok {
		return ErrUsernameTaken
	}
	hash, err := m.hash(password)
	if err != nil {
		return err
	}
	m.accounts[username] = model.Account{
		PasswordHash: hash,
		Email:        email,
		CreatedAt:    m.opts.Now(),
	}
	if err := m.save(); err != nil {
		delete(m.accounts, username)
		return err
	}
	m.log.Info("account created", zap.String("username", username))
	return nil
}

// Authenticate checks the password and returns a signed session token.
// Unknown users and bad passwords both yield ErrInvalidCredentials. The
// failure that reaches MaxAttempts locks the account and yields ErrLocked.
func (m *Manager) Authenticate(username, password string) (string, error) {
	acct, ok := m.accounts[username]
	if !ok {
		return "", ErrInvalidCredentials
	}
	prev := acct
	now := m.opts.Now()
	if acct.LockedUntil != nil {
		if acct.LockedUntil.After(now) {
			return "", ErrLocked
		}
		acct.LockedUntil = nil
		acct.FailedAttempts = 0
	}

	match, legacy := verify(acct.PasswordHash, password)
	if !match {
		acct.FailedAttempts++
		var result error = ErrInvalidCredentials
		if acct.FailedAttempts >= m.opts.MaxAttempts {
			until := now.Add(m.opts.LockDuration)
			acct.LockedUntil = &until
			result = ErrLocked
			m.log.Warn("account locked", zap.String("username", username), zap.Time("until", until))
		}
		m.accounts[username] = acct
		if err := m.save(); err != nil {
			m.accounts[username] = prev
			return "", err
		}
		return "", result
	}

	if legacy {
		hash, err := m.hash(password)
		if err != nil {
			return "", err
		}
		acct.PasswordHash = hash
		m.log.Info("upgraded legacy password hash", zap.String("username", username))
	}
	acct.FailedAttempts = 0
	acct.LastLogin = &now
	m.accounts[username] = acct
	if err := m.save(); err != nil {
		m.accounts[username] = prev
		return "", err
	}
	return m.issue(username, now)
}

func (m *Manager) issue(username string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.opts.TokenTTL)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken returns the username a token was issued for. Expired tokens,
// bad signatures and unknown usernames all yield ErrInvalidToken.
func (m *Manager) ValidateToken(tokenString string) (string, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.opts.Now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if _, ok := m.accounts[c.Username]; !ok {
		return "", ErrInvalidToken
	}
	return c.Username, nil
}

// ChangePassword replaces the password after checking the current one.
func (m *Manager) ChangePassword(username, oldPassword, newPassword string) error {
	acct, ok := m.accounts[username]
	if !ok {
		return ErrUserNotFound
	}
	if match, _ := verify(acct.PasswordHash, oldPassword); !match {
		return ErrWrongPassword
	}
	return m.setPassword(username, acct, newPassword)
}

// ResetPassword sets a random temporary password when email matches the
// account, and returns it.
func (m *Manager) ResetPassword(username, email string) (string, error) {
	acct, ok := m.accounts[username]
	if !ok {
		return "", ErrUserNotFound
	}
	if acct.Email != email {
		return "", ErrEmailMismatch
	}
	buf := make([]byte, tempPasswordBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	temp := base64.RawURLEncoding.EncodeToString(buf)
	if err := m.setPassword(username, acct, temp); err != nil {
		return "", err
	}
	return temp, nil
}

func (m *Manager) setPassword(username string, acct model.Account, password string) error {
	hash, err := m.hash(password)
	if err != nil {
		return err
	}
	prev := acct
	acct.PasswordHash = hash
	m.accounts[username] = acct
	if err := m.save(); err != nil {
		m.accounts[username] = prev
		return err
	}
	return nil
}

// UpdateEmail changes the address used for resets.
func (m *Manager) UpdateEmail(username, email string) error {
	acct, ok := m.accounts[username]
	if !ok {
		return ErrUserNotFound
	}
	prev := acct
	acct.Email = email
	m.accounts[username] = acct
	if err := m.save(); err != nil {
		m.accounts[username] = prev
		return err
	}
	return nil
}

// Delete removes an account.
func (m *Manager) Delete(username string) error {
	acct, ok := m.accounts[username]
	if !ok {
		return ErrUserNotFound
	}
	delete(m.accounts, username)
	if err := m.save(); err != nil {
		m.accounts[username] = acct
		return err
	}
	m.log.Info("account deleted", zap.String("username", username))
	return nil
}

// Info returns the account details without the password hash.
func (m *Manager) Info(username string) (Info, error) {
	acct, ok := m.accounts[username]
	if !ok {
		return Info{}, ErrUserNotFound
	}
	return Info{
		Username:       username,
		Email:          acct.Email,
		CreatedAt:      acct.CreatedAt,
		LastLogin:      acct.LastLogin,
		FailedAttempts: acct.FailedAttempts,
		LockedUntil:    acct.LockedUntil,
	}, nil
}

// Locked reports whether the account is currently locked.
func (m *Manager) Locked(username string) bool {
	acct, ok := m.accounts[username]
	return ok && acct.LockedUntil != nil && acct.LockedUntil.After(m.opts.Now())
}

func (m *Manager) hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.opts.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (m *Manager) save() error {
	if err := m.store.Save(store.Accounts, m.accounts); err != nil {
		m.log.Error("failed to save accounts", zap.Error(err))
		return err
	}
	return nil
}

// verify checks password against a bcrypt hash or a legacy unsalted SHA-256
// hex digest. legacy is true when the stored hash should be upgraded.
func verify(stored, password string) (match, legacy bool) {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, false
	}
	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])
	ok := subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(digest)) == 1
	return ok, ok
}
