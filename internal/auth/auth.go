// Package auth issues and validates the JWT pair that identifies an
// anonymous browser session. There are no user accounts: creating a
// session mints a fresh session row and the tokens are scoped to it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chainlabs/questline/internal/models"
)

// Token kinds carried in the token_type claim.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken    = errors.New("auth: invalid token")
	ErrSessionInactive = errors.New("auth: session inactive")
)

// TokenPair is returned on session creation and refresh.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
}

// Manager mints sessions and signs/verifies their tokens.
type Manager struct {
	db         *gorm.DB
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger

	now func() time.Time
}

// NewManager creates a Manager. The signing secret is required; zero TTLs
// fall back to the defaults.
func NewManager(db *gorm.DB, secret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("auth: db is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("auth: signing secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		db:         db,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// CreateSession mints a new session row and its token pair.
func (m *Manager) CreateSession(userAgent, ipAddress string) (*models.Session, *TokenPair, error) {
	now := m.now().UTC()
	session := &models.Session{
		ID:           uuid.NewString(),
		UserAgent:    userAgent,
		IPAddress:    ipAddress,
		Phase:        models.PhaseNoGoal,
		IsActive:     true,
		LastActivity: now,
		CreatedAt:    now,
	}
	if err := m.db.Create(session).Error; err != nil {
		return nil, nil, fmt.Errorf("auth: create session: %w", err)
	}

	pair, err := m.issuePair(session.ID)
	if err != nil {
		return nil, nil, err
	}

	m.logger.Info("session created", zap.String("session_id", session.ID))
	return session, pair, nil
}

// Refresh validates a refresh token and issues a fresh pair for the same
// session. The session must still be active.
func (m *Manager) Refresh(refreshToken string) (*TokenPair, error) {
	sessionID, err := m.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if _, err := m.ActiveSession(sessionID); err != nil {
		return nil, err
	}
	return m.issuePair(sessionID)
}

// VerifyAccess validates an access token and returns its session ID.
func (m *Manager) VerifyAccess(token string) (string, error) {
	return m.parse(token, tokenTypeAccess)
}

// ActiveSession loads a session and verifies it has not been deactivated.
func (m *Manager) ActiveSession(sessionID string) (*models.Session, error) {
	var session models.Session
	err := m.db.First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionInactive
	}
	if err != nil {
		return nil, fmt.Errorf("auth: load session: %w", err)
	}
	if !session.IsActive {
		return nil, ErrSessionInactive
	}
	return &session, nil
}

// TouchActivity bumps the session's last-activity timestamp. Failures are
// logged only; activity tracking never blocks a request.
func (m *Manager) TouchActivity(sessionID string) {
	err := m.db.Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("last_activity", m.now().UTC()).Error
	if err != nil {
		m.logger.Warn("failed to update session activity",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

func (m *Manager) issuePair(sessionID string) (*TokenPair, error) {
	access, err := m.sign(sessionID, tokenTypeAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(sessionID, tokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		ExpiresIn:        int(m.accessTTL.Seconds()),
		RefreshToken:     refresh,
		RefreshExpiresIn: int(m.refreshTTL.Seconds()),
	}, nil
}

func (m *Manager) sign(sessionID, tokenType string, ttl time.Duration) (string, error) {
	now := m.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": sessionID,
		"token_type": tokenType,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(tokenString, wantType string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sessionID, _ := claims["session_id"].(string)
	tokenType, _ := claims["token_type"].(string)
	if sessionID == "" || tokenType != wantType {
		return "", ErrInvalidToken
	}
	return sessionID, nil
}
