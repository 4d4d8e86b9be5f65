package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chainlabs/questline/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Session{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(openTestDB(t), "test-secret", 0, 0, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestNewManager_RequiresSecret(t *testing.T) {
	if _, err := NewManager(openTestDB(t), "", 0, 0, nil); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestCreateSession(t *testing.T) {
	m := newTestManager(t)

	session, pair, err := m.CreateSession("Mozilla/5.0", "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.ID == "" || session.Phase != models.PhaseNoGoal || !session.IsActive {
		t.Errorf("session = %+v, want active NO_GOAL session with ID", session)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("token pair has empty tokens")
	}
	if pair.ExpiresIn != int(DefaultAccessTTL.Seconds()) {
		t.Errorf("ExpiresIn = %d, want %d", pair.ExpiresIn, int(DefaultAccessTTL.Seconds()))
	}

	// Access token round-trips to the session ID.
	got, err := m.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if got != session.ID {
		t.Errorf("VerifyAccess = %q, want %q", got, session.ID)
	}

	// Refresh token is not valid as an access token.
	if _, err := m.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyAccess(refresh) error = %v, want ErrInvalidToken", err)
	}
}

func TestRefresh(t *testing.T) {
	m := newTestManager(t)
	session, pair, err := m.CreateSession("", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	fresh, err := m.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got, err := m.VerifyAccess(fresh.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if got != session.ID {
		t.Errorf("refreshed token session = %q, want %q", got, session.ID)
	}

	// Access tokens cannot refresh.
	if _, err := m.Refresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Refresh(access) error = %v, want ErrInvalidToken", err)
	}
}

func TestRefresh_InactiveSession(t *testing.T) {
	m := newTestManager(t)
	session, pair, err := m.CreateSession("", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	m.db.Model(&models.Session{}).Where("id = ?", session.ID).Update("is_active", false)

	if _, err := m.Refresh(pair.RefreshToken); !errors.Is(err, ErrSessionInactive) {
		t.Errorf("Refresh error = %v, want ErrSessionInactive", err)
	}
}

func TestVerifyAccess_Expired(t *testing.T) {
	m := newTestManager(t)
	_, pair, err := m.CreateSession("", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(DefaultAccessTTL + time.Minute) }

	if _, err := m.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyAccess error = %v, want ErrInvalidToken for expired token", err)
	}
}

func TestVerifyAccess_WrongSecret(t *testing.T) {
	m := newTestManager(t)
	_, pair, err := m.CreateSession("", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	other, err := NewManager(m.db, "other-secret", 0, 0, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := other.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyAccess error = %v, want ErrInvalidToken", err)
	}
}

func middlewareRouter(m *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", Middleware(m), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"session_id": SessionID(c)})
	})
	return router
}

func TestMiddleware(t *testing.T) {
	m := newTestManager(t)
	session, pair, err := m.CreateSession("", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	router := middlewareRouter(m)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer " + pair.AccessToken, wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized},
		{name: "refresh token rejected", header: "Bearer " + pair.RefreshToken, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	// Activity is touched on authenticated requests.
	var got models.Session
	if err := m.db.First(&got, "id = ?", session.ID).Error; err != nil {
		t.Fatalf("load session: %v", err)
	}
	if got.LastActivity.IsZero() {
		t.Error("LastActivity not set")
	}
}

func TestMiddleware_InactiveSession(t *testing.T) {
	m := newTestManager(t)
	session, pair, err := m.CreateSession("", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	m.db.Model(&models.Session{}).Where("id = ?", session.ID).Update("is_active", false)

	router := middlewareRouter(m)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
