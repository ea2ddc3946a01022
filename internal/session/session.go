package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/config"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/metrics"
)

const issuer = "cv-analysis"

type sessionKeyType struct{}

var sessionKey sessionKeyType

// Session identifies one browser. The results it displays are bound to its id server side.
type Session struct {
	ID string
}

func NewSessionContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	val := ctx.Value(sessionKey)
	if val == nil {
		return Session{}, false
	}
	return val.(Session), true
}

// MustHaveSession panics when the request did not go through the session middleware.
func MustHaveSession(ctx context.Context) Session {
	s, ok := SessionFromContext(ctx)
	if !ok {
		panic("session not found in context")
	}
	return s
}

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager keeps the session id in a signed cookie.
type Manager struct {
	secret     []byte
	cookieName string
	maxAge     time.Duration
	secure     bool
}

func NewManager(cfg config.Session, secure bool) (*Manager, error) {
	secret := []byte(cfg.SecretKey)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		zap.S().Named("session").Warn("no session secret configured, sessions will not survive a restart")
	}

	return &Manager{
		secret:     secret,
		cookieName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     secure,
	}, nil
}

// Middleware attaches the caller's session to the request context, minting a new one when the
// cookie is missing or invalid.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.fromRequest(r)
		if err != nil {
			s = Session{ID: uuid.NewString()}
			token, err := m.sign(s)
			if err != nil {
				zap.S().Named("session").Errorw("failed to sign session", "error", err)
				http.Error(w, "failed to create session", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, m.cookie(token))
		}

		metrics.UniqueSessionsPerWeek.Observe(s.ID)

		next.ServeHTTP(w, r.WithContext(NewSessionContext(r.Context(), s)))
	})
}

func (m *Manager) fromRequest(r *http.Request) (Session, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil {
		return Session{}, err
	}
	return m.parse(c.Value)
}

func (m *Manager) parse(token string) (Session, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())

	var c claims
	t, err := parser.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("failed to parse session token: %w", err)
	}
	if !t.Valid || c.SessionID == "" {
		return Session{}, errors.New("invalid session token")
	}

	return Session{ID: c.SessionID}, nil
}

func (m *Manager) sign(s Session) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: s.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	})
	return token.SignedString(m.secret)
}

func (m *Manager) cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
