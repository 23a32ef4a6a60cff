// Package auth verifies login credentials and issues session tokens.
package auth

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leengari/flatsql/internal/storage/userstore"
)

// DefaultCaptcha is the challenge text presented when none is configured
const DefaultCaptcha = "cJa3Ar4ERa"

// Provider decides whether a login attempt succeeds
type Provider interface {
	Verify(userID, password, captcha string) bool
}

// CaptchaService hands out a challenge and checks the answer
type CaptchaService struct {
	challenge string
}

func NewCaptchaService(challenge string) *CaptchaService {
	if challenge == "" {
		challenge = DefaultCaptcha
	}
	return &CaptchaService{challenge: challenge}
}

// Challenge returns the text the user must type back
func (c *CaptchaService) Challenge() string {
	return c.challenge
}

// Check compares an answer with the challenge, case-sensitively
func (c *CaptchaService) Check(answer string) bool {
	answer = strings.TrimSpace(answer)
	return subtle.ConstantTimeCompare([]byte(answer), []byte(c.challenge)) == 1
}

// Authenticator checks user id and password against the user registry and
// the captcha answer against the captcha service. All three must pass.
type Authenticator struct {
	users   *userstore.Store
	captcha *CaptchaService
}

func NewAuthenticator(users *userstore.Store, captcha *CaptchaService) *Authenticator {
	if captcha == nil {
		captcha = NewCaptchaService("")
	}
	return &Authenticator{users: users, captcha: captcha}
}

// Captcha returns the captcha service used by the authenticator
func (a *Authenticator) Captcha() *CaptchaService {
	return a.captcha
}

// Verify implements Provider
func (a *Authenticator) Verify(userID, password, captcha string) bool {
	if !a.captcha.Check(captcha) {
		slog.Warn("login rejected", slog.String("user_id", userID), slog.String("reason", "captcha"))
		return false
	}
	if !a.users.Authenticate(userID, password) {
		slog.Warn("login rejected", slog.String("user_id", userID), slog.String("reason", "credentials"))
		return false
	}
	return true
}

// Login verifies the credentials and returns the matching user
func (a *Authenticator) Login(userID, password, captcha string) (*userstore.User, bool) {
	if !a.Verify(userID, password, captcha) {
		return nil, false
	}
	u, err := a.users.ByID(userID)
	if err != nil {
		return nil, false
	}
	slog.Info("login", slog.Int("user_id", u.ID), slog.String("by", u.Username))
	return u, true
}

// Resolve maps validated token claims back to a registered user. The token is
// refused once its user is dropped or the id belongs to someone else.
func (a *Authenticator) Resolve(claims *Claims) (*userstore.User, error) {
	u, err := a.users.ByID(claims.Subject)
	if err != nil {
		slog.Warn("token rejected", slog.String("user_id", claims.Subject), slog.String("reason", "unknown user"))
		return nil, fmt.Errorf("token no longer valid: user %q does not exist", claims.Name)
	}
	if !strings.EqualFold(u.Username, claims.Name) {
		slog.Warn("token rejected", slog.String("user_id", claims.Subject), slog.String("reason", "name mismatch"))
		return nil, fmt.Errorf("token no longer valid: user %q does not exist", claims.Name)
	}
	return u, nil
}
