package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"indibox/services"
)

const identityKey = "identity"

var errInvalidToken = errors.New("invalid session token")

// Claims is the session token issued by the auth provider.
type Claims struct {
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and puts the caller's identity
// on the request.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (a *Authenticator) Verify(raw string) (services.Identity, error) {
	claims := &Claims{}
	token, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return services.Identity{}, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return services.Identity{}, errInvalidToken
	}
	return services.Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Avatar,
		Role:      claims.Role,
	}, nil
}

// Issue signs a token for who. Tests and local tooling use it; production
// tokens come from the auth provider.
func (a *Authenticator) Issue(who services.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:  who.Email,
		Name:   who.Name,
		Avatar: who.AvatarURL,
		Role:   who.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   who.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Optional attaches the identity when a valid token is present and lets
// anonymous requests through.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := bearerToken(c); raw != "" {
			if who, err := a.Verify(raw); err == nil {
				c.Locals(identityKey, who)
			}
		}
		return c.Next()
	}
}

// Required rejects requests without a valid token.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			return services.ErrUnauthorized
		}
		who, err := a.Verify(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", services.ErrUnauthorized, err)
		}
		c.Locals(identityKey, who)
		return c.Next()
	}
}

// RequireAdmin must run after Required.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IdentityFrom(c).IsAdmin() {
			return services.ErrForbidden
		}
		return c.Next()
	}
}

// IdentityFrom returns the caller, or the zero Identity for anonymous requests.
func IdentityFrom(c *fiber.Ctx) services.Identity {
	who, _ := c.Locals(identityKey).(services.Identity)
	return who
}

// bearerToken reads the Authorization header. Requests asking for an event
// stream may pass the token as ?token= because EventSource cannot set headers.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if c.Query("progress") == "sse" {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}
