package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalContextKey = "resortops.principal"

const (
	PermReadReservations   = "read:reservations"
	PermManageReservations = "manage:reservations"
	PermManageBilling      = "manage:billing"
	PermManageSettings     = "manage:settings"
)

// AllPermissions is granted to the principal of an open (unauthenticated) server.
var AllPermissions = []string{PermReadReservations, PermManageReservations, PermManageBilling, PermManageSettings}

type principal struct {
	ID          string
	Name        string
	Permissions []string
}

func (p principal) Can(permission string) bool {
	for _, perm := range p.Permissions {
		if perm == permission || perm == "*" {
			return true
		}
	}
	return false
}

// Claims is the bearer token payload issued to staff members.
type Claims struct {
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// AuthMiddleware resolves the bearer token into a principal. Requests without
// a valid token continue anonymously; routes decide whether that is enough.
type AuthMiddleware struct {
	Secret []byte
	// Open grants every request a staff principal; used only outside production
	// when no secret is configured.
	Open   bool
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	if m.Open {
		setPrincipal(c, principal{ID: "local-staff", Name: "Local staff", Permissions: AllPermissions})
		c.Next()
		return
	}
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || len(m.Secret) == 0 {
		c.Next()
		return
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired())
	if err != nil {
		if m.Logger != nil && !errors.Is(err, jwt.ErrTokenExpired) {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{ID: claims.Subject, Name: claims.Name, Permissions: claims.Permissions})
	c.Next()
}

// IssueToken signs a staff token; used by tooling and tests.
func IssueToken(secret []byte, subject, name string, permissions []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:        name,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requirePermission(c *gin.Context, permission string) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Status: "fail", Message: "authentication required"})
		return principal{}, false
	}
	if permission != "" && !p.Can(permission) {
		c.AbortWithStatusJSON(http.StatusForbidden, envelope{Status: "fail", Message: "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
