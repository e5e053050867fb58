// Package cookie carries the session id between client and server as an
// HS256-signed JWT, in a cookie for browsers or a bearer header for API
// clients. The token only names a session; the server-side record decides
// whether it is still authenticated.
package cookie

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/prostech/salesbi-auth/internal/core/domain"
)

var (
	ErrNoToken      = errors.New("no session token")
	ErrInvalidToken = errors.New("invalid session token")
)

const issuer = "salesbi-auth"

// Codec issues and reads session tokens.
type Codec struct {
	name   string
	secret []byte
	secure bool
}

// New returns a Codec writing cookie name. secure sets the Secure attribute
// and should be on everywhere except local development.
func New(name, secret string, secure bool) *Codec {
	return &Codec{name: name, secret: []byte(secret), secure: secure}
}

func (c *Codec) Name() string { return c.name }

// Encode signs a token naming sess.
func (c *Codec) Encode(sess *domain.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:       sess.ID,
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	if sess.User != nil {
		claims.Subject = sess.User.Username
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies a token and returns the session id it names.
func (c *Codec) Decode(token string) (string, error) {
	var claims jwt.RegisteredClaims
	tkn, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !tkn.Valid || claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}

// Write sets the session cookie for sess and returns the signed token.
func (c *Codec) Write(ec echo.Context, sess *domain.Session) (string, error) {
	token, err := c.Encode(sess)
	if err != nil {
		return "", err
	}
	ec.SetCookie(&http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// Read extracts the session id from the cookie, falling back to an
// "Authorization: Bearer" header.
func (c *Codec) Read(ec echo.Context) (string, error) {
	if ck, err := ec.Cookie(c.name); err == nil && ck.Value != "" {
		return c.Decode(ck.Value)
	}

	authHeader := ec.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", ErrNoToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrInvalidToken
	}
	return c.Decode(parts[1])
}

// Clear expires the session cookie on the client.
func (c *Codec) Clear(ec echo.Context) {
	ec.SetCookie(&http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
