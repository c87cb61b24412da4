package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/SARVESHVARADKAR123/messenger/internal/transport"
	"github.com/golang-jwt/jwt/v5"
)

// JWT verifies an HS256 bearer token and puts its subject and roles into the context.
// Browsers cannot set headers on a websocket upgrade, so a token query parameter is
// accepted on GET requests.
func JWT(secret, issuer, audience string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != nil {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			claims, err := verifyToken(tokenString, secret, issuer, audience)
			if err != nil {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token claims")
				return
			}

			ctx := InjectUserID(r.Context(), sub)
			ctx = InjectRoles(ctx, rolesClaim(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if r.Method == http.MethodGet {
			if t := r.URL.Query().Get("token"); t != "" {
				return t, nil
			}
		}
		return "", fmt.Errorf("missing token")
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid token format")
	}

	return parts[1], nil
}

func verifyToken(tokenString, secret, issuer, audience string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func rolesClaim(claims jwt.MapClaims) []string {
	raw, ok := claims["roles"].([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok && s != "" {
			roles = append(roles, s)
		}
	}
	return roles
}
