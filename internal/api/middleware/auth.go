package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type viewerKey struct{}

// ViewerClaims carries the authenticated viewer's identity, including their
// own referral code for the self-referral check. A zero value means anonymous.
type ViewerClaims struct {
	Authenticated bool
	UserID        string
	ReferralCode  string
}

// ViewerFromContext returns the claims attached by Auth, or an anonymous zero
// value.
func ViewerFromContext(ctx context.Context) ViewerClaims {
	claims, _ := ctx.Value(viewerKey{}).(ViewerClaims)
	return claims
}

// Auth extracts viewer claims from an optional Bearer token. Attribution works
// for anonymous visitors, so a missing or invalid token never rejects the
// request; it just leaves the viewer anonymous.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") || len(secret) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			raw := strings.TrimPrefix(header, "Bearer ")
			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			viewer := ViewerClaims{Authenticated: true}
			if sub, ok := claims["sub"].(string); ok {
				viewer.UserID = sub
			}
			if code, ok := claims["referral_code"].(string); ok {
				viewer.ReferralCode = code
			}

			ctx := context.WithValue(r.Context(), viewerKey{}, viewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
