// Package auth resolves the learner behind a request. A request either carries
// a valid signed token naming a stable user ID, or it is anonymous.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ErrInvalidToken is returned for tokens that are malformed, forged or expired.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated learner, or anonymous when UserID is empty.
type Identity struct {
	UserID string
}

// Anonymous returns the identity of an unauthenticated visitor.
func Anonymous() Identity { return Identity{} }

// IsAnonymous reports whether no user is signed in.
func (i Identity) IsAnonymous() bool { return i.UserID == "" }

// Owner names whoever owns progress for this request: the user when signed
// in, otherwise the device.
func (i Identity) Owner(deviceID string) string {
	if !i.IsAnonymous() {
		return "user:" + i.UserID
	}
	if deviceID == "" {
		return ""
	}
	return "device:" + deviceID
}

type ctxKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by the middleware, or anonymous.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}

// Signer issues and verifies stateless bearer tokens authenticated with a
// keyed BLAKE2b-256 MAC.
type Signer struct {
	key [32]byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner derives a MAC key from secret.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &Signer{
		key: blake2b.Sum256([]byte(secret)),
		ttl: ttl,
		now: time.Now,
	}, nil
}

// Issue returns a token for userID valid for the signer's TTL.
func (s *Signer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user_id is required")
	}
	exp := s.now().Add(s.ttl).Unix()
	payload := userID + "\n" + strconv.FormatInt(exp, 10)
	mac, err := s.mac(payload)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + hex.EncodeToString(mac), nil
}

// Verify checks a token and returns the identity it names.
func (s *Signer) Verify(token string) (Identity, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	payload := string(raw)
	want, err := s.mac(payload)
	if err != nil {
		return Identity{}, err
	}
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return Identity{}, ErrInvalidToken
	}

	userID, expStr, ok := strings.Cut(payload, "\n")
	if !ok || userID == "" {
		return Identity{}, ErrInvalidToken
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || s.now().Unix() >= exp {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID}, nil
}

func (s *Signer) mac(payload string) ([]byte, error) {
	h, err := blake2b.New256(s.key[:])
	if err != nil {
		return nil, fmt.Errorf("init mac: %w", err)
	}
	h.Write([]byte(payload))
	return h.Sum(nil), nil
}

// Middleware resolves the bearer token into an Identity on the request
// context. Requests without a token are anonymous; bad tokens get 401.
func (s *Signer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Anonymous())))
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeUnauthorized(w)
			return
		}
		id, err := s.Verify(strings.TrimSpace(token))
		if err != nil {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"invalid token"}`))
}
