package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens

	"github.com/iliyamo/car-dealership/internal/model"
)

// DefaultTokenTTL is used when JWT_EXPIRES_IN is empty or unparseable.
const DefaultTokenTTL = 3600 * time.Second

// Verification failures.  Every error returned by VerifyToken wraps
// exactly one of these so callers can report the reason.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
)

// Claims is the payload of an access token.  ID, Email and Role are the
// identity; issued-at and expiry live in the registered claims.
type Claims struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// IssueToken builds and signs an HS256 JWT carrying id, email and role.
// The expiry is now+ttl; a non-positive ttl falls back to DefaultTokenTTL.
func IssueToken(secret string, id uint64, email, role string, ttl time.Duration) (AccessToken, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		ID:    id,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyToken parses raw, checks the HS256 signature against secret and
// validates expiry and identity claims.
func VerifyToken(raw, secret string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	if claims.ID == 0 || claims.Email == "" || !model.ValidRole(claims.Role) {
		return nil, ErrTokenMalformed
	}
	return &claims, nil
}

var ttlShorthand = regexp.MustCompile(`^(\d+)([smhdwMy])$`)

// ParseTTL converts a JWT_EXPIRES_IN value into a duration.  A bare
// integer is seconds; shorthand like 30m, 1h or 7d is accepted (M is 30
// days, y is 365 days).  The boolean is false when the value could not be
// understood, in which case DefaultTokenTTL is returned.
func ParseTTL(s string) (time.Duration, bool) {
	if s == "" {
		return DefaultTokenTTL, true
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 || n > math.MaxInt64/int64(time.Second) {
			return DefaultTokenTTL, false
		}
		return time.Duration(n) * time.Second, true
	}
	m := ttlShorthand.FindStringSubmatch(s)
	if m == nil {
		return DefaultTokenTTL, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return DefaultTokenTTL, false
	}
	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	case "M":
		unit = 30 * 24 * time.Hour
	case "y":
		unit = 365 * 24 * time.Hour
	}
	if n <= 0 || n > math.MaxInt64/int64(unit) {
		return DefaultTokenTTL, false
	}
	return time.Duration(n) * unit, true
}
