package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	// ErrTokenInvalid is returned for any token that fails to parse or verify
	ErrTokenInvalid = errors.New("invalid token")

	// ErrMisconfiguredSecret is returned when the signing secret is too short for HMAC signing
	ErrMisconfiguredSecret = errors.New("signing secret is misconfigured")

	// ErrEmptySubject is returned when issuing a token without a subject
	ErrEmptySubject = errors.New("token subject is required")

	// ErrInvalidTTL is returned when the configured time-to-live is negative
	ErrInvalidTTL = errors.New("token ttl must not be negative")
)

// DefaultTTL is the token lifetime used when none is configured (86,400,000 ms).
const DefaultTTL = 24 * time.Hour

// MinSecretLength is the minimum secret size in bytes (256 bits, the HS256 key size).
const MinSecretLength = 32

// Option customizes a Codec
type Option func(*Codec)

// WithClock overrides the wall clock used for iat, exp and expiry checks
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Codec signs and verifies compact HMAC tokens.
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
	logger *zap.Logger
}

// NewCodec creates a codec for the given secret and token lifetime.
// The HMAC variant is chosen from the secret length and pinned for verification.
func NewCodec(secret []byte, ttl time.Duration, opts ...Option) (*Codec, error) {
	method, err := methodForSecret(secret)
	if err != nil {
		return nil, err
	}
	if ttl < 0 {
		return nil, ErrInvalidTTL
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	c := &Codec{
		secret: key,
		method: method,
		ttl:    ttl,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	// Claims validation is done by IsExpired/Validate with millisecond precision.
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)

	return c, nil
}

// Algorithm returns the pinned signing algorithm name
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// TTL returns the configured token lifetime
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a new token for subject. Reserved claims (sub, iat, exp) win over extra.
func (c *Codec) Issue(subject string, extra map[string]any) (string, error) {
	if subject == "" {
		return "", ErrEmptySubject
	}

	now := c.now()
	claims := make(jwt.MapClaims, len(extra)+3)
	for k, v := range extra {
		claims[k] = v
	}
	claims[ClaimSubject] = subject
	claims[ClaimIssuedAt] = now.UnixMilli()
	claims[ClaimExpiresAt] = now.Add(c.ttl).UnixMilli()

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	c.logger.Debug("token issued",
		zap.String("sub", subject),
		zap.String("alg", c.method.Alg()))

	return signed, nil
}

// Result is the outcome of inspecting a token: either a verified subject or the reason it was rejected.
type Result struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Err       error
}

// Valid reports whether the token's signature and structure verified
func (r Result) Valid() bool {
	return r.Err == nil
}

func invalid(reason error) Result {
	return Result{Err: fmt.Errorf("%w: %v", ErrTokenInvalid, reason)}
}

// Inspect verifies the signature and structure of a token and returns its claims.
// Expiry is not evaluated here; see IsExpired and Validate.
func (c *Codec) Inspect(tokenString string) Result {
	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != c.method {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return invalid(err)
	}
	if !parsed.Valid {
		return invalid(errors.New("signature not verified"))
	}
	if claims.Subject == "" {
		return invalid(errors.New("missing sub claim"))
	}

	return Result{
		Subject:   claims.Subject,
		IssuedAt:  time.UnixMilli(claims.IssuedAt),
		ExpiresAt: time.UnixMilli(claims.ExpiresAt),
	}
}

// ParseSubject returns the subject of a verified token
func (c *Codec) ParseSubject(tokenString string) (string, error) {
	res := c.Inspect(tokenString)
	if !res.Valid() {
		return "", res.Err
	}
	return res.Subject, nil
}

// IsExpired reports whether the token is past its expiry. Unparseable tokens count as expired.
func (c *Codec) IsExpired(tokenString string) bool {
	return c.expired(c.Inspect(tokenString))
}

func (c *Codec) expired(res Result) bool {
	if !res.Valid() {
		return true
	}
	return !c.now().Before(res.ExpiresAt)
}

// Validate reports whether the token verifies, belongs to expectedSubject and has not expired
func (c *Codec) Validate(tokenString, expectedSubject string) bool {
	res := c.Inspect(tokenString)
	if !res.Valid() {
		c.logger.Debug("token rejected", zap.Error(res.Err))
		return false
	}
	if res.Subject != expectedSubject {
		c.logger.Debug("token subject mismatch", zap.String("sub", res.Subject))
		return false
	}
	if c.expired(res) {
		c.logger.Debug("token expired",
			zap.String("sub", res.Subject),
			zap.Time("exp", res.ExpiresAt))
		return false
	}
	return true
}

func methodForSecret(secret []byte) (*jwt.SigningMethodHMAC, error) {
	switch n := len(secret); {
	case n >= 64:
		return jwt.SigningMethodHS512, nil
	case n >= 48:
		return jwt.SigningMethodHS384, nil
	case n >= MinSecretLength:
		return jwt.SigningMethodHS256, nil
	default:
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrMisconfiguredSecret, MinSecretLength, n)
	}
}
