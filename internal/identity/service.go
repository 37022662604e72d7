package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/pkg/cerr"
)

const minPasswordLen = 6

var errInvalidCredentials = errors.New("invalid email or password")

// Service stores accounts in the users collection of a gateway and issues
// HS256 access tokens.
type Service struct {
	gw     gateway.Gateway
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

var _ Authenticator = (*Service)(nil)

type ServiceOption func(*Service)

func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) { s.issuer = issuer }
}

func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.ttl = ttl }
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(gw gateway.Gateway, secret []byte, opts ...ServiceOption) *Service {
	s := &Service{
		gw:     gw,
		secret: secret,
		issuer: "collabspace",
		ttl:    24 * time.Hour,
		now:    time.Now,
		// expiry is checked against s.now in Verify
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, email, password, displayName string) (*Credentials, error) {
	email = normalizeEmail(email)
	verr := cerr.NewError(cerr.InvalidArgument, "invalid registration", nil)
	invalid := false
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		_ = verr.AddDetailMessageWithCode("email is not a valid address", "email.format")
		invalid = true
	}
	if len(password) < minPasswordLen {
		_ = verr.AddDetailMessageWithCode(fmt.Sprintf("password must be at least %d characters", minPasswordLen), "password.min_len")
		invalid = true
	}
	if invalid {
		return nil, verr
	}

	existing, err := s.gw.Query(ctx, UsersCollection, gateway.Eq("email", email))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, cerr.NewError(cerr.AlreadyExists, "email already in use", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to hash password", err)
	}
	name := strings.TrimSpace(displayName)
	uid, err := s.gw.Insert(ctx, UsersCollection, gateway.Fields{
		"email":        email,
		"name":         name,
		"passwordHash": string(hash),
		"createdAt":    gateway.FormatTime(s.now()),
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "user registered", "uid", uid)
	return s.issue(User{UID: uid, Name: name, Email: email})
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	docs, err := s.gw.Query(ctx, UsersCollection, gateway.Eq("email", normalizeEmail(email)))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, cerr.NewError(cerr.Unauthenticated, errInvalidCredentials.Error(), nil)
	}
	doc := docs[0]
	if err := bcrypt.CompareHashAndPassword([]byte(doc.Fields.String("passwordHash")), []byte(password)); err != nil {
		return nil, cerr.NewError(cerr.Unauthenticated, errInvalidCredentials.Error(), nil)
	}
	return s.issue(userFromDocument(doc))
}

// SignOut revokes token until it would have expired anyway.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	_, err = s.gw.Insert(ctx, RevokedTokensCollection, gateway.Fields{
		"jti":       claims.ID,
		"uid":       claims.Subject,
		"expiresAt": gateway.FormatTime(claims.ExpiresAt.Time),
	})
	return err
}

// Verify returns the user a token was issued to.
func (s *Service) Verify(ctx context.Context, token string) (*User, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.gw.Query(ctx, RevokedTokensCollection, gateway.Eq("jti", claims.ID))
	if err != nil {
		return nil, err
	}
	if len(revoked) > 0 {
		return nil, cerr.NewError(cerr.Unauthenticated, "token revoked", nil)
	}
	doc, found, err := s.gw.Get(ctx, UsersCollection, claims.Subject)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, cerr.NewError(cerr.Unauthenticated, "unknown user", nil)
	}
	u := userFromDocument(doc)
	return &u, nil
}

// Users resolves uids to their public projection. Unknown uids are skipped.
func (s *Service) Users(ctx context.Context, uids []string) ([]User, error) {
	out := make([]User, 0, len(uids))
	for _, uid := range uids {
		doc, found, err := s.gw.Get(ctx, UsersCollection, uid)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		out = append(out, userFromDocument(doc))
	}
	return out, nil
}

func (s *Service) issue(u User) (*Credentials, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		ID:        ulid.Make().String(),
		Subject:   u.UID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to sign token", err)
	}
	return &Credentials{User: u, Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *Service) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, cerr.NewError(cerr.Unauthenticated, "missing token", nil)
	}
	claims := &jwt.RegisteredClaims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, cerr.NewError(cerr.Unauthenticated, "invalid token", err)
	}
	if !claims.VerifyExpiresAt(s.now(), true) {
		return nil, cerr.NewError(cerr.Unauthenticated, "token expired", nil)
	}
	if !claims.VerifyIssuer(s.issuer, true) || claims.Subject == "" || claims.ID == "" {
		return nil, cerr.NewError(cerr.Unauthenticated, "invalid token", nil)
	}
	return claims, nil
}

func userFromDocument(doc *gateway.Document) User {
	return User{
		UID:      doc.ID,
		Name:     doc.Fields.String("name"),
		Email:    doc.Fields.String("email"),
		PhotoURL: doc.Fields.String("photoUrl"),
	}
}
