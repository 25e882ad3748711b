package session

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/user"
)

var (
	// errors
	ErrNoSession      = errors.New("no active session")
	ErrRefreshExpired = errors.New("refresh has expired")

	signingMethod = jwt.SigningMethodHS256
)

type (
	// RevocationStore remembers signed out tokens until they expire.
	RevocationStore interface {
		Revoke(ctx context.Context, tokenID string, until time.Time) error
		IsRevoked(ctx context.Context, tokenID string) (bool, error)
	}

	ServiceInterface interface {
		SignIn(ctx context.Context, email, pwd string) (*Session, error)
		Resolve(ctx context.Context, token string) (*Session, error)
		Refresh(ctx context.Context, token string) (*Session, error)
		SignOut(ctx context.Context, token string) error
	}

	Service struct {
		usrSvc  user.ServiceInterface
		revoked RevocationStore
		conf    *core.Config
		nowFunc func() time.Time
	}
)

var _ ServiceInterface = (*Service)(nil)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
}

func NewService(usrSvc user.ServiceInterface, revoked RevocationStore, conf *core.Config) *Service {
	return &Service{
		usrSvc:  usrSvc,
		revoked: revoked,
		conf:    conf,
		nowFunc: time.Now,
	}
}

// SignIn authenticates an admin & establishes a new session.
func (svc *Service) SignIn(ctx context.Context, email, pwd string) (*Session, error) {
	usr, err := svc.usrSvc.Authenticate(ctx, email, pwd)
	if err != nil {
		return nil, err
	}
	now := svc.nowFunc()
	return svc.issue(sessionUser(usr), now.Unix(), now)
}

// Resolve returns the session represented by token, or ErrNoSession when it is invalid, expired or signed out.
func (svc *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := svc.parse(token)
	if err != nil {
		return nil, ErrNoSession
	}
	revoked, err := svc.revoked.IsRevoked(ctx, claims.Id)
	if err != nil {
		return nil, errors.Wrap(err, "checking token revocation")
	}
	if revoked {
		return nil, ErrNoSession
	}

	// the account may have been deactivated since sign in
	usr, err := svc.usrSvc.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, ErrNoSession
		}
		return nil, errors.Wrap(err, "finding session user")
	}
	if !usr.IsActive {
		return nil, ErrNoSession
	}

	return &Session{
		Token:         token,
		User:          sessionUser(usr),
		EstablishedAt: time.Unix(claims.OrigIssuedAt, 0).UTC(),
		ExpiresAt:     time.Unix(claims.ExpiresAt, 0).UTC(),
	}, nil
}

// Refresh swaps a valid token for a new one, as long as the session is younger than the refresh delta.
// The old token is revoked.
func (svc *Service) Refresh(ctx context.Context, token string) (*Session, error) {
	sess, err := svc.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	now := svc.nowFunc()
	if now.After(sess.EstablishedAt.Add(svc.conf.Server.JWTRefreshExpirationDelta)) {
		return nil, ErrRefreshExpired
	}
	newSess, err := svc.issue(sess.User, sess.EstablishedAt.Unix(), now)
	if err != nil {
		return nil, err
	}
	if err = svc.SignOut(ctx, token); err != nil {
		return nil, errors.Wrap(err, "revoking refreshed token")
	}
	return newSess, nil
}

// SignOut revokes token. Signing out an invalid or already revoked token is a no-op.
func (svc *Service) SignOut(ctx context.Context, token string) error {
	claims, err := svc.parse(token)
	if err != nil {
		return nil
	}
	return errors.Wrap(
		svc.revoked.Revoke(ctx, claims.Id, time.Unix(claims.ExpiresAt, 0)),
		"revoking token",
	)
}

func (svc *Service) issue(usr *User, origIat int64, now time.Time) (*Session, error) {
	expiresAt := now.Add(svc.conf.Server.JWTExpirationDelta)
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    svc.conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: expiresAt.Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: origIat,
		Email:        usr.Email,
		Name:         usr.Name,
	}
	token, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(svc.conf.SecretKey))
	if err != nil {
		return nil, errors.Wrap(err, "signing token")
	}
	return &Session{
		Token:         token,
		User:          usr,
		EstablishedAt: time.Unix(origIat, 0).UTC(),
		ExpiresAt:     time.Unix(expiresAt.Unix(), 0).UTC(),
	}, nil
}

func (svc *Service) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != signingMethod.Alg() {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(svc.conf.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func sessionUser(usr user.User) *User {
	return &User{ID: usr.ID, Email: usr.Email, Name: usr.Name}
}
