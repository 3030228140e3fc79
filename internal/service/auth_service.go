package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"promptdoumi/internal/cache"
	"promptdoumi/internal/featureflags"
	"promptdoumi/internal/middleware"
	"promptdoumi/internal/models"
	"promptdoumi/internal/notifications"
	"promptdoumi/internal/observability"
	"promptdoumi/internal/repository"
	"promptdoumi/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	TokenIssuer   = "prompt-doumi-api"
	TokenAudience = "prompt-doumi-admin"

	DefaultSessionTTL = 24 * time.Hour
	WSTicketTTL       = 30 * time.Second

	// FlagAdminSignup opens self-service admin sign-up.
	FlagAdminSignup = "admin_signup"
)

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type localTicket struct {
	token     string
	expiresAt time.Time
}

// AuthService is the auth collaborator for admin accounts. Every operation
// returns the resulting session (nil when signed out) plus an error.
type AuthService struct {
	users  repository.AdminUserRepository
	rdb    *redis.Client
	flags  *featureflags.Manager
	bus    *notifications.Bus
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	// Used when Redis is unavailable.
	revoked sync.Map // jti -> expiry
	tickets sync.Map // ticket -> localTicket
}

// NewAuthService wires the auth collaborator. rdb and flags may be nil.
func NewAuthService(users repository.AdminUserRepository, rdb *redis.Client, flags *featureflags.Manager, bus *notifications.Bus, secret string) *AuthService {
	if bus == nil {
		bus = notifications.NewBus(notifications.NewBroker(), nil)
	}
	return &AuthService{
		users:  users,
		rdb:    rdb,
		flags:  flags,
		bus:    bus,
		secret: []byte(secret),
		ttl:    DefaultSessionTTL,
		now:    time.Now,
	}
}

// SignupOpen reports whether self-service sign-up is enabled for email.
func (s *AuthService) SignupOpen(email string) bool {
	return s.flags.Enabled(FlagAdminSignup, validation.NormalizeEmail(email))
}

// SignIn checks credentials and issues a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (session *models.Session, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService", "SignIn")
	defer func() { observability.EndSpan(span, err) }()

	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthorizedError("Invalid login credentials")
		}
		return nil, models.NewCollaboratorError(err)
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		return nil, models.NewUnauthorizedError("Invalid login credentials")
	}

	session, err = s.issue(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if touchErr := s.users.TouchLogin(ctx, user.ID, s.now()); touchErr != nil {
		middleware.Logger.WarnContext(ctx, "failed to record admin login",
			slog.Uint64("admin_id", uint64(user.ID)),
			slog.String("error", touchErr.Error()),
		)
	}

	s.publish(ctx, notifications.EventSignedIn, user.ID, user.Email)
	return session, nil
}

// SignUp creates an admin account and signs it in. It is refused unless the
// admin_signup flag is on.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (session *models.Session, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService", "SignUp")
	defer func() { observability.EndSpan(span, err) }()

	if !s.SignupOpen(email) {
		return nil, models.NewForbiddenError("Sign-up is disabled", "/admin")
	}

	user, err := s.CreateAdmin(ctx, email, password)
	if err != nil {
		return nil, err
	}

	session, err = s.issue(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	s.publish(ctx, notifications.EventSignedUp, user.ID, user.Email)
	return session, nil
}

// CreateAdmin validates and stores a new admin account without signing in.
// It is used by sign-up and by the operator tooling.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password string) (*models.AdminUser, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, models.NewValidationError("User already registered")
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewCollaboratorError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.AdminUser{Email: email, Password: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, models.NewCollaboratorError(err)
	}
	return user, nil
}

// SignOut revokes the session. Signing out without a session is a no-op.
func (s *AuthService) SignOut(ctx context.Context, session *models.Session) (*models.Session, error) {
	if session == nil {
		return nil, nil
	}
	s.revoke(ctx, session.TokenID, session.ExpiresAt)
	s.publish(ctx, notifications.EventSignedOut, session.UserID, session.Email)
	return nil, nil
}

// GetSession resolves an access token. An empty token means "not signed in"
// and yields a nil session without error.
func (s *AuthService) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || claims.ID == "" {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}

	return &models.Session{
		AccessToken: token,
		TokenID:     claims.ID,
		UserID:      uint(userID),
		Email:       claims.Email,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// UpdatePassword changes the signed-in admin's password. The session stays
// valid.
func (s *AuthService) UpdatePassword(ctx context.Context, session *models.Session, newPassword string) (_ *models.Session, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService", "UpdatePassword")
	defer func() { observability.EndSpan(span, err) }()

	if session == nil {
		return nil, models.NewUnauthorizedError("Not signed in")
	}
	span.SetAttributes(attribute.Int64("admin.id", int64(session.UserID)))

	if err := validation.ValidatePassword(newPassword); err != nil {
		return session, models.NewValidationError(err.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return session, models.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, session.UserID, string(hash)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthorizedError("User not found")
		}
		return session, models.NewCollaboratorError(err)
	}

	s.publish(ctx, notifications.EventPasswordUpdated, session.UserID, session.Email)
	return session, nil
}

// Subscribe streams auth events. The returned func unsubscribes; it may be
// called more than once and also runs when ctx ends.
func (s *AuthService) Subscribe(ctx context.Context) (<-chan notifications.AuthEvent, func()) {
	return s.bus.Subscribe(ctx)
}

// IssueTicket returns a short-lived single-use ticket that stands in for the
// access token on WebSocket upgrades.
func (s *AuthService) IssueTicket(ctx context.Context, session *models.Session) (string, error) {
	if session == nil {
		return "", models.NewUnauthorizedError("Not signed in")
	}
	ticket := uuid.New().String()
	if s.rdb != nil {
		err := s.rdb.Set(ctx, cache.WSTicketKey(ticket), session.AccessToken, WSTicketTTL).Err()
		if err == nil {
			return ticket, nil
		}
	}
	s.tickets.Store(ticket, localTicket{token: session.AccessToken, expiresAt: s.now().Add(WSTicketTTL)})
	return ticket, nil
}

// RedeemTicket consumes a ticket and resolves the session behind it.
func (s *AuthService) RedeemTicket(ctx context.Context, ticket string) (*models.Session, error) {
	invalid := models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	if ticket == "" {
		return nil, invalid
	}
	if v, ok := s.tickets.LoadAndDelete(ticket); ok {
		lt := v.(localTicket)
		if s.now().After(lt.expiresAt) {
			return nil, invalid
		}
		return s.GetSession(ctx, lt.token)
	}
	if s.rdb == nil {
		return nil, invalid
	}
	token, err := s.rdb.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if err != nil {
		return nil, invalid
	}
	return s.GetSession(ctx, token)
}

func (s *AuthService) issue(user *models.AdminUser) (*models.Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	jti := generateJTI(now)

	claims := sessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &models.Session{
		AccessToken: signed,
		TokenID:     jti,
		UserID:      user.ID,
		Email:       user.Email,
		ExpiresAt:   expiresAt,
	}, nil
}

// generateJTI creates a unique token identifier.
func generateJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8])
}

func (s *AuthService) revoke(ctx context.Context, jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}
	if s.rdb != nil {
		err := s.rdb.Set(ctx, cache.RevokedTokenKey(jti), "1", ttl).Err()
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "token revocation fell back to memory", slog.String("error", err.Error()))
	}
	s.revoked.Store(jti, expiresAt)
}

func (s *AuthService) isRevoked(ctx context.Context, jti string) bool {
	if v, ok := s.revoked.Load(jti); ok {
		if s.now().Before(v.(time.Time)) {
			return true
		}
		s.revoked.Delete(jti)
	}
	if s.rdb == nil {
		return false
	}
	n, err := s.rdb.Exists(ctx, cache.RevokedTokenKey(jti)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

func (s *AuthService) publish(ctx context.Context, typ notifications.AuthEventType, userID uint, email string) {
	observability.AuthEventsTotal.WithLabelValues(string(typ)).Inc()
	s.bus.Publish(ctx, notifications.AuthEvent{
		Type:   typ,
		UserID: userID,
		Email:  email,
		At:     s.now().UTC(),
	})
}
