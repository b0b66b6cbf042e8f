package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/session"
	appErrors "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Revoke(ctx context.Context, id string, revokedAt time.Time) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuthConfig defines configuration for session issuance.
type AuthConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// AuthService issues, resolves and ends sessions created after third-party sign-in.
type AuthService struct {
	repo      sessionRepository
	broker    session.Broker
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo sessionRepository, broker session.Broker, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if broker == nil {
		broker = session.NewLocalBroker()
	}
	if config.Expiry <= 0 {
		config.Expiry = 24 * time.Hour
	}
	return &AuthService{repo: repo, broker: broker, validator: validate, logger: logger, metrics: metrics, config: config, now: time.Now}
}

// Establish persists a session for the signed-in identity, signs its token and
// announces it to subscribers. clientKey identifies the browser that started the sign-in.
func (s *AuthService) Establish(ctx context.Context, identity models.Identity, clientKey string) (*models.Session, error) {
	if err := s.validator.Struct(identity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid identity from provider")
	}

	issuedAt := s.now().UTC()
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    identity.Provider + ":" + identity.Subject,
		Provider:  identity.Provider,
		Email:     identity.Email,
		Name:      identity.DisplayName(),
		CreatedAt: issuedAt,
		ExpiresAt: issuedAt.Add(s.config.Expiry),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	token, err := s.signToken(sess)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}
	sess.AccessToken = token

	s.publish(ctx, session.Event{
		Kind:       session.EventSessionEstablished,
		SessionID:  sess.ID,
		UserID:     sess.UserID,
		ClientKey:  clientKey,
		OccurredAt: issuedAt,
	})
	s.logger.Info("session established", zap.String("session_id", sess.ID), zap.String("user_id", sess.UserID))
	return sess, nil
}

// GetSession resolves the active session behind a token.
func (s *AuthService) GetSession(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}

	sess, err := s.repo.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if !sess.Active(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired or signed out")
	}
	return sess, nil
}

// OnAuthStateChange subscribes fn to session events.
func (s *AuthService) OnAuthStateChange(fn func(session.Event)) session.Subscription {
	return s.broker.Subscribe(fn)
}

// SignOut revokes the session behind token. Unknown or malformed tokens are ignored.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil
	}
	now := s.now().UTC()
	if err := s.repo.Revoke(ctx, claims.ID, now); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign out")
	}
	s.publish(ctx, session.Event{
		Kind:       session.EventSessionEnded,
		SessionID:  claims.ID,
		UserID:     claims.Subject,
		OccurredAt: now,
	})
	s.logger.Info("session ended", zap.String("session_id", claims.ID))
	return nil
}

// PurgeExpired deletes sessions that have expired.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge sessions")
	}
	return n, nil
}

func (s *AuthService) publish(ctx context.Context, event session.Event) {
	if err := s.broker.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish session event", zap.String("kind", string(event.Kind)), zap.Error(err))
		return
	}
	s.metrics.RecordSessionEvent(string(event.Kind))
}

func (s *AuthService) signToken(sess *models.Session) (string, error) {
	claims := &models.SessionClaims{
		Email:    sess.Email,
		Name:     sess.Name,
		Provider: sess.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Issuer:    s.config.Issuer,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			NotBefore: jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *AuthService) parseToken(tokenString string) (*models.SessionClaims, error) {
	if tokenString == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing session token")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session token")
	}
	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session claims")
	}
	return claims, nil
}
