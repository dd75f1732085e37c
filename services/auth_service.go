// Package services, business logic katmanını barındırır.
//
// Handler (HTTP) ile Repository (DB) arasında oturur. Service
// http.Request bilmez, SQL çalıştırmaz; repository interface'lerini ve
// domain modellerini kullanır.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/akinalp/authgate/models"
	"github.com/akinalp/authgate/pkg"
	"github.com/akinalp/authgate/pkg/audit"
	"github.com/akinalp/authgate/pkg/crypto"
	"github.com/akinalp/authgate/pkg/token"
	"github.com/akinalp/authgate/repository"
	"github.com/sirupsen/logrus"
)

// AuthService, kimlik akışlarının dışarıya açık API'si.
type AuthService interface {
	Register(ctx context.Context, req *models.CreateUserRequest, client models.ClientInfo) (*AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest, client models.ClientInfo) (*AuthResult, error)
	// Refresh, refresh token'ı tüketir ve yeni bir çift döner. Aynı token
	// ikinci kez kullanılamaz.
	Refresh(ctx context.Context, refreshToken string, client models.ClientInfo) (*models.TokenPair, error)
	// Logout, userID'ye ait refreshToken kaydını siler. Kayıt yoksa da başarılıdır.
	Logout(ctx context.Context, userID, refreshToken string, client models.ClientInfo) error
	// ChangePassword, şifreyi değiştirir ve kullanıcının tüm refresh
	// token'larını iptal eder. Verilmiş access token'lar süreleri dolana
	// kadar geçerli kalır.
	ChangePassword(ctx context.Context, userID string, req *models.ChangePasswordRequest, client models.ClientInfo) error
	// RevokeSessions, userID'nin tüm oturumlarını kapatır. actorID işlemi yapan kullanıcıdır.
	RevokeSessions(ctx context.Context, actorID, userID string, client models.ClientInfo) (int64, error)
	ListSessions(ctx context.Context, userID string) ([]models.RefreshToken, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// AuthResult, register/login sonucu: kullanıcı + token çifti.
// JSON: {"user": {...}, "token": "...", "refreshToken": "..."}
type AuthResult struct {
	User *models.User `json:"user"`
	models.TokenPair
}

// PasswordHasher, pkg/password.Hasher'ın service tarafından kullanılan yüzü.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

// TokenIssuer, pkg/token.Codec'in service tarafından kullanılan yüzü.
type TokenIssuer interface {
	IssueAccess(user *models.User) (*token.Issued, error)
	IssueRefresh(user *models.User) (*token.Issued, error)
	VerifyRefresh(tokenString string) (*models.TokenClaims, error)
}

// Client'a dönen sabit mesajlar. Login ve refresh'te farklı nedenler aynı
// mesajı paylaşır; hesabın veya kaydın varlığı mesajdan anlaşılmaz.
const (
	msgInvalidCredentials = "invalid email or password"
	msgInvalidRefresh     = "invalid refresh token"
	msgExpiredRefresh     = "refresh token expired"
)

type authService struct {
	users         repository.UserRepository
	refreshTokens repository.RefreshTokenRepository
	hasher        PasswordHasher
	tokens        TokenIssuer
	audit         audit.Sink
	log           logrus.FieldLogger
	now           func() time.Time

	// dummyHash, bilinmeyen e-postalarda da bir bcrypt karşılaştırması
	// yapmak için kullanılır; iki durumun süresi birbirine yakın olur.
	dummyHash string
}

// AuthOption, authService ayarı.
type AuthOption func(*authService)

// WithAuthClock, audit zaman damgaları için saati değiştirir.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *authService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuthService, constructor.
func NewAuthService(
	users repository.UserRepository,
	refreshTokens repository.RefreshTokenRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	sink audit.Sink,
	logger logrus.FieldLogger,
	opts ...AuthOption,
) AuthService {
	if sink == nil {
		sink = audit.NopSink{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &authService{
		users:         users,
		refreshTokens: refreshTokens,
		hasher:        hasher,
		tokens:        tokens,
		audit:         sink,
		log:           logger.WithField("component", "auth"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	hash, err := hasher.Hash("authgate-dummy-password")
	if err != nil {
		s.log.WithError(err).Error("[auth] failed to prepare dummy hash")
	}
	s.dummyHash = hash
	return s
}

func (s *authService) Register(ctx context.Context, req *models.CreateUserRequest, client models.ClientInfo) (result *AuthResult, err error) {
	defer func() {
		userID := ""
		if result != nil {
			userID = result.User.ID
		}
		s.record(ctx, audit.EventRegister, userID, client, err)
	}()

	if err := req.Validate(); err != nil {
		return nil, pkg.Validation(err.Error())
	}

	_, err = s.users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, pkg.Conflict("email already in use")
	case !errors.Is(err, pkg.ErrNotFound):
		return nil, pkg.Internal("failed to look up email", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkg.Internal("failed to hash password", err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Eşzamanlı iki kayıtta UNIQUE index Conflict döner.
		return nil, passThrough("failed to create user", err)
	}

	pair, err := s.issueAndPersist(ctx, user, client)
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("[auth] user registered")
	return &AuthResult{User: user.Sanitized(), TokenPair: *pair}, nil
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest, client models.ClientInfo) (result *AuthResult, err error) {
	var userID string
	defer func() { s.record(ctx, audit.EventLogin, userID, client, err) }()

	if err := req.Validate(); err != nil {
		return nil, pkg.Validation(err.Error())
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			s.burnCompare(req.Password)
			return nil, pkg.Unauthenticated(pkg.ReasonInvalidCredentials, msgInvalidCredentials)
		}
		return nil, pkg.Internal("failed to look up user", err)
	}
	userID = user.ID

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkg.Internal("failed to verify password", err)
	}
	if !ok {
		return nil, pkg.Unauthenticated(pkg.ReasonInvalidCredentials, msgInvalidCredentials)
	}

	if !user.IsActive {
		return nil, pkg.Unauthenticated(pkg.ReasonPrincipalInactive, "account is disabled")
	}

	pair, err := s.issueAndPersist(ctx, user, client)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user.Sanitized(), TokenPair: *pair}, nil
}

// Refresh akışı:
//
//  1. İmza + süre doğrulaması (REFRESH_TOKEN_SECRET)
//  2. Hash + subject ile aktif kayıt araması; yoksa token tüketilmiş demektir
//  3. Kullanıcı hâlâ var ve aktif mi
//  4. Eski kaydı sil + yenisini ekle, tek transaction
//
// 4. adımda eski kayıt artık yoksa (eşzamanlı bir refresh kazandı) yeni
// token verilmez.
func (s *authService) Refresh(ctx context.Context, refreshToken string, client models.ClientInfo) (pair *models.TokenPair, err error) {
	var userID string
	defer func() { s.record(ctx, audit.EventRefresh, userID, client, err) }()

	if refreshToken == "" {
		return nil, pkg.Validation("refreshToken is required")
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		if token.KindOf(err) == token.Expired {
			return nil, pkg.Unauthenticated(pkg.ReasonTokenExpired, msgExpiredRefresh)
		}
		return nil, pkg.Unauthenticated(pkg.ReasonTokenInvalid, msgInvalidRefresh)
	}
	userID = claims.UserID()

	current, err := s.refreshTokens.FindActive(ctx, crypto.HashToken(refreshToken), userID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			s.log.WithField("user_id", userID).Warn("[auth] unknown or reused refresh token presented")
			return nil, pkg.Unauthenticated(pkg.ReasonTokenUnknownOrReused, msgInvalidRefresh)
		}
		return nil, pkg.Internal("failed to look up refresh token", err)
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	pair, next, err := s.issuePair(user, client)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokens.Rotate(ctx, current.ID, next); err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, pkg.Unauthenticated(pkg.ReasonTokenUnknownOrReused, msgInvalidRefresh)
		}
		return nil, pkg.Internal("failed to rotate refresh token", err)
	}

	return pair, nil
}

func (s *authService) Logout(ctx context.Context, userID, refreshToken string, client models.ClientInfo) (err error) {
	defer func() { s.record(ctx, audit.EventLogout, userID, client, err) }()

	// Body'siz logout: access token stateless, silinecek kayıt yok.
	if refreshToken == "" {
		return nil
	}

	n, err := s.refreshTokens.DeleteByTokenHash(ctx, crypto.HashToken(refreshToken), userID)
	if err != nil {
		return pkg.Internal("failed to delete refresh token", err)
	}
	if n == 0 {
		s.log.WithField("user_id", userID).Debug("[auth] logout with unknown refresh token, nothing to delete")
	}
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, userID string, req *models.ChangePasswordRequest, client models.ClientInfo) (err error) {
	defer func() { s.record(ctx, audit.EventPasswordChange, userID, client, err) }()

	if err := req.Validate(); err != nil {
		return pkg.Validation(err.Error())
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return pkg.NotFound("user not found")
		}
		return pkg.Internal("failed to load user", err)
	}

	ok, err := s.hasher.Verify(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkg.Internal("failed to verify password", err)
	}
	if !ok {
		return pkg.Unauthenticated(pkg.ReasonCurrentPasswordIncorrect, "current password is incorrect")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return pkg.Internal("failed to hash password", err)
	}

	// Hash değişimi ve oturum iptali repository'de tek transaction.
	revoked, err := s.users.UpdatePassword(ctx, userID, hash)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return pkg.NotFound("user not found")
		}
		return pkg.Internal("failed to update password", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "revoked": revoked}).Info("[auth] password changed")
	return nil
}

func (s *authService) RevokeSessions(ctx context.Context, actorID, userID string, client models.ClientInfo) (revoked int64, err error) {
	defer func() {
		s.recordWith(ctx, audit.EventSessionsRevoke, actorID, client, err, map[string]string{"target_user_id": userID})
	}()

	revoked, err = s.refreshTokens.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, pkg.Internal("failed to revoke sessions", err)
	}

	s.log.WithFields(logrus.Fields{"actor_id": actorID, "user_id": userID, "revoked": revoked}).Info("[auth] sessions revoked")
	return revoked, nil
}

func (s *authService) ListSessions(ctx context.Context, userID string) ([]models.RefreshToken, error) {
	sessions, err := s.refreshTokens.ListByUserID(ctx, userID)
	if err != nil {
		return nil, pkg.Internal("failed to list sessions", err)
	}
	return sessions, nil
}

func (s *authService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.refreshTokens.DeleteExpired(ctx)
	if err != nil {
		return 0, pkg.Internal("failed to sweep expired refresh tokens", err)
	}
	return n, nil
}

// ─── Private Helpers ───

// issuePair, access + refresh token üretir ve refresh kaydını hazırlar.
// Kayıt ID'si refresh token'ın jti'sidir.
func (s *authService) issuePair(user *models.User, client models.ClientInfo) (*models.TokenPair, *models.RefreshToken, error) {
	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, nil, pkg.Internal("failed to issue access token", err)
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return nil, nil, pkg.Internal("failed to issue refresh token", err)
	}

	record := &models.RefreshToken{
		ID:        refresh.Claims.ID,
		UserID:    user.ID,
		TokenHash: crypto.HashToken(refresh.Token),
		UserAgent: client.UserAgent,
		IP:        client.IP,
		IssuedAt:  refresh.Claims.IssuedAt.Time,
		ExpiresAt: refresh.ExpiresAt,
	}

	return &models.TokenPair{AccessToken: access.Token, RefreshToken: refresh.Token}, record, nil
}

func (s *authService) issueAndPersist(ctx context.Context, user *models.User, client models.ClientInfo) (*models.TokenPair, error) {
	pair, record, err := s.issuePair(user, client)
	if err != nil {
		return nil, err
	}
	if err := s.refreshTokens.Create(ctx, record); err != nil {
		return nil, pkg.Internal("failed to persist refresh token", err)
	}
	return pair, nil
}

// activeUser, refresh sırasında kullanıcıyı yükler. Silinmiş veya pasif
// kullanıcılar yeni token alamaz.
func (s *authService) activeUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, pkg.Unauthenticated(pkg.ReasonPrincipalNotFound, msgInvalidRefresh)
		}
		return nil, pkg.Internal("failed to load user", err)
	}
	if !user.IsActive {
		return nil, pkg.Unauthenticated(pkg.ReasonPrincipalInactive, "account is disabled")
	}
	return user, nil
}

func (s *authService) burnCompare(plain string) {
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(plain, s.dummyHash)
	}
}

func (s *authService) record(ctx context.Context, event audit.EventType, userID string, client models.ClientInfo, err error) {
	s.recordWith(ctx, event, userID, client, err, nil)
}

func (s *authService) recordWith(ctx context.Context, event audit.EventType, userID string, client models.ClientInfo, err error, meta map[string]string) {
	e := audit.Event{
		Type:      event,
		UserID:    userID,
		Success:   err == nil,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		Metadata:  meta,
		Timestamp: s.now(),
	}
	if err != nil {
		e.Reason = string(pkg.ReasonOf(err))
		if e.Reason == "" {
			e.Reason = pkg.KindOf(err).String()
		}
		if pkg.KindOf(err) == pkg.KindInternal {
			s.log.WithError(err).WithField("event", string(event)).Error("[auth] flow failed")
		}
	}
	s.audit.Record(ctx, e)
}

// passThrough, repository'den gelen typed error'ları (Conflict gibi) korur,
// geri kalanını Internal olarak sarar.
func passThrough(message string, err error) error {
	var e *pkg.AppError
	if errors.As(err, &e) && e.Kind != pkg.KindInternal {
		return err
	}
	return pkg.Internal(message, err)
}
