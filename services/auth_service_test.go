package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akinalp/authgate/models"
	"github.com/akinalp/authgate/pkg"
	"github.com/akinalp/authgate/pkg/audit"
	"github.com/akinalp/authgate/pkg/audit/audittest"
	"github.com/akinalp/authgate/pkg/crypto"
	"github.com/akinalp/authgate/pkg/password"
	"github.com/akinalp/authgate/pkg/token"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	alicePassword = "Secret123!"
	aliceEmail    = "alice@example.com"
)

var testClient = models.ClientInfo{IP: "203.0.113.10", UserAgent: "go-test"}

type testEnv struct {
	svc     AuthService
	users   *memUserRepo
	refresh *memRefreshRepo
	clock   *fakeClock
	sink    *audittest.Sink
	codec   *token.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	hasher, err := password.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "authgate",
	}, token.WithClock(clock.Now))
	require.NoError(t, err)

	users := newMemUserRepo()
	refresh := newMemRefreshRepo(clock.Now)
	users.sessions = refresh
	sink := &audittest.Sink{}
	logger, _ := test.NewNullLogger()

	return &testEnv{
		svc:     NewAuthService(users, refresh, hasher, codec, sink, logger, WithAuthClock(clock.Now)),
		users:   users,
		refresh: refresh,
		clock:   clock,
		sink:    sink,
		codec:   codec,
	}
}

func (e *testEnv) register(t *testing.T, email string) *AuthResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), &models.CreateUserRequest{
		Name: "Alice", Email: email, Password: alicePassword,
	}, testClient)
	require.NoError(t, err)
	return res
}

func requireReason(t *testing.T, err error, kind pkg.Kind, reason pkg.Reason) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, pkg.KindOf(err), "kind for %v", err)
	assert.Equal(t, reason, pkg.ReasonOf(err), "reason for %v", err)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	res := env.register(t, "  Alice@Example.com ")

	assert.Equal(t, aliceEmail, res.User.Email)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.True(t, res.User.IsActive)
	assert.Empty(t, res.User.PasswordHash)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	claims, err := env.codec.VerifyAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.Subject)

	// Refresh token düz metin olarak saklanmaz.
	sessions, err := env.svc.ListSessions(context.Background(), res.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, crypto.HashToken(res.RefreshToken), sessions[0].TokenHash)
	assert.NotEqual(t, res.RefreshToken, sessions[0].TokenHash)
	assert.Equal(t, testClient.IP, sessions[0].IP)

	last, ok := env.sink.Last()
	require.True(t, ok)
	assert.Equal(t, audit.EventRegister, last.Type)
	assert.True(t, last.Success)
	assert.Equal(t, res.User.ID, last.UserID)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := map[string]models.CreateUserRequest{
		"bad email":      {Name: "A", Email: "not-an-email", Password: alicePassword},
		"short password": {Name: "A", Email: aliceEmail, Password: "S1!a"},
		"no symbol":      {Name: "A", Email: aliceEmail, Password: "Secret1234"},
		"no upper":       {Name: "A", Email: aliceEmail, Password: "secret123!"},
		"empty name":     {Name: "  ", Email: aliceEmail, Password: alicePassword},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.svc.Register(ctx, &req, testClient)
			requireReason(t, err, pkg.KindValidation, pkg.ReasonValidation)
		})
	}
	assert.Zero(t, env.refresh.count())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, aliceEmail)

	_, err := env.svc.Register(context.Background(), &models.CreateUserRequest{
		Name: "Other", Email: "ALICE@example.com", Password: alicePassword,
	}, testClient)
	requireReason(t, err, pkg.KindConflict, pkg.ReasonConflict)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)

	res, err := env.svc.Login(context.Background(), &models.LoginRequest{
		Email: aliceEmail, Password: alicePassword,
	}, testClient)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.Empty(t, res.User.PasswordHash)
	assert.NotEqual(t, reg.RefreshToken, res.RefreshToken)

	// Çoklu cihaz: iki oturum.
	sessions, err := env.svc.ListSessions(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestNewAuthService_PreparesDummyHashUpFront(t *testing.T) {
	inner, err := password.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	hasher := &countingHasher{PasswordHasher: inner}
	logger, _ := test.NewNullLogger()

	svc := NewAuthService(newMemUserRepo(), newMemRefreshRepo(time.Now), hasher, nil, nil, logger)
	hashes, verifies := hasher.counts()
	assert.Equal(t, 1, hashes)
	assert.Zero(t, verifies)

	// Bilinmeyen e-posta yeni hash üretmez, hazır hash ile karşılaştırır.
	for i := 0; i < 2; i++ {
		_, err := svc.Login(context.Background(), &models.LoginRequest{Email: "ghost@example.com", Password: "whatever"}, testClient)
		requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonInvalidCredentials)
	}
	hashes, verifies = hasher.counts()
	assert.Equal(t, 1, hashes)
	assert.Equal(t, 2, verifies)
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, aliceEmail)
	ctx := context.Background()

	_, errUnknown := env.svc.Login(ctx, &models.LoginRequest{Email: "bob@example.com", Password: "whatever"}, testClient)
	_, errWrong := env.svc.Login(ctx, &models.LoginRequest{Email: aliceEmail, Password: "Wrong123!"}, testClient)

	requireReason(t, errUnknown, pkg.KindUnauthenticated, pkg.ReasonInvalidCredentials)
	requireReason(t, errWrong, pkg.KindUnauthenticated, pkg.ReasonInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLogin_InactiveUser(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)
	env.users.setActive(reg.User.ID, false)

	_, err := env.svc.Login(context.Background(), &models.LoginRequest{Email: aliceEmail, Password: alicePassword}, testClient)
	requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonPrincipalInactive)
}

func TestLogin_StoreFailureIsInternal(t *testing.T) {
	env := newTestEnv(t)
	env.users.failGet = errors.New("connection reset")

	_, err := env.svc.Login(context.Background(), &models.LoginRequest{Email: aliceEmail, Password: alicePassword}, testClient)
	require.Error(t, err)
	assert.Equal(t, pkg.KindInternal, pkg.KindOf(err))
}

func TestRefresh_IsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)
	ctx := context.Background()

	pair, err := env.svc.Refresh(ctx, reg.RefreshToken, testClient)
	require.NoError(t, err)
	assert.NotEqual(t, reg.RefreshToken, pair.RefreshToken)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = env.svc.Refresh(ctx, reg.RefreshToken, testClient)
	requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonTokenUnknownOrReused)

	// Yeni token çalışır ve o da tek kullanımlıktır.
	next, err := env.svc.Refresh(ctx, pair.RefreshToken, testClient)
	require.NoError(t, err)
	assert.NotEmpty(t, next.RefreshToken)
	assert.Equal(t, 1, env.refresh.count())
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)

	_, err := env.svc.Refresh(context.Background(), reg.AccessToken, testClient)
	requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonTokenInvalid)
}

func TestRefresh_Expired(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)

	env.clock.Advance(7*24*time.Hour + time.Second)

	_, err := env.svc.Refresh(context.Background(), reg.RefreshToken, testClient)
	requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonTokenExpired)
}

func TestRefresh_Garbage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Refresh(context.Background(), "garbage", testClient)
	requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonTokenInvalid)

	_, err = env.svc.Refresh(context.Background(), "", testClient)
	requireReason(t, err, pkg.KindValidation, pkg.ReasonValidation)
}

func TestRefresh_PrincipalChecks(t *testing.T) {
	t.Run("inactive", func(t *testing.T) {
		env := newTestEnv(t)
		reg := env.register(t, aliceEmail)
		env.users.setActive(reg.User.ID, false)

		_, err := env.svc.Refresh(context.Background(), reg.RefreshToken, testClient)
		requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonPrincipalInactive)
	})

	t.Run("deleted", func(t *testing.T) {
		env := newTestEnv(t)
		reg := env.register(t, aliceEmail)
		env.users.delete(reg.User.ID)

		_, err := env.svc.Refresh(context.Background(), reg.RefreshToken, testClient)
		requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonPrincipalNotFound)
	})
}

func TestRefresh_RotateFailureIssuesNothing(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)
	env.refresh.failRotate = errors.New("database is locked")

	pair, err := env.svc.Refresh(context.Background(), reg.RefreshToken, testClient)
	assert.Nil(t, pair)
	require.Error(t, err)
	assert.Equal(t, pkg.KindInternal, pkg.KindOf(err))

	// Eski kayıt yerinde durur; istemci tekrar deneyebilir.
	env.refresh.failRotate = nil
	_, err = env.svc.Refresh(context.Background(), reg.RefreshToken, testClient)
	assert.NoError(t, err)
}

func TestRefresh_ConcurrentDuplicatesHaveOneWinner(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)

	const n = 10

	// Tüm goroutine'ler FindActive'i geçip Rotate'in önünde buluşur;
	// yarış gerçekten Rotate'te yaşanır.
	var arrived sync.WaitGroup
	arrived.Add(n)
	env.refresh.rotateHook = func() {
		arrived.Done()
		arrived.Wait()
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []*models.TokenPair
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pair, err := env.svc.Refresh(context.Background(), reg.RefreshToken, testClient)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			wins = append(wins, pair)
		}()
	}
	wg.Wait()

	require.Len(t, wins, 1)
	require.Len(t, errs, n-1)
	for _, err := range errs {
		requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonTokenUnknownOrReused)
	}
	assert.Equal(t, 1, env.refresh.count())

	// Kazananın token'ı geçerli.
	env.refresh.rotateHook = nil
	_, err := env.svc.Refresh(context.Background(), wins[0].RefreshToken, testClient)
	assert.NoError(t, err)
}

func TestLogout_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)
	ctx := context.Background()

	require.NoError(t, env.svc.Logout(ctx, reg.User.ID, reg.RefreshToken, testClient))
	require.NoError(t, env.svc.Logout(ctx, reg.User.ID, reg.RefreshToken, testClient))
	require.NoError(t, env.svc.Logout(ctx, reg.User.ID, "not-a-token", testClient))
	require.NoError(t, env.svc.Logout(ctx, reg.User.ID, "", testClient))

	_, err := env.svc.Refresh(ctx, reg.RefreshToken, testClient)
	requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonTokenUnknownOrReused)
}

func TestLogout_CannotRevokeAnotherUsersToken(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, aliceEmail)
	bob := env.register(t, "bob@example.com")
	ctx := context.Background()

	require.NoError(t, env.svc.Logout(ctx, bob.User.ID, alice.RefreshToken, testClient))

	_, err := env.svc.Refresh(ctx, alice.RefreshToken, testClient)
	assert.NoError(t, err)
}

func TestChangePassword_RevokesAllRefreshTokens(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)
	ctx := context.Background()

	other, err := env.svc.Login(ctx, &models.LoginRequest{Email: aliceEmail, Password: alicePassword}, testClient)
	require.NoError(t, err)

	err = env.svc.ChangePassword(ctx, reg.User.ID, &models.ChangePasswordRequest{
		CurrentPassword: alicePassword,
		NewPassword:     "N3wSecret!",
	}, testClient)
	require.NoError(t, err)

	for _, rt := range []string{reg.RefreshToken, other.RefreshToken} {
		_, err := env.svc.Refresh(ctx, rt, testClient)
		requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonTokenUnknownOrReused)
	}

	// Verilmiş access token doğal süresi dolana kadar geçerli kalır.
	_, err = env.codec.VerifyAccess(reg.AccessToken)
	assert.NoError(t, err)

	_, err = env.svc.Login(ctx, &models.LoginRequest{Email: aliceEmail, Password: alicePassword}, testClient)
	requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonInvalidCredentials)

	_, err = env.svc.Login(ctx, &models.LoginRequest{Email: aliceEmail, Password: "N3wSecret!"}, testClient)
	assert.NoError(t, err)
}

func TestChangePassword_Failures(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)
	ctx := context.Background()

	err := env.svc.ChangePassword(ctx, reg.User.ID, &models.ChangePasswordRequest{
		CurrentPassword: "Wrong123!", NewPassword: "N3wSecret!",
	}, testClient)
	requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonCurrentPasswordIncorrect)

	err = env.svc.ChangePassword(ctx, reg.User.ID, &models.ChangePasswordRequest{
		CurrentPassword: alicePassword, NewPassword: alicePassword,
	}, testClient)
	requireReason(t, err, pkg.KindValidation, pkg.ReasonValidation)

	err = env.svc.ChangePassword(ctx, reg.User.ID, &models.ChangePasswordRequest{
		CurrentPassword: alicePassword, NewPassword: "weak",
	}, testClient)
	requireReason(t, err, pkg.KindValidation, pkg.ReasonValidation)

	err = env.svc.ChangePassword(ctx, "ghost", &models.ChangePasswordRequest{
		CurrentPassword: alicePassword, NewPassword: "N3wSecret!",
	}, testClient)
	requireReason(t, err, pkg.KindNotFound, pkg.ReasonNotFound)

	// Başarısız denemeler oturumları kapatmaz.
	_, err = env.svc.Refresh(ctx, reg.RefreshToken, testClient)
	assert.NoError(t, err)
}

func TestChangePassword_StoreFailureKeepsOldState(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)
	ctx := context.Background()

	env.users.failUpdate = errors.New("database is locked")
	err := env.svc.ChangePassword(ctx, reg.User.ID, &models.ChangePasswordRequest{
		CurrentPassword: alicePassword, NewPassword: "N3wSecret!",
	}, testClient)
	assert.Equal(t, pkg.KindInternal, pkg.KindOf(err))

	last, ok := env.sink.Last()
	require.True(t, ok)
	assert.Equal(t, audit.EventPasswordChange, last.Type)
	assert.False(t, last.Success)

	// Ne hash ne oturumlar değişmiş olmalı.
	env.users.failUpdate = nil
	_, err = env.svc.Refresh(ctx, reg.RefreshToken, testClient)
	assert.NoError(t, err)

	_, err = env.svc.Login(ctx, &models.LoginRequest{Email: aliceEmail, Password: "N3wSecret!"}, testClient)
	requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonInvalidCredentials)

	_, err = env.svc.Login(ctx, &models.LoginRequest{Email: aliceEmail, Password: alicePassword}, testClient)
	assert.NoError(t, err)
}

func TestRevokeSessions(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, aliceEmail)
	ctx := context.Background()

	_, err := env.svc.Login(ctx, &models.LoginRequest{Email: aliceEmail, Password: alicePassword}, testClient)
	require.NoError(t, err)

	n, err := env.svc.RevokeSessions(ctx, "admin-1", reg.User.ID, testClient)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	last, ok := env.sink.Last()
	require.True(t, ok)
	assert.Equal(t, audit.EventSessionsRevoke, last.Type)
	assert.Equal(t, "admin-1", last.UserID)
	assert.Equal(t, reg.User.ID, last.Metadata["target_user_id"])

	_, err = env.svc.Refresh(ctx, reg.RefreshToken, testClient)
	requireReason(t, err, pkg.KindUnauthenticated, pkg.ReasonTokenUnknownOrReused)
}

func TestSweepExpired(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, aliceEmail)
	env.register(t, "bob@example.com")

	n, err := env.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(8 * 24 * time.Hour)
	n, err = env.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestAudit_FailuresCarryReason(t *testing.T) {
	env := newTestEnv(t)

	_, _ = env.svc.Login(context.Background(), &models.LoginRequest{Email: aliceEmail, Password: "x"}, testClient)

	last, ok := env.sink.Last()
	require.True(t, ok)
	assert.Equal(t, audit.EventLogin, last.Type)
	assert.False(t, last.Success)
	assert.Equal(t, string(pkg.ReasonInvalidCredentials), last.Reason)
	assert.Equal(t, testClient.IP, last.IP)
	assert.Equal(t, env.clock.Now(), last.Timestamp)
}
