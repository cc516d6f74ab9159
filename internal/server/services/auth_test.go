package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/staywo/authgate/internal/common"
	"github.com/staywo/authgate/internal/server/auth"
	"github.com/staywo/authgate/internal/server/config"
	"github.com/staywo/authgate/internal/server/models"
	"github.com/staywo/authgate/internal/server/providers"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = bcrypt.MinCost
	return cfg
}

type authFixture struct {
	svc      *AuthService
	users    *fakeUsersRepo
	verifs   *fakeVerificationsRepo
	notifier *fakeNotifier
}

func newAuthFixture(t *testing.T, mutate func(cfg *config.Config)) *authFixture {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	f := &authFixture{
		users:    newFakeUsersRepo(),
		verifs:   newFakeVerificationsRepo(),
		notifier: &fakeNotifier{delivery: "<mid-test>"},
	}
	f.svc = NewAuthService(nil, &fakeRepoManager{u: f.users, v: f.verifs}, f.notifier, cfg)
	return f
}

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture(t, nil)

	result, err := f.svc.Register(context.Background(), "bob@x.com", "bob", "pass123")
	require.NoError(t, err)
	require.NotNil(t, result.User)

	assert.Equal(t, "bob@x.com", result.User.Email)
	assert.Equal(t, models.RoleTest, result.User.Role)
	assert.False(t, result.User.Verified)
	assert.True(t, result.User.PasswordHash.Valid)
	assert.NotEqual(t, "pass123", result.User.PasswordHash.String)
	assert.True(t, result.VerificationSent)

	claims, err := auth.ParseSessionToken(result.Token, []byte("secretKey"))
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", claims.Email)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "verification", f.notifier.sent[0].kind)
	assert.Len(t, f.notifier.sent[0].token, 7)
	assert.Equal(t, 1, f.verifs.count())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := f.svc.Register(context.Background(), "bob@x.com", "bob", "pass123")
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), "bob@x.com", "other", "different")
	assert.ErrorIs(t, err, common.ErrorConflict)
	assert.Equal(t, 1, f.verifs.count())
}

func TestRegister_NoSessionTokenWhenDisabled(t *testing.T) {
	f := newAuthFixture(t, func(cfg *config.Config) {
		cfg.SessionTokenOnRegister = false
	})

	result, err := f.svc.Register(context.Background(), "bob@x.com", "bob", "pass123")
	require.NoError(t, err)
	assert.Empty(t, result.Token)
	assert.True(t, result.VerificationSent)
}

func TestRegister_DeliveryFailureIsPartialSuccess(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.notifier.sendErr = common.ErrorDelivery

	result, err := f.svc.Register(context.Background(), "bob@x.com", "bob", "pass123")
	assert.ErrorIs(t, err, common.ErrorDelivery)
	require.NotNil(t, result)
	assert.False(t, result.VerificationSent)

	// the account exists despite the failed mail
	user, ferr := f.users.FindByEmail(context.Background(), "bob@x.com")
	require.NoError(t, ferr)
	assert.Equal(t, "bob", user.Username)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t, nil)
	_, err := f.svc.Register(context.Background(), "bob@x.com", "bob", "pass123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "correct credentials", email: "bob@x.com", password: "pass123"},
		{name: "wrong password", email: "bob@x.com", password: "nope", wantErr: common.ErrorUnauthorized},
		{name: "unknown email", email: "ghost@x.com", password: "pass123", wantErr: common.ErrorUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := f.svc.Login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			claims, err := auth.ParseSessionToken(token, []byte("secretKey"))
			require.NoError(t, err)
			assert.Equal(t, tt.email, claims.Email)
		})
	}
}

func TestLogin_ExternalOnlyAccountHasNoPassword(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := f.svc.ExternalLogin(context.Background(), &providers.Assertion{
		Provider: providers.Google,
		Email:    "bob@x.com",
	})
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "bob@x.com", "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestExternalLogin_CreatesVerifiedUser(t *testing.T) {
	f := newAuthFixture(t, nil)

	token, err := f.svc.ExternalLogin(context.Background(), &providers.Assertion{
		Provider:  providers.Facebook,
		Email:     "alice@x.com",
		FirstName: "Alice",
		LastName:  "Smith",
	})
	require.NoError(t, err)

	claims, err := auth.ParseSessionToken(token, []byte("secretKey"))
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", claims.Email)

	user, err := f.users.FindByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.True(t, user.Verified)
	assert.False(t, user.PasswordHash.Valid)
	assert.Equal(t, "Alice Smith", user.Username)
}

func TestExternalLogin_SecondLoginReusesUser(t *testing.T) {
	f := newAuthFixture(t, nil)
	assertion := &providers.Assertion{Provider: providers.Google, Email: "alice@x.com"}

	_, err := f.svc.ExternalLogin(context.Background(), assertion)
	require.NoError(t, err)
	_, err = f.svc.ExternalLogin(context.Background(), assertion)
	require.NoError(t, err)

	users, err := f.users.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestExternalLogin_RejectsMalformedAssertionBeforeStore(t *testing.T) {
	f := newAuthFixture(t, nil)

	tests := []struct {
		name      string
		assertion *providers.Assertion
	}{
		{name: "unknown provider", assertion: &providers.Assertion{Provider: "github", Email: "a@x.com"}},
		{name: "missing email", assertion: &providers.Assertion{Provider: providers.Google}},
		{name: "apple without code", assertion: &providers.Assertion{Provider: providers.Apple, Email: "a@x.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.users.calls
			_, err := f.svc.ExternalLogin(context.Background(), tt.assertion)
			assert.ErrorIs(t, err, common.ErrorForbidden)
			assert.Equal(t, before, f.users.calls)
		})
	}
}

func TestVerifyEmail_ConsumesTokenOnce(t *testing.T) {
	f := newAuthFixture(t, nil)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	f.svc.db = db

	result, err := f.svc.Register(context.Background(), "bob@x.com", "bob", "pass123")
	require.NoError(t, err)
	assert.False(t, result.User.Verified)
	token := f.notifier.sent[0].token

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, f.svc.VerifyEmail(context.Background(), token))

	user, err := f.users.FindByEmail(context.Background(), "bob@x.com")
	require.NoError(t, err)
	assert.True(t, user.Verified)
	assert.Equal(t, 0, f.verifs.count())

	// second use of the same token
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = f.svc.VerifyEmail(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyEmail_UnknownToken(t *testing.T) {
	f := newAuthFixture(t, nil)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	f.svc.db = db

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = f.svc.VerifyEmail(context.Background(), "0000000")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyEmail_MissingUserRollsBack(t *testing.T) {
	f := newAuthFixture(t, nil)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	f.svc.db = db

	// a pending token whose account no longer exists
	require.NoError(t, f.verifs.Issue(context.Background(), "gone@x.com", "1234567", time.Hour))

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = f.svc.VerifyEmail(context.Background(), "1234567")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResendVerification_ReusesPendingToken(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := f.svc.Register(context.Background(), "bob@x.com", "bob", "pass123")
	require.NoError(t, err)
	first := f.notifier.sent[0].token

	require.NoError(t, f.svc.ResendVerification(context.Background(), "bob@x.com"))

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, first, f.notifier.sent[1].token)
	assert.Equal(t, 1, f.verifs.count())
}

func TestResendVerification_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t, nil)

	err := f.svc.ResendVerification(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Empty(t, f.notifier.sent)
}

func TestRequestPasswordReset(t *testing.T) {
	f := newAuthFixture(t, nil)
	_, err := f.svc.Register(context.Background(), "bob@x.com", "bob", "pass123")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "bob@x.com"))

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, "reset", f.notifier.sent[1].kind)
	// the registration token is still pending, so the reset reuses it
	assert.Equal(t, f.notifier.sent[0].token, f.notifier.sent[1].token)
}

func TestRequestPasswordReset_DeliveryFailure(t *testing.T) {
	f := newAuthFixture(t, nil)
	_, err := f.svc.Register(context.Background(), "bob@x.com", "bob", "pass123")
	require.NoError(t, err)

	f.notifier.sendErr = common.ErrorDelivery
	err = f.svc.RequestPasswordReset(context.Background(), "bob@x.com")
	assert.ErrorIs(t, err, common.ErrorDelivery)
}

func TestIssueVerification_SecondIssueKeepsFirstToken(t *testing.T) {
	f := newAuthFixture(t, nil)

	first, err := f.svc.issueVerification(context.Background(), "bob@x.com")
	require.NoError(t, err)

	second, err := f.svc.issueVerification(context.Background(), "bob@x.com")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.verifs.count())
}

func TestIssueVerification_StoreFailure(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.verifs.issueErr = errors.New("connection reset")

	_, err := f.svc.issueVerification(context.Background(), "bob@x.com")
	assert.ErrorIs(t, err, common.ErrorInternal)
}
