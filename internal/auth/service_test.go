package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive-api/internal/logging"
	"github.com/taskhive/taskhive-api/internal/user"
)

const (
	testPassword    = "Sup3rSecret!"
	testInviteToken = "admin-invite-secret"
)

var testTokenKey = []byte("0123456789abcdef0123456789abcdef")

type serviceFixture struct {
	svc    *Service
	store  *memoryUserStore
	mailer *fakeMailer
	tokens TokenService
	clock  *time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	store := newMemoryUserStore()
	mailer := newFakeMailer()
	tokens, err := NewJWTService(testTokenKey)
	require.NoError(t, err)

	svc := NewService(
		store,
		mailer,
		tokens,
		logging.NewLogger(true),
		testInviteToken,
		[]byte("code-hmac-secret"),
		6*24*time.Hour,
	)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &serviceFixture{svc: svc, store: store, mailer: mailer, tokens: tokens, clock: &now}
}

func (f *serviceFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *serviceFixture) register(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), "Test User", email, testPassword, "")
	require.NoError(t, err)
	return u
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created := f.register(t, "alice@example.com")
	assert.Equal(t, user.RoleMember, created.Role)
	assert.False(t, created.Verified)
	assert.Empty(t, created.PasswordHash, "created user must not expose the hash")

	session, err := f.svc.Authenticate(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, user.RoleMember, session.Role)
	assert.Equal(t, int64(6*24*3600), session.ExpiresIn)

	claims, err := f.tokens.VerifyToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID.String(), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.False(t, claims.Verified)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.svc.Register(context.Background(), "Bob", "  Bob@Example.COM ", testPassword, "")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", created.Email)

	// Re-registering under a different casing must conflict.
	_, err = f.svc.Register(context.Background(), "Bob", "bob@example.com", testPassword, "")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterAdminInvite(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	admin, err := f.svc.Register(ctx, "Admin", "admin@example.com", testPassword, testInviteToken)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, admin.Role)

	member, err := f.svc.Register(ctx, "Member", "member@example.com", testPassword, "wrong-token")
	require.NoError(t, err)
	assert.Equal(t, user.RoleMember, member.Role)
}

func TestRegisterValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "X", "", testPassword, "")
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = f.svc.Register(ctx, "X", "not-an-email", testPassword, "")
	assert.ErrorIs(t, err, ErrInvalidEmailFormat)

	_, err = f.svc.Register(ctx, "X", "x@example.com", "weak", "")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestAuthenticateGenericFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "carol@example.com")

	_, unknownErr := f.svc.Authenticate(ctx, "nobody@example.com", testPassword)
	_, wrongErr := f.svc.Authenticate(ctx, "carol@example.com", "Wr0ngPass!")

	// Unknown email and wrong password must be indistinguishable.
	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr, wrongErr)
}

func TestVerificationFlow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created := f.register(t, "dave@example.com")

	require.NoError(t, f.svc.IssueVerificationCode(ctx, "dave@example.com"))

	code := f.mailer.lastVerificationCode("dave@example.com")
	require.Len(t, code, 6)

	stored := f.store.raw(created.ID)
	require.NotNil(t, stored.VerificationCodeHash)
	assert.NotEqual(t, code, *stored.VerificationCodeHash, "plaintext code must never be stored")
	require.NotNil(t, stored.VerificationCodeExpiresAt)
	assert.Equal(t, f.clock.Add(5*time.Minute), *stored.VerificationCodeExpiresAt)

	require.NoError(t, f.svc.ConsumeVerificationCode(ctx, "dave@example.com", code))

	stored = f.store.raw(created.ID)
	assert.True(t, stored.Verified)
	assert.Nil(t, stored.VerificationCodeHash)
	assert.Nil(t, stored.VerificationCodeExpiresAt)

	// Consuming again must fail: the account is already verified.
	err := f.svc.ConsumeVerificationCode(ctx, "dave@example.com", code)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	// A fresh session now carries verified=true.
	session, err := f.svc.Authenticate(ctx, "dave@example.com", testPassword)
	require.NoError(t, err)
	claims, err := f.tokens.VerifyToken(session.Token)
	require.NoError(t, err)
	assert.True(t, claims.Verified)
}

func TestVerificationReissueOverwrites(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "erin@example.com")

	require.NoError(t, f.svc.IssueVerificationCode(ctx, "erin@example.com"))
	first := f.mailer.lastVerificationCode("erin@example.com")

	require.NoError(t, f.svc.IssueVerificationCode(ctx, "erin@example.com"))
	second := f.mailer.lastVerificationCode("erin@example.com")

	if first != second {
		err := f.svc.ConsumeVerificationCode(ctx, "erin@example.com", first)
		assert.ErrorIs(t, err, ErrInvalidCode, "overwritten code must stop working")
	}
	require.NoError(t, f.svc.ConsumeVerificationCode(ctx, "erin@example.com", second))
}

func TestVerificationCodeExpiryBoundary(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "frank@example.com")

	require.NoError(t, f.svc.IssueVerificationCode(ctx, "frank@example.com"))
	code := f.mailer.lastVerificationCode("frank@example.com")

	// Exactly at the expiry instant the code still works.
	f.advance(5 * time.Minute)
	require.NoError(t, f.svc.ConsumeVerificationCode(ctx, "frank@example.com", code))
}

func TestVerificationCodeExpired(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "grace@example.com")

	require.NoError(t, f.svc.IssueVerificationCode(ctx, "grace@example.com"))
	code := f.mailer.lastVerificationCode("grace@example.com")

	f.advance(5*time.Minute + time.Millisecond)
	err := f.svc.ConsumeVerificationCode(ctx, "grace@example.com", code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerificationGenericInvalidCode(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "heidi@example.com")

	// No code issued yet.
	err := f.svc.ConsumeVerificationCode(ctx, "heidi@example.com", "123456")
	assert.ErrorIs(t, err, ErrInvalidCode)

	require.NoError(t, f.svc.IssueVerificationCode(ctx, "heidi@example.com"))
	code := f.mailer.lastVerificationCode("heidi@example.com")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	err = f.svc.ConsumeVerificationCode(ctx, "heidi@example.com", wrong)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestIssueVerificationErrors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	err := f.svc.IssueVerificationCode(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	created := f.register(t, "ivan@example.com")
	require.NoError(t, f.svc.IssueVerificationCode(ctx, "ivan@example.com"))
	code := f.mailer.lastVerificationCode("ivan@example.com")
	require.NoError(t, f.svc.ConsumeVerificationCode(ctx, "ivan@example.com", code))

	err = f.svc.IssueVerificationCode(ctx, "ivan@example.com")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
	_ = created
}

func TestIssueVerificationDeliveryFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created := f.register(t, "judy@example.com")

	f.mailer.acceptNone = true
	err := f.svc.IssueVerificationCode(ctx, "judy@example.com")
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	stored := f.store.raw(created.ID)
	assert.Nil(t, stored.VerificationCodeHash, "no code may be persisted when delivery fails")
	assert.Nil(t, stored.VerificationCodeExpiresAt)
}

func TestResetFlow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created := f.register(t, "kate@example.com")

	require.NoError(t, f.svc.IssueResetCode(ctx, "kate@example.com"))
	code := f.mailer.lastResetCode("kate@example.com")
	require.Len(t, code, 6)

	stored := f.store.raw(created.ID)
	require.NotNil(t, stored.ResetCodeHash)
	assert.NotEqual(t, code, *stored.ResetCodeHash)

	const newPassword = "N3wSecret?!"
	require.NoError(t, f.svc.ConsumeResetCode(ctx, "kate@example.com", code, newPassword))

	stored = f.store.raw(created.ID)
	assert.Nil(t, stored.ResetCodeHash)
	assert.Nil(t, stored.ResetCodeIssuedAt)

	_, err := f.svc.Authenticate(ctx, "kate@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "old password must stop working")

	_, err = f.svc.Authenticate(ctx, "kate@example.com", newPassword)
	require.NoError(t, err)

	// The consumed code is single use.
	err = f.svc.ConsumeResetCode(ctx, "kate@example.com", code, "An0ther?Pass")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestResetCooldown(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "leo@example.com")

	require.NoError(t, f.svc.IssueResetCode(ctx, "leo@example.com"))

	f.advance(59 * time.Second)
	err := f.svc.IssueResetCode(ctx, "leo@example.com")
	assert.ErrorIs(t, err, ErrCooldown)

	f.advance(time.Second)
	require.NoError(t, f.svc.IssueResetCode(ctx, "leo@example.com"))
}

func TestResetCodeExpired(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "mia@example.com")

	require.NoError(t, f.svc.IssueResetCode(ctx, "mia@example.com"))
	code := f.mailer.lastResetCode("mia@example.com")

	f.advance(5*time.Minute + time.Millisecond)
	err := f.svc.ConsumeResetCode(ctx, "mia@example.com", code, "N3wSecret?!")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestResetRejectsWeakPasswordBeforeCodeCheck(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "nina@example.com")

	require.NoError(t, f.svc.IssueResetCode(ctx, "nina@example.com"))
	code := f.mailer.lastResetCode("nina@example.com")

	err := f.svc.ConsumeResetCode(ctx, "nina@example.com", code, "weak")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	// The code survives a failed validation attempt.
	require.NoError(t, f.svc.ConsumeResetCode(ctx, "nina@example.com", code, "N3wSecret?!"))
}

func TestResetDeliveryFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created := f.register(t, "olga@example.com")

	f.mailer.acceptNone = true
	err := f.svc.IssueResetCode(ctx, "olga@example.com")
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	stored := f.store.raw(created.ID)
	assert.Nil(t, stored.ResetCodeHash)
	assert.Nil(t, stored.ResetCodeIssuedAt)
}

func TestChangePassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created := f.register(t, "pam@example.com")

	unverified := &TokenClaims{UserID: created.ID.String(), Email: created.Email, Verified: false}
	err := f.svc.ChangePassword(ctx, unverified, testPassword, "N3wSecret?!")
	assert.ErrorIs(t, err, ErrNotVerified)

	verified := &TokenClaims{UserID: created.ID.String(), Email: created.Email, Verified: true}

	err = f.svc.ChangePassword(ctx, verified, "Wr0ngPass!", "N3wSecret?!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.svc.ChangePassword(ctx, verified, testPassword, "noupper1?")
	assert.ErrorIs(t, err, ErrPasswordNoUpper)

	require.NoError(t, f.svc.ChangePassword(ctx, verified, testPassword, "N3wSecret?!"))

	_, err = f.svc.Authenticate(ctx, "pam@example.com", "N3wSecret?!")
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created := f.register(t, "quinn@example.com")

	name := "Quinn Q"
	img := "https://cdn.example.com/quinn.png"
	updated, err := f.svc.UpdateProfile(ctx, created.ID, &name, &img)
	require.NoError(t, err)
	assert.Equal(t, "Quinn Q", updated.Name)
	require.NotNil(t, updated.ProfileImageURL)
	assert.Equal(t, img, *updated.ProfileImageURL)

	// Updating the profile must not wipe the stored password hash.
	_, err = f.svc.Authenticate(ctx, "quinn@example.com", testPassword)
	require.NoError(t, err)
}

func TestUpdateEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created := f.register(t, "rob@example.com")
	f.register(t, "taken@example.com")

	_, err := f.svc.UpdateEmail(ctx, created.ID, "new@example.com", "Wr0ngPass!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.UpdateEmail(ctx, created.ID, "taken@example.com", testPassword)
	assert.ErrorIs(t, err, ErrEmailExists)

	updated, err := f.svc.UpdateEmail(ctx, created.ID, "New@Example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)

	_, err = f.svc.Authenticate(ctx, "new@example.com", testPassword)
	require.NoError(t, err)
}

func TestGetProfileStripsSecrets(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created := f.register(t, "sam@example.com")

	u, err := f.svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, u.PasswordHash)
	assert.Nil(t, u.VerificationCodeHash)
	assert.Nil(t, u.ResetCodeHash)
}
