package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/offergrid/offergrid/app/dto"
	"github.com/offergrid/offergrid/app/services"
	"github.com/offergrid/offergrid/models"
	"github.com/offergrid/offergrid/repository"
	"github.com/offergrid/offergrid/utils"
)

// stubCaptchaService answers every verification with a fixed result
type stubCaptchaService struct {
	result bool
}

func (s *stubCaptchaService) GenerateRotate(ctx context.Context) (*services.RotateChallenge, error) {
	return &services.RotateChallenge{
		ID:                "test-challenge",
		MasterImageBase64: "master-image",
		ThumbImageBase64:  "thumb-image",
	}, nil
}

func (s *stubCaptchaService) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	return s.result
}

func newTestAdminAuthFlow(t *testing.T, db *gorm.DB, captchaOK bool) AdminAuthFlow {
	t.Helper()

	tokenService, err := services.NewTokenService(
		time.Hour, 24*time.Hour,
		"test-issuer", "test-audience",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)

	return NewAdminAuthFlow(
		repository.NewAdminRepository(db),
		tokenService,
		&stubCaptchaService{result: captchaOK},
	)
}

func createTestAdmin(t *testing.T, db *gorm.DB, username, password string, active bool) *models.Admin {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	admin := &models.Admin{
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(active),
	}
	require.NoError(t, repository.NewAdminRepository(db).Save(context.Background(), admin))
	return admin
}

func verifyRequest(username, password string) *dto.AdminCaptchaVerifyRequest {
	return &dto.AdminCaptchaVerifyRequest{
		ChallengeID: "test-challenge",
		Username:    username,
		Password:    password,
		UserAngle:   90,
	}
}

func TestAdminAuthFlowVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessfulLogin", func(t *testing.T) {
		db := setupTestDB(t)
		admin := createTestAdmin(t, db, "operator", "SuperSecret123!", true)
		flow := newTestAdminAuthFlow(t, db, true)

		resp, err := flow.Verify(ctx, verifyRequest("operator", "SuperSecret123!"), nil)
		require.NoError(t, err)
		require.NotNil(t, resp)

		assert.Equal(t, admin.ID, resp.Admin.ID)
		assert.Equal(t, "operator", resp.Admin.Username)
		assert.True(t, utils.IsTrue(resp.Admin.IsActive))

		assert.NotEmpty(t, resp.Session.AccessToken)
		assert.NotEmpty(t, resp.Session.RefreshToken)
		assert.NotEqual(t, resp.Session.AccessToken, resp.Session.RefreshToken)
		assert.Equal(t, "Bearer", resp.Session.TokenType)
		assert.Equal(t, 3600, resp.Session.ExpiresIn)
	})

	t.Run("RecordsLastLogin", func(t *testing.T) {
		db := setupTestDB(t)
		admin := createTestAdmin(t, db, "operator", "SuperSecret123!", true)
		flow := newTestAdminAuthFlow(t, db, true)

		_, err := flow.Verify(ctx, verifyRequest("operator", "SuperSecret123!"), nil)
		require.NoError(t, err)

		reloaded, err := repository.NewAdminRepository(db).ByID(ctx, admin.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded)
		assert.NotNil(t, reloaded.LastLoginAt)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		db := setupTestDB(t)
		createTestAdmin(t, db, "operator", "SuperSecret123!", true)
		flow := newTestAdminAuthFlow(t, db, true)

		_, err := flow.Verify(ctx, verifyRequest("operator", "WrongPassword!"), nil)
		require.Error(t, err)
		assert.True(t, IsIncorrectPassword(err))
	})

	t.Run("UnknownUsername", func(t *testing.T) {
		db := setupTestDB(t)
		flow := newTestAdminAuthFlow(t, db, true)

		_, err := flow.Verify(ctx, verifyRequest("ghost", "SuperSecret123!"), nil)
		require.Error(t, err)
		assert.True(t, IsAdminNotFound(err))
	})

	t.Run("InactiveAdmin", func(t *testing.T) {
		db := setupTestDB(t)
		createTestAdmin(t, db, "operator", "SuperSecret123!", false)
		flow := newTestAdminAuthFlow(t, db, true)

		_, err := flow.Verify(ctx, verifyRequest("operator", "SuperSecret123!"), nil)
		require.Error(t, err)
		assert.True(t, IsAdminInactive(err))
	})

	t.Run("FailedCaptcha", func(t *testing.T) {
		db := setupTestDB(t)
		createTestAdmin(t, db, "operator", "SuperSecret123!", true)
		flow := newTestAdminAuthFlow(t, db, false)

		_, err := flow.Verify(ctx, verifyRequest("operator", "SuperSecret123!"), nil)
		require.Error(t, err)
		assert.True(t, IsInvalidCaptcha(err))
	})

	t.Run("MissingChallengeID", func(t *testing.T) {
		db := setupTestDB(t)
		createTestAdmin(t, db, "operator", "SuperSecret123!", true)
		flow := newTestAdminAuthFlow(t, db, true)

		req := verifyRequest("operator", "SuperSecret123!")
		req.ChallengeID = ""

		_, err := flow.Verify(ctx, req, nil)
		require.Error(t, err)
		assert.True(t, IsInvalidCaptcha(err))
	})

	t.Run("NilRequest", func(t *testing.T) {
		db := setupTestDB(t)
		flow := newTestAdminAuthFlow(t, db, true)

		_, err := flow.Verify(ctx, nil, nil)
		require.Error(t, err)
	})
}

func TestAdminAuthFlowRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("RefreshRoundTrip", func(t *testing.T) {
		db := setupTestDB(t)
		createTestAdmin(t, db, "operator", "SuperSecret123!", true)
		flow := newTestAdminAuthFlow(t, db, true)

		login, err := flow.Verify(ctx, verifyRequest("operator", "SuperSecret123!"), nil)
		require.NoError(t, err)

		refreshed, err := flow.Refresh(ctx, &dto.AdminRefreshRequest{RefreshToken: login.Session.RefreshToken})
		require.NoError(t, err)
		require.NotNil(t, refreshed)

		assert.Equal(t, "operator", refreshed.Admin.Username)
		assert.NotEmpty(t, refreshed.Session.AccessToken)
		assert.NotEmpty(t, refreshed.Session.RefreshToken)
		assert.NotEqual(t, login.Session.AccessToken, refreshed.Session.AccessToken)
	})

	t.Run("AccessTokenRejected", func(t *testing.T) {
		db := setupTestDB(t)
		createTestAdmin(t, db, "operator", "SuperSecret123!", true)
		flow := newTestAdminAuthFlow(t, db, true)

		login, err := flow.Verify(ctx, verifyRequest("operator", "SuperSecret123!"), nil)
		require.NoError(t, err)

		_, err = flow.Refresh(ctx, &dto.AdminRefreshRequest{RefreshToken: login.Session.AccessToken})
		require.Error(t, err)
		assert.True(t, IsInvalidToken(err))
	})

	t.Run("GarbageToken", func(t *testing.T) {
		db := setupTestDB(t)
		flow := newTestAdminAuthFlow(t, db, true)

		_, err := flow.Refresh(ctx, &dto.AdminRefreshRequest{RefreshToken: "not-a-token"})
		require.Error(t, err)
		assert.True(t, IsInvalidToken(err))
	})

	t.Run("MissingToken", func(t *testing.T) {
		db := setupTestDB(t)
		flow := newTestAdminAuthFlow(t, db, true)

		_, err := flow.Refresh(ctx, &dto.AdminRefreshRequest{})
		require.Error(t, err)
	})
}

func TestAdminAuthFlowInitCaptcha(t *testing.T) {
	ctx := context.Background()

	t.Run("GeneratesChallenge", func(t *testing.T) {
		db := setupTestDB(t)

		captchaSvc, err := services.NewCaptchaServiceRotate(2*time.Minute, 10, 300)
		require.NoError(t, err)

		tokenService, err := services.NewTokenService(
			time.Hour, 24*time.Hour,
			"test-issuer", "test-audience",
			"test-secret-key-for-jwt-signing-32-chars",
		)
		require.NoError(t, err)

		flow := NewAdminAuthFlow(repository.NewAdminRepository(db), tokenService, captchaSvc)

		resp, err := flow.InitCaptcha(ctx)
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.NotEmpty(t, resp.ChallengeID)
		assert.NotEmpty(t, resp.MasterImageBase64)
		assert.NotEmpty(t, resp.ThumbImageBase64)
	})

	t.Run("NilService", func(t *testing.T) {
		db := setupTestDB(t)

		tokenService, err := services.NewTokenService(
			time.Hour, 24*time.Hour,
			"test-issuer", "test-audience",
			"test-secret-key-for-jwt-signing-32-chars",
		)
		require.NoError(t, err)

		flow := NewAdminAuthFlow(repository.NewAdminRepository(db), tokenService, nil)

		_, err = flow.InitCaptcha(ctx)
		require.Error(t, err)
	})
}
