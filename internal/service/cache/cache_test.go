package cache

import (
	"bytes"
	"context"
	"image/color"
	"testing"
	"time"

	"artisan-market/internal/models"
	"artisan-market/internal/service/otp"
	"artisan-market/internal/verify"

	"github.com/alicebob/miniredis/v2"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	svc, err := NewService(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, mr
}

func TestNewService_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewService(addr, "", 0)
	assert.Error(t, err)
}

// ============ OTP ============

func TestChallenge_MissingIsNil(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.GetChallenge(context.Background(), "9876543210")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestChallenge_SaveGetDelete(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	saved := &models.OTPChallenge{Mobile: "9876543210", Hash: []byte("hash"), ExpiresAt: time.Now().Add(time.Minute).Round(0)}
	require.NoError(t, svc.SaveChallenge(ctx, saved, time.Minute))
	assert.True(t, mr.Exists("otp:9876543210"))

	got, err := svc.GetChallenge(ctx, "9876543210")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved.Hash, got.Hash)
	assert.True(t, saved.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, svc.DeleteChallenge(ctx, "9876543210"))
	got, err = svc.GetChallenge(ctx, "9876543210")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestChallenge_ExpiresWithTTL(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveChallenge(ctx, &models.OTPChallenge{Mobile: "9876543210"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := svc.GetChallenge(ctx, "9876543210")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestOTPService_OverRedis(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()
	otpService := otp.NewService(svc, nil, time.Minute)

	// Кода не запрашивали - "expired", а не ошибка хранилища
	res, err := otpService.Verify(ctx, "9876543210", "123456")
	require.NoError(t, err)
	assert.Equal(t, otp.ReasonExpired, res.Reason)

	sent, err := otpService.Send(ctx, "+91 98765 43210")
	require.NoError(t, err)

	// В Redis лежит только хэш
	raw, err := mr.Get("otp:9876543210")
	require.NoError(t, err)
	assert.NotContains(t, raw, sent.Code)

	res, err = otpService.Verify(ctx, "9876543210", sent.Code)
	require.NoError(t, err)
	assert.True(t, res.Success)

	// Код погашен
	res, err = otpService.Verify(ctx, "9876543210", sent.Code)
	require.NoError(t, err)
	assert.Equal(t, otp.ReasonExpired, res.Reason)
}

// ============ VERIFICATION CACHE ============

func TestVerification_SetGetTTL(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()
	svc.SetVerificationTTL(10 * time.Minute)

	got, err := svc.GetVerification(ctx, "abc")
	assert.NoError(t, err)
	assert.Nil(t, got)

	result := &models.VerificationResult{Verified: true, Labels: []string{"product", "clear-photo"}, Confidence: 0.8}
	require.NoError(t, svc.SetVerification(ctx, "abc", result))
	assert.Equal(t, 10*time.Minute, mr.TTL("verify:abc"))

	got, err = svc.GetVerification(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, result, got)

	mr.FastForward(11 * time.Minute)
	got, err = svc.GetVerification(ctx, "abc")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestVerifier_UsesRedisCache(t *testing.T) {
	svc, mr := newTestService(t)

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(300, 300, color.White), imaging.PNG))

	verifier := verify.New(svc)
	verifier.Latency = 0

	first := verifier.Verify(context.Background(), buf.Bytes())
	assert.True(t, first.Verified)
	assert.Len(t, mr.Keys(), 1)

	second := verifier.Verify(context.Background(), buf.Bytes())
	assert.Equal(t, first, second)
}

// ============ LISTING / TASK / STATS ============

func TestListingCache(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.GetListing("l1")
	assert.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, svc.SetListing(&models.Listing{ID: "l1", Title: "Clay Pot", Price: 450}))
	got, err = svc.GetListing("l1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Clay Pot", got.Title)

	require.NoError(t, svc.InvalidateListing("l1"))
	got, err = svc.GetListing("l1")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaskCache_SkipsProcessing(t *testing.T) {
	svc, mr := newTestService(t)

	require.NoError(t, svc.SetTask(&models.Task{ID: "t1", Status: models.TaskStatusProcessing}))
	assert.False(t, mr.Exists("task:t1"))

	require.NoError(t, svc.SetTask(&models.Task{ID: "t1", Status: models.TaskStatusCompleted, ListingID: "l1"}))
	got, err := svc.GetTask("t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "l1", got.ListingID)
	assert.Equal(t, 24*time.Hour, mr.TTL("task:t1"))
}

func TestStatsCache(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.SetStats(&models.Stats{TotalUsers: 3}))
	got, err := svc.GetStats()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.TotalUsers)

	require.NoError(t, svc.InvalidateStats())
	got, err = svc.GetStats()
	assert.NoError(t, err)
	assert.Nil(t, got)
}
