package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (r *recordingSender) Send(ctx context.Context, mobile, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.codes == nil {
		r.codes = make(map[string]string)
	}
	r.codes[mobile] = code
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService() (*Service, *MemoryStore, *recordingSender, *testClock) {
	store := NewMemoryStore()
	sender := &recordingSender{}
	clock := &testClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewService(store, sender, 0)
	svc.cost = bcrypt.MinCost
	svc.now = clock.Now
	return svc, store, sender, clock
}

func TestSend_StoresOnlyHash(t *testing.T) {
	svc, store, sender, clock := newTestService()

	sent, err := svc.Send(context.Background(), "+91 98765 43210")
	require.NoError(t, err)

	assert.Equal(t, "9876543210", sent.Mobile)
	assert.Len(t, sent.Code, 6)
	assert.Regexp(t, `^[1-9]\d{5}$`, sent.Code)
	assert.Equal(t, clock.Now().Add(DefaultTTL), sent.ExpiresAt)
	assert.Equal(t, sent.Code, sender.codes["9876543210"])

	c, err := store.GetChallenge(context.Background(), "9876543210")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.NotEqual(t, sent.Code, string(c.Hash))
	assert.NoError(t, bcrypt.CompareHashAndPassword(c.Hash, []byte(sent.Code)))
}

func TestSend_InvalidMobile(t *testing.T) {
	svc, _, _, _ := newTestService()

	for _, mobile := range []string{"", "12345", "98765432101", "98765abcde"} {
		_, err := svc.Send(context.Background(), mobile)
		assert.ErrorIs(t, err, ErrInvalidMobile, mobile)
	}
}

func TestSend_SenderFailure(t *testing.T) {
	svc, _, sender, _ := newTestService()
	sender.err = errors.New("sms gateway down")

	_, err := svc.Send(context.Background(), "9876543210")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	sent, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)

	wrong := "000000"
	if sent.Code == wrong {
		wrong = "111111"
	}

	res, err := svc.Verify(ctx, "9876543210", wrong)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, ReasonInvalid, res.Reason)

	res, err = svc.Verify(ctx, "9876543210", "12ab")
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalid, res.Reason)

	res, err = svc.Verify(ctx, "9876543210", sent.Code)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Reason)

	// Код одноразовый
	res, err = svc.Verify(ctx, "9876543210", sent.Code)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, ReasonExpired, res.Reason)
}

func TestVerify_Expired(t *testing.T) {
	svc, store, _, clock := newTestService()
	ctx := context.Background()

	sent, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)

	clock.Advance(DefaultTTL)

	res, err := svc.Verify(ctx, "9876543210", sent.Code)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, ReasonExpired, res.Reason)

	c, _ := store.GetChallenge(ctx, "9876543210")
	assert.Nil(t, c, "просроченный код удаляется")
}

func TestVerify_ResendReplacesCode(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)
	second, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)

	if first.Code != second.Code {
		res, err := svc.Verify(ctx, "9876543210", first.Code)
		require.NoError(t, err)
		assert.False(t, res.Success)
	}

	res, err := svc.Verify(ctx, "9876543210", second.Code)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestVerify_WithoutSend(t *testing.T) {
	svc, _, _, _ := newTestService()

	res, err := svc.Verify(context.Background(), "9876543210", "123456")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, ReasonExpired, res.Reason)

	_, err = svc.Verify(context.Background(), "123", "123456")
	assert.ErrorIs(t, err, ErrInvalidMobile)
}
