package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KinuGra/tosho-2509-back/internal/auth"
	"github.com/KinuGra/tosho-2509-back/internal/config"
	"github.com/KinuGra/tosho-2509-back/internal/events"
	"github.com/KinuGra/tosho-2509-back/internal/observability"
	"github.com/KinuGra/tosho-2509-back/internal/repository"
)

const identity = "learner@example.com"

type verificationFixture struct {
	svc        *VerificationService
	codes      repository.VerificationRepository
	mailer     *fakeMailer
	clock      *testClock
	dispatcher *recordingDispatcher
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &verificationFixture{
		codes:      repository.NewRedisVerificationRepository(client, time.Hour),
		mailer:     newFakeMailer(),
		clock:      newTestClock(),
		dispatcher: &recordingDispatcher{},
	}
	f.svc = NewVerificationService(
		config.VerificationConfig{Store: config.StoreRedis, CodeTTLMinutes: 5, MaxAttempts: 3},
		VerificationDependencies{
			Codes:      f.codes,
			Mailer:     f.mailer,
			Dispatcher: f.dispatcher,
			Metrics:    observability.NewMetrics(),
			Logger:     zap.NewNop(),
			Clock:      f.clock.Now,
		},
	)
	return f
}

// wrongCode returns a well-formed code that differs from code.
func wrongCode(code string) string {
	b := []byte(code)
	b[0] = '0' + (b[0]-'0'+1)%10
	return string(b)
}

func TestVerification_RequestStoresDigestAndDelivers(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	code, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, code, f.mailer.last(identity))

	record, err := f.codes.Get(ctx, identity)
	require.NoError(t, err)
	assert.NotEqual(t, code, record.CodeHash)
	assert.Equal(t, auth.HashCode(code), record.CodeHash)
	assert.Equal(t, 3, record.AttemptsLeft)
	assert.Equal(t, f.clock.Now().Add(5*time.Minute), record.ExpiresAt.UTC())
}

func TestVerification_CorrectCodeConsumesRecord(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	code, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)

	require.NoError(t, f.svc.VerifyCode(ctx, identity, code))
	assert.ErrorIs(t, f.svc.VerifyCode(ctx, identity, code), ErrNoCodeRequested)
	assert.Equal(t, []events.EventType{events.EventCodeVerified}, f.dispatcher.types())
}

func TestVerification_NoCodeRequested(t *testing.T) {
	f := newVerificationFixture(t)
	assert.ErrorIs(t, f.svc.VerifyCode(context.Background(), identity, "123456"), ErrNoCodeRequested)
}

func TestVerification_NewRequestSupersedesPrevious(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	first, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)
	second, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)

	if first != second {
		assert.ErrorIs(t, f.svc.VerifyCode(ctx, identity, first), ErrInvalidCode)
	}
	require.NoError(t, f.svc.VerifyCode(ctx, identity, second))
}

func TestVerification_SupersessionResetsAttempts(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	code, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, f.svc.VerifyCode(ctx, identity, wrongCode(code)), ErrInvalidCode)
	}
	require.ErrorIs(t, f.svc.VerifyCode(ctx, identity, code), ErrNoAttemptsLeft)

	fresh, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyCode(ctx, identity, fresh))
}

func TestVerification_AttemptsAreBounded(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	code, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)

	for want := 2; want >= 0; want-- {
		require.ErrorIs(t, f.svc.VerifyCode(ctx, identity, wrongCode(code)), ErrInvalidCode)
		record, err := f.codes.Get(ctx, identity)
		require.NoError(t, err)
		assert.Equal(t, want, record.AttemptsLeft)
	}

	assert.ErrorIs(t, f.svc.VerifyCode(ctx, identity, code), ErrNoAttemptsLeft)
	assert.ErrorIs(t, f.svc.VerifyCode(ctx, identity, wrongCode(code)), ErrNoAttemptsLeft)
}

func TestVerification_Timeline(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	code, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Second)
	require.ErrorIs(t, f.svc.VerifyCode(ctx, identity, wrongCode(code)), ErrInvalidCode)

	f.clock.Advance(10 * time.Second)
	require.ErrorIs(t, f.svc.VerifyCode(ctx, identity, wrongCode(code)), ErrInvalidCode)

	f.clock.Advance(1 * time.Second)
	require.NoError(t, f.svc.VerifyCode(ctx, identity, code))
}

func TestVerification_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{name: "just before expiry", elapsed: 299 * time.Second},
		{name: "at expiry", elapsed: 300 * time.Second, wantErr: ErrCodeExpired},
		{name: "after expiry", elapsed: 301 * time.Second, wantErr: ErrCodeExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newVerificationFixture(t)
			ctx := context.Background()

			code, err := f.svc.RequestCode(ctx, identity)
			require.NoError(t, err)
			f.clock.Advance(tt.elapsed)

			err = f.svc.VerifyCode(ctx, identity, code)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerification_ExpiryCheckedBeforeAttempts(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	code, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, f.svc.VerifyCode(ctx, identity, wrongCode(code)), ErrInvalidCode)
	}

	f.clock.Advance(6 * time.Minute)
	assert.ErrorIs(t, f.svc.VerifyCode(ctx, identity, code), ErrCodeExpired)
}

func TestVerification_ExpiredCodeDoesNotSpendAttempts(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	code, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)

	require.ErrorIs(t, f.svc.VerifyCode(ctx, identity, wrongCode(code)), ErrCodeExpired)
	record, err := f.codes.Get(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, 3, record.AttemptsLeft)
}

func TestVerification_DeliveryFailureWithdrawsCode(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()
	f.mailer.err = errors.New("relay down")

	_, err := f.svc.RequestCode(ctx, identity)
	require.ErrorIs(t, err, ErrDeliveryFailed)

	_, err = f.codes.Get(ctx, identity)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, f.svc.VerifyCode(ctx, identity, "000000"), ErrNoCodeRequested)
}

func TestVerification_IdentityIsNormalized(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	code, err := f.svc.RequestCode(ctx, "  Learner@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, code, f.mailer.last(identity))
	require.NoError(t, f.svc.VerifyCode(ctx, identity, code))
}

func TestVerification_ConcurrentWrongSubmissionsSpendExactBudget(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	code, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)
	bad := wrongCode(code)

	const workers = 10
	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.VerifyCode(ctx, identity, bad)
		}(i)
	}
	wg.Wait()

	var invalid, exhausted int
	for _, err := range results {
		switch {
		case errors.Is(err, ErrInvalidCode):
			invalid++
		case errors.Is(err, ErrNoAttemptsLeft):
			exhausted++
		default:
			t.Errorf("unexpected result: %v", err)
		}
	}
	assert.Equal(t, 3, invalid)
	assert.Equal(t, workers-3, exhausted)
}

func TestVerification_ConcurrentCorrectSubmissionsSucceedOnce(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	code, err := f.svc.RequestCode(ctx, identity)
	require.NoError(t, err)

	const workers = 10
	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.VerifyCode(ctx, identity, code)
		}(i)
	}
	wg.Wait()

	var ok, gone int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNoCodeRequested):
			gone++
		default:
			t.Errorf("unexpected result: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, gone)
}

func TestVerification_ConcurrentRequestsLeaveOneWinner(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		who := fmt.Sprintf("race-%d@example.com", round)

		var codes [2]string
		var errs [2]error
		var wg sync.WaitGroup
		for i := range codes {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				codes[i], errs[i] = f.svc.RequestCode(ctx, who)
			}(i)
		}
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		record, err := f.codes.Get(ctx, who)
		require.NoError(t, err)
		winner, loser := codes[0], codes[1]
		if record.CodeHash == auth.HashCode(loser) {
			winner, loser = loser, winner
		}
		require.Equal(t, auth.HashCode(winner), record.CodeHash, "stored record must belong to one of the requests")

		if loser != winner {
			assert.ErrorIs(t, f.svc.VerifyCode(ctx, who, loser), ErrInvalidCode)
		}
		require.NoError(t, f.svc.VerifyCode(ctx, who, winner))
		assert.ErrorIs(t, f.svc.VerifyCode(ctx, who, winner), ErrNoCodeRequested)
	}
}
