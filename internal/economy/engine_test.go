package economy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minigame-bot/internal/store"
)

const (
	testGuild  = int64(1000)
	testPlayer = int64(42)
	testOther  = int64(43)
)

// newTestEngine builds an Engine over a document store in a temp dir with a
// deterministic random source that always returns min.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.NewDocumentStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewEngine(s, DefaultConfig(), func(min, max int64) int64 { return min })
}

func TestCreditAndBalance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	bal, err := e.Balance(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal, "unknown player starts at zero")

	bal, err = e.Credit(ctx, testGuild, testPlayer, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(150), bal)

	_, err = e.Credit(ctx, testGuild, testPlayer, -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDebit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Credit(ctx, testGuild, testPlayer, 50)
	require.NoError(t, err)

	tests := []struct {
		name        string
		amount      int64
		wantOK      bool
		wantBalance int64
		wantErr     error
	}{
		{name: "sufficient funds", amount: 30, wantOK: true, wantBalance: 20},
		{name: "insufficient leaves balance untouched", amount: 100, wantOK: false, wantBalance: 20},
		{name: "exact balance", amount: 20, wantOK: true, wantBalance: 0},
		{name: "zero amount rejected", amount: 0, wantErr: ErrInvalidAmount},
		{name: "negative amount rejected", amount: -10, wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, bal, err := e.Debit(ctx, testGuild, testPlayer, tt.amount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantBalance, bal)
		})
	}
}

func TestClaimDaily(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)

	// First claim: streak 1, base 100 (deterministic min) + 50 bonus.
	res, err := e.ClaimDaily(ctx, testGuild, testPlayer, start)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, int64(100), res.Base)
	assert.Equal(t, int64(50), res.Bonus)
	assert.Equal(t, int64(150), res.Reward)
	assert.Equal(t, int64(150), res.Balance)

	// Too soon: 1 hour later.
	_, err = e.ClaimDaily(ctx, testGuild, testPlayer, start.Add(time.Hour))
	assert.ErrorIs(t, err, ErrTooSoon)
	var tooSoon *TooSoonError
	require.ErrorAs(t, err, &tooSoon)
	assert.Equal(t, 23*time.Hour, tooSoon.Remaining)

	bal, err := e.Balance(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	assert.Equal(t, int64(150), bal, "failed claim must not mutate")

	// 25h later, inside the grace window: streak extends to 2, bonus 100.
	res, err = e.ClaimDaily(ctx, testGuild, testPlayer, start.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Streak)
	assert.Equal(t, int64(100), res.Bonus)
	assert.Equal(t, int64(200), res.Reward)

	// 3 days later, past the grace window: streak resets to 1.
	res, err = e.ClaimDaily(ctx, testGuild, testPlayer, start.Add(25*time.Hour).Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
}

func TestClaimDailyBoosterMultiplier(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	_, err := e.Credit(ctx, testGuild, testPlayer, 2000)
	require.NoError(t, err)
	_, err = e.Buy(ctx, testGuild, testPlayer, "daily_booster", now)
	require.NoError(t, err)

	res, err := e.ClaimDaily(ctx, testGuild, testPlayer, now)
	require.NoError(t, err)
	assert.Equal(t, int64(150), res.Base+res.Bonus)
	assert.Equal(t, int64(300), res.Reward, "active daily booster doubles the reward")
}

func TestWorkCooldown(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)

	res, err := e.Work(ctx, testGuild, testPlayer, start)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Reward)

	_, err = e.Work(ctx, testGuild, testPlayer, start.Add(30*time.Minute))
	assert.ErrorIs(t, err, ErrTooSoon)

	res, err = e.Work(ctx, testGuild, testPlayer, start.Add(61*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Balance)
}

func TestMultiplierBrackets(t *testing.T) {
	tests := []struct {
		roll int
		want float64
	}{
		{1, 0}, {30, 0},
		{31, 1}, {50, 1},
		{51, 1.5}, {70, 1.5},
		{71, 2}, {90, 2},
		{91, 3}, {99, 3},
		{100, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Multiplier(tt.roll), "roll %d", tt.roll)
	}
}

func TestGamble(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Credit(ctx, testGuild, testPlayer, 100)
	require.NoError(t, err)

	// Losing roll takes the wager.
	res, err := e.Gamble(ctx, testGuild, testPlayer, 40, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Payout)
	assert.Equal(t, int64(-40), res.Net)
	assert.Equal(t, int64(60), res.Balance)

	// Jackpot pays 5x.
	res, err = e.Gamble(ctx, testGuild, testPlayer, 20, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Payout)
	assert.Equal(t, int64(140), res.Balance)

	// 1.5x floors the payout.
	res, err = e.Gamble(ctx, testGuild, testPlayer, 25, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(37), res.Payout)

	// Over-balance wager is rejected without mutation.
	before, err := e.Balance(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	_, err = e.Gamble(ctx, testGuild, testPlayer, before+1, 100)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	after, err := e.Balance(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = e.Gamble(ctx, testGuild, testPlayer, 0, 50)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestTransfer(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Credit(ctx, testGuild, testPlayer, 100)
	require.NoError(t, err)

	require.NoError(t, e.Transfer(ctx, testGuild, testPlayer, testOther, 60))

	senderBal, err := e.Balance(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	assert.Equal(t, int64(40), senderBal)
	recvBal, err := e.Balance(ctx, testGuild, testOther)
	require.NoError(t, err)
	assert.Equal(t, int64(60), recvBal)

	assert.ErrorIs(t, e.Transfer(ctx, testGuild, testPlayer, testOther, 100), ErrInsufficientFunds)
	assert.ErrorIs(t, e.Transfer(ctx, testGuild, testPlayer, testPlayer, 10), ErrSelfTransfer)
	assert.ErrorIs(t, e.Transfer(ctx, testGuild, testPlayer, testOther, 0), ErrInvalidAmount)
}

func TestLeaderboard(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	balances := map[int64]int64{10: 500, 11: 200, 12: 800, 13: 800}
	for id, bal := range balances {
		_, err := e.Credit(ctx, testGuild, id, bal)
		require.NoError(t, err)
	}
	// A different guild must not leak in.
	_, err := e.Credit(ctx, testGuild+1, 99, 9999)
	require.NoError(t, err)

	entries, err := e.Leaderboard(ctx, testGuild, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(12), entries[0].PlayerID, "ties broken by player id")
	assert.Equal(t, int64(13), entries[1].PlayerID)
	assert.Equal(t, int64(10), entries[2].PlayerID)
}
