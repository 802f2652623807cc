// Property-based tests for the economy engine's balance arithmetic.
package economy

import (
	"context"
	"math"
	"testing"
	"time"

	"pgregory.net/rapid"
)

var testClockStart = time.Unix(1_700_000_000, 0)

func secondsDuration(s int64) time.Duration { return time.Duration(s) * time.Second }

// TestGambleConservationProperty checks that for any wager and roll the
// balance delta equals floor(wager*multiplier) - wager, and the balance never
// goes negative.
func TestGambleConservationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := newTestEngine(t)
		ctx := context.Background()

		start := rapid.Int64Range(1, 1_000_000).Draw(rt, "start")
		if _, err := e.Credit(ctx, testGuild, testPlayer, start); err != nil {
			rt.Fatalf("credit: %v", err)
		}

		wager := rapid.Int64Range(1, start).Draw(rt, "wager")
		roll := rapid.IntRange(1, 100).Draw(rt, "roll")

		res, err := e.Gamble(ctx, testGuild, testPlayer, wager, roll)
		if err != nil {
			rt.Fatalf("gamble: %v", err)
		}

		wantPayout := int64(math.Floor(float64(wager) * Multiplier(roll)))
		if res.Payout != wantPayout {
			rt.Fatalf("payout mismatch: wager=%d roll=%d got=%d want=%d", wager, roll, res.Payout, wantPayout)
		}
		if res.Balance != start+res.Net {
			rt.Fatalf("balance drift: start=%d net=%d got=%d", start, res.Net, res.Balance)
		}
		if res.Balance < 0 {
			rt.Fatalf("balance went negative: %d", res.Balance)
		}
	})
}

// TestTransferConservationProperty checks that a transfer between two players
// never changes the total coins in the guild.
func TestTransferConservationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := newTestEngine(t)
		ctx := context.Background()

		senderStart := rapid.Int64Range(0, 10_000).Draw(rt, "senderStart")
		recvStart := rapid.Int64Range(0, 10_000).Draw(rt, "recvStart")
		amount := rapid.Int64Range(1, 20_000).Draw(rt, "amount")

		if senderStart > 0 {
			if _, err := e.Credit(ctx, testGuild, testPlayer, senderStart); err != nil {
				rt.Fatalf("credit sender: %v", err)
			}
		}
		if recvStart > 0 {
			if _, err := e.Credit(ctx, testGuild, testOther, recvStart); err != nil {
				rt.Fatalf("credit recipient: %v", err)
			}
		}

		err := e.Transfer(ctx, testGuild, testPlayer, testOther, amount)
		if amount > senderStart && err == nil {
			rt.Fatalf("transfer of %d succeeded with balance %d", amount, senderStart)
		}

		senderBal, gErr := e.Balance(ctx, testGuild, testPlayer)
		if gErr != nil {
			rt.Fatalf("balance sender: %v", gErr)
		}
		recvBal, gErr := e.Balance(ctx, testGuild, testOther)
		if gErr != nil {
			rt.Fatalf("balance recipient: %v", gErr)
		}

		if senderBal+recvBal != senderStart+recvStart {
			rt.Fatalf("coins not conserved: before=%d after=%d", senderStart+recvStart, senderBal+recvBal)
		}
		if err == nil && senderBal != senderStart-amount {
			rt.Fatalf("sender balance wrong after transfer: got=%d want=%d", senderBal, senderStart-amount)
		}
	})
}

// TestDailyStreakMonotonicProperty checks that repeated claims spaced inside
// the grace window grow the streak by exactly one each time.
func TestDailyStreakMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := newTestEngine(t)
		ctx := context.Background()

		claims := rapid.IntRange(1, 10).Draw(rt, "claims")
		now := testClockStart
		for i := 1; i <= claims; i++ {
			res, err := e.ClaimDaily(ctx, testGuild, testPlayer, now)
			if err != nil {
				rt.Fatalf("claim %d: %v", i, err)
			}
			if res.Streak != i {
				rt.Fatalf("claim %d: streak=%d", i, res.Streak)
			}
			// Anywhere in [24h, 48h) keeps the streak alive.
			gap := rapid.Int64Range(int64(DailyCooldown.Seconds()), int64(DailyGrace.Seconds())-1).Draw(rt, "gap")
			now = now.Add(secondsDuration(gap))
		}
	})
}
