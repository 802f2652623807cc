package economy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minigame-bot/internal/model"
)

func TestCatalogSeedsDefaults(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	cat, err := e.Catalog(ctx, testGuild)
	require.NoError(t, err)
	require.NotEmpty(t, cat.Items)

	_, ok := cat.Find("lootbox_common")
	assert.True(t, ok)
	_, ok = cat.Find("daily_booster")
	assert.True(t, ok)

	// Second read returns the persisted catalog, not a fresh seed.
	cat2, err := e.Catalog(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, len(cat.Items), len(cat2.Items))
}

func TestShopAddRemoveItem(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	item := model.ShopItem{ID: "trophy", Name: "Trophy", Emoji: "🏆", Price: 300}
	require.NoError(t, e.AddShopItem(ctx, testGuild, item))
	assert.ErrorIs(t, e.AddShopItem(ctx, testGuild, item), ErrItemExists)

	cat, err := e.Catalog(ctx, testGuild)
	require.NoError(t, err)
	got, ok := cat.Find("trophy")
	require.True(t, ok)
	assert.Equal(t, model.ItemTypeCustom, got.Type, "type defaults to custom")

	require.NoError(t, e.RemoveShopItem(ctx, testGuild, "trophy"))
	assert.ErrorIs(t, e.RemoveShopItem(ctx, testGuild, "trophy"), ErrItemNotFound)
}

func TestBuy(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	_, err := e.Buy(ctx, testGuild, testPlayer, "lootbox_common", now)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = e.Credit(ctx, testGuild, testPlayer, 250)
	require.NoError(t, err)

	inst, err := e.Buy(ctx, testGuild, testPlayer, "lootbox_common", now)
	require.NoError(t, err)
	assert.Equal(t, "lootbox_common", inst.ItemID)
	assert.NotEmpty(t, inst.ID)

	bal, err := e.Balance(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	assert.Equal(t, int64(50), bal)

	inv, _, err := e.Inventory(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, inst.ID, inv[0].ID)

	_, err = e.Buy(ctx, testGuild, testPlayer, "no_such_item", now)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestBuyBoosterActivatesImmediately(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	_, err := e.Credit(ctx, testGuild, testPlayer, 2000)
	require.NoError(t, err)
	_, err = e.Buy(ctx, testGuild, testPlayer, "daily_booster", now)
	require.NoError(t, err)

	inv, boosters, err := e.Inventory(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	assert.Empty(t, inv, "boosters skip the inventory")
	require.Len(t, boosters, 1)
	assert.Equal(t, "daily", boosters[0].Effect)
	assert.Equal(t, 2.0, boosters[0].Multiplier)
	assert.Equal(t, now.Unix()+7*86400, boosters[0].ExpiresAt)
	assert.True(t, boosters[0].Active)
}

func TestUseLootbox(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	_, err := e.Credit(ctx, testGuild, testPlayer, 200)
	require.NoError(t, err)
	_, err = e.Buy(ctx, testGuild, testPlayer, "lootbox_common", now)
	require.NoError(t, err)

	res, err := e.UseItem(ctx, testGuild, testPlayer, "lootbox_common", false, now)
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Coins, "deterministic rng pays min_coins")
	assert.Equal(t, int64(50), res.Balance)

	inv, _, err := e.Inventory(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	assert.Empty(t, inv, "lootbox consumed")

	_, err = e.UseItem(ctx, testGuild, testPlayer, "lootbox_common", false, now)
	assert.ErrorIs(t, err, ErrItemNotOwned)
}

func TestUseBoosterReplacement(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	_, err := e.Credit(ctx, testGuild, testPlayer, 6000)
	require.NoError(t, err)
	_, err = e.Buy(ctx, testGuild, testPlayer, "daily_booster", now)
	require.NoError(t, err)

	// A gifted booster sits in inventory; using it while one is active needs
	// confirmation.
	gifted := model.ItemInstance{ID: "inst-1", ItemID: "daily_booster", Name: "Daily Reward Booster", Type: model.ItemTypeBooster, AcquiredAt: now.Unix()}
	_, err = e.updateRecord(ctx, testGuild, testPlayer, func(rec *model.EconomyRecord) error {
		rec.Inventory = append(rec.Inventory, gifted)
		return nil
	})
	require.NoError(t, err)

	_, err = e.UseItem(ctx, testGuild, testPlayer, "daily_booster", false, now)
	assert.ErrorIs(t, err, ErrBoosterActive)

	res, err := e.UseItem(ctx, testGuild, testPlayer, "daily_booster", true, now)
	require.NoError(t, err)
	require.NotNil(t, res.Booster)

	_, boosters, err := e.Inventory(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	active := 0
	for _, b := range boosters {
		if b.Active {
			active++
		}
	}
	assert.Equal(t, 1, active, "old booster deactivated on replacement")
}

func TestUseItemNotUsable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	_, err := e.Credit(ctx, testGuild, testPlayer, 500)
	require.NoError(t, err)
	_, err = e.Buy(ctx, testGuild, testPlayer, "color_red", now)
	require.NoError(t, err)

	_, err = e.UseItem(ctx, testGuild, testPlayer, "color_red", false, now)
	assert.ErrorIs(t, err, ErrItemNotUsable)
}

func TestGift(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	later := now.Add(48 * time.Hour)

	_, err := e.Credit(ctx, testGuild, testPlayer, 200)
	require.NoError(t, err)
	inst, err := e.Buy(ctx, testGuild, testPlayer, "lootbox_common", now)
	require.NoError(t, err)

	gifted, err := e.Gift(ctx, testGuild, testPlayer, testOther, inst.ID, later)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, gifted.ID, "instance id survives the gift")
	assert.Equal(t, later.Unix(), gifted.AcquiredAt, "acquisition time refreshed")

	senderInv, _, err := e.Inventory(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	assert.Empty(t, senderInv)

	recvInv, _, err := e.Inventory(ctx, testGuild, testOther)
	require.NoError(t, err)
	require.Len(t, recvInv, 1)
	assert.Equal(t, inst.ID, recvInv[0].ID)

	_, err = e.Gift(ctx, testGuild, testPlayer, testOther, inst.ID, later)
	assert.ErrorIs(t, err, ErrItemNotOwned)
	_, err = e.Gift(ctx, testGuild, testPlayer, testPlayer, inst.ID, later)
	assert.ErrorIs(t, err, ErrSelfTransfer)
}

func TestSweepExpiredBoosters(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	_, err := e.Credit(ctx, testGuild, testPlayer, 2000)
	require.NoError(t, err)
	_, err = e.Buy(ctx, testGuild, testPlayer, "daily_booster", now)
	require.NoError(t, err)

	removed, err := e.SweepExpiredBoosters(ctx, testGuild, testPlayer, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, removed, "unexpired booster survives")

	removed, err = e.SweepExpiredBoosters(ctx, testGuild, testPlayer, now.Add(8*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, boosters, err := e.Inventory(ctx, testGuild, testPlayer)
	require.NoError(t, err)
	assert.Empty(t, boosters)
}
