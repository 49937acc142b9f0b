package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/domain/enums"
	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
)

var ErrItemNotFound = errors.New("catalog item not found")

type CatalogStore interface {
	SeedItems(ctx context.Context, items []pgrepo.CatalogItemRecord) (int, error)
	ListActive(ctx context.Context) ([]pgrepo.CatalogItemRecord, error)
	FindActive(ctx context.Context, itemID string) (pgrepo.CatalogItemRecord, error)
}

type Service struct {
	store  CatalogStore
	logger *zap.Logger
}

func NewService(store CatalogStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Seed loads the default shop items at startup. Safe to call on every boot.
func (s *Service) Seed(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("catalog store is nil")
	}

	inserted, err := s.store.SeedItems(ctx, defaultItems())
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	if inserted > 0 {
		s.logger.Info("catalog seeded", zap.Int("items", inserted))
	}

	return nil
}

func (s *Service) List(ctx context.Context) ([]pgrepo.CatalogItemRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("catalog store is nil")
	}
	return s.store.ListActive(ctx)
}

func (s *Service) Find(ctx context.Context, itemID string) (pgrepo.CatalogItemRecord, error) {
	if s.store == nil {
		return pgrepo.CatalogItemRecord{}, fmt.Errorf("catalog store is nil")
	}
	if strings.TrimSpace(itemID) == "" {
		return pgrepo.CatalogItemRecord{}, ErrItemNotFound
	}

	item, err := s.store.FindActive(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCatalogItemNotFound) {
			return pgrepo.CatalogItemRecord{}, ErrItemNotFound
		}
		return pgrepo.CatalogItemRecord{}, err
	}

	return item, nil
}

func defaultItems() []pgrepo.CatalogItemRecord {
	return []pgrepo.CatalogItemRecord{
		{
			ItemID:      "repeater_arbalest_t2",
			Name:        "Repeater Arbalest",
			Description: "Rapid-fire crossbow with increased damage",
			Type:        enums.ItemTypeWeapon,
			Tier:        2,
			PriceSC:     1200,
			Meta:        map[string]any{"damage_bonus": 15, "fire_rate": 1.5},
		},
		{
			ItemID:      "storm_chakram_t3",
			Name:        "Storm Chakram",
			Description: "Lightning-imbued throwing weapon",
			Type:        enums.ItemTypeWeapon,
			Tier:        3,
			PriceSC:     2200,
			Meta:        map[string]any{"damage_bonus": 25, "element": "lightning"},
		},
		{
			ItemID:      "viper_blade_t2",
			Name:        "Viper Blade",
			Description: "Poisoned sword for silent kills",
			Type:        enums.ItemTypeWeapon,
			Tier:        2,
			PriceSC:     1500,
			Meta:        map[string]any{"damage_bonus": 18, "poison": true},
		},
		{
			ItemID:      "runic_shield_t2",
			Name:        "Runic Shield",
			Description: "Magical shield that absorbs damage",
			Type:        enums.ItemTypeGear,
			Tier:        2,
			PriceSC:     900,
			Meta:        map[string]any{"defense_bonus": 20},
		},
		{
			ItemID:      "shadow_cloak_t3",
			Name:        "Shadow Cloak",
			Description: "Enhances stealth capabilities",
			Type:        enums.ItemTypeGear,
			Tier:        3,
			PriceSC:     1800,
			Meta:        map[string]any{"stealth_bonus": 30},
		},
		{
			ItemID:      "grapnel_reel_t2",
			Name:        "Grapnel Reel",
			Description: "Advanced grappling hook",
			Type:        enums.ItemTypeTraversal,
			Tier:        2,
			PriceSC:     800,
			Meta:        map[string]any{"range_bonus": 50},
		},
		{
			ItemID:      "oil_vials_t1",
			Name:        "Oil Vials (3x)",
			Description: "Create fire traps",
			Type:        enums.ItemTypeAmmo,
			Tier:        1,
			PriceSC:     300,
			Meta:        map[string]any{"quantity": 3, "effect": "fire"},
		},
		{
			ItemID:      "sonic_arrows_t2",
			Name:        "Sonic Arrows (5x)",
			Description: "Stun enemies with sonic blast",
			Type:        enums.ItemTypeAmmo,
			Tier:        2,
			PriceSC:     700,
			Meta:        map[string]any{"quantity": 5, "effect": "stun"},
		},
		{
			ItemID:      "frost_bombs_t3",
			Name:        "Frost Bombs (3x)",
			Description: "Freeze enemies in place",
			Type:        enums.ItemTypeAmmo,
			Tier:        3,
			PriceSC:     1500,
			Meta:        map[string]any{"quantity": 3, "effect": "freeze"},
		},
		{
			ItemID:      "sanctum_token",
			Name:        "Sanctum Token",
			Description: "Extra life for next 3 stages",
			Type:        enums.ItemTypeConsumable,
			Tier:        3,
			PriceSC:     2500,
			Meta:        map[string]any{"extra_lives": 1, "duration_stages": 3},
		},
		{
			ItemID:      "ammo_refill",
			Name:        "Ammo Refill",
			Description: "Restore all ammunition",
			Type:        enums.ItemTypeConsumable,
			Tier:        1,
			PriceSC:     200,
			Meta:        map[string]any{"restores": "ammo"},
		},
		{
			ItemID:      "cooldown_charm",
			Name:        "Cooldown Charm",
			Description: "Reduce all cooldowns by 12%",
			Type:        enums.ItemTypeConsumable,
			Tier:        2,
			PriceSC:     1800,
			Meta:        map[string]any{"cooldown_reduction": 12},
		},
		{
			ItemID:      "legend_kit_t4",
			Name:        "Legend Kit",
			Description: "Premium bundle with best weapons and gear",
			Type:        enums.ItemTypeBundle,
			Tier:        4,
			PriceSC:     5200,
			Meta: map[string]any{
				"includes": []string{
					"storm_chakram_t3",
					"shadow_cloak_t3",
					"frost_bombs_t3",
					"sanctum_token",
				},
			},
		},
	}
}
