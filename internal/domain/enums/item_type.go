package enums

type ItemType string

const (
	ItemTypeWeapon     ItemType = "weapon"
	ItemTypeGear       ItemType = "gear"
	ItemTypeAmmo       ItemType = "ammo"
	ItemTypeTraversal  ItemType = "traversal"
	ItemTypeConsumable ItemType = "consumable"
	ItemTypeBundle     ItemType = "bundle"
)
