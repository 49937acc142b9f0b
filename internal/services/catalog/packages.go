package catalog

import "strings"

// IAPPackage is a fixed real-money offer: the Skycrowns it grants and its
// USD price in cents. The table is compiled in; provider payloads never
// override these numbers.
type IAPPackage struct {
	SC       int64
	USDCents int
}

var iapPackages = map[string]IAPPackage{
	"small_pack":     {SC: 500, USDCents: 99},
	"medium_pack":    {SC: 1200, USDCents: 199},
	"large_pack":     {SC: 2800, USDCents: 499},
	"mega_pack":      {SC: 6000, USDCents: 999},
	"legendary_pack": {SC: 15000, USDCents: 1999},
}

func FindPackage(packageID string) (IAPPackage, bool) {
	pkg, ok := iapPackages[strings.ToLower(strings.TrimSpace(packageID))]
	return pkg, ok
}

func Packages() map[string]IAPPackage {
	out := make(map[string]IAPPackage, len(iapPackages))
	for id, pkg := range iapPackages {
		out[id] = pkg
	}
	return out
}
