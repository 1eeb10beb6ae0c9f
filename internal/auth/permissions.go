package auth

const (
	PermTokenMint     = "registry.token.mint"
	PermLeaseCreate   = "registry.lease.create"
	PermAuctionManage = "registry.auction.manage"
)

// rolePermissions is the static role grant table. The admin role implicitly
// holds every permission.
var rolePermissions = map[string][]string{
	"minter":    {PermTokenMint},
	"landlord":  {PermLeaseCreate},
	"trader":    {PermAuctionManage},
	"registrar": {PermTokenMint, PermLeaseCreate, PermAuctionManage},
}

// Allowed reports whether any role held in the context grants the permission.
func Allowed(roles []string, perm string) bool {
	for _, role := range roles {
		if role == "admin" {
			return true
		}
		for _, p := range rolePermissions[role] {
			if p == perm {
				return true
			}
		}
	}
	return false
}
