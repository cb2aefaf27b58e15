package domain

import "strings"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleShop     Role = "shop"
	// RoleSystem is held only by the payment reconciler. It is never parsed
	// from an external session.
	RoleSystem Role = "system"
)

// ParseRole accepts the roles an identity provider may issue.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleCustomer, RoleShop:
		return r, true
	}
	return "", false
}

// Principal is the authenticated caller, passed explicitly into every
// operation.
type Principal struct {
	UserID string
	Role   Role
	ShopID string
}

func SystemPrincipal() Principal {
	return Principal{UserID: "payment-reconciler", Role: RoleSystem}
}

// CanAccess reports whether the principal is a party to the order: its
// customer, or the shop that fulfills it.
func (p Principal) CanAccess(o *Order) bool {
	switch p.Role {
	case RoleCustomer:
		return p.UserID != "" && o.CustomerID == p.UserID
	case RoleShop:
		return p.ShopID != "" && o.ShopID == p.ShopID
	case RoleSystem:
		return true
	}
	return false
}

const uploadKeyRoot = "uploads/"

// UploadKey is the storage key reserved for one upload by a user.
func UploadKey(userID, uploadID string) string {
	return uploadKeyRoot + userID + "/" + uploadID
}

// OwnsUpload reports whether the key was reserved for this principal by
// UploadKey. Only customers upload.
func (p Principal) OwnsUpload(storageKey string) bool {
	if p.Role != RoleCustomer || p.UserID == "" {
		return false
	}
	rest, ok := strings.CutPrefix(storageKey, uploadKeyRoot+p.UserID+"/")
	return ok && rest != "" && !strings.Contains(rest, "/")
}
