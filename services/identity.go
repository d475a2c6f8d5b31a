package services

const RoleAdmin = "admin"

// Identity is the caller as asserted by a verified session token.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	AvatarURL string
	Role      string
}

func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Owns reports whether the caller may manage a record owned by ownerID.
func (i Identity) Owns(ownerID string) bool {
	return i.Authenticated() && i.UserID == ownerID
}
