package model

// Identity is the authenticated principal the notification pipeline is
// connected on behalf of.
type Identity struct {
	UserID        string
	Role          string
	Authenticated bool
}

// Anonymous is the identity of a signed-out session.
var Anonymous = Identity{}

// SameUser reports whether both identities are authenticated as the same
// user. Any difference in UserID is an identity change.
func (i Identity) SameUser(other Identity) bool {
	return i.Authenticated && other.Authenticated && i.UserID == other.UserID
}
