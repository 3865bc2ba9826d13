package server

// Profile is the display identity delivered by the embedded-app SDK via the
// identify message.
type Profile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	AvatarURL     string `json:"avatarUrl"`
}

// Identity is a closed two-variant type: Anonymous carries only a
// connection-scoped token that never survives a reconnect, Known carries the
// stable profile. Reconnect eligibility is a type-level distinction.
type Identity interface {
	// PlayerKey keys hands, turn-order slots and the ready set.
	PlayerKey() string
	isIdentity()
}

type Anonymous struct {
	Token string
}

func (a Anonymous) PlayerKey() string { return "anon-" + a.Token }
func (Anonymous) isIdentity()         {}

type Known struct {
	Profile Profile
}

func (k Known) PlayerKey() string { return k.Profile.ID }
func (Known) isIdentity()         {}
