package tenduke

// Claim types for the normalized user record fields.  License claims use the
// license identifier itself as the claim type.
const (
	ClaimID    = "id"
	ClaimName  = "name"
	ClaimEmail = "email"
)

// Claim is a (type, value) pair attached to an identity, used by downstream
// authorization logic.
type Claim struct {
	Type  string
	Value string
}

// Identity is an ordered, duplicate-permitting collection of claims produced
// by one successful authentication attempt, tagged with the authentication
// type that produced it.
type Identity struct {
	AuthType string
	Claims   []Claim
}

// NewIdentity builds an identity from a user record and license results.  It
// is a pure function: claims appear in a fixed order, id/name/email first
// (each omitted when empty), followed by one claim per license grant that is
// valid and carries an expiry.  The license claim's value is the raw expiry.
func NewIdentity(authType string, user *UserRecord, licenses []LicenseResult) *Identity {
	identity := &Identity{
		AuthType: authType,
	}
	if user != nil {
		if user.ID != "" {
			identity.Claims = append(identity.Claims, Claim{Type: ClaimID, Value: user.ID})
		}
		if user.Name != "" {
			identity.Claims = append(identity.Claims, Claim{Type: ClaimName, Value: user.Name})
		}
		if user.Email != "" {
			identity.Claims = append(identity.Claims, Claim{Type: ClaimEmail, Value: user.Email})
		}
	}
	for _, lic := range licenses {
		if lic.Valid && lic.HasExpiry {
			identity.Claims = append(identity.Claims, Claim{Type: lic.Name, Value: lic.Expiry})
		}
	}
	return identity
}

// GetClaim returns the value of the first claim with the given type, and
// whether one was found.
func (i *Identity) GetClaim(claimType string) (string, bool) {
	if i == nil {
		return "", false
	}
	for _, c := range i.Claims {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

// WithAuthType returns a copy of the identity re-tagged with the given
// authentication type.  The claims slice is shared; claims are never mutated
// after identity construction.
func (i *Identity) WithAuthType(authType string) *Identity {
	if i == nil {
		return nil
	}
	return &Identity{
		AuthType: authType,
		Claims:   i.Claims,
	}
}
