package domain

// Identity describes an authenticated caller of the administrative surface.
// Beneficiaries never authenticate this way; claim requests prove themselves
// with the voucher signature and the transaction signer.
type Identity struct {
	Subject string
	Roles   []string
	Scopes  []string
}

type Authorizer interface {
	Require(identity Identity, permission string) error
}
