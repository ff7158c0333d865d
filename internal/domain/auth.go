package domain

// Actor is the authenticated caller of an operation. A nil *Actor means the
// caller is unauthenticated.
type Actor struct {
	ID   string
	Role Role
}
