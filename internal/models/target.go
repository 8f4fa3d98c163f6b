package models

// OwnerKind tells whether a crawl target is a user or an organization
type OwnerKind string

const (
	OwnerKindUser OwnerKind = "user"
	OwnerKindOrg  OwnerKind = "org"
)

// Target is the account whose repositories are crawled
type Target struct {
	Name string    `json:"name"`
	Kind OwnerKind `json:"kind"`
}

// IsOrg reports whether the target is an organization
func (t Target) IsOrg() bool {
	return t.Kind == OwnerKindOrg
}

func (t Target) String() string {
	return string(t.Kind) + ":" + t.Name
}
