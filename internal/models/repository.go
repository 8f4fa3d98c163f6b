package models

import "strings"

// Role describes how a repository relates to the crawl target
type Role string

const (
	RoleOwner       Role = "Owner"
	RoleContributor Role = "Contributor"
)

// Repository represents a GitHub repository found for the target
type Repository struct {
	Name        string  `json:"name"`
	FullName    string  `json:"full_name"`
	URL         string  `json:"url"`
	OwnerLogin  string  `json:"owner_login"`
	Role        Role    `json:"role"`
	Description *string `json:"description"`
	Fork        bool    `json:"fork"`
}

// NewRepository creates a Repository and resolves its role against the target.
// Organization targets always own their repositories.
func NewRepository(target Target, name, fullName, url, ownerLogin string) *Repository {
	return &Repository{
		Name:       name,
		FullName:   fullName,
		URL:        url,
		OwnerLogin: ownerLogin,
		Role:       ResolveRole(target, ownerLogin),
	}
}

// ResolveRole returns Owner when the target owns the repository
func ResolveRole(target Target, ownerLogin string) Role {
	if target.IsOrg() || strings.EqualFold(target.Name, ownerLogin) {
		return RoleOwner
	}
	return RoleContributor
}

// GetDescription returns the description or an empty string
func (r *Repository) GetDescription() string {
	if r == nil || r.Description == nil {
		return ""
	}
	return *r.Description
}
