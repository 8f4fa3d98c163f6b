package models

// CommitRef points at one commit found on a repository's commit list
type CommitRef struct {
	Repository *Repository `json:"-"`
	SHA        string      `json:"sha"`
	APIURL     string      `json:"api_url"`
	HTMLURL    string      `json:"html_url"`
}

// Signature is the name and email recorded on a commit for one side
type Signature struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HasEmail checks if the signature carries an email address
func (s *Signature) HasEmail() bool {
	return s != nil && s.Email != ""
}

// CommitDetail holds the author and committer metadata of a single commit.
// Author or Committer is nil when GitHub reports no such side.
type CommitDetail struct {
	Ref       CommitRef  `json:"ref"`
	Author    *Signature `json:"author"`
	Committer *Signature `json:"committer"`
	Parents   []string   `json:"parents"`
}

// IsMergeCommit checks if the commit has more than one parent
func (d *CommitDetail) IsMergeCommit() bool {
	return len(d.Parents) > 1
}
