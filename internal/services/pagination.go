package services

import "github.com/google/go-github/v57/github"

// nextPage decides whether another page must be requested. A page that is
// empty or shorter than perPage is the last one; a Link header without a
// next relation also ends the walk.
func nextPage(page, count, perPage int, resp *github.Response) (int, bool) {
	if count == 0 || count < perPage {
		return 0, false
	}
	if resp != nil && resp.Response != nil {
		if resp.NextPage > page {
			return resp.NextPage, true
		}
		if resp.Header.Get("Link") != "" {
			return 0, false
		}
	}
	return page + 1, true
}
