package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alimgiray/gitemails/internal/fetcher"
	"github.com/alimgiray/gitemails/internal/models"
	"github.com/alimgiray/gitemails/internal/tokens"
	"github.com/alimgiray/gitemails/internal/workers"
	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/require"
)

type fakeCommit struct {
	SHA            string
	AuthorName     string
	AuthorEmail    string
	CommitterName  string
	CommitterEmail string
	// DetailStatus overrides the detail response status when non-zero
	DetailStatus int
}

type fakeRepo struct {
	Name  string
	Owner string
	// ListStatus overrides the commit list response status when non-zero
	ListStatus int
	Commits    []fakeCommit
}

// fakeGitHub emulates the handful of REST endpoints the crawler uses
type fakeGitHub struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	accounts map[string][]fakeRepo // "users/alice" or "orgs/acme"
	requests []string
	token    string

	// pageStatus forces a status on one listing page of an account
	pageStatus map[string]map[int]int
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	f := &fakeGitHub{t: t, accounts: map[string][]fakeRepo{}, pageStatus: map[string]map[int]int{}}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) addUser(login string, repos ...fakeRepo) {
	f.accounts["users/"+login] = repos
}

func (f *fakeGitHub) addOrg(login string, repos ...fakeRepo) {
	f.accounts["orgs/"+login] = repos
}

// failPage makes one listing page of an account answer status
func (f *fakeGitHub) failPage(account string, page, status int) {
	if f.pageStatus[account] == nil {
		f.pageStatus[account] = map[int]int{}
	}
	f.pageStatus[account][page] = status
}

// requireToken makes every request without this token answer 401
func (f *fakeGitHub) requireToken(token string) {
	f.token = token
}

func (f *fakeGitHub) requestsFor(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.requests {
		if strings.HasPrefix(r, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// client returns a go-github client going through the token Transport
func (f *fakeGitHub) client(tokenValues ...string) (*github.Client, *tokens.Pool) {
	client, pool, err := fetcher.NewClient(fetcher.Options{
		BaseURL:    f.server.URL,
		Tokens:     tokenValues,
		MaxRetries: 1,
		Backoff:    time.Millisecond,
		Clock:      tokens.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(f.t, err)
	return client, pool
}

func (f *fakeGitHub) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.RequestURI())
	f.mu.Unlock()

	if f.token != "" && r.Header.Get("Authorization") != "token "+f.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[2] == "repos" && (parts[0] == "users" || parts[0] == "orgs"):
		f.serveRepos(w, r, parts[0]+"/"+parts[1])
	case len(parts) == 4 && parts[0] == "repos" && parts[3] == "commits":
		f.serveCommits(w, r, parts[1], parts[2])
	case len(parts) == 5 && parts[0] == "repos" && parts[3] == "commits":
		f.serveCommit(w, parts[1], parts[2], parts[4])
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	}
}

func (f *fakeGitHub) serveRepos(w http.ResponseWriter, r *http.Request, account string) {
	repos, ok := f.accounts[account]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if status := f.pageStatus[account][page]; status != 0 {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}

	var out []map[string]interface{}
	for _, repo := range paginate(r, repos) {
		out = append(out, map[string]interface{}{
			"name":      repo.Name,
			"full_name": repo.Owner + "/" + repo.Name,
			"html_url":  "https://github.com/" + repo.Owner + "/" + repo.Name,
			"owner":     map[string]string{"login": repo.Owner},
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeGitHub) findRepo(owner, name string) (fakeRepo, bool) {
	for _, repos := range f.accounts {
		for _, repo := range repos {
			if repo.Owner == owner && repo.Name == name {
				return repo, true
			}
		}
	}
	return fakeRepo{}, false
}

func (f *fakeGitHub) serveCommits(w http.ResponseWriter, r *http.Request, owner, name string) {
	repo, ok := f.findRepo(owner, name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	if repo.ListStatus != 0 {
		writeJSON(w, repo.ListStatus, map[string]string{"message": http.StatusText(repo.ListStatus)})
		return
	}

	var out []map[string]interface{}
	for _, c := range paginate(r, repo.Commits) {
		out = append(out, map[string]interface{}{
			"sha":      c.SHA,
			"url":      commitAPIURL(owner, name, c.SHA),
			"html_url": commitHTMLURL(owner, name, c.SHA),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeGitHub) serveCommit(w http.ResponseWriter, owner, name, sha string) {
	repo, _ := f.findRepo(owner, name)
	for _, c := range repo.Commits {
		if c.SHA != sha {
			continue
		}
		if c.DetailStatus != 0 {
			writeJSON(w, c.DetailStatus, map[string]string{"message": http.StatusText(c.DetailStatus)})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sha":      c.SHA,
			"url":      commitAPIURL(owner, name, c.SHA),
			"html_url": commitHTMLURL(owner, name, c.SHA),
			"commit": map[string]interface{}{
				"author":    map[string]string{"name": c.AuthorName, "email": c.AuthorEmail},
				"committer": map[string]string{"name": c.CommitterName, "email": c.CommitterEmail},
			},
			"parents": []map[string]string{{"sha": "parent"}},
		})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
}

func paginate[T any](r *http.Request, items []T) []T {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 30
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func commitAPIURL(owner, name, sha string) string {
	return fmt.Sprintf("https://api.github.com/repos/%s/%s/commits/%s", owner, name, sha)
}

func commitHTMLURL(owner, name, sha string) string {
	return fmt.Sprintf("https://github.com/%s/%s/commit/%s", owner, name, sha)
}

// memorySink collects rows in emission order
type memorySink struct {
	rows []models.OutputRow
	err  error
}

func (s *memorySink) Write(row models.OutputRow) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, row)
	return nil
}

func newTestCrawl(client *github.Client, pool *tokens.Pool, perPage, workerCount int, sink RowWriter) *CrawlService {
	details := workers.NewDetailPool(workerCount, pool.Live)
	return NewCrawlService(
		NewRepositoryService(client, perPage),
		NewCommitService(client, perPage, details),
		sink,
		models.RowOptions{},
	)
}
