package metadata

import (
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// RepoState is a read-only snapshot of the version-control state. A field
// is nil when the corresponding query failed, so consumers see null rather
// than a fabricated value.
type RepoState struct {
	Branch     *string `json:"branch"`
	Commit     *string `json:"commit"`
	CommitTime *string `json:"commitTime"`
	Dirty      *bool   `json:"dirty"`
	Remote     *string `json:"remote"`
}

// RepositoryInspector abstracts the version-control queries so document
// generation can run without a real repository.
type RepositoryInspector interface {
	Inspect() RepoState
}

// GitInspector reads repository state by shelling out to git.
type GitInspector struct {
	Dir string

	run func(args ...string) (string, error)
}

// NewGitInspector returns an inspector rooted at dir, or the current
// directory when dir is empty.
func NewGitInspector(dir string) *GitInspector {
	if dir == "" {
		dir = "."
	}
	g := &GitInspector{Dir: dir}
	g.run = g.git
	return g
}

func (g *GitInspector) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.Dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Inspect gathers branch, commit, commit time, dirty state and remote URL.
// Every query failure is tolerated: the affected field stays nil and a
// warning is logged.
func (g *GitInspector) Inspect() RepoState {
	var state RepoState

	if branch, err := g.run("rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		state.Branch = &branch
	} else {
		log.Warnf("git branch query failed: %v", err)
	}
	if commit, err := g.run("rev-parse", "HEAD"); err == nil {
		state.Commit = &commit
	} else {
		log.Warnf("git commit query failed: %v", err)
	}
	if when, err := g.run("log", "-1", "--format=%cI"); err == nil {
		state.CommitTime = &when
	}

	if state.Commit != nil {
		// Two probes: unstaged changes in the working tree and staged ones
		// in the index. Either reporting a diff marks the snapshot dirty.
		_, treeErr := g.run("diff", "--quiet")
		_, indexErr := g.run("diff", "--cached", "--quiet")
		dirty := treeErr != nil || indexErr != nil
		state.Dirty = &dirty
	}

	if remote, err := g.run("remote", "get-url", "origin"); err == nil && remote != "" {
		state.Remote = &remote
	} else if err != nil {
		log.Warnf("git remote query failed: %v", err)
	}
	return state
}
