// Package gitinfo resolves the build identity of the working tree, so
// baseline entries record which commit produced each score.
package gitinfo

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"

	"github.com/plugvet/plugvet/internal/models"
)

// Detect resolves the commit, branch and dirty state of the repository
// containing dir. A dir outside any repository yields the zero identity
// and no error; vetting an exported source drop is a normal case.
func Detect(dir string) (models.BuildIdentity, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return models.BuildIdentity{}, nil
	}
	if err != nil {
		return models.BuildIdentity{}, fmt.Errorf("opening git repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return models.BuildIdentity{}, fmt.Errorf("getting HEAD: %w", err)
	}

	identity := models.BuildIdentity{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		identity.Branch = head.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return identity, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return identity, fmt.Errorf("reading worktree status: %w", err)
	}
	identity.Dirty = !status.IsClean()

	return identity, nil
}
