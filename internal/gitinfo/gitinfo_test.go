package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/plugvet/plugvet/internal/models"
)

func TestDetect_OutsideRepository(t *testing.T) {
	identity, err := Detect(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, models.BuildIdentity{}, identity)
}

func TestDetect_CommitBranchAndDirty(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	manifest := filepath.Join(dir, "plugin.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("name: demo\n"), 0644))
	_, err = wt.Add("plugin.yaml")
	require.NoError(t, err)
	hash, err := wt.Commit("add plugin manifest", &git.CommitOptions{
		Author: &object.Signature{Name: "vet", Email: "vet@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	identity, err := Detect(dir)
	require.NoError(t, err)
	require.Equal(t, hash.String(), identity.Commit)
	require.Equal(t, "master", identity.Branch)
	require.False(t, identity.Dirty)

	// Modifying a tracked file flips the dirty bit.
	require.NoError(t, os.WriteFile(manifest, []byte("name: demo\nversion: 2\n"), 0644))
	identity, err = Detect(dir)
	require.NoError(t, err)
	require.True(t, identity.Dirty)
}

func TestDetect_WalksUpFromSubdir(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.yaml"), []byte("name: demo\n"), 0644))
	_, err = wt.Add("plugin.yaml")
	require.NoError(t, err)
	hash, err := wt.Commit("add plugin manifest", &git.CommitOptions{
		Author: &object.Signature{Name: "vet", Email: "vet@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	nested := filepath.Join(dir, "tasks", "physics")
	require.NoError(t, os.MkdirAll(nested, 0755))

	identity, err := Detect(nested)
	require.NoError(t, err)
	require.Equal(t, hash.String(), identity.Commit)
}
