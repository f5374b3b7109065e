// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package snapshot

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	commitAuthor = "Sidera"
	commitEmail  = "snapshots@sidera.local"
)

// Repo wraps the go-git repository holding snapshot files
type Repo struct {
	Path string
	repo *git.Repository
}

// InitOrOpen opens the snapshot repository at path, initializing it on
// first use.
func InitOrOpen(path string) (*Repo, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("failed to open snapshot repository: %w", err)
		}
		repo, err = git.PlainInit(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize snapshot repository: %w", err)
		}
	}

	return &Repo{Path: path, repo: repo}, nil
}

// CommitAll stages every change in the worktree and commits it. A clean
// worktree is not an error; the commit is simply skipped.
func (r *Repo) CommitAll(message string) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  commitAuthor,
			Email: commitEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// History returns up to maxCount commits starting from HEAD
func (r *Repo) History(maxCount int) ([]*object.Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	iter, err := r.repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to get commit log: %w", err)
	}

	errStop := errors.New("stop iteration")
	var commits []*object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if maxCount > 0 && len(commits) >= maxCount {
			return errStop
		}
		commits = append(commits, c)
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}
	return commits, nil
}
