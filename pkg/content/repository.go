package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"mercator-hq/auditor/pkg/config"
)

// Repository is a working copy of the content repository.
type Repository struct {
	cfg    config.GitContentConfig
	dir    string
	auth   AuthProvider
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewRepository prepares a working copy of cfg.Repository in dir. Nothing
// is fetched until Sync.
func NewRepository(cfg config.GitContentConfig, dir string, logger *slog.Logger) (*Repository, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if dir == "" {
		return nil, fmt.Errorf("content directory cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	auth, err := NewAuthProvider(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	return &Repository{
		cfg:  cfg,
		dir:  dir,
		auth: auth,
		logger: logger.With(
			"component", "content",
			"repository", cfg.Repository,
			"branch", cfg.Branch,
		),
	}, nil
}

// Dir returns the working copy directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Sync clones the repository on first use and pulls it afterwards. A failed
// clone is an error. A failed pull is logged and reported as Stale; the
// previous revision stays checked out.
func (r *Repository) Sync(ctx context.Context) (*SyncResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		cloned, err := r.open(ctx)
		if err != nil {
			return nil, err
		}
		if cloned {
			head, err := r.head()
			if err != nil {
				return nil, err
			}
			r.logger.InfoContext(ctx, "content cloned", "revision", head)
			return &SyncResult{ToSHA: head, Cloned: true}, nil
		}
	}
	return r.pull(ctx)
}

// open opens an existing working copy or clones a new one. It reports
// whether it cloned.
func (r *Repository) open(ctx context.Context) (bool, error) {
	if _, err := os.Stat(filepath.Join(r.dir, ".git")); err == nil {
		repo, err := gogit.PlainOpen(r.dir)
		if err != nil {
			return false, fmt.Errorf("failed to open existing repo: %w", err)
		}
		r.repo = repo
		return false, nil
	}

	entries, err := os.ReadDir(r.dir)
	switch {
	case err == nil && len(entries) > 0:
		return false, fmt.Errorf("content directory %s exists and is not a git working copy", r.dir)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return false, fmt.Errorf("failed to read content directory: %w", err)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create content directory: %w", err)
	}

	auth, err := r.auth.Auth()
	if err != nil {
		return false, fmt.Errorf("failed to get auth: %w", err)
	}

	cloneCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, r.dir, false, &gogit.CloneOptions{
		URL:           r.cfg.Repository,
		Auth:          auth,
		ReferenceName: plumbing.NewBranchReferenceName(r.cfg.Branch),
		SingleBranch:  true,
		Depth:         r.cfg.Depth,
	})
	if err != nil {
		// Leave no half-written working copy behind.
		_ = os.RemoveAll(r.dir)
		return false, fmt.Errorf("failed to clone repository: %w", err)
	}
	r.repo = repo
	return true, nil
}

func (r *Repository) pull(ctx context.Context) (*SyncResult, error) {
	from, err := r.head()
	if err != nil {
		return nil, err
	}
	res := &SyncResult{FromSHA: from, ToSHA: from}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	auth, err := r.auth.Auth()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth: %w", err)
	}

	pullCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(r.cfg.Branch),
		SingleBranch:  true,
		Depth:         r.cfg.Depth,
		Auth:          auth,
	})
	switch {
	case errors.Is(err, gogit.NoErrAlreadyUpToDate):
		r.logger.DebugContext(ctx, "content up to date", "revision", from)
		return res, nil
	case err != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.WarnContext(ctx, "content pull failed, keeping current revision",
			"revision", from,
			"error", err,
		)
		res.Stale = true
		return res, nil
	}

	if res.ToSHA, err = r.head(); err != nil {
		return nil, err
	}
	if res.Changed() {
		if res.ChangedFiles, err = r.changedFiles(res.FromSHA, res.ToSHA); err != nil {
			return nil, err
		}
		r.logger.InfoContext(ctx, "content updated",
			"from", res.FromSHA,
			"to", res.ToSHA,
			"changed_files", len(res.ChangedFiles),
		)
	}
	return res, nil
}

// CurrentCommit describes the checked out commit.
func (r *Repository) CurrentCommit() (*CommitInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return nil, fmt.Errorf("repository not initialized, call Sync() first")
	}
	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	return &CommitInfo{
		SHA:        commit.Hash.String(),
		Author:     commit.Author.Name,
		Email:      commit.Author.Email,
		Timestamp:  commit.Author.When,
		Message:    commit.Message,
		Branch:     r.cfg.Branch,
		Repository: r.cfg.Repository,
	}, nil
}

func (r *Repository) head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// changedFiles lists the paths that differ between two commits. Deleted
// files are listed by their old path.
func (r *Repository) changedFiles(fromSHA, toSHA string) ([]string, error) {
	fromCommit, err := r.repo.CommitObject(plumbing.NewHash(fromSHA))
	if err != nil {
		return nil, fmt.Errorf("failed to get from commit: %w", err)
	}
	toCommit, err := r.repo.CommitObject(plumbing.NewHash(toSHA))
	if err != nil {
		return nil, fmt.Errorf("failed to get to commit: %w", err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get from tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get to tree: %w", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	files := make([]string, 0, len(changes))
	for _, change := range changes {
		if change.To.Name != "" {
			files = append(files, change.To.Name)
		} else if change.From.Name != "" {
			files = append(files, change.From.Name)
		}
	}
	return files, nil
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.Timeout)
}
