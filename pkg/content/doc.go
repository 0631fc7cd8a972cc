// Package content keeps the check content directory in sync with a git
// repository.
//
// When engines.git.repository is set, the first Sync clones the configured
// branch into engines.content_dir and later calls pull it. Runs evaluate
// whatever revision is checked out, so a failed pull leaves the previous
// revision in place and is reported as stale rather than as an error.
//
//	repo, err := content.NewRepository(cfg.Engines.Git, cfg.Engines.ContentDir, logger)
//	if err != nil {
//		return err
//	}
//	res, err := repo.Sync(ctx)
//
// Token (HTTPS) and SSH key authentication are supported.
package content
