package gitback

import "context"

// RemoteName is the single remote Jin configures for overlay sync, mirroring
// the single-remote assumption the teacher's worktree sync logic makes.
const RemoteName = "overlay"

// Link configures (or replaces) the overlay remote URL.
func (s *Store) Link(ctx context.Context, url string) error {
	if _, err := s.git(ctx, "remote", "remove", RemoteName); err != nil {
		// absent is fine; any other failure surfaces on the add below
		_ = err
	}
	_, err := s.git(ctx, "remote", "add", RemoteName, url)
	return err
}

// HasRemote reports whether the overlay remote is configured.
func (s *Store) HasRemote(ctx context.Context) bool {
	_, err := s.git(ctx, "remote", "get-url", RemoteName)
	return err == nil
}

// Push advances refPrefix on the remote to match the local state.
func (s *Store) Push(ctx context.Context, refPrefix string, force bool) (string, error) {
	spec := refPrefix + ":" + refPrefix
	if force {
		spec = "+" + spec
	}
	return s.git(ctx, "push", RemoteName, spec)
}

// Fetch retrieves refPrefix from the remote into a tracking namespace under
// refs/overlay/remotes/<remote>/..., leaving local layer refs untouched so
// C12 can classify divergence before anything moves.
func (s *Store) Fetch(ctx context.Context, refPrefix string) (string, error) {
	trackingPrefix := "refs/overlay/remotes/" + RemoteName + refPrefix[len("refs/overlay"):]
	spec := refPrefix + ":" + trackingPrefix
	return s.git(ctx, "fetch", RemoteName, spec)
}
