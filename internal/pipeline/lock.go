package pipeline

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
)

// VideoLock is a per-video advisory file lock. Entity upserts are
// query-then-write and not atomic against the record store, so only one
// pass may work a video at a time.
type VideoLock struct {
	fl *flock.Flock
}

// AcquireVideoLock takes the advisory lock for videoID, creating the lock
// directory if needed. Returns an error immediately when another pass
// already holds it.
func AcquireVideoLock(dir, videoID string) (*VideoLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "pipeline: create lock dir %s", dir)
	}
	fl := flock.New(filepath.Join(dir, videoID+".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: lock video %s", videoID)
	}
	if !ok {
		return nil, eris.Errorf("pipeline: video %s is locked by another sync", videoID)
	}
	return &VideoLock{fl: fl}, nil
}

// Release drops the lock.
func (l *VideoLock) Release() error {
	return eris.Wrap(l.fl.Unlock(), "pipeline: unlock")
}
