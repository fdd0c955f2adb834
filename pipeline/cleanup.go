// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"v.io/x/lib/vlog"
)

// CleanupFailure records a path Cleanup could not remove.
type CleanupFailure struct {
	Path string
	Err  error
}

func isNotExist(err error) bool {
	return errors.Is(errors.NotExist, err) || os.IsNotExist(err)
}

// Cleanup removes each of paths, best effort. Paths that do not exist are
// skipped silently. A path that cannot be removed is logged and reported in
// the result, and the remaining paths are still attempted.
func Cleanup(ctx context.Context, paths []string) []CleanupFailure {
	var failures []CleanupFailure
	fail := func(path string, err error) {
		log.Error.Printf("cleanup %s: %v", path, err)
		failures = append(failures, CleanupFailure{Path: path, Err: err})
	}
	for _, path := range paths {
		if _, err := file.Stat(ctx, path); err != nil {
			if isNotExist(err) {
				vlog.VI(1).Infof("cleanup: %s does not exist", path)
				continue
			}
			fail(path, err)
			continue
		}
		if err := file.Remove(ctx, path); err != nil {
			fail(path, err)
			continue
		}
		log.Printf("removed %s", path)
	}
	return failures
}
