// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageString(t *testing.T) {
	assert.Equal(t, "sort", Sort.String())
	assert.Equal(t, "haplotypecaller", HaplotypeCaller.String())
	assert.Equal(t, "stage(7)", Stage(7).String())
}

func TestStageError(t *testing.T) {
	c := Command{Stage: MarkDuplicates, Path: "picard", Args: []string{"MarkDuplicates"}}
	err := newStageError(c, &ExitError{Code: 3, Stderr: "Exception in thread main\n", Err: fmt.Errorf("exit status 3")})
	assert.Equal(t, MarkDuplicates, err.Stage)
	assert.Equal(t, 3, err.ExitCode)
	assert.Equal(t, "stage markduplicates failed: picard MarkDuplicates (exit status 3): exit status 3\nException in thread main", err.Error())

	err = newStageError(c, fmt.Errorf("boom"))
	assert.Equal(t, -1, err.ExitCode)
	assert.Equal(t, "", err.Stderr)
}
