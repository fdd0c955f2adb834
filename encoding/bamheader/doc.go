// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bamheader inspects and rewrites SAM/BAM headers. It answers the
// questions a variant-calling pipeline asks of an alignment file before
// handing it to external tools: is it coordinate sorted, which contigs does it
// reference, and what should its read-group section look like.
//
// Records are never read; only the header is decoded.
package bamheader
