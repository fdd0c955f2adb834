// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"github.com/grailbio/base/errors"
	"github.com/spf13/viper"
)

// Configuration keys, as they appear in config files. The environment
// variable for a key is EnvPrefix + "_" + upper-cased key, e.g.
// RNAVC_REFERENCE_PATH.
const (
	KeySortToolPath      = "sort_tool_path"
	KeyHeaderToolPath    = "header_tool_path"
	KeyDupMarkerPath     = "dup_marker_path"
	KeySplitterPath      = "splitter_path"
	KeyCallerPath        = "caller_path"
	KeyReferencePath     = "reference_path"
	KeyMetricsOutputPath = "metrics_output_path"
	KeyJavaPath          = "java_path"
	KeyJavaOpts          = "java_opts"
	KeyKeepIntermediates = "keep_intermediates"

	EnvPrefix = "RNAVC"
)

// LoadOpts returns DefaultOpts overlaid with the config file at path, then
// with RNAVC_* environment variables. An empty path skips the file. The file
// format (yaml, json, toml) is inferred from the extension.
func LoadOpts(path string) (Opts, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	d := DefaultOpts
	v.SetDefault(KeySortToolPath, d.SortToolPath)
	v.SetDefault(KeyHeaderToolPath, d.HeaderToolPath)
	v.SetDefault(KeyDupMarkerPath, d.DupMarkerPath)
	v.SetDefault(KeySplitterPath, d.SplitterPath)
	v.SetDefault(KeyCallerPath, d.CallerPath)
	v.SetDefault(KeyJavaPath, d.JavaPath)
	v.SetDefault(KeyKeepIntermediates, d.KeepIntermediates)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Opts{}, errors.E(errors.Invalid, err, "read config", path)
		}
	}
	return Opts{
		SortToolPath:      v.GetString(KeySortToolPath),
		HeaderToolPath:    v.GetString(KeyHeaderToolPath),
		DupMarkerPath:     v.GetString(KeyDupMarkerPath),
		SplitterPath:      v.GetString(KeySplitterPath),
		CallerPath:        v.GetString(KeyCallerPath),
		ReferencePath:     v.GetString(KeyReferencePath),
		MetricsOutputPath: v.GetString(KeyMetricsOutputPath),
		JavaPath:          v.GetString(KeyJavaPath),
		JavaOpts:          v.GetStringSlice(KeyJavaOpts),
		KeepIntermediates: v.GetBool(KeyKeepIntermediates),
	}, nil
}
