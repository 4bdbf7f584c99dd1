// Package fileset expands file patterns coming from the file-management
// surface into concrete paths, including "doublestar" patterns
// (such as `**/*.pdf`).
package fileset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bmatcuk/doublestar/v4"
)

// Resolver ...
type Resolver struct {
	logger       log.Logger
	pathModifier pathutil.PathModifier
	pathChecker  pathutil.PathChecker
}

// NewResolver ...
func NewResolver(logger log.Logger, pathModifier pathutil.PathModifier, pathChecker pathutil.PathChecker) *Resolver {
	return &Resolver{
		logger:       logger,
		pathModifier: pathModifier,
		pathChecker:  pathChecker,
	}
}

// Resolve expands wildcard patterns and validates the results. Patterns
// with no match and paths that don't exist are skipped with a warning,
// they don't fail the whole selection.
func (r *Resolver) Resolve(patterns []string) ([]string, error) {
	// Expand wildcard paths
	var expandedPaths []string
	for _, pattern := range patterns {
		if !strings.Contains(pattern, "*") {
			expandedPaths = append(expandedPaths, pattern)
			continue
		}

		base, subPattern := doublestar.SplitPattern(pattern)
		absBase, err := r.pathModifier.AbsPath(base) // resolves ~/ and expands any envs
		if err != nil {
			return nil, err
		}
		matches, err := doublestar.Glob(os.DirFS(absBase), subPattern, doublestar.WithNoFollow())
		if matches == nil {
			r.logger.Warnf("No match for pattern: %s", pattern)
			continue
		}
		if err != nil {
			r.logger.Warnf("Error in pattern '%s': %s", pattern, err)
			continue
		}

		for _, match := range matches {
			expandedPaths = append(expandedPaths, filepath.Join(base, match))
		}
	}

	// Validate and sanitize paths
	var finalPaths []string
	for _, path := range expandedPaths {
		absPath, err := r.pathModifier.AbsPath(path)
		if err != nil {
			r.logger.Warnf("Failed to parse path %s, error: %s", path, err)
			continue
		}

		exists, err := r.pathChecker.IsPathExists(absPath)
		if err != nil {
			r.logger.Warnf("Failed to check path %s, error: %s", absPath, err)
		}
		if !exists {
			r.logger.Warnf("File doesn't exist: %s", path)
			continue
		}

		finalPaths = append(finalPaths, absPath)
	}

	return finalPaths, nil
}
