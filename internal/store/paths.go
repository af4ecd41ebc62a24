package store

import (
	"path/filepath"

	"github.com/nvandessel/riskloop/internal/constants"
	"github.com/nvandessel/riskloop/internal/pathutil"
)

// DBPath returns the run history database path for the given project root.
func DBPath(projectRoot string) string {
	return filepath.Join(pathutil.ProjectDir(projectRoot), constants.RunsDBName)
}
