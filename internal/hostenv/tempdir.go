package hostenv

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/sibikrish3000/cargowin/internal/issue"
)

// DefaultTempVars are consulted in order, the same as Windows' own
// GetTempPath minus the USERPROFILE and Windows directory fallbacks.
var DefaultTempVars = []string{"TMP", "TEMP"}

// TempDirResolver finds a host directory for scratch and cache storage.
type TempDirResolver struct {
	Querier HostQuerier
	// Vars overrides DefaultTempVars.
	Vars   []string
	Logger *log.Logger
}

// Resolve returns the first non-empty host variable among Vars. It fails
// with issue.ErrHostQueryFailed when all are empty or when the host cannot
// be queried. Nothing is retried.
func (r *TempDirResolver) Resolve(ctx context.Context) (string, error) {
	vars := r.Vars
	if len(vars) == 0 {
		vars = DefaultTempVars
	}

	for _, name := range vars {
		value, err := r.Querier.HostGetenv(ctx, name)
		if err != nil {
			return "", err
		}
		if value != "" {
			if r.Logger != nil {
				r.Logger.Debug("resolved host temp directory", "var", name, "dir", value)
			}
			return value, nil
		}
	}

	return "", fmt.Errorf("none of %s is set on the host: %w", strings.Join(vars, ", "), issue.ErrHostQueryFailed)
}
