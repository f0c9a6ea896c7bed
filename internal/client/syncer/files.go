package syncer

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/GophTally/internal/client/transfer"
	"github.com/atinyakov/GophTally/internal/models"
)

// ExportCounters writes the counter list as an export document.
func (c *Coordinator) ExportCounters(w io.Writer, now time.Time) Result {
	counters := c.View().Counters
	if err := transfer.Export(w, counters, now); err != nil {
		c.setStatus(c.status(statusFileSaveFailed, err.Error()))
		return fail(err)
	}
	c.setStatus(c.status(statusFileSaved))
	return ok()
}

// ExportFile writes the export document into dir and returns its path.
func (c *Coordinator) ExportFile(dir string, now time.Time) (string, Result) {
	counters := c.View().Counters
	path, err := transfer.ExportFile(dir, counters, now)
	if err != nil {
		c.setStatus(c.status(statusFileSaveFailed, err.Error()))
		return "", fail(err)
	}
	c.setStatus(c.status(statusFileSaved))
	return path, ok()
}

// ImportCounters replaces the counter list with the valid entries of the
// document read from r. On any error the state is left unchanged.
func (c *Coordinator) ImportCounters(ctx context.Context, r io.Reader) Result {
	counters, err := transfer.Import(r)
	return c.applyImport(ctx, counters, err)
}

// ImportFile is ImportCounters reading from path.
func (c *Coordinator) ImportFile(ctx context.Context, path string) Result {
	counters, err := transfer.ImportFile(path)
	return c.applyImport(ctx, counters, err)
}

func (c *Coordinator) applyImport(ctx context.Context, counters []models.Counter, err error) Result {
	if err != nil {
		c.log.Debug("import rejected", zap.Error(err))
		c.setStatus(c.status(statusFileLoadFailed, c.describe(err)))
		return fail(err)
	}
	res := c.ApplyLocalMutation(ctx, Mutation{
		Name: "import",
		Apply: func(s *State) error {
			s.Counters = cloneCounters(counters)
			if s.EditingID != "" && s.counterIndex(s.EditingID) < 0 {
				s.EditingID = ""
			}
			return nil
		},
		Remote: func(ctx context.Context, r RemoteStore) error { return r.ReplaceCounters(ctx, counters) },
	})
	if res.Success {
		c.setStatus(c.status(statusFileLoaded))
	}
	return res
}
