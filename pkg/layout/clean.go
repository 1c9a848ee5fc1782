// SPDX-License-Identifier: MPL-2.0

package layout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// ErrClean is the sentinel error wrapped by CleanError.
var ErrClean = errors.New("clean failed")

type (
	// CleanError names the first directory that could not be deleted.
	CleanError struct {
		Path string
		Err  error
	}

	// Cleaner deletes the directories of a Layout.
	Cleaner struct {
		logger    *log.Logger
		removeAll func(string) error
	}

	// CleanerOption configures a Cleaner.
	CleanerOption func(*Cleaner)
)

// WithCleanLogger sets the logger receiving one debug event per directory.
func WithCleanLogger(logger *log.Logger) CleanerOption {
	return func(c *Cleaner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRemoveFunc replaces os.RemoveAll.
func WithRemoveFunc(fn func(string) error) CleanerOption {
	return func(c *Cleaner) {
		if fn != nil {
			c.removeAll = fn
		}
	}
}

// NewCleaner creates a Cleaner backed by os.RemoveAll.
func NewCleaner(opts ...CleanerOption) *Cleaner {
	c := &Cleaner{logger: log.New(io.Discard), removeAll: os.RemoveAll}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean recursively deletes every directory in l.Dirs(). Missing directories
// are already clean. The first failure aborts and is returned as a
// *CleanError; deletions already made stay made.
func (c *Cleaner) Clean(ctx context.Context, l *Layout) error {
	for _, dir := range l.Dirs() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
		if err := c.removeAll(dir); err != nil {
			return &CleanError{Path: dir, Err: err}
		}
		c.logger.Debug("removed output directory", "dir", dir)
	}
	return nil
}

// Clean deletes the layout's directories with a default Cleaner.
func Clean(ctx context.Context, l *Layout) error {
	return NewCleaner().Clean(ctx, l)
}

// Error implements the error interface for CleanError.
func (e *CleanError) Error() string {
	return fmt.Sprintf("clean %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrClean and the underlying I/O error.
func (e *CleanError) Unwrap() []error { return []error{ErrClean, e.Err} }
