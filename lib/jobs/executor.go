package jobs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/script"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("jobs")

const (
	JobExt    = ".job"
	OutExt    = ".out"
	BackupExt = ".bck"

	readMissing   = "KVSERROR"
	deleteMissing = "KVSMISSING"
)

// Executor runs the commands of job files against a store.
//
// Thread-safety: An Executor may be used by any number of goroutines, each call
// of Run keeps its own state.
type Executor struct {
	store    store.IStore
	maxBatch int
}

// NewExecutor creates an executor working on s
func NewExecutor(s store.IStore, maxBatch int) *Executor {
	return &Executor{store: s, maxBatch: maxBatch}
}

// RunFile runs the job file at path and writes its output to the file with the
// same name and the extension .out.
func (e *Executor) RunFile(ctx context.Context, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open job file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(OutputPath(path))
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	w := bufio.NewWriter(out)
	runErr := e.Run(ctx, filepath.Base(JobName(path)), in, w)
	if err := w.Flush(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if err := out.Close(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

// Run executes every command read from r and writes the output to w.
// Backups are named "<name>-<n>.bck" with n counting from 1.
// A failing command is logged and skipped, only read errors of r, write errors
// of w and the cancellation of ctx stop the run.
func (e *Executor) Run(ctx context.Context, name string, r io.Reader, w io.Writer) error {
	parser := script.NewParser(r, script.LangBatch, e.maxBatch)
	backupNum := 1

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cmd, err := parser.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var storeErr *store.Error
			if errors.Is(err, script.ErrInvalidCommand) || errors.As(err, &storeErr) {
				Logger.Warningf("%s:%d: %v", name, cmd.Line, err)
				continue
			}
			return err
		}

		switch cmd.Type {
		case script.CmdWrite:
			err = e.store.Write(cmd.Pairs)
		case script.CmdRead:
			err = e.read(w, cmd.Keys)
		case script.CmdDelete:
			err = e.delete(w, cmd.Keys)
		case script.CmdShow:
			err = e.store.Show(w)
		case script.CmdWait:
			err = wait(ctx, w, cmd.Delay)
		case script.CmdBackup:
			if err = e.store.Backup(fmt.Sprintf("%s-%d%s", name, backupNum, BackupExt)); err == nil {
				backupNum++
			}
		case script.CmdHelp:
			_, err = io.WriteString(w, script.BatchHelp)
		}

		if err != nil {
			if errors.Is(err, store.ErrNotInitialized) || ctx.Err() != nil {
				return err
			}
			Logger.Warningf("%s:%d: %s failed: %v", name, cmd.Line, cmd.Type, err)
		}
	}
}

// --------------------------------------------------------------------------
// Command Output
// --------------------------------------------------------------------------

// read writes "[(k,v)(k2,KVSERROR)]\n"
func (e *Executor) read(w io.Writer, keys []string) error {
	results, err := e.store.Read(keys)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("[")
	for _, r := range results {
		sb.WriteString(formatResult(r))
	}
	sb.WriteString("]\n")
	_, err = io.WriteString(w, sb.String())
	return err
}

// delete writes "[(k,KVSMISSING)]\n" for the missing keys, nothing if all existed
func (e *Executor) delete(w io.Writer, keys []string) error {
	results, err := e.store.Delete(keys)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for _, r := range results {
		if !r.Found {
			sb.WriteString(fmt.Sprintf("(%s,%s)", r.Key, deleteMissing))
		}
	}
	if sb.Len() == 0 {
		return nil
	}
	_, err = io.WriteString(w, "["+sb.String()+"]\n")
	return err
}

func formatResult(r db.ReadResult) string {
	if !r.Found {
		return fmt.Sprintf("(%s,%s)", r.Key, readMissing)
	}
	return fmt.Sprintf("(%s,%s)", r.Key, r.Value)
}

func wait(ctx context.Context, w io.Writer, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if _, err := io.WriteString(w, "Waiting...\n"); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --------------------------------------------------------------------------
// Path Helper
// --------------------------------------------------------------------------

// JobName returns the path of a job file without its extension
func JobName(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// OutputPath returns the path of the output file of a job file
func OutputPath(path string) string {
	return JobName(path) + OutExt
}

// IsJobFile reports whether path names a job file
func IsJobFile(path string) bool {
	return filepath.Ext(path) == JobExt
}
