package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/valyala/fasttemplate"

	"github.com/WangYihang/Blocklist-Merger/pkg/domain/entity"
)

// LastModifiedLayout renders the UTC "Last Modified" header
const LastModifiedLayout = "2006-01-02 15:04:05Z"

// ListWriter implements repository.ListWriter, writing an AdBlock formatted file
type ListWriter struct {
	path        string
	headerLines []string
	version     string
}

// NewListWriter creates a writer for path. Header lines may use the
// placeholders {{count}}, {{allowed}}, {{version}} and {{date}}.
func NewListWriter(path string, headerLines []string, version string) *ListWriter {
	return &ListWriter{
		path:        path,
		headerLines: headerLines,
		version:     version,
	}
}

// Path returns the output file name
func (w *ListWriter) Path() string {
	return w.path
}

// Write renders list into a temporary file next to the target and renames it
// into place, so readers never observe a partial list.
func (w *ListWriter) Write(ctx context.Context, list *entity.MergedList) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary output: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := w.render(buf, list); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	committed = true
	return nil
}

func (w *ListWriter) render(buf *bufio.Writer, list *entity.MergedList) error {
	date := list.GeneratedAt.UTC().Format(LastModifiedLayout)
	values := map[string]any{
		"count":   strconv.Itoa(len(list.Domains)),
		"allowed": strconv.Itoa(len(list.AllowOverrides)),
		"version": w.version,
		"date":    date,
	}

	for _, line := range w.headerLines {
		buf.WriteString(fasttemplate.ExecuteStringStd(line, "{{", "}}", values))
		buf.WriteByte('\n')
	}
	buf.WriteString("! Last Modified: ")
	buf.WriteString(date)
	buf.WriteByte('\n')

	for _, d := range list.Domains {
		buf.WriteString("\n||")
		buf.WriteString(d)
		buf.WriteByte('^')
	}
	for _, a := range list.AllowOverrides {
		buf.WriteString("\n@@")
		buf.WriteString(a)
		buf.WriteByte('^')
	}

	// bufio.Writer keeps the first error and reports it from every later call.
	_, err := buf.Write(nil)
	return err
}
