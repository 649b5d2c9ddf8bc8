package logreader

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/logsift/logsift/internal/parser"
	"github.com/logsift/logsift/pkg/models"
)

// Record is a single processed log line. Exactly one of Entry and Reject
// is set.
type Record struct {
	Entry  *models.LogEntry
	Reject *models.RejectedLine
}

// LogReader streams log files through the parser.
type LogReader struct {
	parser *parser.LogParser
}

// NewLogReader creates a reader that parses lines with the given parser.
func NewLogReader(p *parser.LogParser) *LogReader {
	return &LogReader{parser: p}
}

// ReadFile reads a log file and returns a channel of records. Gzipped
// files (by .gz suffix) are decompressed transparently.
func (r *LogReader) ReadFile(ctx context.Context, path string) (<-chan Record, <-chan error) {
	recordChan := make(chan Record, 100)
	errorChan := make(chan error, 1)

	go func() {
		defer close(recordChan)
		defer close(errorChan)

		file, err := openFile(path)
		if err != nil {
			errorChan <- fmt.Errorf("failed to open file: %w", err)
			return
		}
		defer file.Close()

		if err := r.stream(ctx, file, recordChan); err != nil {
			errorChan <- fmt.Errorf("error reading %s: %w", path, err)
		}
	}()

	return recordChan, errorChan
}

// ReadStdin reads log lines from stdin.
func (r *LogReader) ReadStdin(ctx context.Context) (<-chan Record, <-chan error) {
	recordChan := make(chan Record, 100)
	errorChan := make(chan error, 1)

	go func() {
		defer close(recordChan)
		defer close(errorChan)

		if err := r.stream(ctx, os.Stdin, recordChan); err != nil {
			errorChan <- fmt.Errorf("error reading stdin: %w", err)
		}
	}()

	return recordChan, errorChan
}

// ReadMultipleFiles reads several log files in order into one stream.
func (r *LogReader) ReadMultipleFiles(ctx context.Context, paths []string) (<-chan Record, <-chan error) {
	recordChan := make(chan Record, 100)
	errorChan := make(chan error, len(paths))

	go func() {
		defer close(recordChan)
		defer close(errorChan)

		for _, path := range paths {
			select {
			case <-ctx.Done():
				return
			default:
			}
			records, errors := r.ReadFile(ctx, path)
			for rec := range records {
				recordChan <- rec
			}
			for err := range errors {
				errorChan <- err
			}
		}
	}()

	return recordChan, errorChan
}

// stream scans input line by line, parsing each one. Line numbers start
// at 1. Blank lines are skipped.
func (r *LogReader) stream(ctx context.Context, in io.Reader, out chan<- Record) error {
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry, err := r.parser.ParseLine(line, lineNum)
		if err != nil {
			out <- Record{Reject: &models.RejectedLine{LineNumber: lineNum, Raw: line}}
			continue
		}
		out <- Record{Entry: entry}
	}
	return scanner.Err()
}

// TailFile reads a log file and, when follow is set, keeps watching it
// for appended lines until the context is cancelled.
func (r *LogReader) TailFile(ctx context.Context, path string, follow bool) (<-chan Record, <-chan error) {
	recordChan := make(chan Record, 100)
	errorChan := make(chan error, 1)

	go func() {
		defer close(recordChan)
		defer close(errorChan)

		if !follow {
			file, err := openFile(path)
			if err != nil {
				errorChan <- fmt.Errorf("failed to open file: %w", err)
				return
			}
			defer file.Close()

			if err := r.stream(ctx, file, recordChan); err != nil {
				errorChan <- fmt.Errorf("error reading %s: %w", path, err)
			}
			return
		}

		file, err := os.Open(path)
		if err != nil {
			errorChan <- fmt.Errorf("failed to open file: %w", err)
			return
		}
		defer file.Close()

		// Start at the end so only appended lines come through.
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			errorChan <- fmt.Errorf("failed to seek to end: %w", err)
			return
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			errorChan <- fmt.Errorf("failed to create watcher: %w", err)
			return
		}
		defer watcher.Close()

		if err := watcher.Add(path); err != nil {
			errorChan <- fmt.Errorf("failed to watch file: %w", err)
			return
		}

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		reader := bufio.NewReader(file)
		lineNum := 0

		// Each wakeup re-reads from the last consumed offset. A line
		// counts as consumed only once its newline has been written, so
		// a partial tail stays in place until the rest arrives.
		drain := func() {
			if _, err := file.Seek(offset, io.SeekStart); err != nil {
				return
			}
			reader.Reset(file)
			for {
				line, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				offset += int64(len(line))
				lineNum++
				line = strings.TrimRight(line, "\r\n")
				if strings.TrimSpace(line) == "" {
					continue
				}
				entry, perr := r.parser.ParseLine(line, lineNum)
				if perr != nil {
					recordChan <- Record{Reject: &models.RejectedLine{LineNumber: lineNum, Raw: line}}
					continue
				}
				recordChan <- Record{Entry: entry}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-watcher.Events:
				if event.Op&fsnotify.Write == fsnotify.Write {
					drain()
				}
			case err := <-watcher.Errors:
				errorChan <- err
				return
			case <-ticker.C:
				drain()
			}
		}
	}()

	return recordChan, errorChan
}

// ReadLastN reads the last n parseable entries from a file.
func (r *LogReader) ReadLastN(path string, n int) ([]*models.LogEntry, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	result, err := r.parser.ParseReader(file)
	if err != nil {
		return nil, err
	}

	start := 0
	if len(result.Entries) > n {
		start = len(result.Entries) - n
	}

	entries := make([]*models.LogEntry, 0, n)
	for i := start; i < len(result.Entries); i++ {
		entries = append(entries, &result.Entries[i])
	}
	return entries, nil
}

// openFile opens a file, wrapping it in a gzip reader when the path has
// a .gz suffix.
func openFile(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(path, ".gz") {
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return &gzipReadCloser{gzReader, file}, nil
	}

	return file, nil
}

type gzipReadCloser struct {
	gzReader *gzip.Reader
	file     *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.gzReader.Read(p)
}

func (g *gzipReadCloser) Close() error {
	g.gzReader.Close()
	return g.file.Close()
}
