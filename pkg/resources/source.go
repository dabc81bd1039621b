package resources

import (
	"bufio"
	"context"
	"io"
	"syscall"

	"emperror.dev/errors"
	"github.com/containerd/fifo"
	"github.com/nxadm/tail"
)

// Line is one line of sampler output, or the error that ended the stream.
type Line struct {
	Text string
	Err  error
}

// LineSource delivers sampler output line by line. The channel is closed at
// end of input.
type LineSource interface {
	Lines() <-chan Line
	Stop() error
}

// readerSource scans an io.Reader such as stdin.
type readerSource struct {
	lines chan Line
	done  chan struct{}
}

// NewReaderSource starts scanning r in the background.
func NewReaderSource(r io.Reader) LineSource {
	s := &readerSource{
		lines: make(chan Line),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(s.lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case s.lines <- Line{Text: scanner.Text()}:
			case <-s.done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case s.lines <- Line{Err: err}:
			case <-s.done:
			}
		}
	}()
	return s
}

func (s *readerSource) Lines() <-chan Line {
	return s.lines
}

func (s *readerSource) Stop() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

// FileSourceConfig configures a file-backed line source.
type FileSourceConfig struct {
	// Follow keeps reading as the file grows instead of stopping at EOF.
	Follow bool
	// CreateFifo creates path as a named pipe before reading from it.
	CreateFifo bool
}

// tailSource follows a file or named pipe.
type tailSource struct {
	tail  *tail.Tail
	lines chan Line
	done  chan struct{}
}

// NewFileSource reads lines from path, optionally following it.
func NewFileSource(path string, cfg FileSourceConfig) (LineSource, error) {
	if cfg.CreateFifo {
		f, err := fifo.OpenFifo(context.Background(), path, syscall.O_CREAT|syscall.O_RDONLY|syscall.O_NONBLOCK, 0o655)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create fifo %s", path)
		}
		if err := f.Close(); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	t, err := tail.TailFile(path, tail.Config{
		ReOpen:    cfg.Follow,
		Pipe:      cfg.CreateFifo,
		Follow:    cfg.Follow || cfg.CreateFifo,
		MustExist: !cfg.CreateFifo,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}

	s := &tailSource{
		tail:  t,
		lines: make(chan Line),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(s.lines)
		for line := range t.Lines {
			select {
			case s.lines <- Line{Text: line.Text, Err: line.Err}:
			case <-s.done:
				return
			}
		}
	}()
	return s, nil
}

func (s *tailSource) Lines() <-chan Line {
	return s.lines
}

func (s *tailSource) Stop() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	err := s.tail.Stop()
	s.tail.Cleanup()
	return err
}
