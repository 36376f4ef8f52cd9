// Package gpioline backs hw.Line with a Linux GPIO character device line,
// using edge events to drive an interrupt front-end.
package gpioline

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/linkpm/linkpm-go/pkg/hw"
)

// DefaultConsumer labels requested lines in the kernel.
const DefaultConsumer = "linkpm"

// ErrNoChip is returned when no chip name is given.
var ErrNoChip = errors.New("gpioline: no chip")

// Options configures a line request.
type Options struct {
	// Consumer labels the line. Empty selects DefaultConsumer.
	Consumer string

	// Debounce filters edges shorter than this. Zero disables.
	Debounce time.Duration
}

// Line is an input line watched for both edges.
type Line struct {
	chip   string
	offset int
	line   *gpiocdev.Line

	onEdge atomic.Pointer[func()]
	edges  atomic.Uint64
}

// Request requests chip/offset as an input with both-edge detection.
func Request(chip string, offset int, opts Options) (*Line, error) {
	if chip == "" {
		return nil, ErrNoChip
	}
	if opts.Consumer == "" {
		opts.Consumer = DefaultConsumer
	}
	l := &Line{chip: chip, offset: offset}

	reqOpts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithConsumer(opts.Consumer),
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(l.handleEvent),
	}
	if opts.Debounce > 0 {
		reqOpts = append(reqOpts, gpiocdev.WithDebounce(opts.Debounce))
	}
	line, err := gpiocdev.RequestLine(chip, offset, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("request %s:%d: %w", chip, offset, err)
	}
	l.line = line
	return l, nil
}

// String returns chip:offset.
func (l *Line) String() string {
	return fmt.Sprintf("%s:%d", l.chip, l.offset)
}

// Level implements hw.Line.
func (l *Line) Level() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", l, err)
	}
	return v != 0, nil
}

// OnEdge sets the function called for every edge event. Typically the
// front-end's Fire.
func (l *Line) OnEdge(fn func()) {
	l.onEdge.Store(&fn)
}

// Edges returns the number of edge events seen.
func (l *Line) Edges() uint64 {
	return l.edges.Load()
}

// Close releases the line.
func (l *Line) Close() error {
	return l.line.Close()
}

func (l *Line) handleEvent(gpiocdev.LineEvent) {
	l.edges.Add(1)
	if fn := l.onEdge.Load(); fn != nil && *fn != nil {
		(*fn)()
	}
}

var _ hw.Line = (*Line)(nil)
