package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"FlowSentinel/internal/model"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// openPort is replaced in tests.
var openPort = func(name string, mode *serial.Mode) (io.ReadCloser, error) {
	return serial.Open(name, mode)
}

// LineSource reads sensor lines of the form
//
//	Flow: 1.23 L/min | 0.021 L/sec | Total: 4.567 L
//
// from a byte stream. Lines without a "Flow:" marker are skipped.
type LineSource struct {
	name string
	rc   io.ReadCloser
	r    *bufio.Reader
	Now  func() time.Time
}

// NewLineSource wraps an already open stream.
func NewLineSource(name string, rc io.ReadCloser) *LineSource {
	return &LineSource{name: name, rc: rc, r: bufio.NewReader(rc), Now: time.Now}
}

// OpenSerial opens a serial port and waits settle for the board to reset.
func OpenSerial(ctx context.Context, port string, baud int, settle time.Duration, logger *zap.Logger) (*LineSource, error) {
	rc, err := openPort(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	if err := sleepCtx(ctx, settle); err != nil {
		rc.Close()
		return nil, err
	}
	logger.Info("connected to sensor", zap.String("port", port), zap.Int("baud", baud))
	return NewLineSource(KindSerial, rc), nil
}

func (s *LineSource) Name() string { return s.name }

func (s *LineSource) Close() error { return s.rc.Close() }

func (s *LineSource) Next(ctx context.Context) (model.Reading, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.Reading{}, err
		}
		line, err := s.r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && strings.Contains(line, "Flow:")) {
			return model.Reading{}, fmt.Errorf("read %s: %w", s.name, err)
		}
		if !strings.Contains(line, "Flow:") {
			continue
		}
		r, perr := ParseLine(line)
		if perr != nil {
			return model.Reading{}, perr
		}
		r.Time = s.Now()
		return r, nil
	}
}

var unitReplacer = strings.NewReplacer("|", " ", "L/min", " ", "L/sec", " ", "Total:", " ")

// ParseLine parses one sensor line into a reading without a timestamp.
func ParseLine(line string) (model.Reading, error) {
	i := strings.Index(line, "Flow:")
	if i < 0 {
		return model.Reading{}, fmt.Errorf("%w: no Flow marker in %q", ErrMalformedLine, line)
	}
	body := unitReplacer.Replace(line[i+len("Flow:"):])
	body = strings.ReplaceAll(body, "L", " ")
	parts := strings.Fields(body)
	if len(parts) < 3 {
		return model.Reading{}, fmt.Errorf("%w: expected 3 fields in %q", ErrMalformedLine, strings.TrimSpace(line))
	}

	var vals [3]float64
	for k := 0; k < 3; k++ {
		v, err := strconv.ParseFloat(parts[k], 64)
		if err != nil {
			return model.Reading{}, fmt.Errorf("%w: field %d: %v", ErrMalformedLine, k+1, err)
		}
		vals[k] = v
	}
	return model.Reading{
		FlowPerMinute:     vals[0],
		ReportedPerSecond: vals[1],
		ReportedTotal:     vals[2],
		HasReported:       true,
	}, nil
}
