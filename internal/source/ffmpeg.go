package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

// Commands used by the ffmpeg source. Tests replace them.
var (
	ffmpegPath  = "ffmpeg"
	ffprobePath = "ffprobe"
)

// FFmpeg decodes any ffmpeg input to raw RGB24 frames read from a pipe.
type FFmpeg struct {
	input  string
	cmd    *exec.Cmd
	stdout io.ReadCloser
	rd     *rawReader
}

// NewFFmpeg probes input for its size and starts the decoder.
func NewFFmpeg(ctx context.Context, input string, opts Options) (*FFmpeg, error) {
	log := logger.WithComponent("source")

	srcW, srcH, err := probeSize(ctx, input)
	if err != nil {
		return nil, err
	}
	w, h := outputSize(srcW, srcH, opts)
	log.Info().
		Str("input", input).
		Int("source_width", srcW).
		Int("source_height", srcH).
		Int("width", w).
		Int("height", h).
		Msg("Video dimensions")

	args := ffmpegArgs(input, srcW, srcH, w, h, opts.Loop)
	log.Debug().Strs("args", args).Msg("Starting ffmpeg")

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	go logStderr(stderr)

	log.Info().Int("pid", cmd.Process.Pid).Msg("ffmpeg started")
	return &FFmpeg{
		input:  input,
		cmd:    cmd,
		stdout: stdout,
		rd:     newRawReader(stdout, frame.FormatRGB24, w, h),
	}, nil
}

func (s *FFmpeg) Name() string         { return "ffmpeg:" + s.input }
func (s *FFmpeg) Format() frame.Format { return frame.FormatRGB24 }
func (s *FFmpeg) Size() (int, int)     { return s.rd.f.Width, s.rd.f.Height }

// Next reads the next decoded frame.
func (s *FFmpeg) Next(ctx context.Context) (frame.Frame, error) {
	return s.rd.next(ctx)
}

// Close stops the decoder.
func (s *FFmpeg) Close() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	log := logger.WithComponent("source")
	log.Debug().Int("pid", s.cmd.Process.Pid).Msg("Stopping ffmpeg")
	s.cmd.Process.Kill()
	s.cmd.Wait()
	s.cmd = nil
	return nil
}

// rawReader cuts a byte stream into frames of a fixed size. The returned
// frame is reused by the following call.
type rawReader struct {
	r *bufio.Reader
	f frame.Frame
}

func newRawReader(r io.Reader, format frame.Format, w, h int) *rawReader {
	f := frame.New(format, w, h)
	return &rawReader{
		r: bufio.NewReaderSize(r, len(f.Pix())),
		f: f,
	}
}

func (rr *rawReader) next(ctx context.Context) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return frame.Frame{}, err
	}
	if _, err := io.ReadFull(rr.r, rr.f.Pix()); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return frame.Frame{}, io.EOF
		}
		return frame.Frame{}, err
	}
	return rr.f, nil
}

// probeSize asks ffprobe for the first video stream's size.
func probeSize(ctx context.Context, input string) (int, int, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		input)
	out, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to probe %q: %w", input, err)
	}
	return parseProbe(string(out))
}

// parseProbe reads "WIDTHxHEIGHT" from ffprobe's csv output.
func parseProbe(out string) (int, int, error) {
	for _, line := range strings.Split(out, "\n") {
		ws, hs, found := strings.Cut(strings.TrimSpace(line), "x")
		if !found {
			continue
		}
		w, err1 := strconv.Atoi(ws)
		h, err2 := strconv.Atoi(strings.TrimRight(hs, "x"))
		if err1 == nil && err2 == nil && w > 0 && h > 0 {
			return w, h, nil
		}
	}
	return 0, 0, fmt.Errorf("could not determine video dimensions from %q", strings.TrimSpace(out))
}

// outputSize applies the requested size, deriving a missing side from the
// source aspect.
func outputSize(srcW, srcH int, opts Options) (int, int) {
	switch {
	case opts.Width > 0 && opts.Height > 0:
		return opts.Width, opts.Height
	case opts.Width > 0:
		return opts.Width, max(1, opts.Width*srcH/srcW)
	case opts.Height > 0:
		return max(1, opts.Height*srcW/srcH), opts.Height
	}
	return srcW, srcH
}

func ffmpegArgs(input string, srcW, srcH, w, h int, loop bool) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if loop {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args, "-i", input, "-an")
	if w != srcW || h != srcH {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", w, h))
	}
	return append(args, "-f", "rawvideo", "-pix_fmt", "rgb24", "-")
}

func logStderr(r io.Reader) {
	log := logger.WithComponent("source")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Warn().Str("ffmpeg", scanner.Text()).Msg("ffmpeg message")
	}
}
