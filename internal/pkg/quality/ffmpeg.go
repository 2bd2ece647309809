package quality

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	"os/exec"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.mau.fi/util/ffmpeg"
)

// FFmpegSampler implements Sampler with ffprobe/ffmpeg. Frames and PCM are
// streamed over stdout, so no temporary files need cleaning up.
type FFmpegSampler struct {
	log *log.Helper
}

// NewFFmpegSampler creates a sampler backed by the system ffmpeg binaries.
func NewFFmpegSampler(logger log.Logger) *FFmpegSampler {
	return &FFmpegSampler{log: log.NewHelper(logger)}
}

func (s *FFmpegSampler) Probe(ctx context.Context, videoPath string) (*ProbeInfo, error) {
	if !ffmpeg.ProbeSupported() {
		return nil, fmt.Errorf("ffprobe not available")
	}
	result, err := ffmpeg.Probe(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("ffprobe returned no data for %s", videoPath)
	}
	for _, stream := range result.Streams {
		if stream.CodecType == "video" {
			dur := stream.Duration
			if dur <= 0 && result.Format != nil {
				dur = result.Format.Duration
			}
			return &ProbeInfo{
				Duration: time.Duration(dur * float64(time.Second)),
				Width:    stream.Width,
				Height:   stream.Height,
			}, nil
		}
	}
	return nil, fmt.Errorf("no video stream in %s", videoPath)
}

func (s *FFmpegSampler) SampleFrame(ctx context.Context, videoPath string, at time.Duration) (image.Image, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", at.Seconds()),
		"-i", videoPath,
		"-frames:v", "1",
		"-c:v", "mjpeg",
		"-f", "image2", "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("failed to decode extracted frame: %w", err)
	}
	return img, nil
}

func (s *FFmpegSampler) SampleAudio(ctx context.Context, videoPath string, window time.Duration) ([]int16, int, error) {
	const sampleRate = 16000
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-t", fmt.Sprintf("%.3f", window.Seconds()),
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-f", "s16le", "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, 0, fmt.Errorf("ffmpeg audio extraction failed: %w", err)
	}
	// A video without an audio track yields no PCM; that is a silent clip,
	// not an error.
	return bytesToInt16LE(out), sampleRate, nil
}

func bytesToInt16LE(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}
