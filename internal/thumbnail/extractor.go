package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/tenqz/videosos/internal/domain"
)

// Extractor derives a preview image from a downloaded video payload.
// Extraction is best effort: a nil blob with a nil error means no thumbnail
// could be produced and the caller should carry on without one.
type Extractor interface {
	Extract(ctx context.Context, video *domain.Blob) (*domain.Blob, error)
}

const thumbnailMaxWidth = 640

// FFmpegExtractor grabs a frame with the ffmpeg binary and downscales it.
type FFmpegExtractor struct {
	binary string
}

// NewFFmpegExtractor locates ffmpeg on PATH. A missing binary is not an
// error; the extractor then reports no thumbnail for every input.
func NewFFmpegExtractor() *FFmpegExtractor {
	binary, err := exec.LookPath("ffmpeg")
	if err != nil {
		binary = ""
	}
	return &FFmpegExtractor{binary: binary}
}

// Extract writes the video to a temp file, grabs a frame one second in and
// returns it as a downscaled JPEG.
func (e *FFmpegExtractor) Extract(ctx context.Context, video *domain.Blob) (*domain.Blob, error) {
	if e.binary == "" || video == nil || len(video.Data) == 0 {
		return nil, nil
	}

	dir, err := os.MkdirTemp("", "thumb-")
	if err != nil {
		return nil, fmt.Errorf("thumbnail: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	videoPath := filepath.Join(dir, "source.mp4")
	framePath := filepath.Join(dir, "frame.jpg")
	if err := os.WriteFile(videoPath, video.Data, 0o600); err != nil {
		return nil, fmt.Errorf("thumbnail: write source: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.binary,
		"-ss", "00:00:01",
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", framePath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("thumbnail: ffmpeg: %w: %s", err, bytes.TrimSpace(out))
	}

	frame, err := imaging.Open(framePath)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: decode frame: %w", err)
	}
	if frame.Bounds().Dx() > thumbnailMaxWidth {
		frame = imaging.Resize(frame, thumbnailMaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("thumbnail: encode: %w", err)
	}
	return &domain.Blob{Data: buf.Bytes(), ContentType: "image/jpeg"}, nil
}
