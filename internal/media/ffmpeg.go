package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MimeLyc/wordsub/pkg/file"
	"github.com/MimeLyc/wordsub/pkg/log"
)

// FFmpeg runs ffprobe and ffmpeg as external processes.
type FFmpeg struct {
	ffmpegCmd  string
	ffprobeCmd string
}

func NewFFmpeg(ffmpegCmd, ffprobeCmd string) *FFmpeg {
	if ffmpegCmd == "" {
		ffmpegCmd = "ffmpeg"
	}
	if ffprobeCmd == "" {
		ffprobeCmd = "ffprobe"
	}
	return &FFmpeg{
		ffmpegCmd:  ffmpegCmd,
		ffprobeCmd: ffprobeCmd,
	}
}

// ProbeSubtitleTracks lists the subtitle streams of mediaPath.
// A non-zero exit is tolerated as long as some stream lines were printed.
func (ff *FFmpeg) ProbeSubtitleTracks(ctx context.Context, mediaPath string) ([]Track, error) {
	cmdPath, err := exec.LookPath(ff.ffprobeCmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrToolMissing, ff.ffprobeCmd, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, cmdPath, ff.probeArgs(filepath.Clean(mediaPath))...)
	cmd.Stderr = &stderr
	output, runErr := cmd.Output()

	tracks := ParseProbeCSV(string(output))
	if runErr != nil {
		if len(tracks) == 0 {
			return nil, fmt.Errorf("ffprobe failed: %w: %s", runErr, strings.TrimSpace(stderr.String()))
		}
		log.Warn("ffprobe exited with %v but reported %d subtitle tracks", runErr, len(tracks))
	}
	return tracks, nil
}

// ExtractTrack writes track of mediaPath to outPath as SRT. Success requires
// outPath to exist with a non-zero size.
func (ff *FFmpeg) ExtractTrack(ctx context.Context, mediaPath string, track Track, outPath string) error {
	if !track.TextBased() {
		return fmt.Errorf("%w: %s", ErrUnsupportedCodec, track.Codec)
	}

	cmdPath, err := exec.LookPath(ff.ffmpegCmd)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrToolMissing, ff.ffmpegCmd, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, cmdPath, ff.extractArgs(filepath.Clean(mediaPath), track, outPath)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = file.RemoveQuietly(outPath)
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.String()))
	}

	if !file.NonEmpty(outPath) {
		_ = file.RemoveQuietly(outPath)
		return ErrEmptyOutput
	}
	return nil
}

func (ff *FFmpeg) probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "s",
		"-show_entries", "stream=index,codec_name:stream_tags=language",
		"-of", "csv=p=0",
		path,
	}
}

func (ff *FFmpeg) extractArgs(path string, track Track, targetPath string) []string {
	return []string{
		"-y",
		"-v", "error",
		"-i", path,
		"-map", fmt.Sprintf("0:s:%d", track.Position),
		"-c:s", "srt", // convert text subtitles to srt
		"-f", "srt",
		targetPath,
	}
}

// ParseProbeCSV parses ffprobe csv=p=0 lines such as "2,subrip,spa".
// The first column must be the stream index; the codec is recognised by name
// and whatever remains is the language. Malformed lines are skipped.
func ParseProbeCSV(output string) []Track {
	tracks := make([]Track, 0)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cols := strings.Split(line, ",")
		index, err := strconv.Atoi(strings.TrimSpace(cols[0]))
		if err != nil || index < 0 {
			log.Debug("Skipping malformed ffprobe line: %q", line)
			continue
		}

		track := Track{
			StreamIndex: index,
			Position:    len(tracks),
			Language:    UnknownField,
			Codec:       UnknownField,
		}
		for _, col := range cols[1:] {
			col = strings.TrimSpace(col)
			switch {
			case col == "":
			case track.Codec == UnknownField && isCodecName(col):
				track.Codec = strings.ToLower(col)
			case track.Language == UnknownField:
				track.Language = col
			}
		}
		tracks = append(tracks, track)
	}
	return tracks
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// TempPath is the per-session extraction target for track.
func TempPath(dir, sessionID string, track Track) string {
	return filepath.Join(dir, fmt.Sprintf("wordsub_%s_s%d.srt", sessionID, track.Position))
}
