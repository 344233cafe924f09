package engine

import (
	"context"

	"github.com/kennonjarvis-debug/dawg"
	"github.com/kennonjarvis-debug/dawg/graph"
)

// renderBlock is the block size for offline rendering. Blocks only bound
// how often cancellation is checked; the output is identical for any size.
const renderBlock = 1024

// RenderRegion selects what RenderOffline produces.
type RenderRegion struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Tail     float64 `json:"tail"` // extra seconds after the region for effect tails
}

// RenderOffline renders a region of the project into a PCM buffer, outside
// real time. Identical model state and identical region always produce
// byte-identical output: the synthesis and effects are driven purely by the
// frame position, never by the clock or goroutine scheduling.
//
// The context cancels the render between blocks; a cancelled render returns
// ErrRenderCancelled and no buffer, leaving the project untouched.
func RenderOffline(ctx context.Context, proj *dawg.Project, region RenderRegion) (dawg.AudioBuffer, error) {
	if len(proj.Tracks) == 0 || region.Duration <= 0 {
		return nil, &dawg.ValidationError{Field: "region", Err: dawg.ErrEmptyRenderRegion}
	}
	if err := proj.Validate(); err != nil {
		return nil, err
	}
	sr := proj.SampleRate
	if sr <= 0 {
		sr = dawg.DefaultSampleRate
	}

	g := graph.New(graph.Config{SampleRate: sr})
	g.Update(*proj)

	startFrame := int64(region.Start * float64(sr))
	total := int64((region.Duration + region.Tail) * float64(sr))
	noteEnd := startFrame + int64(region.Duration*float64(sr))

	events := scheduleWindow(proj, proj.Tempo, sr, startFrame, noteEnd)
	out := make(dawg.AudioBuffer, total)

	var done int64
	for done < total {
		select {
		case <-ctx.Done():
			return nil, dawg.ErrRenderCancelled
		default:
		}
		frame := startFrame + done
		n := int64(renderBlock)
		if total-done < n {
			n = total - done
		}
		// split the block at event frames so triggers are sample accurate
		for len(events) > 0 && events[0].frame < frame+n {
			n = events[0].frame - frame
			if n > 0 {
				break
			}
			ev := events[0]
			events = events[1:]
			if ev.on {
				g.Trigger(ev.trackID, int64(ev.noteID), ev.pitch, ev.velocity)
			} else {
				g.Release(ev.trackID, int64(ev.noteID))
			}
			n = int64(renderBlock)
			if total-done < n {
				n = total - done
			}
		}
		if n == 0 {
			continue
		}
		g.Process(out[done:done+n], frame, true)
		done += n
	}
	return out, nil
}

// RenderBeat synthesizes a candidate pattern on a throwaway one-track
// project. The buffer length is exactly the pattern length plus the tail.
func RenderBeat(ctx context.Context, b *GeneratedBeat, sampleRate int, tail float64) (dawg.AudioBuffer, error) {
	proj := dawg.NewProject("preview")
	proj.Tempo = b.Tempo
	proj.SampleRate = sampleRate
	clip := b.Clip(0)
	track := dawg.Track{
		ID:       "preview",
		Name:     "preview",
		Kind:     dawg.TrackMIDI,
		Settings: dawg.DefaultTrackSettings(),
	}
	clip.TrackID = track.ID
	track.Clips = append(track.Clips, clip)
	proj.Tracks = append(proj.Tracks, track)
	return RenderOffline(ctx, &proj, RenderRegion{Duration: clip.Duration, Tail: tail})
}
