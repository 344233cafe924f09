package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kennonjarvis-debug/dawg"
)

// Command is one operation from an outer layer (UI, voice, agent). Op names
// form a closed set; unknown ops and malformed or out-of-range params are
// rejected before anything mutates.
type Command struct {
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Dispatcher validates and executes commands against the model.
type Dispatcher struct {
	model *Model
	cache *PreviewCache
	log   *zap.Logger
}

func NewDispatcher(model *Model, cache *PreviewCache, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{model: model, cache: cache, log: log}
}

// decodeParams unmarshals into dst rejecting unknown fields, so a typo in a
// parameter name fails loudly instead of silently defaulting.
func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &dawg.ValidationError{Field: "params", Err: err}
	}
	return nil
}

type trackIDParams struct {
	TrackID string `json:"trackId"`
}

type clipRefParams struct {
	TrackID string `json:"trackId"`
	ClipID  string `json:"clipId"`
}

type effectRefParams struct {
	TrackID  string `json:"trackId"`
	EffectID string `json:"effectId"`
}

// Execute runs one command and returns its result, if the op produces one.
func (d *Dispatcher) Execute(cmd Command) (any, error) {
	d.log.Debug("command", zap.String("op", cmd.Op))
	switch cmd.Op {
	case "track.create":
		var p struct {
			Kind string `json:"kind"`
			Name string `json:"name"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return d.model.CreateTrack(dawg.TrackKind(p.Kind), p.Name)

	case "track.delete":
		var p trackIDParams
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.DeleteTrack(p.TrackID)

	case "track.duplicate":
		var p trackIDParams
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return d.model.DuplicateTrack(p.TrackID)

	case "track.reorder":
		var p struct {
			TrackID  string `json:"trackId"`
			NewIndex int    `json:"newIndex"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.ReorderTrack(p.TrackID, p.NewIndex)

	case "track.group":
		var p struct {
			TrackIDs []string `json:"trackIds"`
			Name     string   `json:"name"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return d.model.GroupTracks(p.TrackIDs, p.Name)

	case "track.ungroup":
		var p struct {
			FolderID string `json:"folderId"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.UngroupTracks(p.FolderID)

	case "track.rename":
		var p struct {
			TrackID string `json:"trackId"`
			Name    string `json:"name"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.SetTrackName(p.TrackID, p.Name)

	case "track.select":
		var p trackIDParams
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.SelectTrack(p.TrackID)

	case "track.mute":
		var p struct {
			TrackID string `json:"trackId"`
			Mute    bool   `json:"mute"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.UpdateTrackSettings(p.TrackID, TrackSettingsPatch{Mute: &p.Mute})

	case "track.solo":
		var p struct {
			TrackID string `json:"trackId"`
			Solo    bool   `json:"solo"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.UpdateTrackSettings(p.TrackID, TrackSettingsPatch{Solo: &p.Solo})

	case "track.setVolume":
		var p struct {
			TrackID string  `json:"trackId"`
			Volume  float64 `json:"volume"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.UpdateTrackSettings(p.TrackID, TrackSettingsPatch{Volume: &p.Volume})

	case "track.setPan":
		var p struct {
			TrackID string  `json:"trackId"`
			Pan     float64 `json:"pan"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.UpdateTrackSettings(p.TrackID, TrackSettingsPatch{Pan: &p.Pan})

	case "clip.add":
		var p struct {
			TrackID string    `json:"trackId"`
			Clip    dawg.Clip `json:"clip"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return d.model.AddClip(p.TrackID, p.Clip)

	case "clip.remove":
		var p clipRefParams
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.RemoveClip(p.TrackID, p.ClipID)

	case "clip.move":
		var p struct {
			TrackID     string  `json:"trackId"`
			ClipID      string  `json:"clipId"`
			DestTrackID string  `json:"destTrackId"`
			Start       float64 `json:"start"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.MoveClip(p.TrackID, p.ClipID, p.DestTrackID, p.Start)

	case "clip.resize":
		var p struct {
			TrackID  string  `json:"trackId"`
			ClipID   string  `json:"clipId"`
			Duration float64 `json:"duration"`
			Offset   float64 `json:"offset"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.ResizeClip(p.TrackID, p.ClipID, p.Duration, p.Offset)

	case "notes.add":
		var p struct {
			TrackID string      `json:"trackId"`
			ClipID  string      `json:"clipId"`
			Notes   []dawg.Note `json:"notes"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return d.model.AddNotes(p.TrackID, p.ClipID, p.Notes)

	case "notes.remove":
		var p struct {
			TrackID string   `json:"trackId"`
			ClipID  string   `json:"clipId"`
			NoteIDs []string `json:"noteIds"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.RemoveNotes(p.TrackID, p.ClipID, p.NoteIDs)

	case "midi.quantize":
		var p struct {
			TrackID string          `json:"trackId"`
			ClipID  string          `json:"clipId"`
			Options QuantizeOptions `json:"options"`
			Scale   *struct {
				Root int    `json:"root"`
				Name string `json:"name"`
			} `json:"scale"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		_, c, err := d.model.clip(p.TrackID, p.ClipID)
		if err != nil {
			return nil, err
		}
		notes, err := Quantize(c.Notes, p.Options)
		if err != nil {
			return nil, err
		}
		if p.Scale != nil {
			s, err := NamedScale(p.Scale.Root, p.Scale.Name)
			if err != nil {
				return nil, err
			}
			notes = SnapToScale(notes, s)
		}
		return notes, d.model.ReplaceNotes(p.TrackID, p.ClipID, notes)

	case "midi.snapScale":
		var p struct {
			TrackID string `json:"trackId"`
			ClipID  string `json:"clipId"`
			Root    int    `json:"root"`
			Scale   string `json:"scale"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		s, err := NamedScale(p.Root, p.Scale)
		if err != nil {
			return nil, err
		}
		_, c, err := d.model.clip(p.TrackID, p.ClipID)
		if err != nil {
			return nil, err
		}
		notes := SnapToScale(c.Notes, s)
		return notes, d.model.ReplaceNotes(p.TrackID, p.ClipID, notes)

	case "midi.humanize":
		var p struct {
			TrackID        string  `json:"trackId"`
			ClipID         string  `json:"clipId"`
			TimeJitter     float64 `json:"timeJitter"`
			VelocityJitter int     `json:"velocityJitter"`
			Seed           int64   `json:"seed"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		_, c, err := d.model.clip(p.TrackID, p.ClipID)
		if err != nil {
			return nil, err
		}
		notes := Humanize(c.Notes, p.TimeJitter, p.VelocityJitter, p.Seed)
		return notes, d.model.ReplaceNotes(p.TrackID, p.ClipID, notes)

	case "midi.legato":
		var p clipRefParams
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		_, c, err := d.model.clip(p.TrackID, p.ClipID)
		if err != nil {
			return nil, err
		}
		notes := Legato(c.Notes)
		return notes, d.model.ReplaceNotes(p.TrackID, p.ClipID, notes)

	case "effect.add":
		var p struct {
			TrackID string             `json:"trackId"`
			Type    string             `json:"type"`
			Params  map[string]float64 `json:"parameters"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return d.model.AddEffect(p.TrackID, dawg.EffectType(p.Type), p.Params)

	case "effect.remove":
		var p effectRefParams
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.RemoveEffect(p.TrackID, p.EffectID)

	case "effect.reorder":
		var p struct {
			TrackID  string `json:"trackId"`
			EffectID string `json:"effectId"`
			NewIndex int    `json:"newIndex"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.ReorderEffect(p.TrackID, p.EffectID, p.NewIndex)

	case "effect.setParameter":
		var p struct {
			TrackID  string  `json:"trackId"`
			EffectID string  `json:"effectId"`
			Name     string  `json:"name"`
			Value    float64 `json:"value"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.SetEffectParameter(p.TrackID, p.EffectID, p.Name, p.Value)

	case "effect.bypass":
		var p struct {
			TrackID  string `json:"trackId"`
			EffectID string `json:"effectId"`
			Bypassed bool   `json:"bypassed"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.BypassEffect(p.TrackID, p.EffectID, p.Bypassed)

	case "transport.play":
		d.model.Play()
		return nil, nil

	case "transport.pause":
		d.model.Pause()
		return nil, nil

	case "transport.stop":
		d.model.Stop()
		return nil, nil

	case "transport.seek":
		var p struct {
			Seconds float64 `json:"seconds"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		d.model.Seek(p.Seconds)
		return nil, nil

	case "transport.setTempo":
		var p struct {
			BPM float64 `json:"bpm"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.SetTempo(p.BPM)

	case "transport.setLoop":
		var p Loop
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.model.SetLoop(p)

	case "beat.generate":
		var p struct {
			Style BeatStyle `json:"style"`
			Tempo float64   `json:"tempo"`
			Bars  int       `json:"bars"`
			Seed  int64     `json:"seed"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		beats, err := GenerateBeats(p.Style, p.Tempo, p.Bars, p.Seed)
		if err != nil {
			return nil, err
		}
		if err := d.cache.Prepare(beats); err != nil {
			return nil, err
		}
		return beats, nil

	case "beat.select":
		var p struct {
			Index int `json:"index"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return nil, d.cache.Select(p.Index)

	case "beat.accept":
		var p struct {
			Index   int     `json:"index"`
			TrackID string  `json:"trackId"`
			Start   float64 `json:"start"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		return d.cache.Accept(d.model, p.Index, p.TrackID, p.Start)

	case "beat.reject":
		d.cache.Reject()
		return nil, nil

	case "render.offline":
		var p struct {
			Start    float64 `json:"start"`
			Duration float64 `json:"duration"`
			Tail     float64 `json:"tail"`
		}
		if err := decodeParams(cmd.Params, &p); err != nil {
			return nil, err
		}
		proj := d.model.Project()
		return RenderOffline(context.Background(), &proj, RenderRegion{Start: p.Start, Duration: p.Duration, Tail: p.Tail})

	default:
		return nil, &dawg.ValidationError{Field: "op", Err: fmt.Errorf("unknown command %q", cmd.Op)}
	}
}
