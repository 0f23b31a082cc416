package models

import "time"

// Cut is a user placed split point on the source timeline.
type Cut struct {
	ID   string  `json:"id"`
	Time float64 `json:"time"`
}

// Segment is a contiguous interval between two adjacent cut points.
//
// Only Selected and the gap fields are ever changed
// by the user, everything else is derived from cuts.
type Segment struct {
	ID           string  `json:"id"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Selected     bool    `json:"selected"`
	GapsAnalyzed bool    `json:"gapsAnalyzed"`
	Gaps         []Gap   `json:"gaps"`
}

func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Gap is a silent interval inside a segment.
type Gap struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Analysis holds gap analysis results of one segment
// until they are used for removal or discarded.
type Analysis struct {
	SegmentID      string  `json:"segmentId"`
	MinGapDuration float64 `json:"minGapDuration"`
	Words          []Word  `json:"words"`
	Gaps           []Gap   `json:"gaps"`
	TotalGapTime   float64 `json:"totalGapTime"`
}

// Source describes the uploaded media the session edits.
type Source struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Duration  float64   `json:"duration"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	FPS       float64   `json:"fps"`
	CreatedAt time.Time `json:"createdAt"`
}

// Artifact is the media an entity currently shows.
// Data is marshalled as base64 and is never modified in place.
type Artifact struct {
	Data     []byte `json:"videoData"`
	FileSize int64  `json:"fileSize"`
}

// SeparatedRecord holds stems produced by source separation
// and the artifact they were produced from.
type SeparatedRecord struct {
	VocalsAudio   []byte   `json:"vocalsAudio"`
	MusicAudio    []byte   `json:"musicAudio"`
	OriginalVideo Artifact `json:"originalVideo"`
}

// CustomRecord is a user uploaded audio overlay.
//
// PreApply is set if and only if IsApplied is true.
type CustomRecord struct {
	AudioData []byte    `json:"audioData"`
	AudioName string    `json:"audioName"`
	IsApplied bool      `json:"isApplied"`
	PreApply  *Artifact `json:"preApply,omitempty"`
}

// MixParams are the knobs of the next apply call.
type MixParams struct {
	UseVocals    bool    `json:"useVocals"`
	UseMusic     bool    `json:"useMusic"`
	VocalsVolume float64 `json:"vocalsVolume"`
	MusicVolume  float64 `json:"musicVolume"`
	CustomVolume float64 `json:"customVolume"`
}

type SeparationState string

const (
	SeparationNone      SeparationState = "none"
	SeparationRunning   SeparationState = "separating"
	SeparationSeparated SeparationState = "separated"
)

type CustomState string

const (
	CustomNone    CustomState = "none"
	CustomStaged  CustomState = "staged"
	CustomApplied CustomState = "applied"
)

// Volume defaults of a fresh mixing round.
const (
	DefaultVocalsVolume = 1.0
	DefaultMusicVolume  = 1.0
	DefaultCustomVolume = 0.5
	DefaultMaxVolume    = 2.0
)

// DefaultParams returns mixing parameters of a fresh round.
func DefaultParams() MixParams {
	return MixParams{
		UseVocals:    true,
		UseMusic:     true,
		VocalsVolume: DefaultVocalsVolume,
		MusicVolume:  DefaultMusicVolume,
		CustomVolume: DefaultCustomVolume,
	}
}

// AudioState is a blob-free view of one entity.
type AudioState struct {
	EntityID   string          `json:"entityId"`
	Separation SeparationState `json:"separation"`
	Custom     CustomState     `json:"custom"`
	CustomName string          `json:"customName,omitempty"`
	Processing bool            `json:"processing"`
	Params     MixParams       `json:"params"`
	FileSize   int64           `json:"fileSize"`
	CanRevert  bool            `json:"canRevert"`
}

// SessionSource is a stored source with its owning session.
type SessionSource struct {
	SessionID string `json:"sessionId"`
	Source    Source `json:"source"`
}

// SessionInfo is a summary of an editing session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Source    Source    `json:"source"`
	Cuts      int       `json:"cuts"`
	Segments  int       `json:"segments"`
	Entities  []string  `json:"entities"`
	CreatedAt time.Time `json:"createdAt"`
}

// GapRemoval is the outcome of removing gaps from a segment.
type GapRemoval struct {
	Segment  Segment `json:"segment"`
	EntityID string  `json:"entityId"`
	FileSize int64   `json:"fileSize"`
}

// Export is the outcome of exporting selected segments.
//
// Warnings list failed optional steps, the
// exported video is usable regardless.
type Export struct {
	EntityID string   `json:"entityId"`
	Segments int      `json:"segments"`
	Duration float64  `json:"duration"`
	FileSize int64    `json:"fileSize"`
	Captions bool     `json:"captions"`
	Warnings []string `json:"warnings"`
}
