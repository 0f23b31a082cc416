package media

import "github.com/GintGld/clip-editor/internal/models"

// errorBody is embedded in every response,
// error is set only on failure.
type errorBody struct {
	Error         string `json:"error,omitempty"`
	MissingConfig string `json:"missing_config,omitempty"`
}

type uploadResponse struct {
	errorBody
	SourceID string  `json:"source_id"`
	Path     string  `json:"video_path"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
}

type analyzeRequest struct {
	SourceID       string  `json:"source_id"`
	StartTime      float64 `json:"start_time"`
	EndTime        float64 `json:"end_time"`
	MinGapDuration float64 `json:"min_gap_duration"`
}

type analyzeResponse struct {
	errorBody
	Words        []models.Word `json:"words"`
	Gaps         []models.Gap  `json:"gaps"`
	TotalGapTime float64       `json:"total_gap_time"`
	GapCount     int           `json:"gap_count"`
}

type removeGapsRequest struct {
	SourceID    string       `json:"source_id"`
	RegionStart float64      `json:"region_start"`
	RegionEnd   float64      `json:"region_end"`
	Gaps        []models.Gap `json:"gaps"`
	Padding     float64      `json:"padding"`
}

type videoResponse struct {
	errorBody
	VideoData []byte `json:"video_data"`
	FileSize  int64  `json:"file_size"`
}

type videoRequest struct {
	VideoData []byte `json:"video_data"`
}

type separateResponse struct {
	errorBody
	Vocals []byte `json:"vocals"`
	Music  []byte `json:"music"`
	Format string `json:"format"`
}

type audioOptions struct {
	Separate          bool    `json:"separate"`
	UseVocals         bool    `json:"use_vocals"`
	UseMusic          bool    `json:"use_music"`
	VocalsVolume      float64 `json:"vocals_volume"`
	MusicVolume       float64 `json:"music_volume"`
	VocalsAudio       []byte  `json:"vocals_audio,omitempty"`
	MusicAudio        []byte  `json:"music_audio,omitempty"`
	CustomAudio       []byte  `json:"custom_audio,omitempty"`
	CustomAudioVolume float64 `json:"custom_audio_volume"`
}

type mixRequest struct {
	VideoData    []byte       `json:"video_data"`
	AudioOptions audioOptions `json:"audio_options"`
}

type exportSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type exportRequest struct {
	SourceID string          `json:"source_id"`
	Mode     string          `json:"mode"`
	Segments []exportSegment `json:"segments"`
}

// GapAnalysis is the result of gap analysis of a region.
type GapAnalysis struct {
	Words        []models.Word
	Gaps         []models.Gap
	TotalGapTime float64
}
