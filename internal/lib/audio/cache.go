// Package audio keeps derived audio of editable entities:
// separated stems, custom overlays and the apply/revert history
// of each entity's media.
package audio

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/GintGld/clip-editor/internal/models"
)

var (
	ErrEntityNotFound   = errors.New("entity not found")
	ErrBusy             = errors.New("entity is busy")
	ErrAlreadySeparated = errors.New("audio already separated")
	ErrNothingToApply   = errors.New("nothing to apply: separate audio or upload custom audio first")
	ErrNothingToRevert  = errors.New("nothing to revert")
	ErrEmptyAudio       = errors.New("empty audio")
	ErrEmptyMedia       = errors.New("empty media")
	ErrInvalidParams    = errors.New("invalid mix parameters")
	ErrApplied          = errors.New("entity has applied audio: revert it first")
)

// Stems are the result of source separation.
type Stems struct {
	Vocals []byte
	Music  []byte
}

// MixRequest describes one mixing call.
type MixRequest struct {
	Video    []byte
	Separate bool
	Params   models.MixParams
	Vocals   []byte
	Music    []byte
	Custom   []byte
}

// Processor performs the actual media processing.
type Processor interface {
	Separate(ctx context.Context, video []byte) (Stems, error)
	Mix(ctx context.Context, req MixRequest) (models.Artifact, error)
}

// RevertResult tells what Revert did.
type RevertResult string

const (
	RevertRestored  RevertResult = "restored"
	RevertDiscarded RevertResult = "discarded"
)

// Cache holds audio state of entities keyed by K.
//
// Every mutating operation of an entity is serialized:
// while one is in flight the others fail with ErrBusy.
// Operations on different entities never block each other.
type Cache[K comparable] struct {
	proc      Processor
	defaults  models.MixParams
	maxVolume float64

	mu       sync.Mutex
	entities map[K]*entity
	order    []K
}

type entity struct {
	// busy is held for the whole mutating operation,
	// including remote calls.
	busy sync.Mutex

	// mu guards the fields below.
	mu            sync.Mutex
	separating    bool
	processing    bool
	artifact      models.Artifact
	separated     *models.SeparatedRecord
	custom        *models.CustomRecord
	stemsPreApply *models.Artifact
	params        models.MixParams
}

func New[K comparable](proc Processor, defaults models.MixParams, maxVolume float64) *Cache[K] {
	if maxVolume <= 0 {
		maxVolume = models.DefaultMaxVolume
	}
	return &Cache[K]{
		proc:      proc,
		defaults:  defaults,
		maxVolume: maxVolume,
		entities:  make(map[K]*entity),
	}
}

// Put registers entity media. Existing entity
// is replaced along with all its derived audio.
func (c *Cache[K]) Put(id K, media models.Artifact) error {
	return c.put(id, media, false)
}

// Replace is Put that refuses to drop applied audio.
// Media produced again for a known entity goes through it,
// so an applied mix is only ever undone by Revert.
func (c *Cache[K]) Replace(id K, media models.Artifact) error {
	return c.put(id, media, true)
}

// CheckReplace reports whether Replace of the entity
// would be accepted right now.
func (c *Cache[K]) CheckReplace(id K) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, ok := c.entities[id]
	if !ok {
		return nil
	}
	if !old.busy.TryLock() {
		return ErrBusy
	}
	defer old.busy.Unlock()

	return old.replaceable()
}

func (c *Cache[K]) put(id K, media models.Artifact, keepApplied bool) error {
	if len(media.Data) == 0 {
		return ErrEmptyMedia
	}
	if media.FileSize == 0 {
		media.FileSize = int64(len(media.Data))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entities[id]; ok {
		if !old.busy.TryLock() {
			return ErrBusy
		}
		defer old.busy.Unlock()

		if keepApplied {
			if err := old.replaceable(); err != nil {
				return err
			}
		}
	} else {
		c.order = append(c.order, id)
	}

	c.entities[id] = &entity{
		artifact: media,
		params:   c.defaults,
	}

	return nil
}

// Remove ends editing of the entity.
func (c *Cache[K]) Remove(id K) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entities[id]
	if !ok {
		return ErrEntityNotFound
	}
	if !e.busy.TryLock() {
		return ErrBusy
	}
	defer e.busy.Unlock()

	delete(c.entities, id)
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	return nil
}

// IDs returns entity ids in registration order.
func (c *Cache[K]) IDs() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]K, len(c.order))
	copy(ids, c.order)
	return ids
}

func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entities)
}

// Artifact returns current entity media.
// Returned bytes must not be modified.
func (c *Cache[K]) Artifact(id K) (models.Artifact, error) {
	e, err := c.entity(id)
	if err != nil {
		return models.Artifact{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.artifact, nil
}

// Separated returns stems of the entity, if any.
func (c *Cache[K]) Separated(id K) (*models.SeparatedRecord, error) {
	e, err := c.entity(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.separated == nil {
		return nil, nil
	}
	rec := *e.separated
	return &rec, nil
}

// Custom returns custom audio record of the entity, if any.
func (c *Cache[K]) Custom(id K) (*models.CustomRecord, error) {
	e, err := c.entity(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.custom == nil {
		return nil, nil
	}
	rec := *e.custom
	return &rec, nil
}

// State returns blob-free view of the entity.
func (c *Cache[K]) State(id K) (models.AudioState, error) {
	e, err := c.entity(id)
	if err != nil {
		return models.AudioState{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	state := models.AudioState{
		Separation: models.SeparationNone,
		Custom:     models.CustomNone,
		Processing: e.processing,
		Params:     e.params,
		FileSize:   e.artifact.FileSize,
		CanRevert:  e.custom != nil || e.stemsPreApply != nil,
	}

	switch {
	case e.separating:
		state.Separation = models.SeparationRunning
	case e.separated != nil:
		state.Separation = models.SeparationSeparated
	}

	if e.custom != nil {
		state.CustomName = e.custom.AudioName
		state.Custom = models.CustomStaged
		if e.custom.IsApplied {
			state.Custom = models.CustomApplied
		}
	}

	return state, nil
}

// SetParams updates mixing parameters of the next apply.
// Volumes are clamped to [0, max volume].
func (c *Cache[K]) SetParams(id K, p models.MixParams) (models.MixParams, error) {
	for _, v := range []float64{p.VocalsVolume, p.MusicVolume, p.CustomVolume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.MixParams{}, ErrInvalidParams
		}
	}

	e, err := c.acquire(id)
	if err != nil {
		return models.MixParams{}, err
	}
	defer e.busy.Unlock()

	p.VocalsVolume = c.clampVolume(p.VocalsVolume)
	p.MusicVolume = c.clampVolume(p.MusicVolume)
	p.CustomVolume = c.clampVolume(p.CustomVolume)

	e.mu.Lock()
	e.params = p
	e.mu.Unlock()

	return p, nil
}

// Separate splits entity audio into stems.
//
// Stems are made from the entity media as it is now,
// without any custom overlay applied to it. That media
// becomes the origin of every following mix.
func (c *Cache[K]) Separate(ctx context.Context, id K) error {
	e, err := c.acquire(id)
	if err != nil {
		return err
	}
	defer e.busy.Unlock()

	e.mu.Lock()
	if e.separated != nil {
		e.mu.Unlock()
		return ErrAlreadySeparated
	}
	source := e.artifact
	if e.custom != nil && e.custom.IsApplied {
		source = *e.custom.PreApply
	}
	e.separating = true
	e.mu.Unlock()

	stems, err := c.proc.Separate(ctx, source.Data)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.separating = false
	if err != nil {
		return err
	}

	e.separated = &models.SeparatedRecord{
		VocalsAudio:   stems.Vocals,
		MusicAudio:    stems.Music,
		OriginalVideo: source,
	}

	return nil
}

// UploadCustom stages custom audio for the entity.
//
// A staged record is replaced, an applied one is reverted
// first. Reports whether a revert took place.
func (c *Cache[K]) UploadCustom(id K, name string, data []byte) (bool, error) {
	if len(data) == 0 {
		return false, ErrEmptyAudio
	}

	e, err := c.acquire(id)
	if err != nil {
		return false, err
	}
	defer e.busy.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	reverted := false
	if e.custom != nil && e.custom.IsApplied {
		e.artifact = *e.custom.PreApply
		reverted = true
	}

	e.custom = &models.CustomRecord{
		AudioData: data,
		AudioName: name,
	}

	return reverted, nil
}

// Apply mixes derived audio into the entity media.
//
// The mix always starts from reproducible media: stems origin
// when audio is separated, otherwise media before any custom
// overlay. On failure nothing changes.
func (c *Cache[K]) Apply(ctx context.Context, id K) error {
	e, err := c.acquire(id)
	if err != nil {
		return err
	}
	defer e.busy.Unlock()

	e.mu.Lock()
	if e.separated == nil && e.custom == nil {
		e.mu.Unlock()
		return ErrNothingToApply
	}

	snapshot := e.artifact
	switch {
	case e.custom != nil && e.custom.IsApplied:
		snapshot = *e.custom.PreApply
	case e.custom == nil && e.stemsPreApply != nil:
		snapshot = *e.stemsPreApply
	}

	req := MixRequest{
		Video:  snapshot.Data,
		Params: e.params,
	}
	if e.separated != nil {
		req.Video = e.separated.OriginalVideo.Data
		req.Separate = true
		req.Vocals = e.separated.VocalsAudio
		req.Music = e.separated.MusicAudio
	}
	if e.custom != nil {
		req.Custom = e.custom.AudioData
	}
	e.processing = true
	e.mu.Unlock()

	mixed, err := c.proc.Mix(ctx, req)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.processing = false
	if err != nil {
		return err
	}
	if mixed.FileSize == 0 {
		mixed.FileSize = int64(len(mixed.Data))
	}

	e.artifact = mixed
	if e.custom != nil {
		e.custom.IsApplied = true
		e.custom.PreApply = &snapshot
	} else if e.stemsPreApply == nil {
		e.stemsPreApply = &snapshot
	}
	e.params = c.defaults

	return nil
}

// Revert undoes the last apply.
//
// Applied custom audio is unapplied but kept for re-apply,
// staged custom audio is discarded. Without custom audio
// a stems mix is undone.
func (c *Cache[K]) Revert(id K) (RevertResult, error) {
	e, err := c.acquire(id)
	if err != nil {
		return "", err
	}
	defer e.busy.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.custom != nil && e.custom.IsApplied:
		e.artifact = *e.custom.PreApply
		e.custom.IsApplied = false
		e.custom.PreApply = nil
		return RevertRestored, nil
	case e.custom != nil:
		e.custom = nil
		return RevertDiscarded, nil
	case e.stemsPreApply != nil:
		e.artifact = *e.stemsPreApply
		e.stemsPreApply = nil
		return RevertRestored, nil
	}

	return "", ErrNothingToRevert
}

func (c *Cache[K]) entity(id K) (*entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entities[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	return e, nil
}

// acquire takes the busy lock of the entity.
func (c *Cache[K]) acquire(id K) (*entity, error) {
	e, err := c.entity(id)
	if err != nil {
		return nil, err
	}
	return c.claim(id, e)
}

// claim locks e and makes sure it is still registered under id:
// Put or Remove may have run since e was looked up.
func (c *Cache[K]) claim(id K, e *entity) (*entity, error) {
	if !e.busy.TryLock() {
		return nil, ErrBusy
	}

	c.mu.Lock()
	cur, ok := c.entities[id]
	c.mu.Unlock()

	if !ok || cur != e {
		e.busy.Unlock()
		return nil, ErrEntityNotFound
	}
	return e, nil
}

// replaceable must be called with busy held.
func (e *entity) replaceable() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if (e.custom != nil && e.custom.IsApplied) || e.stemsPreApply != nil {
		return ErrApplied
	}
	return nil
}

func (c *Cache[K]) clampVolume(v float64) float64 {
	return math.Max(0, math.Min(c.maxVolume, v))
}
