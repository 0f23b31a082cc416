package controller

import (
	"bytes"
	"context"
	"io"
	"math"

	"github.com/gofiber/fiber/v2"

	"github.com/GintGld/clip-editor/internal/controller/respond"
	"github.com/GintGld/clip-editor/internal/lib/audio"
	"github.com/GintGld/clip-editor/internal/lib/utils/mediatype"
	"github.com/GintGld/clip-editor/internal/models"
)

func New(srvMixer Mixer) *fiber.App {
	mixerCtr := mixerController{
		srvMixer: srvMixer,
	}

	app := fiber.New()

	app.Get("/:sid/entities", mixerCtr.entities)
	app.Post("/:sid/entities", mixerCtr.register)
	app.Get("/:sid/entities/:eid", mixerCtr.entity)
	app.Get("/:sid/entities/:eid/media", mixerCtr.media)
	app.Delete("/:sid/entities/:eid", mixerCtr.remove)

	app.Post("/:sid/entities/:eid/separate", mixerCtr.separate)
	app.Post("/:sid/entities/:eid/custom", mixerCtr.uploadCustom)
	app.Put("/:sid/entities/:eid/params", mixerCtr.setParams)
	app.Post("/:sid/entities/:eid/apply", mixerCtr.apply)
	app.Post("/:sid/entities/:eid/revert", mixerCtr.revert)

	return app
}

type mixerController struct {
	srvMixer Mixer
}

type Mixer interface {
	Register(ctx context.Context, sid, eid string, media models.Artifact) (models.AudioState, error)
	Entities(ctx context.Context, sid string) ([]models.AudioState, error)
	Entity(ctx context.Context, sid, eid string) (models.AudioState, error)
	Media(ctx context.Context, sid, eid string) (models.Artifact, error)
	Remove(ctx context.Context, sid, eid string) error

	Separate(ctx context.Context, sid, eid string) (models.AudioState, error)
	UploadCustom(ctx context.Context, sid, eid, name string, data []byte) (models.AudioState, bool, error)
	SetParams(ctx context.Context, sid, eid string, p models.MixParams) (models.AudioState, error)
	Apply(ctx context.Context, sid, eid string) (models.AudioState, error)
	Revert(ctx context.Context, sid, eid string) (models.AudioState, audio.RevertResult, error)
}

func (mixerCtr *mixerController) entities(c *fiber.Ctx) error {
	states, err := mixerCtr.srvMixer.Entities(c.UserContext(), c.Params("sid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"entities": states,
	})
}

type registerRequest struct {
	ID        string `json:"id"`
	VideoData []byte `json:"video_data"`
}

// register starts audio editing of given media.
// Media is base64 encoded in the body.
func (mixerCtr *mixerController) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return respond.BadRequest(c, "invalid body")
	}
	if req.ID == "" {
		return respond.BadRequest(c, "id required")
	}
	if len(req.VideoData) == 0 {
		return respond.BadRequest(c, "video_data required")
	}

	st, err := mixerCtr.srvMixer.Register(c.UserContext(), c.Params("sid"), req.ID, models.Artifact{
		Data: req.VideoData,
	})
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"entity": st,
	})
}

func (mixerCtr *mixerController) entity(c *fiber.Ctx) error {
	st, err := mixerCtr.srvMixer.Entity(c.UserContext(), c.Params("sid"), c.Params("eid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"entity": st,
	})
}

// media sends current entity media as binary.
func (mixerCtr *mixerController) media(c *fiber.Ctx) error {
	art, err := mixerCtr.srvMixer.Media(c.UserContext(), c.Params("sid"), c.Params("eid"))
	if err != nil {
		return respond.Error(c, err)
	}

	c.Set(fiber.HeaderContentType, mediatype.ContentType(art.Data))
	return c.Status(fiber.StatusOK).Send(art.Data)
}

func (mixerCtr *mixerController) remove(c *fiber.Ctx) error {
	if err := mixerCtr.srvMixer.Remove(c.UserContext(), c.Params("sid"), c.Params("eid")); err != nil {
		return respond.Error(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (mixerCtr *mixerController) separate(c *fiber.Ctx) error {
	st, err := mixerCtr.srvMixer.Separate(c.UserContext(), c.Params("sid"), c.Params("eid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"entity": st,
	})
}

// uploadCustom stages custom audio overlay.
func (mixerCtr *mixerController) uploadCustom(c *fiber.Ctx) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return respond.BadRequest(c, "audio file required")
	}

	reader, err := file.Open()
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	if len(data) == 0 {
		return respond.BadRequest(c, "audio file is empty")
	}

	_, ok, err := mediatype.Detect(bytes.NewReader(data), "audio", "video")
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	if !ok {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"error": "unsupported mime-type",
		})
	}

	st, reverted, err := mixerCtr.srvMixer.UploadCustom(c.UserContext(), c.Params("sid"), c.Params("eid"), file.Filename, data)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"entity":   st,
		"reverted": reverted,
	})
}

type paramsRequest struct {
	UseVocals    *bool    `json:"use_vocals"`
	UseMusic     *bool    `json:"use_music"`
	VocalsVolume *float64 `json:"vocals_volume"`
	MusicVolume  *float64 `json:"music_volume"`
	CustomVolume *float64 `json:"custom_volume"`
}

// setParams updates only the fields present in the body.
func (mixerCtr *mixerController) setParams(c *fiber.Ctx) error {
	var req paramsRequest
	if err := c.BodyParser(&req); err != nil {
		return respond.BadRequest(c, "invalid body")
	}

	st, err := mixerCtr.srvMixer.Entity(c.UserContext(), c.Params("sid"), c.Params("eid"))
	if err != nil {
		return respond.Error(c, err)
	}

	p := st.Params
	if req.UseVocals != nil {
		p.UseVocals = *req.UseVocals
	}
	if req.UseMusic != nil {
		p.UseMusic = *req.UseMusic
	}
	for _, v := range []struct {
		src *float64
		dst *float64
	}{
		{req.VocalsVolume, &p.VocalsVolume},
		{req.MusicVolume, &p.MusicVolume},
		{req.CustomVolume, &p.CustomVolume},
	} {
		if v.src == nil {
			continue
		}
		if math.IsNaN(*v.src) || math.IsInf(*v.src, 0) {
			return respond.BadRequest(c, "volumes must be finite numbers")
		}
		*v.dst = *v.src
	}

	st, err = mixerCtr.srvMixer.SetParams(c.UserContext(), c.Params("sid"), c.Params("eid"), p)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"entity": st,
	})
}

func (mixerCtr *mixerController) apply(c *fiber.Ctx) error {
	st, err := mixerCtr.srvMixer.Apply(c.UserContext(), c.Params("sid"), c.Params("eid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"entity": st,
	})
}

func (mixerCtr *mixerController) revert(c *fiber.Ctx) error {
	st, res, err := mixerCtr.srvMixer.Revert(c.UserContext(), c.Params("sid"), c.Params("eid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"entity": st,
		"result": res,
	})
}
