package controller

import (
	"context"
	"math"

	"github.com/gofiber/fiber/v2"

	"github.com/GintGld/clip-editor/internal/controller/respond"
	"github.com/GintGld/clip-editor/internal/models"
)

func New(srvTimeline Timeline) *fiber.App {
	timelineCtr := timelineController{
		srvTimeline: srvTimeline,
	}

	app := fiber.New()

	// Cuts
	app.Get("/:sid/cuts", timelineCtr.cuts)
	app.Post("/:sid/cuts", timelineCtr.addCut)
	app.Delete("/:sid/cuts", timelineCtr.clearCuts)
	app.Delete("/:sid/cuts/:cid", timelineCtr.removeCut)

	// Segments
	app.Get("/:sid/segments", timelineCtr.segments)
	app.Post("/:sid/segments/:segid/toggle", timelineCtr.toggle)
	app.Post("/:sid/segments/:segid/select", timelineCtr.selectSegment)
	app.Post("/:sid/segments/:segid/analyze", timelineCtr.analyze)
	app.Post("/:sid/segments/:segid/remove-gaps", timelineCtr.removeGaps)

	// Analysis
	app.Get("/:sid/analysis", timelineCtr.analysis)
	app.Get("/:sid/analysis/words", timelineCtr.searchWords)

	// Output
	app.Post("/:sid/export", timelineCtr.export)
	app.Get("/:sid/edl", timelineCtr.edl)

	return app
}

type timelineController struct {
	srvTimeline Timeline
}

type Timeline interface {
	DefaultMinGap() float64

	Cuts(ctx context.Context, sid string) ([]models.Cut, error)
	AddCut(ctx context.Context, sid string, at float64) (models.Cut, []models.Segment, error)
	RemoveCut(ctx context.Context, sid, cutID string) ([]models.Segment, error)
	ClearCuts(ctx context.Context, sid string) ([]models.Segment, error)

	Segments(ctx context.Context, sid string) ([]models.Segment, error)
	Toggle(ctx context.Context, sid, segID string) (models.Segment, error)
	Select(ctx context.Context, sid, segID string) (models.Segment, error)
	Analyze(ctx context.Context, sid, segID string, minGap float64) (models.Analysis, error)
	Analysis(ctx context.Context, sid string) (models.Analysis, error)
	SearchWords(ctx context.Context, sid, query string) ([]models.Word, error)
	RemoveGaps(ctx context.Context, sid, segID string) (models.GapRemoval, error)

	Export(ctx context.Context, sid string, captions bool) (models.Export, error)
	EDL(ctx context.Context, sid string, fps float64) (string, error)
}

func (timelineCtr *timelineController) cuts(c *fiber.Ctx) error {
	cuts, err := timelineCtr.srvTimeline.Cuts(c.UserContext(), c.Params("sid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"cuts": cuts,
	})
}

type cutRequest struct {
	Time *float64 `json:"time"`
}

// addCut adds cut and returns recomputed segments.
func (timelineCtr *timelineController) addCut(c *fiber.Ctx) error {
	var req cutRequest
	if err := c.BodyParser(&req); err != nil {
		return respond.BadRequest(c, "invalid body")
	}
	if req.Time == nil {
		return respond.BadRequest(c, "time required")
	}

	cut, segments, err := timelineCtr.srvTimeline.AddCut(c.UserContext(), c.Params("sid"), *req.Time)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"cut":      cut,
		"segments": segments,
	})
}

func (timelineCtr *timelineController) removeCut(c *fiber.Ctx) error {
	segments, err := timelineCtr.srvTimeline.RemoveCut(c.UserContext(), c.Params("sid"), c.Params("cid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"segments": segments,
	})
}

func (timelineCtr *timelineController) clearCuts(c *fiber.Ctx) error {
	segments, err := timelineCtr.srvTimeline.ClearCuts(c.UserContext(), c.Params("sid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"segments": segments,
	})
}

func (timelineCtr *timelineController) segments(c *fiber.Ctx) error {
	segments, err := timelineCtr.srvTimeline.Segments(c.UserContext(), c.Params("sid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"segments": segments,
	})
}

func (timelineCtr *timelineController) toggle(c *fiber.Ctx) error {
	seg, err := timelineCtr.srvTimeline.Toggle(c.UserContext(), c.Params("sid"), c.Params("segid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"segment": seg,
	})
}

func (timelineCtr *timelineController) selectSegment(c *fiber.Ctx) error {
	seg, err := timelineCtr.srvTimeline.Select(c.UserContext(), c.Params("sid"), c.Params("segid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"segment": seg,
	})
}

type analyzeRequest struct {
	MinGapDuration *float64 `json:"min_gap_duration"`
}

func (timelineCtr *timelineController) analyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respond.BadRequest(c, "invalid body")
		}
	}

	minGap := timelineCtr.srvTimeline.DefaultMinGap()
	if req.MinGapDuration != nil {
		minGap = *req.MinGapDuration
		if math.IsNaN(minGap) || math.IsInf(minGap, 0) {
			return respond.BadRequest(c, "invalid min_gap_duration")
		}
	}

	analysis, err := timelineCtr.srvTimeline.Analyze(c.UserContext(), c.Params("sid"), c.Params("segid"), minGap)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"analysis": analysis,
		"gapCount": len(analysis.Gaps),
	})
}

func (timelineCtr *timelineController) analysis(c *fiber.Ctx) error {
	analysis, err := timelineCtr.srvTimeline.Analysis(c.UserContext(), c.Params("sid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"analysis": analysis,
	})
}

func (timelineCtr *timelineController) searchWords(c *fiber.Ctx) error {
	words, err := timelineCtr.srvTimeline.SearchWords(c.UserContext(), c.Params("sid"), c.Query("q"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"words": words,
	})
}

func (timelineCtr *timelineController) removeGaps(c *fiber.Ctx) error {
	res, err := timelineCtr.srvTimeline.RemoveGaps(c.UserContext(), c.Params("sid"), c.Params("segid"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"result": res,
	})
}

type exportRequest struct {
	Captions bool `json:"captions"`
}

func (timelineCtr *timelineController) export(c *fiber.Ctx) error {
	var req exportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respond.BadRequest(c, "invalid body")
		}
	}

	res, err := timelineCtr.srvTimeline.Export(c.UserContext(), c.Params("sid"), req.Captions)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"export": res,
	})
}

// edl returns edit decision list as plain text.
func (timelineCtr *timelineController) edl(c *fiber.Ctx) error {
	fps := c.QueryFloat("fps", 0)

	out, err := timelineCtr.srvTimeline.EDL(c.UserContext(), c.Params("sid"), fps)
	if err != nil {
		return respond.Error(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="timeline.edl"`)
	return c.Status(fiber.StatusOK).SendString(out)
}
