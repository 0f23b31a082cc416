package controller

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/GintGld/clip-editor/internal/controller/respond"
	"github.com/GintGld/clip-editor/internal/lib/utils/mediatype"
	"github.com/GintGld/clip-editor/internal/models"
)

func New(srvSession Session) *fiber.App {
	sessionCtr := sessionController{
		srvSession: srvSession,
	}

	app := fiber.New()

	app.Get("/", sessionCtr.sessions)
	app.Post("/", sessionCtr.newSession)
	app.Get("/:id", sessionCtr.session)
	app.Delete("/:id", sessionCtr.closeSession)

	return app
}

type sessionController struct {
	srvSession Session
}

type Session interface {
	Create(ctx context.Context, name string, r io.Reader) (models.SessionInfo, error)
	Session(ctx context.Context, id string) (models.SessionInfo, error)
	Sessions(ctx context.Context) ([]models.SessionInfo, error)
	Close(ctx context.Context, id string) error
}

// newSession uploads source media and opens a session.
func (sessionCtr *sessionController) newSession(c *fiber.Ctx) error {
	file, err := c.FormFile("source")
	if err != nil {
		return respond.BadRequest(c, "source file required")
	}
	if file.Size == 0 {
		return respond.BadRequest(c, "source file is empty")
	}

	// sniff type, only video and audio are editable
	reader, err := file.Open()
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	_, ok, err := mediatype.Detect(reader, "video", "audio")
	reader.Close()
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	if !ok {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"error": "unsupported mime-type",
		})
	}

	reader, err = file.Open()
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	defer reader.Close()

	info, err := sessionCtr.srvSession.Create(c.UserContext(), file.Filename, reader)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session": info,
	})
}

func (sessionCtr *sessionController) sessions(c *fiber.Ctx) error {
	infos, err := sessionCtr.srvSession.Sessions(c.UserContext())
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"sessions": infos,
	})
}

func (sessionCtr *sessionController) session(c *fiber.Ctx) error {
	info, err := sessionCtr.srvSession.Session(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"session": info,
	})
}

// closeSession discards the session with all its state.
func (sessionCtr *sessionController) closeSession(c *fiber.Ctx) error {
	if err := sessionCtr.srvSession.Close(c.UserContext(), c.Params("id")); err != nil {
		return respond.Error(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
