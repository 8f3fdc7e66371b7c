package serve

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/dtnitsch/textiq/internal/common"
	"github.com/dtnitsch/textiq/pkg/estimator"
	"github.com/dtnitsch/textiq/pkg/ingest"
	"github.com/dtnitsch/textiq/pkg/store"
)

// server holds the shared estimator and run store behind the HTTP handlers.
// A nil db means the store could not be opened; estimates still work but
// nothing is recorded.
type server struct {
	est *estimator.Estimator
	db  *store.DB
	log *slog.Logger
}

func (s *server) routes(app *fiber.App) {
	app.Get("/healthz", s.health)
	v1 := app.Group("/api/v1")
	v1.Post("/estimate", s.estimate)
	v1.Get("/runs", s.listRuns)
	v1.Get("/runs/:id", s.getRun)
}

func (s *server) health(c *fiber.Ctx) error {
	c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
	return nil
}

func (s *server) estimate(c *fiber.Ctx) error {
	type inp struct {
		Text string `json:"text"`
		Mode string `json:"mode"`
	}
	input := new(inp)
	if err := c.BodyParser(input); err != nil {
		c.Status(fiber.ErrBadRequest.Code).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
		return nil
	}

	mode, err := common.ParseEstimateMode(input.Mode)
	if err != nil {
		c.Status(fiber.ErrBadRequest.Code).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
		return nil
	}
	text := ingest.Clean(input.Text)
	if text == "" {
		c.Status(fiber.ErrBadRequest.Code).JSON(fiber.Map{
			"ok":    false,
			"error": "text is required",
		})
		return nil
	}

	result := s.est.Estimate(c.UserContext(), text, mode)
	if !result.IsValid {
		c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"ok":     false,
			"error":  result.Error,
			"result": result,
		})
		return nil
	}

	resp := fiber.Map{
		"ok":     true,
		"result": result,
	}
	if s.db != nil {
		run := store.NewRun("api", text, result)
		if err := s.db.SaveRun(c.UserContext(), run); err != nil {
			s.log.Warn("failed to save run", "error", err)
		} else {
			resp["run_id"] = run.ID
		}
	}
	c.Status(fiber.StatusOK).JSON(resp)
	return nil
}

func (s *server) listRuns(c *fiber.Ctx) error {
	if s.db == nil {
		c.Status(fiber.ErrServiceUnavailable.Code).JSON(fiber.Map{
			"ok":    false,
			"error": "run store unavailable",
		})
		return nil
	}

	runs, err := s.db.ListRuns(c.UserContext(), c.QueryInt("limit"))
	if err != nil {
		c.Status(fiber.ErrInternalServerError.Code).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
		return nil
	}

	c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":    true,
		"count": len(runs),
		"runs":  runs,
	})
	return nil
}

func (s *server) getRun(c *fiber.Ctx) error {
	if s.db == nil {
		c.Status(fiber.ErrServiceUnavailable.Code).JSON(fiber.Map{
			"ok":    false,
			"error": "run store unavailable",
		})
		return nil
	}

	run, err := s.db.GetRun(c.UserContext(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
		return nil
	}
	if err != nil {
		c.Status(fiber.ErrInternalServerError.Code).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
		return nil
	}

	c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":  true,
		"run": run,
	})
	return nil
}
