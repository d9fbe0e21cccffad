package main

import (
	"errors"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/editor"
)

type structValidator struct {
	validate *validator.Validate
}

func (v *structValidator) Validate(out any) error {
	return v.validate.Struct(out)
}

type nameRequest struct {
	Name string `json:"name" validate:"required"`
}

type selectionRequest struct {
	Flow   *string `json:"flow"`
	Node   *string `json:"node"`
	Action *string `json:"action"`
}

type linkRequest struct {
	Target string `json:"target"`
}

// handler serialises access to the editor, which is single-threaded.
type handler struct {
	mu    sync.Mutex
	ed    *editor.Editor
	store flow.Store
}

func newApp(ed *editor.Editor, store flow.Store) *fiber.App {
	h := &handler{ed: ed, store: store}

	// Params and bodies end up as map keys and node fields inside the
	// editor, so they must not alias fasthttp's reused request buffers.
	app := fiber.New(fiber.Config{
		Immutable:       true,
		StructValidator: &structValidator{validate: validator.New()},
	})

	// ── Views ─────────────────────────────────────────────────────────
	app.Get("/flows", h.listFlows)
	app.Get("/flows/:name", h.getFlow)
	app.Get("/selection/flow", h.currentFlow)
	app.Get("/selection/node", h.currentNode)
	app.Get("/dirty", h.dirty)
	app.Get("/history", h.history)

	// ── Flows ─────────────────────────────────────────────────────────
	app.Post("/flows", h.createFlow)
	app.Delete("/flows/:name", h.deleteFlow)
	app.Put("/flows/:name/name", h.renameFlow)
	app.Post("/flows/:name/duplicate", h.duplicateFlow)
	app.Patch("/flows/:name", h.updateFlow)

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/flows/:name/nodes", h.createNode)
	app.Patch("/flows/:name/nodes/:id", h.updateNode)
	app.Delete("/flows/:name/nodes/:id", h.removeNode)
	app.Put("/flows/:name/nodes/:id/next/:index", h.linkNodes)

	// ── Editor ────────────────────────────────────────────────────────
	app.Put("/selection", h.setSelection)
	app.Post("/clipboard/copy", h.copyNode)
	app.Post("/clipboard/paste", h.pasteNode)
	app.Post("/undo", h.undo)
	app.Post("/redo", h.redo)
	app.Post("/load", h.load)
	app.Post("/save", h.save)

	return app
}

func fail(c fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, flow.ErrFlowNotFound), errors.Is(err, flow.ErrNodeNotFound),
		errors.Is(err, flow.ErrTransitionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, flow.ErrFlowExists), errors.Is(err, flow.ErrNodeExists),
		errors.Is(err, flow.ErrBusy):
		return fiber.StatusConflict
	case errors.Is(err, flow.ErrPrecondition):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

func badBody(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
}

func (h *handler) listFlows(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.JSON(fiber.Map{
		"flows":  h.ed.FlowNames(),
		"dirty":  h.ed.DirtyFlowNames(),
		"active": h.ed.ActiveFlow(),
	})
}

func (h *handler) getFlow(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	f := h.ed.Flow(c.Params("name"))
	if f == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "flow not found"})
	}
	return c.JSON(f)
}

func (h *handler) currentFlow(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	f := h.ed.CurrentFlow()
	if f == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no active flow"})
	}
	return c.JSON(f)
}

func (h *handler) currentNode(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.ed.CurrentNode()
	if n == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no active node"})
	}
	return c.JSON(n)
}

func (h *handler) dirty(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.JSON(h.ed.DirtyFlowNames())
}

func (h *handler) history(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.JSON(h.ed.History())
}

func (h *handler) createFlow(c fiber.Ctx) error {
	var req nameRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badBody(c, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ed.CreateFlow(req.Name); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.ed.Flow(req.Name))
}

func (h *handler) deleteFlow(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ed.DeleteFlow(c.Params("name")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) renameFlow(c fiber.Ctx) error {
	var req nameRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badBody(c, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ed.RenameFlow(c.Params("name"), req.Name); err != nil {
		return fail(c, err)
	}
	return c.JSON(h.ed.Flow(req.Name))
}

func (h *handler) duplicateFlow(c fiber.Ctx) error {
	var req nameRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badBody(c, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ed.DuplicateFlow(c.Params("name"), req.Name); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.ed.Flow(req.Name))
}

func (h *handler) updateFlow(c fiber.Ctx) error {
	var p flow.FlowPatch
	if err := c.Bind().JSON(&p); err != nil {
		return badBody(c, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ed.UpdateFlow(c.Params("name"), p); err != nil {
		return fail(c, err)
	}
	return c.JSON(h.ed.Flow(c.Params("name")))
}

func (h *handler) createNode(c fiber.Ctx) error {
	var p flow.NodePatch
	if err := c.Bind().JSON(&p); err != nil {
		return badBody(c, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	id, err := h.ed.CreateNode(c.Params("name"), p)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *handler) updateNode(c fiber.Ctx) error {
	var p flow.NodePatch
	if err := c.Bind().JSON(&p); err != nil {
		return badBody(c, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ed.UpdateNode(c.Params("name"), c.Params("id"), p); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) removeNode(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ed.RemoveNode(c.Params("name"), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) linkNodes(c fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid transition index"})
	}
	var req linkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badBody(c, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ed.LinkNodes(c.Params("name"), c.Params("id"), index, req.Target); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) setSelection(c fiber.Ctx) error {
	var req selectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badBody(c, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if req.Flow != nil {
		if err := h.ed.SetActiveFlow(*req.Flow); err != nil {
			return fail(c, err)
		}
	}
	if req.Node != nil {
		if err := h.ed.SetActiveNode(*req.Node); err != nil {
			return fail(c, err)
		}
	}
	if req.Action != nil {
		h.ed.SetDiagramAction(*req.Action)
	}
	return c.JSON(fiber.Map{
		"flow":   h.ed.ActiveFlow(),
		"node":   h.ed.ActiveNode(),
		"action": h.ed.DiagramAction(),
	})
}

func (h *handler) copyNode(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ed.CopyNode(); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) pasteNode(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, err := h.ed.PasteNode()
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *handler) undo(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	changed := h.ed.Undo()
	return c.JSON(fiber.Map{"changed": changed, "history": h.ed.History()})
}

func (h *handler) redo(c fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	changed := h.ed.Redo()
	return c.JSON(fiber.Map{"changed": changed, "history": h.ed.History()})
}

// load and save release the lock while the store works; the editor's busy
// flag keeps a second load or save out in the meantime.
func (h *handler) load(c fiber.Ctx) error {
	h.mu.Lock()
	err := h.ed.BeginLoad()
	h.mu.Unlock()
	if err != nil {
		return fail(c, err)
	}

	flows, err := h.store.LoadAllFlows(c.Context())

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.ed.LoadFailed(err)
		return fail(c, err)
	}
	h.ed.ReceiveFlows(flows)
	return c.JSON(fiber.Map{"flows": h.ed.FlowNames()})
}

func (h *handler) save(c fiber.Ctx) error {
	h.mu.Lock()
	flows, err := h.ed.BeginSave()
	h.mu.Unlock()
	if err != nil {
		return fail(c, err)
	}

	err = h.store.SaveAllFlows(c.Context(), flows)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.ed.SaveFailed(err)
		return fail(c, err)
	}
	h.ed.SaveComplete()
	return c.JSON(fiber.Map{"dirty": h.ed.DirtyFlowNames()})
}
