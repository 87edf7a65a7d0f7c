package dapps

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mamatcyber90/crypti/src/core/helpers"
	"github.com/mamatcyber90/crypti/src/core/storage"
	"github.com/mamatcyber90/crypti/src/modules/fetch"
	"github.com/mamatcyber90/crypti/src/modules/tags"
)

// Handler maps http requests onto registry and fetch-pipeline operations.
type Handler struct {
	registry *Registry
	pipeline *fetch.Pipeline
}

func NewHandler(registry *Registry, pipeline *fetch.Pipeline) *Handler {
	return &Handler{registry: registry, pipeline: pipeline}
}

func (h *Handler) GetDapp(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helpers.HandleError(c, fiber.StatusBadRequest, "Invalid dapp id", err)
	}

	dapp, err := h.registry.Get(id)
	if err != nil {
		return helpers.HandleError(c, fiber.StatusInternalServerError, "Failed to fetch dapp", err)
	}
	if dapp == nil {
		return helpers.HandleError(c, fiber.StatusNotFound, "Dapp not found", ErrNotFound)
	}
	return helpers.HandleSuccess(c, fiber.StatusOK, "Dapp fetched successfully", dapp)
}

func (h *Handler) CreateDapp(c *fiber.Ctx) error {
	body := new(CreateInput)
	if err := c.BodyParser(body); err != nil {
		return helpers.HandleError(c, fiber.StatusBadRequest, "Invalid input data", err)
	}
	if err := helpers.Validate(body); err != nil {
		return helpers.HandleError(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	dapp, err := h.registry.Create(*body)
	if err != nil {
		return helpers.HandleError(c, fiber.StatusInternalServerError, "Failed to create dapp", err)
	}
	return helpers.HandleSuccess(c, fiber.StatusOK, "Dapp created successfully", dapp)
}

func (h *Handler) RemoveDapp(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helpers.HandleError(c, fiber.StatusBadRequest, "Invalid dapp id", err)
	}

	if err := h.registry.Remove(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return helpers.HandleError(c, fiber.StatusNotFound, "Dapp not found", err)
		}
		return helpers.HandleError(c, fiber.StatusInternalServerError, "Failed to remove dapp", err)
	}
	return helpers.HandleSuccess(c, fiber.StatusOK, "Dapp removed successfully", nil)
}

func (h *Handler) ListDapps(c *fiber.Ctx) error {
	size, page := parsePaging(c)
	list, err := h.registry.List(ListOptions{
		Order:  orderParam(c),
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return listError(c, err)
	}
	return helpers.HandleSuccess(c, fiber.StatusOK, "Dapps fetched successfully", list)
}

func (h *Handler) SearchDapps(c *fiber.Ctx) error {
	size, page := parsePaging(c)
	opts := ListOptions{
		Order:  orderParam(c),
		Limit:  size,
		Offset: (page - 1) * size,
	}

	// An empty query degrades to a plain listing.
	query := c.Query("q")
	if query == "" {
		found, err := h.registry.List(opts)
		if err != nil {
			return listError(c, err)
		}
		return helpers.HandleSuccess(c, fiber.StatusOK, "Dapps fetched successfully", found)
	}

	found, err := h.registry.Search(query, opts)
	if err != nil {
		return listError(c, err)
	}
	return helpers.HandleSuccess(c, fiber.StatusOK, "Dapps fetched successfully", found)
}

func (h *Handler) ListByTag(c *fiber.Ctx) error {
	value := tags.Normalize(c.Params("tag"))
	if value == "" {
		return helpers.HandleSuccess(c, fiber.StatusOK, "Dapps fetched successfully", []interface{}{})
	}

	list, err := h.registry.ByTagValue(value)
	if err != nil {
		return helpers.HandleError(c, fiber.StatusInternalServerError, "Failed to fetch dapps by tag", err)
	}
	return helpers.HandleSuccess(c, fiber.StatusOK, "Dapps fetched successfully", list)
}

// Tags serves two shapes: with a `tags` query parameter it lists the dapps
// matching those tags ranked by match count, without it it reports tag usage.
func (h *Handler) Tags(c *fiber.Ctx) error {
	raw := c.Query("tags")
	if raw == "" {
		usage, err := h.registry.TagUsage()
		if err != nil {
			return helpers.HandleError(c, fiber.StatusInternalServerError, "Failed to fetch tag usage", err)
		}
		return helpers.HandleSuccess(c, fiber.StatusOK, "Tag usage fetched successfully", usage)
	}

	var values []string
	for _, part := range strings.Split(raw, ",") {
		if value := tags.Normalize(part); value != "" {
			values = append(values, value)
		}
	}
	if len(values) == 0 {
		return helpers.HandleSuccess(c, fiber.StatusOK, "Dapps fetched successfully", []interface{}{})
	}

	var err error
	var list interface{}
	if len(values) == 1 {
		list, err = h.registry.ByTagValue(values[0])
	} else {
		list, err = h.registry.ByTagValues(values)
	}
	if err != nil {
		return helpers.HandleError(c, fiber.StatusInternalServerError, "Failed to fetch dapps by tags", err)
	}
	return helpers.HandleSuccess(c, fiber.StatusOK, "Dapps fetched successfully", list)
}

func (h *Handler) FetchDapp(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helpers.HandleError(c, fiber.StatusBadRequest, "Invalid dapp id", err)
	}

	dapp, err := h.registry.Get(id)
	if err != nil {
		return helpers.HandleError(c, fiber.StatusInternalServerError, "Failed to fetch dapp", err)
	}
	if dapp == nil {
		return helpers.HandleError(c, fiber.StatusNotFound, "Dapp not found", ErrNotFound)
	}

	files, err := h.pipeline.FetchSource(dapp)
	if err != nil {
		return helpers.HandleError(c, fiber.StatusInternalServerError, "Failed to fetch dapp source", err)
	}
	return helpers.HandleSuccess(c, fiber.StatusOK, "Dapp source fetched successfully", files)
}

func parseID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

func parsePaging(c *fiber.Ctx) (int, int) {
	size, err := strconv.Atoi(c.Query("size", "25"))
	if err != nil || size <= 0 {
		size = 25
	}
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	return size, page
}

func orderParam(c *fiber.Ctx) interface{} {
	if order := c.Query("order"); order != "" {
		return order
	}
	return nil
}

func listError(c *fiber.Ctx, err error) error {
	if errors.Is(err, storage.ErrInvalidOrder) {
		return helpers.HandleError(c, fiber.StatusBadRequest, "Invalid order option", err)
	}
	return helpers.HandleError(c, fiber.StatusInternalServerError, "Failed to fetch dapps", err)
}
