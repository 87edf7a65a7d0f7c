package router

import (
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/mamatcyber90/crypti/src/modules/dapps"
)

func InitialiseAndSetupRoutes(app *fiber.App, handler *dapps.Handler) {
	root := app.Group("/", logger.New())

	root.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	api := root.Group("/api")
	setupDappRoutes(api, handler)

	routes := app.GetRoutes()
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Path < routes[j].Path
	})
	for _, route := range routes {
		fmt.Printf("%s\t%s\n", route.Method, route.Path)
	}
}

func setupDappRoutes(router fiber.Router, handler *dapps.Handler) {
	group := router.Group("/dapps")

	// Static paths registered ahead of the :id routes.
	group.Get("/search", handler.SearchDapps)
	group.Get("/tags/:tag", handler.ListByTag)
	group.Get("/tags", handler.Tags)

	group.Get("/", handler.ListDapps)
	group.Post("/", handler.CreateDapp)

	group.Get("/:id", handler.GetDapp)
	group.Get("/:id/fetch", handler.FetchDapp)
	group.Delete("/:id", handler.RemoveDapp)
}
