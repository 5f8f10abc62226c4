package httpserver

import (
	"net/http"

	middleware "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/pkg/middleware/metrics"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	CatalogHandler *CatalogHTTP
	JWTSecret      []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", metrics.Handler())

	authMW := middleware.NewAuthMiddleware(d.JWTSecret)

	books := e.Group("/catalog/books")
	books.GET("/search", d.CatalogHandler.SearchBooks)
	books.GET("", d.CatalogHandler.GetBooks)
	books.GET("/:id", d.CatalogHandler.GetBook)

	admin := e.Group("/catalog/admin", authMW.RequireAdmin)
	admin.GET("/books", d.CatalogHandler.GetBooks)
	admin.GET("/books/:id", d.CatalogHandler.GetBook)
	admin.POST("/books", d.CatalogHandler.CreateBook)
	admin.PATCH("/books/:id", d.CatalogHandler.PatchBook)
	admin.DELETE("/books/:id", d.CatalogHandler.DeleteBook)
	admin.POST("/books/reindex", d.CatalogHandler.Reindex)
}
