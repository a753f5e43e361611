package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/inventory/internal/db"
	"github.com/Skotchmaster/inventory/internal/middleware/auth"
	"github.com/Skotchmaster/inventory/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/inventory/internal/middleware/logging"
	"github.com/Skotchmaster/inventory/internal/tokens"
)

type Deps struct {
	DB     *gorm.DB
	Tokens *tokens.Issuer

	Users    *UserHTTP
	Products *ProductHTTP
	Catalog  *CatalogHTTP
}

// New builds the echo instance with the standard middleware chain and routes.
func New(d *Deps, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		loggingmw.RequestLogger(logger),
		middleware.CORS(),
	)

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{"status": "ok"}) })
	e.GET("/health/ready", d.ready)

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Exempt = csrf.UnlessCookie(auth.AccessCookie)

	v1 := e.Group("/api/v1", csrf.Middleware(csrfCfg), auth.Identify(d.Tokens))

	users := v1.Group("/users")
	users.POST("/signup", d.Users.Signup)
	users.POST("/login", d.Users.Login)
	users.GET("", d.Users.ListUsers)
	users.GET("/:id", d.Users.GetUser)
	users.PUT("/:id", d.Users.UpdateUser)
	users.DELETE("/:id", d.Users.DeleteUser)

	products := v1.Group("/products")
	products.GET("", d.Products.GetProducts)
	products.GET("/search", d.Products.Search)
	products.GET("/:id", d.Products.GetProduct)
	products.POST("", d.Products.CreateProduct)
	products.PUT("/:id", d.Products.UpdateProduct)
	products.DELETE("/:id", d.Products.DeleteProduct)

	roles := v1.Group("/roles")
	roles.GET("", d.Catalog.ListRoles)
	roles.GET("/:id", d.Catalog.GetRole)
	roles.POST("", d.Catalog.CreateRole)

	categories := v1.Group("/categories")
	categories.GET("", d.Catalog.ListCategories)
	categories.GET("/:id", d.Catalog.GetCategory)
	categories.POST("", d.Catalog.CreateCategory)
}

func (d *Deps) ready(c echo.Context) error {
	if err := db.Ping(c.Request().Context(), d.DB); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
