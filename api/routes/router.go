package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/partstrack-backend/api/controllers"
	"github.com/angelmondragon/partstrack-backend/api/middleware"
	"github.com/angelmondragon/partstrack-backend/api/responses"
	"github.com/angelmondragon/partstrack-backend/internal/categories"
	"github.com/angelmondragon/partstrack-backend/internal/ledger"
	"github.com/angelmondragon/partstrack-backend/internal/parts"
	"github.com/angelmondragon/partstrack-backend/internal/projects"
	"github.com/angelmondragon/partstrack-backend/internal/templates"
	"github.com/angelmondragon/partstrack-backend/internal/users"
	"github.com/angelmondragon/partstrack-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/partstrack-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface is wired to. A nil
// IdempotencyStore disables replay; nil pingers show as disabled in readiness.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               controllers.Pinger
	Redis            controllers.Pinger
	IdempotencyStore pkgredis.IdempotencyStore
	Metrics          http.Handler

	Engine     controllers.AllocationEngine
	Projects   projects.Service
	Parts      parts.Service
	Categories categories.Service
	Templates  templates.Service
	Users      users.Service
	Activities ledger.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Logging(logg),
		middleware.Actor(logg),
	)
	idempotent := middleware.Idempotency(p.IdempotencyStore, logg)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    p.DB,
			"redis": p.Redis,
		}))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", controllers.CreateProject(p.Projects, logg))
			r.Get("/", controllers.ListProjects(p.Projects, logg))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", controllers.GetProject(p.Projects, logg))
				r.Put("/", controllers.UpdateProject(p.Projects, logg))
				r.Delete("/", controllers.DeleteProject(p.Projects, logg))
				r.Get("/part-summary", controllers.ProjectPartSummary(p.Projects, logg))
				r.Put("/team", controllers.ReplaceProjectTeam(p.Projects, logg))
				r.Patch("/status", controllers.ChangeProjectStatus(p.Engine, logg))
				r.With(idempotent).Post("/products-from-template", controllers.ApplyTemplate(p.Engine, logg))
				r.Post("/products", controllers.CreateProduct(p.Engine, logg))
				r.Get("/products", controllers.ListProjectProducts(p.Engine, logg))
			})
		})

		r.Route("/products/{id}", func(r chi.Router) {
			r.Get("/", controllers.GetProduct(p.Engine, logg))
			r.Patch("/", controllers.RenameProduct(p.Engine, logg))
			r.Delete("/", controllers.DeleteProduct(p.Engine, logg))
			r.With(idempotent).Post("/parts", controllers.AddProductPart(p.Engine, logg))
			r.Put("/parts/{partId}", controllers.UpdateProductPart(p.Engine, logg))
			r.Delete("/parts/{partId}", controllers.RemoveProductPart(p.Engine, logg))
		})

		r.Route("/parts", func(r chi.Router) {
			r.Post("/", controllers.CreatePart(p.Parts, logg))
			r.Get("/", controllers.ListParts(p.Parts, logg))
			r.Get("/{id}", controllers.GetPart(p.Parts, logg))
			r.Put("/{id}", controllers.UpdatePart(p.Parts, logg))
			r.Delete("/{id}", controllers.DeletePart(p.Parts, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.CreateCategory(p.Categories, logg))
			r.Get("/", controllers.ListCategories(p.Categories, logg))
			r.Put("/{id}", controllers.RenameCategory(p.Categories, logg))
			r.Delete("/{id}", controllers.DeleteCategory(p.Categories, logg))
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", controllers.CreateTemplate(p.Templates, logg))
			r.Get("/", controllers.ListTemplates(p.Templates, logg))
			r.Get("/{id}", controllers.GetTemplate(p.Templates, logg))
			r.Put("/{id}", controllers.UpdateTemplate(p.Templates, logg))
			r.Delete("/{id}", controllers.DeleteTemplate(p.Templates, logg))
			r.Get("/{id}/availability", controllers.TemplateAvailability(p.Templates, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", controllers.CreateUser(p.Users, logg))
			r.Get("/", controllers.ListUsers(p.Users, logg))
			r.Get("/{id}", controllers.GetUser(p.Users, logg))
			r.Put("/{id}", controllers.RenameUser(p.Users, logg))
			r.Delete("/{id}", controllers.DeleteUser(p.Users, logg))
		})

		r.Route("/activities", func(r chi.Router) {
			r.With(idempotent).Post("/", controllers.RecordActivity(p.Activities, logg))
			r.Get("/", controllers.ListActivities(p.Activities, logg))
			r.Get("/{id}", controllers.GetActivity(p.Activities, logg))
		})
	})

	return r
}
