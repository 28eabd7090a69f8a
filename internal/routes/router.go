package routes

import (
	"log/slog"

	"questlog/internal/controllers"
	authmw "questlog/internal/middleware"
	"questlog/internal/services"
	"questlog/internal/storage/mariadb"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRouter(
	log *slog.Logger,
	storage *mariadb.Storage,
	catalog services.CatalogClient,
	times services.CompletionTimeClient,
	auth *authmw.AuthMiddleware,
	corsOrigins []string,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	collectionService := services.NewCollectionService(storage, catalog, times, log)
	tagService := services.NewTagService(storage, log)
	queueService := services.NewQueueService(storage, log)

	gameController := controllers.NewGameController(collectionService, log)
	collectionController := controllers.NewCollectionController(collectionService, log)
	tagController := controllers.NewTagController(tagService, log)
	queueController := controllers.NewQueueController(queueService, log)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.ValidateToken)

		r.Route("/games", func(r chi.Router) {
			r.Get("/search", gameController.Search)
			r.Post("/", gameController.AddGame)
		})

		r.Route("/user", func(r chi.Router) {
			r.Route("/games", func(r chi.Router) {
				r.Get("/", collectionController.List)
				r.Post("/", collectionController.Add)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", collectionController.Get)
					r.Patch("/", collectionController.Update)
					r.Delete("/", collectionController.Delete)
					r.Route("/tags", func(r chi.Router) {
						r.Get("/", tagController.List)
						r.Post("/", tagController.Add)
						r.Delete("/", tagController.Remove)
					})
				})
			})

			r.Get("/tags", tagController.ListAll)

			r.Route("/queues", func(r chi.Router) {
				r.Get("/", queueController.List)
				r.Post("/", queueController.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Patch("/", queueController.Update)
					r.Delete("/", queueController.Delete)
					r.Get("/matches", queueController.Matches)
				})
			})
		})
	})

	return r
}
