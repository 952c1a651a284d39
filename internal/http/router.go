package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/treasury/internal/http/authn"
	"github.com/MrJamesThe3rd/treasury/internal/http/bank"
	"github.com/MrJamesThe3rd/treasury/internal/http/company"
	"github.com/MrJamesThe3rd/treasury/internal/http/login"
	"github.com/MrJamesThe3rd/treasury/internal/http/respond"
	"github.com/MrJamesThe3rd/treasury/internal/http/transaction"
	"github.com/MrJamesThe3rd/treasury/internal/http/user"
)

type Handlers struct {
	Authn        *authn.Middleware
	Login        *login.Handler
	Users        *user.Handler
	Companies    *company.Handler
	Banks        *bank.Handler
	Transactions *transaction.Handler
}

func New(h Handlers, corsOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if len(corsOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/", ping)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/", ping)

		r.Route("/login", h.Login.Routes)
		r.Route("/users", h.Users.Routes)

		r.Group(func(r chi.Router) {
			r.Use(h.Authn.Authenticate)

			r.Route("/company", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Companies.Routes(r)
			})

			r.Route("/banks", func(r chi.Router) {
				r.Route("/{id}/transactions", h.Transactions.BankRoutes)

				r.Group(func(r chi.Router) {
					r.Use(middleware.AllowContentType("application/json"))
					h.Banks.Routes(r)
				})
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Transactions.Routes(r)
			})
		})
	})

	return router
}

type pong struct {
	Msg string `json:"msg"`
}

func ping(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, pong{Msg: "pong!"})
}
