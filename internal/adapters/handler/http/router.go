package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vecinet/portal/internal/core/authz"
	"github.com/vecinet/portal/internal/core/ports"
)

type RouterDeps struct {
	Engine           *authz.Engine
	PollHandler      *PollHandler
	VoteHandler      *VoteHandler
	PrincipalHandler *PrincipalHandler
	Principals       ports.PrincipalRepository
	JWTSecret        []byte
}

func NewHandler(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(SessionAuth(deps.JWTSecret, deps.Principals))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})

		r.Get("/me", deps.PrincipalHandler.GetMe)
		r.With(RequirePermission(deps.Engine, "users", "assign")).
			Put("/users/{id}/role", deps.PrincipalHandler.AssignRole)

		r.Route("/polls", func(r chi.Router) {
			r.With(RequirePermission(deps.Engine, "polls", "view")).
				Get("/", deps.PollHandler.ListPolls)
			r.With(RequirePermission(deps.Engine, "polls", "create")).
				Post("/", deps.PollHandler.CreatePoll)

			r.Route("/{id}", func(r chi.Router) {
				r.With(RequirePermission(deps.Engine, "polls", "view")).
					Get("/", deps.PollHandler.GetPoll)
				r.With(RequirePermission(deps.Engine, "polls", "edit")).
					Put("/", deps.PollHandler.UpdatePoll)
				r.With(RequirePermission(deps.Engine, "polls", "delete")).
					Delete("/", deps.PollHandler.DeletePoll)
				r.With(RequirePermission(deps.Engine, "polls", "close")).
					Post("/close", deps.PollHandler.ClosePoll)

				// The results check depends on poll state, handled in
				// the handler itself.
				r.Get("/tally", deps.PollHandler.Tally)

				r.With(RequirePermission(deps.Engine, "polls", "moderate")).
					Get("/attempts", deps.PollHandler.Attempts)

				r.With(RequirePermission(deps.Engine, "polls", "vote")).
					Post("/votes", deps.VoteHandler.CastVote)
				r.With(RequirePermission(deps.Engine, "polls", "vote")).
					Get("/my-vote", deps.VoteHandler.MyVote)
			})
		})

		r.With(RequirePermission(deps.Engine, "polls", "vote")).
			Post("/votes/code", deps.VoteHandler.RequestCode)
	})

	return r
}
