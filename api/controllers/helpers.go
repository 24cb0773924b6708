package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/solarflow/solarshop-backend/api/middleware"
	"github.com/solarflow/solarshop-backend/api/responses"
	"github.com/solarflow/solarshop-backend/internal/cart"
	"github.com/solarflow/solarshop-backend/internal/policy"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/logger"
)

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable"))
}

// requireActor returns the authenticated actor or writes a 401.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (policy.Actor, bool) {
	actor := middleware.ActorFromContext(r.Context())
	if !actor.Authenticated() {
		responses.WriteError(r.Context(), logg, w, policy.ErrUnauthenticated)
		return policy.Actor{}, false
	}
	return actor, true
}

// cartOwner resolves whose cart the request addresses: the user when logged in, the guest session otherwise.
func cartOwner(r *http.Request) (cart.Owner, error) {
	actor := middleware.ActorFromContext(r.Context())
	if actor.Authenticated() {
		id := actor.UserID
		return cart.Owner{UserID: &id}, nil
	}
	if session := middleware.GuestSessionFromContext(r.Context()); session != "" {
		return cart.Owner{SessionID: session}, nil
	}
	return cart.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session missing")
}

func optionalUserID(r *http.Request) *uuid.UUID {
	actor := middleware.ActorFromContext(r.Context())
	if !actor.Authenticated() {
		return nil
	}
	id := actor.UserID
	return &id
}
