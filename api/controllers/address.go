package controllers

import (
	"net/http"

	"github.com/angelmondragon/wholesale-backend/api/middleware"
	"github.com/angelmondragon/wholesale-backend/api/responses"
	"github.com/angelmondragon/wholesale-backend/api/validators"
	"github.com/angelmondragon/wholesale-backend/internal/address"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
)

func addressActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (address.Actor, bool) {
	userID, ok := requireUser(w, r, logg)
	if !ok {
		return address.Actor{}, false
	}
	return address.Actor{UserID: userID, IsAdmin: middleware.IsAdmin(r)}, true
}

// AddressList returns the caller's addresses. Admins may pass ?all=true.
func AddressList(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "address")
			return
		}
		actor, ok := addressActor(w, r, logg)
		if !ok {
			return
		}
		all, err := validators.ParseQueryBool(r, "all")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), actor, all)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AddressCreate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "address")
			return
		}
		actor, ok := addressActor(w, r, logg)
		if !ok {
			return
		}
		var payload address.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), actor, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AddressUpdate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "address")
			return
		}
		actor, ok := addressActor(w, r, logg)
		if !ok {
			return
		}
		id, ok := uuidParam(w, r, logg, "addressId")
		if !ok {
			return
		}
		var payload address.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), actor, id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func AddressDelete(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "address")
			return
		}
		actor, ok := addressActor(w, r, logg)
		if !ok {
			return
		}
		id, ok := uuidParam(w, r, logg, "addressId")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
