package controllers

import (
	"net/http"

	"github.com/angelmondragon/tradeinz-backend/api/middleware"
	"github.com/angelmondragon/tradeinz-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if partner := middleware.PartnerIDFromContext(r.Context()); partner != "" {
			payload["partner_id"] = partner
		}
		responses.WriteSuccess(w, payload)
	}
}
