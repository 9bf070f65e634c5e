package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fabworks/fabtrack-backend/api/responses"
	"github.com/fabworks/fabtrack-backend/api/validators"
	"github.com/fabworks/fabtrack-backend/internal/jobcards"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
)

func JobCardCreate(svc *jobcards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body jobcards.CreateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		card, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, card)
	}
}

func JobCardList(svc *jobcards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := queryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.List(r.Context(), jobcards.ListInput{
			OrderID: orderID,
			Status:  r.URL.Query().Get("status"),
			Limit:   queryInt(r, "limit"),
			Cursor:  r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listEnvelope{Items: rows, NextCursor: next})
	}
}

func JobCardDetail(svc *jobcards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "jobCardId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		card, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, card)
	}
}

// JobCardDelete removes the card after restoring every component's logged
// consumption to stock.
func JobCardDelete(svc *jobcards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "jobCardId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func parseStage(r *http.Request) (jobcards.Stage, error) {
	raw := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "stage")))
	switch jobcards.Stage(raw) {
	case jobcards.StageCutting, jobcards.StagePrinting, jobcards.StageStitching:
		return jobcards.Stage(raw), nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid stage")
	}
}

// JobCardUpdateStageJob moves one worker's stage job through its statuses.
func JobCardUpdateStageJob(svc *jobcards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cardID, err := uuidParam(r, "jobCardId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stage, err := parseStage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		jobID, err := uuidParam(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body jobcards.UpdateStageJobInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateStageJob(r.Context(), cardID, stage, jobID, body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}
