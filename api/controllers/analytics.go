package controllers

import (
	"net/http"

	"github.com/fabworks/fabtrack-backend/api/responses"
	"github.com/fabworks/fabtrack-backend/internal/analytics"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
)

func periodFromQuery(r *http.Request) (analytics.Period, error) {
	from, err := queryTime(r, "from")
	if err != nil {
		return analytics.Period{}, err
	}
	to, err := queryTime(r, "to")
	if err != nil {
		return analytics.Period{}, err
	}
	return analytics.Period{From: from, To: to}, nil
}

// AnalyticsDashboard serves the aggregate snapshot behind the landing page.
func AnalyticsDashboard(svc *analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := periodFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dash, err := svc.Dashboard(r.Context(), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dash)
	}
}

// AnalyticsConsumption reports consumed quantity per material over a period.
func AnalyticsConsumption(svc *analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := periodFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.Consumption(r.Context(), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
