package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"Ziyarawebserver/internal/domain"
)

const searchDateLayout = "2006-01-02"

// parseSearchParams maps the query string onto search params. Type checking
// happens here; semantic validation happens in the service.
func parseSearchParams(q url.Values) (domain.TourSearchParams, error) {
	fields := map[string]string{}
	p := domain.TourSearchParams{
		TourType:      q.Get("type"),
		Tariff:        q.Get("tarif"),
		DepartureCity: q.Get("city"),
		DateMode:      q.Get("date_mode"),
	}

	for name, dst := range map[string]*int{
		"operator_id": &p.OperatorID,
		"pilgrims":    &p.Pilgrims,
		"limit":       &p.Limit,
		"offset":      &p.Offset,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields[name] = "must be an integer"
			continue
		}
		*dst = n
	}

	for name, dst := range map[string]**time.Time{
		"date":       &p.DepartureDate,
		"date_start": &p.DateStart,
		"date_end":   &p.DateEnd,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		d, err := time.Parse(searchDateLayout, raw)
		if err != nil {
			d, err = time.Parse(time.RFC3339, raw)
		}
		if err != nil {
			fields[name] = "must be YYYY-MM-DD or RFC 3339"
			continue
		}
		*dst = &d
	}

	if len(fields) > 0 {
		return domain.TourSearchParams{}, domain.NewValidationError(fields)
	}
	return p, nil
}

func (a *api) handleToursSearch(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchParams(r.URL.Query())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	views, err := a.tourSvc.Search(r.Context(), p)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, listEnvelope[domain.TourView]{Items: views})
}

// handleToursLookup resolves explicit ids, so anonymous clients can render
// favorites they keep locally.
func (a *api) handleToursLookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	views, err := a.tourSvc.GetByIDs(r.Context(), req.IDs)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, listEnvelope[domain.TourView]{Items: views})
}

func (a *api) handleTourAggregates(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchParams(r.URL.Query())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	aggs, err := a.tourSvc.Aggregates(r.Context(), p)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, listEnvelope[domain.TourAggregate]{Items: aggs})
}

func (a *api) handleTourTypes(w http.ResponseWriter, r *http.Request) {
	values, err := a.tourSvc.TourTypes(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, listEnvelope[domain.LookupValue]{Items: values})
}

func (a *api) handleTariffs(w http.ResponseWriter, r *http.Request) {
	values, err := a.tourSvc.Tariffs(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, listEnvelope[domain.LookupValue]{Items: values})
}

func (a *api) handleDepartureCities(w http.ResponseWriter, r *http.Request) {
	cities, err := a.tourSvc.DepartureCities(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, listEnvelope[string]{Items: cities})
}
