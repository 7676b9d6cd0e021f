package httpapi

import (
	"net/http"
	"strconv"

	"Ziyarawebserver/internal/domain"
)

func (a *api) handleOperatorsList(w http.ResponseWriter, r *http.Request) {
	ops, err := a.operatorSvc.List(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, listEnvelope[domain.Operator]{Items: ops})
}

func (a *api) handleOperatorGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, domain.ErrNotFound)
		return
	}
	op, err := a.operatorSvc.GetByID(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, op)
}
