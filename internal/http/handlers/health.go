package handlers

import (
	"net/http"
)

type statusResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}

func (a *App) uptime() float64 {
	if a.StartedAt.IsZero() {
		return 0
	}
	return a.now().Sub(a.StartedAt).Seconds()
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, statusResponse{Status: "OK", Uptime: a.uptime()})
}

func (a *App) Root(w http.ResponseWriter, r *http.Request) {
	name := a.ServiceName
	if name == "" {
		name = "Endless Bureaucracy Conversion API"
	}
	a.json(w, http.StatusOK, statusResponse{Status: name, Uptime: a.uptime()})
}
