package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"resortops/internal/app/commands"
	"resortops/internal/app/dto"
	settingsapp "resortops/internal/app/handlers/settings"
	"resortops/internal/app/queries"
)

type SettingsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Respond  Responder
}

func (h SettingsHandler) Get(c *gin.Context) {
	if _, ok := requirePermission(c, PermManageSettings); !ok {
		return
	}
	result, err := queries.Ask[settingsapp.GetSettingsQuery, *dto.Settings](c.Request.Context(), h.Queries, settingsapp.GetSettingsQuery{})
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}

func (h SettingsHandler) Update(c *gin.Context) {
	p, ok := requirePermission(c, PermManageSettings)
	if !ok {
		return
	}
	var req dto.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Respond.BadRequest(c, err)
		return
	}
	cmd := settingsapp.UpdateSettingsCommand{Settings: req, ActorID: p.ID}
	result, err := commands.Dispatch[settingsapp.UpdateSettingsCommand, *dto.Settings](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}
