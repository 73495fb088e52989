package api

import (
	"net/http"

	"github.com/PancyStudios/PancyDash/internal/customcmd"
	"github.com/PancyStudios/PancyDash/internal/relay"
	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/gin-gonic/gin"
)

func (h *Handlers) botCommand(c *gin.Context) {
	var sub relay.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		badRequest(c, "Server ID and command required")
		return
	}
	res, err := h.Relay.Submit(c.Request.Context(), session.MustGet(c), sub)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(res.Status, res)
}

func (h *Handlers) commandStatus(c *gin.Context) {
	status, err := h.Relay.Status(c.Request.Context(), session.MustGet(c), c.Param("commandId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// bindCommand reads a create/update form, answering 400 on bad input
func bindCommand(c *gin.Context) (customcmd.Input, bool) {
	var in customcmd.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		if hasTag(err, "commandname") {
			badRequest(c, "Command name can only contain letters, numbers, and underscores")
		} else {
			badRequest(c, "Command name and playlist are required")
		}
		return in, false
	}
	return in, true
}

func (h *Handlers) listCommands(c *gin.Context) {
	cmds, err := h.Commands.List(c.Request.Context(), session.MustGet(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "commands": cmds})
}

func (h *Handlers) createCommand(c *gin.Context) {
	in, ok := bindCommand(c)
	if !ok {
		return
	}
	cmd, err := h.Commands.Create(c.Request.Context(), session.MustGet(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "Custom command !" + cmd.DisplayName + " created successfully!",
		"commandId": cmd.ID,
	})
}

func (h *Handlers) updateCommand(c *gin.Context) {
	in, ok := bindCommand(c)
	if !ok {
		return
	}
	cmd, err := h.Commands.Update(c.Request.Context(), session.MustGet(c), c.Param("commandId"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Custom command !" + cmd.DisplayName + " updated successfully!",
	})
}

func (h *Handlers) deleteCommand(c *gin.Context) {
	cmd, err := h.Commands.Delete(c.Request.Context(), session.MustGet(c), c.Param("commandId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Custom command !" + cmd.DisplayName + " deleted successfully!",
	})
}
