package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/schedule"
	"MorningDigest/internal/usecase"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type runResponse struct {
	OK       bool                    `json:"ok"`
	Stats    usecase.RunStats        `json:"stats"`
	Details  []usecase.GroupResult   `json:"details,omitempty"`
	Dispatch []usecase.IssueDispatch `json:"dispatch,omitempty"`
}

type runPayload struct {
	GroupIDs       []string `json:"groupIds" validate:"omitempty,dive,min=1"`
	SendEmails     *bool    `json:"sendEmails"`
	BypassSchedule *bool    `json:"bypassSchedule"`
	Recipients     []string `json:"recipients" validate:"omitempty,dive,email"`
}

type groupView struct {
	domain.KeywordGroup
	NextDelivery string `json:"nextDelivery"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRunPost(c echo.Context) error {
	var payload runPayload
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&payload); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		}
	}

	payload.GroupIDs = trimAll(payload.GroupIDs)
	payload.Recipients = trimAll(payload.Recipients)
	if err := c.Validate(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	sendEmails := payload.SendEmails != nil && *payload.SendEmails
	bypass := sendEmails
	if payload.BypassSchedule != nil {
		bypass = *payload.BypassSchedule
	}

	return s.run(c, usecase.RunRequest{
		GroupIDs:       payload.GroupIDs,
		SendEmails:     sendEmails,
		BypassSchedule: bypass,
		Recipients:     payload.Recipients,
		Trigger:        "api",
	}, true)
}

func (s *Server) handleRunGet(c echo.Context) error {
	payload := runPayload{
		GroupIDs:   splitCSV(c.QueryParam("groupIds")),
		Recipients: splitCSV(c.QueryParam("recipients")),
	}
	if err := c.Validate(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	sendEmails := c.QueryParam("sendEmails") == "true"
	bypass := sendEmails
	if raw := c.QueryParam("bypassSchedule"); raw != "" {
		bypass = raw == "true"
	}

	return s.run(c, usecase.RunRequest{
		GroupIDs:       payload.GroupIDs,
		SendEmails:     sendEmails,
		BypassSchedule: bypass,
		Recipients:     payload.Recipients,
		Trigger:        "api",
	}, true)
}

func (s *Server) handleCronTrigger(c echo.Context) error {
	return s.run(c, usecase.RunRequest{SendEmails: true, Trigger: "cron"}, false)
}

func (s *Server) run(c echo.Context, req usecase.RunRequest, withDetails bool) error {
	report, err := s.runner.Run(c.Request().Context(), req)
	if err != nil {
		s.logger.Error("digest run failed", "trigger", req.Trigger, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	resp := runResponse{OK: true, Stats: report.Stats, Dispatch: report.Dispatch}
	if withDetails {
		resp.Details = report.Details
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListGroups(c echo.Context) error {
	if s.groups == nil {
		return c.JSON(http.StatusOK, map[string][]groupView{"data": {}})
	}

	groups, err := s.groups.ListKeywordGroups(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	views := make([]groupView, 0, len(groups))
	for _, group := range groups {
		views = append(views, groupView{
			KeywordGroup: group,
			NextDelivery: s.evaluator.NextLabel(schedule.Config{
				Timezone: group.Timezone,
				SendTime: group.SendTime,
				Days:     group.Days,
			}),
		})
	}
	return c.JSON(http.StatusOK, map[string][]groupView{"data": views})
}

func (s *Server) handleRegenerate(c echo.Context) error {
	issue, err := s.runner.Regenerate(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, domain.ErrGroupNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNoArticles), errors.Is(err, domain.ErrNoKeywords), errors.Is(err, domain.ErrNoRecipients):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "issue": issue})
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	return compact(strings.Split(raw, ","))
}

// trimAll trims every value but keeps empty entries so validation sees them.
func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
