package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"membership/internal/attendance"
	"membership/internal/event"
	"membership/internal/report"
)

type eventView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

func viewEvent(e event.Event) eventView {
	return eventView{ID: e.ID, Name: e.Name, Date: e.DateString()}
}

type eventRequest struct {
	Name string `json:"name" binding:"required,eventname"`
	Date string `json:"date" binding:"required"`
}

type attendanceRequest struct {
	EventName string `json:"event_name" binding:"required,eventname"`
	IDNumber  string `json:"id_number" binding:"required,idnumber"`
	Slot      string `json:"slot" binding:"required"`
	At        string `json:"at"`
}

func (s *server) listEvents(c *gin.Context) {
	events, err := s.Events.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, viewEvent(e))
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func (s *server) createEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	date, err := event.ParseDate(req.Date)
	if err != nil {
		s.badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	evt, err := s.Events.Create(c.Request.Context(), req.Name, date)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.requestRecompute(c, "event created: "+evt.Name)
	c.JSON(http.StatusCreated, viewEvent(evt))
}

func (s *server) updateEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	date, err := event.ParseDate(req.Date)
	if err != nil {
		s.badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	evt, err := s.Events.Update(c.Request.Context(), c.Param("name"), req.Name, date)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewEvent(evt))
}

func (s *server) deleteEvent(c *gin.Context) {
	name := c.Param("name")
	if err := s.Events.Delete(c.Request.Context(), name); err != nil {
		s.fail(c, err)
		return
	}
	s.requestRecompute(c, "event deleted: "+name)
	c.Status(http.StatusNoContent)
}

func (s *server) recordAttendance(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	slot, err := attendance.ParseSlot(req.Slot)
	if err != nil {
		s.fail(c, err)
		return
	}
	var at time.Time
	if req.At != "" {
		if at, err = time.Parse(time.RFC3339, req.At); err != nil {
			s.badRequest(c, "at must be an RFC 3339 timestamp")
			return
		}
	}
	rec, err := s.Attendance.Record(c.Request.Context(), req.EventName, req.IDNumber, slot, at)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *server) eventSheet(c *gin.Context) {
	evt, rows, err := s.Attendance.Sheet(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": viewEvent(evt), "attendance": nonNil(rows)})
}

func (s *server) eventSheetXLSX(c *gin.Context) {
	evt, rows, err := s.Attendance.Sheet(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	data, err := report.AttendanceSheet(evt, rows)
	if err != nil {
		s.fail(c, err)
		return
	}
	attachment(c, evt.Name+"_attendance.xlsx", data)
}

type historyView struct {
	Event    eventView          `json:"event"`
	Record   *attendance.Record `json:"record"`
	Absences int                `json:"absences"`
}

func viewHistory(items []attendance.StudentEvent) []historyView {
	out := make([]historyView, 0, len(items))
	for _, h := range items {
		out = append(out, historyView{
			Event:    eventView{ID: h.EventID, Name: h.EventName, Date: h.EventDate.Format(event.DateLayout)},
			Record:   h.Record,
			Absences: h.Absences,
		})
	}
	return out
}

func (s *server) myAttendance(c *gin.Context) {
	history, err := s.Attendance.ForStudent(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": viewHistory(history)})
}

func attachment(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, report.ContentType, data)
}
