package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"membership/internal/queue"
	"membership/internal/report"
	"membership/internal/sanction"
)

// tierRequest accepts donations as pairs or as the legacy parallel lists.
type tierRequest struct {
	Donations     []sanction.Donation `json:"donations"`
	DonationItems []string            `json:"donation_items"`
	DonationCount []int               `json:"donation_count"`
	MinAbsences   *int                `json:"min_absences" binding:"required"`
	MaxAbsences   *int                `json:"max_absences" binding:"required"`
}

func (r tierRequest) input() (sanction.TierInput, error) {
	donations := r.Donations
	if len(donations) == 0 && (len(r.DonationItems) > 0 || len(r.DonationCount) > 0) {
		paired, err := sanction.PairDonations(r.DonationItems, r.DonationCount)
		if err != nil {
			return sanction.TierInput{}, err
		}
		donations = paired
	}
	return sanction.TierInput{Donations: donations, MinAbsences: *r.MinAbsences, MaxAbsences: *r.MaxAbsences}, nil
}

func (s *server) listTiers(c *gin.Context) {
	tiers, err := s.Sanctions.Tiers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tiers": nonNil(tiers), "warnings": nonNil(sanction.Overlaps(tiers))})
}

func (s *server) createTier(c *gin.Context) {
	var req tierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.fail(c, err)
		return
	}
	t, err := s.Sanctions.CreateTier(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func offenseParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("offense_number"))
	if err != nil || n <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "offense_number must be a positive integer"})
		return 0, false
	}
	return n, true
}

func (s *server) updateTier(c *gin.Context) {
	n, ok := offenseParam(c)
	if !ok {
		return
	}
	var req tierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.fail(c, err)
		return
	}
	t, err := s.Sanctions.UpdateTier(c.Request.Context(), n, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *server) deleteTier(c *gin.Context) {
	n, ok := offenseParam(c)
	if !ok {
		return
	}
	if err := s.Sanctions.DeleteTier(c.Request.Context(), n); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// recompute runs synchronously unless ?async=true and a queue is configured.
func (s *server) recompute(c *gin.Context) {
	if c.Query("async") == "true" && s.Queue != nil {
		if err := s.Queue.Publish(c.Request.Context(), queue.NewRecompute("admin request")); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
		return
	}
	res, err := s.Recomputer.Recompute(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type entryView struct {
	sanction.Entry
	Offense *sanction.Tier `json:"offense"`
}

func (s *server) listSanctions(c *gin.Context) {
	ctx := c.Request.Context()
	entries, err := s.Sanctions.List(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	tiers, err := s.Sanctions.Tiers(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		v := entryView{Entry: e}
		if t, ok := sanction.Match(tiers, e.TotalAbsences); ok {
			v.Offense = &t
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"sanctions": out})
}

func (s *server) sanctionsXLSX(c *gin.Context) {
	ctx := c.Request.Context()
	entries, err := s.Sanctions.List(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	tiers, err := s.Sanctions.Tiers(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	data, err := report.SanctionList(entries, tiers)
	if err != nil {
		s.fail(c, err)
		return
	}
	attachment(c, "sanctions.xlsx", data)
}

func (s *server) getSanction(c *gin.Context) {
	e, err := s.Sanctions.Entry(c.Request.Context(), c.Param("id_number"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *server) deleteSanction(c *gin.Context) {
	if err := s.Sanctions.RemoveEntry(c.Request.Context(), c.Param("id_number")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) mySanction(c *gin.Context) {
	st, err := s.Sanctions.Status(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id_number":      st.IDNumber,
		"total_absences": st.TotalAbsences,
		"listed":         st.Listed,
		"listed_total":   st.ListedTotal,
		"offense":        st.Offense,
		"events":         viewHistory(st.Events),
		"tiers":          nonNil(st.Tiers),
	})
}

// requestRecompute asks the worker for a recompute when a queue is wired.
func (s *server) requestRecompute(c *gin.Context, reason string) {
	if s.Queue == nil {
		return
	}
	if err := s.Queue.Publish(c.Request.Context(), queue.NewRecompute(reason)); err != nil {
		s.Log.Warn().Err(err).Str("reason", reason).Msg("recompute request not published")
	}
}
