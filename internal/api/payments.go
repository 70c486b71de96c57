package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"membership/internal/event"
	"membership/internal/payment"
)

const maxReceiptBytes = 5 << 20

type paymentRequest struct {
	IDNumber      string `json:"id_number" binding:"required,idnumber"`
	Status        string `json:"status" binding:"required,oneof=paid 'not paid'"`
	ReceiptNumber string `json:"receipt_number"`
	ReceiptDate   string `json:"receipt_date"`
}

func (s *server) listPayments(c *gin.Context) {
	rows, err := s.Payments.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": nonNil(rows)})
}

func (s *server) createPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	in := payment.OnsiteInput{
		IDNumber:      req.IDNumber,
		Status:        payment.Status(req.Status),
		ReceiptNumber: req.ReceiptNumber,
	}
	if req.ReceiptDate != "" {
		d, err := time.Parse(event.DateLayout, req.ReceiptDate)
		if err != nil {
			s.badRequest(c, "receipt_date must be YYYY-MM-DD")
			return
		}
		in.ReceiptDate = &d
	}
	p, err := s.Payments.RecordOnsite(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *server) getPayment(c *gin.Context) {
	p, err := s.Payments.Get(c.Request.Context(), c.Param("id_number"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *server) deletePayment(c *gin.Context) {
	p, err := s.Payments.Delete(c.Request.Context(), c.Param("id_number"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": p})
}

func (s *server) uploadReceipt(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		s.badRequest(c, "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReceiptBytes+1))
	if err != nil {
		s.fail(c, err)
		return
	}
	if len(data) > maxReceiptBytes {
		s.badRequest(c, "receipt image exceeds 5 MB")
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		s.badRequest(c, "receipt must be a png, jpg or webp image")
		return
	}

	id := c.Param("id_number")
	p, err := s.Payments.AttachReceipt(c.Request.Context(), id, data, id+"_receipt"+ext)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *server) myPayment(c *gin.Context) {
	p, err := s.Payments.Get(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *server) checkout(c *gin.Context) {
	p, err := s.Payments.StartCheckout(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}
