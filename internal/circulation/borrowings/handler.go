package borrowings

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// POST /borrowings
	r.POST("/borrowings", h.CreateBorrowing)
	// GET /borrowings (list, optional member filter)
	r.GET("/borrowings", h.ListBorrowings)
	// GET /borrowings/stats (fine totals)
	r.GET("/borrowings/stats", h.FineStats)
	// GET /borrowings/:id (id or ulid)
	r.GET("/borrowings/:id", h.GetBorrowing)
	// PUT /borrowings/:id
	r.PUT("/borrowings/:id", h.UpdateBorrowing)
	// POST /borrowings/:id/return
	r.POST("/borrowings/:id/return", h.ReturnBorrowing)
}

// RegisterAdminRoutes wires the administrative delete; mount it behind
// an admin guard.
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// DELETE /borrowings/:id
	r.DELETE("/borrowings/:id", h.DeleteBorrowing)
}

// ---------- handlers ----------

func (h *Handler) CreateBorrowing(c *gin.Context) {
	var req CreateBorrowingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.CreateBorrowing(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}

	c.Header("Location", "/borrowings/"+res.BorrowingULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListBorrowings(c *gin.Context) {
	f := Filter{}
	if v := c.Query("member_id"); v != "" {
		f.MemberNo = &v
	}
	if v := c.Query("book_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			f.BookID = &id
		}
	}
	if v := c.Query("status"); v != "" {
		st := Status(v)
		f.Status = &st
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}

	res, total, err := h.svc.ListBorrowings(c.Request.Context(), f, p)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetBorrowing(c *gin.Context) {
	res, err := h.svc.GetBorrowing(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateBorrowing(c *gin.Context) {
	var req UpdateBorrowingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}

	res, err := h.svc.UpdateBorrowing(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ReturnBorrowing(c *gin.Context) {
	res, err := h.svc.ReturnBorrowing(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteBorrowing removes the record without restoring inventory; a
// return must be recorded first if the copies should come back.
func (h *Handler) DeleteBorrowing(c *gin.Context) {
	if err := h.svc.DeleteBorrowing(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) FineStats(c *gin.Context) {
	res, err := h.svc.FineStats(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
