package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterRoutes wires the read-only catalog surface; mutation routes go
// through RegisterAdminRoutes so the caller can guard them separately.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// GET /books (list/search)
	r.GET("/books", h.ListBooks)
	// GET /books/next-number
	r.GET("/books/next-number", h.NextBookNumber)
	// GET /books/stats
	r.GET("/books/stats", h.Stats)
	// GET /books/genres
	r.GET("/books/genres", h.Genres)
	// GET /books/:id (id, book_no or ulid)
	r.GET("/books/:id", h.GetBook)
}

func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// POST /books
	r.POST("/books", h.CreateBook)
	// GET /books/export.csv
	r.GET("/books/export.csv", h.ExportCSV)
	// PUT /books/:id
	r.PUT("/books/:id", h.UpdateBook)
	// DELETE /books/:id
	r.DELETE("/books/:id", h.DeleteBook)
}

// ---------- handlers ----------

func (h *Handler) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.CreateBook(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}

	c.Header("Location", "/books/"+res.BookULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListBooks(c *gin.Context) {
	q := SearchQuery{}
	if v := c.Query("search"); v != "" {
		q.Search = &v
	}
	if v := c.Query("genre"); v != "" {
		q.Genre = &v
	}
	if v := c.Query("language"); v != "" {
		q.Language = &v
	}
	if v := c.Query("year_from"); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			q.YearFrom = &y
		}
	}
	if v := c.Query("year_to"); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			q.YearTo = &y
		}
	}
	if v := c.Query("available"); v != "" {
		avail := v == "true" || v == "1"
		q.Available = &avail
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}

	res, total, err := h.svc.ListBooks(c.Request.Context(), q, p)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetBook(c *gin.Context) {
	res, err := h.svc.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateBook(c *gin.Context) {
	var req UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}

	res, err := h.svc.UpdateBook(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteBook(c *gin.Context) {
	if err := h.svc.DeleteBook(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Stats(c *gin.Context) {
	res, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Genres(c *gin.Context) {
	res, err := h.svc.Genres(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) NextBookNumber(c *gin.Context) {
	res, err := h.svc.NextBookNumber(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="books.csv"`)
	if err := h.svc.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
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
