package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Details []string    `json:"details,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Count    int `json:"count"`
}

// PaginatedResponse wraps paginated data
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: StatusSuccess,
		Data:   data,
	}
}

func NewErrorResponse(message string, details ...string) *Response {
	return &Response{
		Status:  StatusError,
		Message: message,
		Details: details,
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

// RespondWithError maps err to its HTTP status. Server side failures are
// attached to the gin context for the error middleware and never leak their
// cause to the client.
func RespondWithError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, NewErrorResponse("internal server error"))
		return
	}

	appErr, _ := errors.As(err)
	c.AbortWithStatusJSON(status, NewErrorResponse(appErr.Message, appErr.Details...))
}

// RespondWithPagination sends a page of items
func RespondWithPagination(c *gin.Context, items interface{}, page, pageSize, count int) {
	c.JSON(http.StatusOK, NewSuccessResponse(PaginatedResponse{
		Items: items,
		Pagination: Pagination{
			Page:     page,
			PageSize: pageSize,
			Count:    count,
		},
	}))
}
