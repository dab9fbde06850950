// Package handler holds the request parsing shared by the HTTP handlers in
// its subpackages.
package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

// BindJSON decodes and validates the body into req.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return validator.FromBinding(err)
	}
	return nil
}

// ParamID parses the named path parameter as a UUID.
func ParamID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errors.NewBadRequest(fmt.Sprintf("invalid %s", name), err)
	}
	return id, nil
}

// QueryID parses an optional UUID query parameter.
func QueryID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.NewBadRequest(fmt.Sprintf("invalid %s", name), err)
	}
	return &id, nil
}

// QueryDate parses an optional YYYY-MM-DD query parameter.
func QueryDate(c *gin.Context, name string) (*model.Date, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, errors.NewValidation(fmt.Sprintf("%s must be a date in YYYY-MM-DD format", name))
	}
	return &d, nil
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.NewBadRequest(fmt.Sprintf("invalid %s", name), err)
	}
	return &v, nil
}

// QueryPagination reads page and page_size.
func QueryPagination(c *gin.Context) (model.Pagination, error) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		return p, errors.NewBadRequest("invalid pagination", err)
	}
	return p, nil
}
