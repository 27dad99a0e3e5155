package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "memoria.io/portal/internal/pkg/errors"
	"memoria.io/portal/internal/taxonomy"
)

// GetTaxonomyOptions handles GET /periods/:periodId/taxonomy. The response
// narrows as department/program/yearLevel query params are supplied,
// mirroring what the resolver offers an authoring form at each level.
func (s *Server) GetTaxonomyOptions(c *gin.Context) {
	tax, err := s.taxonomies.Get(c.Param("periodId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	department := c.Query("department")
	program := c.Query("program")
	yearLevel := c.Query("yearLevel")

	body := gin.H{"departments": tax.Departments()}
	if department != "" {
		body["programs"] = tax.AvailablePrograms(department)
		body["yearLevels"] = tax.AvailableYearLevels(department)
	}
	if department != "" && program != "" && yearLevel != "" {
		body["sections"] = tax.AvailableSections(department, program, yearLevel)
	}
	c.JSON(http.StatusOK, body)
}

type resolveRequest struct {
	Field     string             `json:"field"`
	NewValue  string             `json:"newValue"`
	Selection taxonomy.Selection `json:"selection"`
}

// ResolveSelection handles POST /periods/:periodId/taxonomy/resolve: apply
// one hierarchy edit to a selection and return the pruned result.
func (s *Server) ResolveSelection(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	field := taxonomy.Field(req.Field)
	switch field {
	case taxonomy.FieldDepartment, taxonomy.FieldProgram, taxonomy.FieldYearLevel:
	default:
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed,
			"unknown hierarchy field "+req.Field))
		return
	}

	tax, err := s.taxonomies.Get(c.Param("periodId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"selection": tax.OnAncestorChanged(field, req.NewValue, req.Selection),
	})
}
