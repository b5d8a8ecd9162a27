package catalog

import (
	"fmt"

	"github.com/tecnolua/ClubePharma/internal/apperr"
)

var (
	ErrProductNotFound = apperr.New(apperr.KindNotFound, "PRODUCT_NOT_FOUND", "Product not found")
	ErrSKUExists       = apperr.New(apperr.KindConflict, "SKU_EXISTS", "Product with this SKU already exists")
)

type InvalidError struct{ Field, Reason string }

func (e *InvalidError) Error() string { return fmt.Sprintf("%s %s", e.Field, e.Reason) }
func (e *InvalidError) ErrKind() apperr.Kind { return apperr.KindValidation }
func (e *InvalidError) ErrCode() string { return "VALIDATION_FAILED" }
