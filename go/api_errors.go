package orderserver

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	ordersapp "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	apierrors "github.com/Apurer/order-lifecycle-api/internal/shared/errors"
)

const retryDetail = "invoice storage is temporarily unavailable, try again"

var orderResponder = apierrors.NewResponder(apierrors.WithMappers(mapOrderError))

// respondProblem writes a ProblemDetail through the order responder.
func respondProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	orderResponder.Respond(c, problem)
}

// respondOrderServiceError translates the application error taxonomy into problems.
func respondOrderServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	orderResponder.RespondError(c, err)
}

// respondBindError reports payload binding failures, per field when the validator produced them.
func respondBindError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fe.Tag()
		}
		respondProblem(c, apierrors.NewValidationProblem(fields))
		return
	}
	respondProblem(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
}

func mapOrderError(err error) (apierrors.ProblemDetail, bool) {
	var transition *domain.TransitionError
	switch {
	case errors.As(err, &transition):
		return apierrors.ErrInvalidTransition.
			WithDetail(transition.Error()).
			WithExtension("currentStatus", string(transition.From)).
			WithExtension("targetStatus", string(transition.To)), true
	case errors.Is(err, ordersapp.ErrInvalidTransition):
		return apierrors.ErrInvalidTransition.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrAlreadyExists):
		return apierrors.ErrConflict.WithDetail(err.Error()).WithExtension("reason", "already_exists"), true
	case errors.Is(err, ordersapp.ErrConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrRender), errors.Is(err, ordersapp.ErrStorage):
		return apierrors.ErrServiceUnavailable.WithDetail(retryDetail), true
	case errors.Is(err, ordersapp.ErrTimeout):
		return apierrors.ErrTimeout.WithDetail("the operation did not finish in time, try again"), true
	}
	return apierrors.ProblemDetail{}, false
}
