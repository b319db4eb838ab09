package errorhandler

import (
	"fmt"

	"github.com/sweetpotato0/termchat/middleware"
)

// ErrorHandlerFunc handles errors
type ErrorHandlerFunc func(error) error

// ErrorHandler converts agent panics into errors and optionally maps errors
// returned further down the chain.
type ErrorHandler struct {
	handler ErrorHandlerFunc
}

// NewErrorHandler creates an error handling middleware. handler may be nil.
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors and panics from downstream middlewares
func (m *ErrorHandler) Execute(ctx *middleware.Context, next middleware.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", middleware.ErrAgentPanicked, r)
			if m.handler != nil {
				err = m.handler(err)
			}
		}
	}()

	err = next(ctx)
	if err != nil && m.handler != nil {
		return m.handler(err)
	}
	return err
}
