package middleware

import (
	"context"
)

// Context carries one agent invocation through the middleware chain.
type Context struct {
	// Agent and identifiers of the request being served
	AgentID   string
	SessionID string
	RequestID string

	// Original user input
	Input string

	// Text accumulated from the agent's response, set after the handler returns
	Response string

	// Error from execution
	Error error

	// Metadata for passing data between middlewares
	Metadata map[string]any

	// Internal state
	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context) *Context {
	return &Context{
		Metadata: make(map[string]any),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	if c.context == nil {
		return context.Background()
	}
	return c.context
}

// Middleware defines the interface for middleware components.
// Middlewares can intercept and modify agent invocations.
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic
	// It receives the current context and a next handler to continue the chain
	// Returning error will stop the middleware chain
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// Chain represents a sequence of middleware to be executed
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{
		middlewares: middlewares,
	}
}

// Add appends a middleware to the chain
func (c *Chain) Add(m Middleware) *Chain {
	if m != nil {
		c.middlewares = append(c.middlewares, m)
	}
	return c
}

// Len returns the number of middlewares in the chain
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Execute runs all middlewares in the chain
func (c *Chain) Execute(ctx *Context, finalHandler Handler) error {
	err := c.executeMiddleware(ctx, 0, finalHandler)
	if err != nil && ctx.Error == nil {
		ctx.Error = err
	}
	return err
}

// executeMiddleware recursively executes middlewares in sequence
func (c *Chain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		// All middlewares executed, call the final handler
		return finalHandler(ctx)
	}

	nextHandler := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}

	return c.middlewares[index].Execute(ctx, nextHandler)
}
