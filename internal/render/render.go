// Package render turns composed receipt documents into portable document
// bytes via an external rasterizer.
package render

import (
	"context"
	"fmt"

	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
)

// Renderer is the external rendering collaborator: it accepts a fully
// composed document and returns document bytes or fails with a RenderError.
type Renderer interface {
	Render(ctx context.Context, doc *entity.ReceiptDocument) ([]byte, error)
}

// RenderError marks a failure of the rendering collaborator. The batch
// orchestrator catches it per item; it never aborts a whole batch.
type RenderError struct {
	Stage string
	Cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Stage, e.Cause)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

func (e *RenderError) Is(target error) bool {
	return target == common.ErrRender
}

func newRenderError(stage string, cause error) *RenderError {
	return &RenderError{Stage: stage, Cause: cause}
}
