package main

import (
	"context"

	"github.com/sells-group/lead-cli/internal/pipeline"
)

// workflowOperator adapts *pipeline.Workflow to operator, dropping the
// maintenance reports the server does not return.
type workflowOperator struct {
	*pipeline.Workflow
}

func (o workflowOperator) Deduplicate(ctx context.Context) error {
	_, err := o.Workflow.Deduplicate(ctx)
	return err
}

func (o workflowOperator) VerifyLinks(ctx context.Context) error {
	_, err := o.Workflow.VerifyLinks(ctx)
	return err
}
