package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "veritas/pkg/domain-errors"
	txcontext "veritas/pkg/platform/tx"
)

const defaultScanTxTimeout = 5 * time.Second

// boundedTx runs scan persistence transactions with a deadline so a stuck
// database cannot hold the orchestrator past its scan ceiling.
type boundedTx struct {
	runner  txcontext.Runner
	timeout time.Duration
}

func newBoundedTx(db *sql.DB) *boundedTx {
	return &boundedTx{runner: txcontext.NewSQLRunner(db)}
}

func (t *boundedTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultScanTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return t.runner.RunInTx(ctx, fn)
}
