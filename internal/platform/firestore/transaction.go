package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
)

// Transactions retry on contention up to txMaxAttempts and never run
// longer than txDeadline.
const (
	txMaxAttempts = 5
	txDeadline    = 15 * time.Second
)

// TxFunc runs inside a Firestore transaction. Reads must precede writes.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

func runTransaction(ctx context.Context, client *firestore.Client, fn TxFunc) error {
	if client == nil {
		return WrapError("transaction", errors.New("firestore: client is nil"))
	}
	if fn == nil {
		return WrapError("transaction", errors.New("firestore: transaction func is nil"))
	}

	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > txDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, txDeadline)
		defer cancel()
	}

	err := client.RunTransaction(ctx, fn, firestore.MaxAttempts(txMaxAttempts))
	return WrapError("transaction", err)
}
