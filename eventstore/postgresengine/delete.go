package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/streamstore-go/streamstore/eventstore"
	"github.com/streamstore-go/streamstore/eventstore/postgresengine/internal/adapters"
)

// DeleteMessage removes the one message identified by (canonical,
// messageID) and, only if a row was removed, appends auditMessage to the
// audit stream in the same transaction. Unlike append/soft-delete this
// does not need BeginStreamTx's row lock on the target stream: hard
// delete neither allocates a new version nor touches the stream's head.
func (d *Driver) DeleteMessage(
	ctx context.Context,
	canonical string,
	messageID uuid.UUID,
	auditCanonical, auditOriginal string,
	auditMessage eventstore.Message,
	createdAtUTC time.Time,
) (bool, error) {
	tx, err := d.db.BeginTx(ctx)
	if err != nil {
		return false, errors.Join(ErrBeginTxFailed, err)
	}

	removed, err := d.deleteMessageWithinTx(ctx, tx, canonical, messageID, auditCanonical, auditOriginal, auditMessage, createdAtUTC)
	if err != nil {
		_ = tx.Rollback(ctx)
		return false, err
	}

	if !removed {
		_ = tx.Rollback(ctx)
		return false, nil
	}

	if err = tx.Commit(ctx); err != nil {
		return false, errors.Join(ErrCommitFailed, err)
	}

	return true, nil
}

func (d *Driver) deleteMessageWithinTx(
	ctx context.Context,
	tx adapters.DBTx,
	canonical string,
	messageID uuid.UUID,
	auditCanonical, auditOriginal string,
	auditMessage eventstore.Message,
	createdAtUTC time.Time,
) (bool, error) {
	sqlQuery, _, err := d.dialect().
		Delete(d.messagesTableName).
		Where(
			goqu.C(colCanonicalID).Eq(goqu.V(canonical)),
			goqu.C(colMessageID).Eq(goqu.V(messageID.String())),
		).
		ToSQL()
	if err != nil {
		return false, errors.Join(ErrBuildingQueryFailed, err)
	}

	result, err := d.runExec(ctx, tx, logActionDeleteMessage, sqlQuery)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Join(ErrExecutingFailed, err)
	}

	if rowsAffected == 0 {
		return false, nil
	}

	if err = appendAuditWithinTx(ctx, d, tx, auditCanonical, auditOriginal, auditMessage, createdAtUTC); err != nil {
		return false, err
	}

	return true, nil
}
