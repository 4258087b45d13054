package postgresengine

import (
	"context"
	"errors"
	"fmt"
)

const (
	defaultStreamsTableName  = "streams"
	defaultMessagesTableName = "messages"
	defaultPositionSeqName   = "messages_position_seq"

	colCanonicalID    = "canonical_id"
	colIDOriginal     = "id_original"
	colCurrentVersion = "current_version"
	colCurrentPos     = "current_position"
	colPosition       = "position"
	colMessageID      = "message_id"
	colStreamVersion  = "stream_version"
	colMessageType    = "message_type"
	colPayload        = "payload"
	colMetadata       = "metadata"
	colCreatedAt      = "created_at"
)

// CreateSchema creates the streams/messages tables and the position
// sequence backing this driver's instance, if they do not already exist.
// It is not part of the hot path; callers run it once at startup or via
// a migration step (spec §6.3).
func (d *Driver) CreateSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE SEQUENCE IF NOT EXISTS %s`, d.positionSeqName),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s CHAR(40) PRIMARY KEY,
			%s TEXT NOT NULL,
			%s BIGINT NOT NULL DEFAULT -1,
			%s BIGINT NOT NULL DEFAULT -1
		)`, d.streamsTableName, colCanonicalID, colIDOriginal, colCurrentVersion, colCurrentPos),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s BIGINT PRIMARY KEY DEFAULT nextval('%s'),
			%s CHAR(40) NOT NULL REFERENCES %s(%s),
			%s UUID NOT NULL,
			%s BIGINT NOT NULL,
			%s TEXT NOT NULL,
			%s JSONB NOT NULL,
			%s JSONB NOT NULL,
			%s TIMESTAMPTZ NOT NULL,
			UNIQUE (%s, %s),
			UNIQUE (%s, %s)
		)`, d.messagesTableName, colPosition, d.positionSeqName,
			colCanonicalID, d.streamsTableName, colCanonicalID,
			colMessageID, colStreamVersion, colMessageType, colPayload, colMetadata, colCreatedAt,
			colCanonicalID, colStreamVersion,
			colCanonicalID, colMessageID),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_canonical_version_idx ON %s (%s, %s)`,
			d.messagesTableName, d.messagesTableName, colCanonicalID, colStreamVersion),
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(ctx, stmt); err != nil {
			return errors.Join(ErrCreateSchemaFailed, err)
		}
	}

	return nil
}
