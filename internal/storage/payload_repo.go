package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notevault/internal/dbx"
	"github.com/dmitrijs2005/notevault/internal/payloads"
)

// payloadRecord is the on-disk shape of a payloads.Payload, adapted from the
// teacher's entries table (uuid-keyed row with a deleted flag) but widened
// to a single opaque body column since payload content shifts shape between
// a decrypted map and version-prefixed ciphertext string.
type payloadRecord struct {
	UUID        string          `json:"uuid"`
	ContentType string          `json:"content_type"`
	Content     json.RawMessage `json:"content"`
	ItemsKeyID  string          `json:"items_key_id,omitempty"`
	EncItemKey  string          `json:"enc_item_key,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Deleted     bool            `json:"deleted"`
	Dirty       bool            `json:"dirty,omitempty"`
	DirtiedAt   time.Time       `json:"dirtied_at,omitempty"`
	AuthHash    string          `json:"auth_hash,omitempty"`
	AuthParams  json.RawMessage `json:"auth_params,omitempty"`
	ConflictOf  string          `json:"conflict_of,omitempty"`
}

func toRecord(p payloads.Payload) (payloadRecord, error) {
	content, err := json.Marshal(p.Content)
	if err != nil {
		return payloadRecord{}, fmt.Errorf("%w: marshal content: %v", ErrStorageWriteError, err)
	}
	var authParams json.RawMessage
	if p.AuthParams != nil {
		authParams, err = json.Marshal(p.AuthParams)
		if err != nil {
			return payloadRecord{}, fmt.Errorf("%w: marshal auth params: %v", ErrStorageWriteError, err)
		}
	}
	return payloadRecord{
		UUID:        p.UUID,
		ContentType: string(p.ContentType),
		Content:     content,
		ItemsKeyID:  p.ItemsKeyID,
		EncItemKey:  p.EncItemKey,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Deleted:     p.Deleted,
		Dirty:       p.Dirty,
		DirtiedAt:   p.DirtiedAt,
		AuthHash:    p.AuthHash,
		AuthParams:  authParams,
		ConflictOf:  p.ConflictOf,
	}, nil
}

func (r payloadRecord) toPayload() (payloads.Payload, error) {
	var content any
	if err := json.Unmarshal(r.Content, &content); err != nil {
		return payloads.Payload{}, fmt.Errorf("%w: unmarshal content: %v", ErrStorageReadError, err)
	}
	var authParams map[string]any
	if len(r.AuthParams) > 0 {
		if err := json.Unmarshal(r.AuthParams, &authParams); err != nil {
			return payloads.Payload{}, fmt.Errorf("%w: unmarshal auth params: %v", ErrStorageReadError, err)
		}
	}
	return payloads.Payload{
		UUID:        r.UUID,
		ContentType: payloads.ContentType(r.ContentType),
		Content:     content,
		ItemsKeyID:  r.ItemsKeyID,
		EncItemKey:  r.EncItemKey,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Deleted:     r.Deleted,
		Dirty:       r.Dirty,
		DirtiedAt:   r.DirtiedAt,
		AuthHash:    r.AuthHash,
		AuthParams:  authParams,
		ConflictOf:  r.ConflictOf,
	}, nil
}

// payloadRepository is the raw payload table.
type payloadRepository struct {
	db dbx.DBTX
}

func newPayloadRepository(db dbx.DBTX) *payloadRepository {
	return &payloadRepository{db: db}
}

func (r *payloadRepository) Upsert(ctx context.Context, p payloads.Payload) error {
	rec, err := toRecord(p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO payloads (uuid, content_type, body, deleted, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			content_type = excluded.content_type,
			body = excluded.body,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at
	`, rec.UUID, rec.ContentType, mustJSON(rec), boolToInt(rec.Deleted), rec.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: upsert payload %s: %v", ErrStorageWriteError, p.UUID, err)
	}
	return nil
}

func (r *payloadRepository) Delete(ctx context.Context, uuid string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM payloads WHERE uuid = ?`, uuid)
	if err != nil {
		return fmt.Errorf("%w: delete payload %s: %v", ErrStorageWriteError, uuid, err)
	}
	return nil
}

func (r *payloadRepository) All(ctx context.Context) ([]payloads.Payload, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT body FROM payloads ORDER BY updated_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list payloads: %v", ErrStorageReadError, err)
	}
	defer rows.Close()

	var out []payloads.Payload
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("%w: scan payload: %v", ErrStorageReadError, err)
		}
		var rec payloadRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("%w: unmarshal payload row: %v", ErrStorageReadError, err)
		}
		p, err := rec.toPayload()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate payloads: %v", ErrStorageReadError, err)
	}
	return out, nil
}

func (r *payloadRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM payloads`)
	if err != nil {
		return fmt.Errorf("%w: clear payloads: %v", ErrStorageWriteError, err)
	}
	return nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("storage: payload record must always marshal: " + err.Error())
	}
	return b
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
