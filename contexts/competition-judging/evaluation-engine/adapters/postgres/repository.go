package postgresadapter

import (
	"errors"
	"log/slog"
	"time"

	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
	"degusta/contexts/competition-judging/evaluation-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	sequenceSampleNumber   = "sample_number"
	sequenceProtocolNumber = "protocol_number"

	moduleName = "competition-judging/evaluation-engine"
)

// Repository implements every evaluation engine port on PostgreSQL. Writes
// that span rows run in one transaction and lock the row that serializes
// them: the sample for activation, scoring and issuing, the session for
// submissions, the commission for roster changes.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// nextSequence bumps the per-event counter of kind and returns the new value.
// The upsert holds the counter row lock until tx ends.
func nextSequence(tx *gorm.DB, eventID string, kind string) (int, error) {
	var next int
	err := tx.Raw(`INSERT INTO event_sequences (event_id, kind, last_value)
VALUES (?, ?, 1)
ON CONFLICT (event_id, kind) DO UPDATE SET last_value = event_sequences.last_value + 1
RETURNING last_value`, eventID, kind).Scan(&next).Error
	return next, err
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func forShare() clause.Locking {
	return clause.Locking{Strength: "SHARE"}
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", moduleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("evaluation repository operation failed", fields...)
	return err
}

// txError passes domain errors raised inside a transaction through and logs
// everything else.
func (r *Repository) txError(event string, err error, attrs ...any) error {
	if domainerrors.KindOf(err) != nil {
		return err
	}
	return r.logError(event, err, attrs...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

var _ ports.SampleRepository = (*Repository)(nil)
var _ ports.CommissionRepository = (*Repository)(nil)
var _ ports.SessionRepository = (*Repository)(nil)
var _ ports.EvaluationRepository = (*Repository)(nil)
var _ ports.PolicyRepository = (*Repository)(nil)
var _ ports.ProtocolRepository = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
