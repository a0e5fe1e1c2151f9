package postgresadapter

import (
	"context"
	"strings"

	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"

	"gorm.io/gorm"
)

// IssueProtocol numbers and stores the protocol in one transaction. The
// sample row is locked first so the score cannot change underneath it.
func (r *Repository) IssueProtocol(ctx context.Context, protocol entities.Protocol) (entities.Protocol, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sample, err := lockSample(tx, protocol.SampleID)
		if err != nil {
			return err
		}
		if sample.Status != entities.SampleStatusEvaluated || !sample.HasFinalScore() {
			return domainerrors.ErrSampleNotEvaluated.On("product_sample", sample.SampleID, string(sample.Status))
		}
		number, err := nextSequence(tx, protocol.EventID, sequenceProtocolNumber)
		if err != nil {
			return err
		}
		protocol.ProtocolNumber = number
		row, err := protocolModelFromEntity(protocol)
		if err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariant.On("protocol", protocol.ProtocolID, "")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return entities.Protocol{}, r.txError("evaluation_repo_issue_protocol_failed", err,
			"protocol_id", protocol.ProtocolID,
			"sample_id", protocol.SampleID,
			"event_id", protocol.EventID,
		)
	}
	return protocol, nil
}

func (r *Repository) GetProtocol(ctx context.Context, protocolID string) (entities.Protocol, error) {
	protocolID = strings.TrimSpace(protocolID)
	var row protocolModel
	if err := r.db.WithContext(ctx).
		Where("protocol_id = ?", protocolID).
		First(&row).Error; err != nil {
		if isNotFound(err) {
			return entities.Protocol{}, domainerrors.ErrProtocolNotFound.On("protocol", protocolID, "")
		}
		return entities.Protocol{}, r.logError("evaluation_repo_get_protocol_failed", err, "protocol_id", protocolID)
	}
	protocol, err := row.toEntity()
	if err != nil {
		return entities.Protocol{}, r.logError("evaluation_repo_decode_protocol_failed", err, "protocol_id", protocolID)
	}
	return protocol, nil
}

func (r *Repository) ListProtocolsBySample(ctx context.Context, sampleID string) ([]entities.Protocol, error) {
	sampleID = strings.TrimSpace(sampleID)
	var rows []protocolModel
	if err := r.db.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Order("protocol_number ASC").
		Order("version ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("evaluation_repo_list_protocols_failed", err, "sample_id", sampleID)
	}
	items := make([]entities.Protocol, 0, len(rows))
	for _, row := range rows {
		protocol, err := row.toEntity()
		if err != nil {
			return nil, r.logError("evaluation_repo_decode_protocol_failed", err, "protocol_id", row.ProtocolID)
		}
		items = append(items, protocol)
	}
	return items, nil
}
