package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"strings"

	application "degusta/contexts/competition-judging/evaluation-engine/application"
	"degusta/contexts/competition-judging/evaluation-engine/application/commands"
	"degusta/contexts/competition-judging/evaluation-engine/application/queries"
	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
	httptransport "degusta/contexts/competition-judging/evaluation-engine/transport/http"

	"github.com/go-playground/validator/v10"
)

var defaultValidator = validator.New()

// Handler maps transport DTOs onto the evaluation use cases. Routing and
// authentication live outside this module; callers pass the acting user id.
type Handler struct {
	Samples     commands.SampleUseCase
	Commissions commands.CommissionUseCase
	Policies    commands.PolicyUseCase
	Sessions    commands.SessionUseCase
	Evaluations commands.EvaluationUseCase
	Scoring     commands.ScoringUseCase
	Protocols   commands.ProtocolUseCase
	Queries     queries.QueryUseCase
	Validator   *validator.Validate
	Logger      *slog.Logger
}

func (h Handler) RegisterSampleHandler(ctx context.Context, req httptransport.RegisterSampleRequest) (httptransport.SampleResponse, error) {
	if err := h.validate(req); err != nil {
		return httptransport.SampleResponse{}, err
	}
	sample, err := h.Samples.RegisterSample(ctx, commands.RegisterSampleCommand{
		EventID:     req.EventID,
		CategoryID:  req.CategoryID,
		ApplicantID: req.ApplicantID,
	})
	if err != nil {
		return httptransport.SampleResponse{}, err
	}
	return mapSample(sample), nil
}

func (h Handler) SubmitSampleHandler(ctx context.Context, sampleID string) (httptransport.SampleResponse, error) {
	sample, err := h.Samples.SubmitSample(ctx, sampleID)
	if err != nil {
		return httptransport.SampleResponse{}, err
	}
	return mapSample(sample), nil
}

func (h Handler) GetSampleHandler(ctx context.Context, sampleID string) (httptransport.SampleResponse, error) {
	sample, err := h.Queries.GetSample(ctx, sampleID)
	if err != nil {
		return httptransport.SampleResponse{}, err
	}
	return mapSample(sample), nil
}

func (h Handler) CreateCommissionHandler(ctx context.Context, req httptransport.CreateCommissionRequest) (httptransport.RosterResponse, error) {
	if err := h.validate(req); err != nil {
		return httptransport.RosterResponse{}, err
	}
	roster, err := h.Commissions.CreateCommission(ctx, commands.CreateCommissionCommand{
		Name:             req.Name,
		MainMemberUserID: req.MainMemberUserID,
	})
	if err != nil {
		return httptransport.RosterResponse{}, err
	}
	return mapRoster(roster), nil
}

func (h Handler) AddMemberHandler(
	ctx context.Context,
	commissionID string,
	req httptransport.AddMemberRequest,
) (httptransport.CommissionMemberResponse, error) {
	if err := h.validate(req); err != nil {
		return httptransport.CommissionMemberResponse{}, err
	}
	member, err := h.Commissions.AddMember(ctx, commands.AddMemberCommand{
		CommissionID: commissionID,
		UserID:       req.UserID,
		Role:         req.Role,
	})
	if err != nil {
		return httptransport.CommissionMemberResponse{}, err
	}
	return mapMember(member), nil
}

func (h Handler) SetMemberExcludedHandler(
	ctx context.Context,
	commissionID string,
	memberID string,
	req httptransport.SetMemberExcludedRequest,
) (httptransport.CommissionMemberResponse, error) {
	member, err := h.Commissions.SetMemberExcluded(ctx, commands.SetMemberExcludedCommand{
		CommissionID: commissionID,
		MemberID:     memberID,
		Excluded:     req.Excluded,
	})
	if err != nil {
		return httptransport.CommissionMemberResponse{}, err
	}
	return mapMember(member), nil
}

func (h Handler) RosterHandler(ctx context.Context, commissionID string) (httptransport.RosterResponse, error) {
	roster, err := h.Queries.GetRoster(ctx, commissionID)
	if err != nil {
		return httptransport.RosterResponse{}, err
	}
	return mapRoster(roster), nil
}

func (h Handler) GetPolicyHandler(ctx context.Context, eventID string) (httptransport.PolicyResponse, error) {
	policy, err := h.Policies.PolicyFor(ctx, eventID)
	if err != nil {
		return httptransport.PolicyResponse{}, err
	}
	return mapPolicy(policy), nil
}

func (h Handler) ConfigurePolicyHandler(
	ctx context.Context,
	eventID string,
	req httptransport.ConfigurePolicyRequest,
) (httptransport.PolicyResponse, error) {
	if err := h.validate(req); err != nil {
		return httptransport.PolicyResponse{}, err
	}
	policy, err := h.Policies.ConfigurePolicy(ctx, commands.ConfigurePolicyCommand{
		EventID:              eventID,
		TrimHighLowFromCount: req.TrimHighLowFromCount,
		TrimCountHigh:        req.TrimCountHigh,
		TrimCountLow:         req.TrimCountLow,
		RoundingDecimals:     req.RoundingDecimals,
	})
	if err != nil {
		return httptransport.PolicyResponse{}, err
	}
	return mapPolicy(policy), nil
}

func (h Handler) ActivateSessionHandler(
	ctx context.Context,
	userID string,
	req httptransport.ActivateSessionRequest,
) (httptransport.SessionResponse, error) {
	if err := h.validate(req); err != nil {
		return httptransport.SessionResponse{}, err
	}
	session, err := h.Sessions.ActivateSession(ctx, commands.ActivateSessionCommand{
		EventID:      req.EventID,
		SampleID:     req.SampleID,
		CommissionID: req.CommissionID,
		RequestedBy:  userID,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session), nil
}

func (h Handler) GetSessionHandler(ctx context.Context, sessionID string) (httptransport.SessionResponse, error) {
	session, err := h.Queries.GetSession(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session), nil
}

func (h Handler) CreateEvaluationHandler(
	ctx context.Context,
	sessionID string,
	req httptransport.CreateEvaluationRequest,
) (httptransport.EvaluationResponse, error) {
	if err := h.validate(req); err != nil {
		return httptransport.EvaluationResponse{}, err
	}
	evaluation, err := h.Evaluations.CreateEvaluation(ctx, commands.CreateEvaluationCommand{
		SessionID:          sessionID,
		SampleID:           req.SampleID,
		CommissionMemberID: req.CommissionMemberID,
		Score:              req.Score,
		ExcludeVote:        req.ExcludeVote,
		ExclusionNote:      req.ExclusionNote,
	})
	if err != nil {
		return httptransport.EvaluationResponse{}, err
	}
	return mapEvaluation(evaluation), nil
}

func (h Handler) UpdateEvaluationHandler(
	ctx context.Context,
	evaluationID string,
	req httptransport.UpdateEvaluationRequest,
) (httptransport.EvaluationResponse, error) {
	if err := h.validate(req); err != nil {
		return httptransport.EvaluationResponse{}, err
	}
	evaluation, err := h.Evaluations.UpdateEvaluation(ctx, commands.UpdateEvaluationCommand{
		EvaluationID:  evaluationID,
		Score:         req.Score,
		ExcludeVote:   req.ExcludeVote,
		ExclusionNote: req.ExclusionNote,
	})
	if err != nil {
		return httptransport.EvaluationResponse{}, err
	}
	return mapEvaluation(evaluation), nil
}

func (h Handler) SubmitEvaluationHandler(
	ctx context.Context,
	userID string,
	evaluationID string,
) (httptransport.SubmitEvaluationResponse, error) {
	result, err := h.Evaluations.SubmitEvaluation(ctx, commands.SubmitEvaluationCommand{
		EvaluationID: evaluationID,
		SubmittedBy:  userID,
	})
	if err != nil {
		return httptransport.SubmitEvaluationResponse{}, err
	}
	return httptransport.SubmitEvaluationResponse{
		Evaluation:     mapEvaluation(result.Evaluation),
		TotalVotes:     result.Tally.TotalVotes,
		ExcludeVotes:   result.Tally.ExcludeVotes,
		SampleExcluded: result.SampleExcluded,
		SampleStatus:   string(result.Sample.Status),
	}, nil
}

func (h Handler) ListSessionEvaluationsHandler(ctx context.Context, sessionID string) (httptransport.ListEvaluationsResponse, error) {
	items, err := h.Queries.ListSessionEvaluations(ctx, sessionID)
	if err != nil {
		return httptransport.ListEvaluationsResponse{}, err
	}
	response := httptransport.ListEvaluationsResponse{
		Items: make([]httptransport.EvaluationResponse, 0, len(items)),
	}
	for _, item := range items {
		response.Items = append(response.Items, mapEvaluation(item))
	}
	return response, nil
}

func (h Handler) CalculateScoreHandler(ctx context.Context, sampleID string) (httptransport.ScoreResponse, error) {
	result, err := h.Scoring.Calculate(ctx, sampleID)
	if err != nil {
		return httptransport.ScoreResponse{}, err
	}
	return httptransport.ScoreResponse{
		SampleID:        result.SampleID,
		SessionID:       result.SessionID,
		Score:           result.Score,
		EvaluationCount: result.EvaluationCount,
		Trimmed:         result.Trimmed,
		CalculatedAt:    result.CalculatedAt,
	}, nil
}

func (h Handler) GenerateProtocolHandler(
	ctx context.Context,
	userID string,
	idempotencyKey string,
	req httptransport.GenerateProtocolRequest,
) (httptransport.ProtocolResponse, error) {
	if err := h.validate(req); err != nil {
		return httptransport.ProtocolResponse{}, err
	}
	result, err := h.Protocols.GenerateProtocol(ctx, commands.GenerateProtocolCommand{
		SampleID:       req.SampleID,
		IssuedBy:       userID,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.ProtocolResponse{}, err
	}
	response := mapProtocol(result.Protocol)
	response.Replayed = result.Replayed
	return response, nil
}

func (h Handler) ListProtocolsHandler(ctx context.Context, sampleID string) (httptransport.ListProtocolsResponse, error) {
	items, err := h.Queries.ListProtocols(ctx, sampleID)
	if err != nil {
		return httptransport.ListProtocolsResponse{}, err
	}
	response := httptransport.ListProtocolsResponse{
		Items: make([]httptransport.ProtocolResponse, 0, len(items)),
	}
	for _, item := range items {
		response.Items = append(response.Items, mapProtocol(item))
	}
	return response, nil
}

// ErrorResponse renders err for a transport and picks its status code.
func ErrorResponse(err error) (int, httptransport.ErrorResponse) {
	response := httptransport.ErrorResponse{
		Code:    "internal_error",
		Message: "internal error",
	}
	status := nethttp.StatusInternalServerError
	switch domainerrors.KindOf(err) {
	case domainerrors.ErrValidation:
		status, response.Code = nethttp.StatusBadRequest, "validation_error"
	case domainerrors.ErrConflict:
		status, response.Code = nethttp.StatusConflict, "conflict"
	case domainerrors.ErrAuthorization:
		status, response.Code = nethttp.StatusForbidden, "forbidden"
	case domainerrors.ErrInvalidState:
		status, response.Code = nethttp.StatusUnprocessableEntity, "invalid_state"
	case domainerrors.ErrNotFound:
		status, response.Code = nethttp.StatusNotFound, "not_found"
	case domainerrors.ErrConfiguration:
		status, response.Code = nethttp.StatusUnprocessableEntity, "configuration_error"
	default:
		return status, response
	}
	response.Message = err.Error()
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		response.Entity = domainErr.Entity
		response.ID = domainErr.ID
		response.State = domainErr.State
	}
	return status, response
}

func (h Handler) validate(req any) error {
	v := h.Validator
	if v == nil {
		v = defaultValidator
	}
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	fields := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, fieldErr.Field()+" "+fieldErr.Tag())
	}
	application.ResolveLogger(h.Logger).Debug("request validation failed",
		"event", "evaluation_request_validation_failed",
		"module", application.ModuleName,
		"layer", "transport",
		"fields", fields,
	)
	return domainerrors.ErrInvalidInput.Because(strings.Join(fields, ", "))
}

func mapSample(sample entities.ProductSample) httptransport.SampleResponse {
	return httptransport.SampleResponse{
		SampleID:        sample.SampleID,
		EventID:         sample.EventID,
		CategoryID:      sample.CategoryID,
		ApplicantID:     sample.ApplicantID,
		SampleNumber:    sample.SampleNumber,
		Status:          string(sample.Status),
		FinalScore:      sample.FinalScore,
		EvaluatedAt:     sample.EvaluatedAt,
		ExcludedAt:      sample.ExcludedAt,
		ExclusionReason: sample.ExclusionReason,
		ActiveSessionID: sample.ActiveSessionID,
	}
}

func mapMember(member entities.CommissionMember) httptransport.CommissionMemberResponse {
	return httptransport.CommissionMemberResponse{
		MemberID: member.MemberID,
		UserID:   member.UserID,
		Role:     string(member.Role),
		Excluded: member.Excluded,
	}
}

func mapRoster(roster entities.Roster) httptransport.RosterResponse {
	response := httptransport.RosterResponse{
		CommissionID:   roster.Commission.CommissionID,
		Name:           roster.Commission.Name,
		Status:         string(roster.Commission.Status),
		ActivatingRole: string(roster.ActivatingRole()),
		Members:        make([]httptransport.CommissionMemberResponse, 0, len(roster.Members)),
	}
	for _, member := range roster.Members {
		response.Members = append(response.Members, mapMember(member))
	}
	return response
}

func mapPolicy(policy entities.ScoringPolicy) httptransport.PolicyResponse {
	return httptransport.PolicyResponse{
		EventID:              policy.EventID,
		TrimHighLowFromCount: policy.TrimHighLowFromCount,
		TrimCountHigh:        policy.TrimCountHigh,
		TrimCountLow:         policy.TrimCountLow,
		RoundingDecimals:     policy.RoundingDecimals,
	}
}

func mapSession(session entities.EvaluationSession) httptransport.SessionResponse {
	return httptransport.SessionResponse{
		SessionID:    session.SessionID,
		EventID:      session.EventID,
		SampleID:     session.SampleID,
		CommissionID: session.CommissionID,
		Status:       string(session.Status),
		ActivatedBy:  session.ActivatedBy,
		ActivatedAt:  session.ActivatedAt,
		CompletedBy:  session.CompletedBy,
		CompletedAt:  session.CompletedAt,
	}
}

func mapEvaluation(evaluation entities.ExpertEvaluation) httptransport.EvaluationResponse {
	return httptransport.EvaluationResponse{
		EvaluationID:              evaluation.EvaluationID,
		SessionID:                 evaluation.SessionID,
		SampleID:                  evaluation.SampleID,
		CommissionMemberID:        evaluation.CommissionMemberID,
		Score:                     evaluation.FinalScore,
		ExcludeVote:               evaluation.ExcludeVote,
		ExclusionNote:             evaluation.ExclusionNote,
		SubmittedAt:               evaluation.SubmittedAt,
		IsExcludedFromCalculation: evaluation.IsExcludedFromCalculation,
	}
}

func mapProtocol(protocol entities.Protocol) httptransport.ProtocolResponse {
	return httptransport.ProtocolResponse{
		ProtocolID:        protocol.ProtocolID,
		EventID:           protocol.EventID,
		SampleID:          protocol.SampleID,
		ApplicantID:       protocol.ApplicantID,
		ProtocolNumber:    protocol.ProtocolNumber,
		Version:           protocol.Version,
		PreviousVersionID: protocol.PreviousVersionID,
		FinalScore:        protocol.FinalScore,
		Status:            string(protocol.Status),
		IssuedBy:          protocol.IssuedBy,
		EvaluationCount:   protocol.Snapshot.EvaluationCount,
		GeneratedAt:       protocol.GeneratedAt,
	}
}
