package evaluationengine

import (
	"log/slog"
	"time"

	httpadapter "degusta/contexts/competition-judging/evaluation-engine/adapters/http"
	"degusta/contexts/competition-judging/evaluation-engine/adapters/memory"
	"degusta/contexts/competition-judging/evaluation-engine/application/commands"
	"degusta/contexts/competition-judging/evaluation-engine/application/queries"
	"degusta/contexts/competition-judging/evaluation-engine/ports"

	"github.com/go-playground/validator/v10"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Samples        ports.SampleRepository
	Commissions    ports.CommissionRepository
	Sessions       ports.SessionRepository
	Evaluations    ports.EvaluationRepository
	Policies       ports.PolicyRepository
	Protocols      ports.ProtocolRepository
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	scoring := commands.ScoringUseCase{
		Samples:     deps.Samples,
		Sessions:    deps.Sessions,
		Evaluations: deps.Evaluations,
		Policies:    deps.Policies,
		Outbox:      deps.Outbox,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Logger:      deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Samples: commands.SampleUseCase{
				Samples: deps.Samples,
				Outbox:  deps.Outbox,
				Clock:   deps.Clock,
				IDGen:   deps.IDGen,
				Logger:  deps.Logger,
			},
			Commissions: commands.CommissionUseCase{
				Commissions: deps.Commissions,
				Clock:       deps.Clock,
				IDGen:       deps.IDGen,
				Logger:      deps.Logger,
			},
			Policies: commands.PolicyUseCase{
				Policies: deps.Policies,
				Clock:    deps.Clock,
				Logger:   deps.Logger,
			},
			Sessions: commands.SessionUseCase{
				Samples:     deps.Samples,
				Commissions: deps.Commissions,
				Sessions:    deps.Sessions,
				Outbox:      deps.Outbox,
				Clock:       deps.Clock,
				IDGen:       deps.IDGen,
				Logger:      deps.Logger,
			},
			Evaluations: commands.EvaluationUseCase{
				Sessions:    deps.Sessions,
				Commissions: deps.Commissions,
				Evaluations: deps.Evaluations,
				Outbox:      deps.Outbox,
				Clock:       deps.Clock,
				IDGen:       deps.IDGen,
				Logger:      deps.Logger,
			},
			Scoring: scoring,
			Protocols: commands.ProtocolUseCase{
				Samples:        deps.Samples,
				Protocols:      deps.Protocols,
				Scoring:        scoring,
				Idempotency:    deps.Idempotency,
				Outbox:         deps.Outbox,
				Clock:          deps.Clock,
				IDGen:          deps.IDGen,
				IdempotencyTTL: deps.IdempotencyTTL,
				Logger:         deps.Logger,
			},
			Queries: queries.QueryUseCase{
				Samples:     deps.Samples,
				Commissions: deps.Commissions,
				Sessions:    deps.Sessions,
				Evaluations: deps.Evaluations,
				Protocols:   deps.Protocols,
			},
			Validator: validator.New(),
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory store. Tests reach the
// store through Module.Store to seed state and inspect the outbox.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Samples:        store,
		Commissions:    store,
		Sessions:       store,
		Evaluations:    store,
		Policies:       store,
		Protocols:      store,
		Idempotency:    store,
		Outbox:         store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
