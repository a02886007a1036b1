package triage

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
)

// Input is the ticket context fed to the suggestion generator.
type Input struct {
	Subject string
	Summary string
	// Messages holds up to the 12 most-recent thread messages, chronological.
	Messages []domain.TicketMessage
	// Articles holds up to 3 relevant published knowledge articles.
	Articles []domain.KnowledgeArticle
}

// Draft is the machine-generated triage suggestion payload.
type Draft struct {
	Category      string
	Priority      domain.TicketPriority
	Risk          domain.RiskLevel
	Confidence    float64
	DraftResponse string
	InputTokens   int
	OutputTokens  int
	PromptHash    string
}

// Strategy produces a draft suggestion from ticket context.
type Strategy interface {
	Generate(ctx context.Context, input Input) (*Draft, error)
}

// Generator composes a fallible generative backend with a total deterministic
// fallback. Its Generate has no failure path: any backend error, timeout or
// unparsable output falls through to the fallback.
type Generator struct {
	backend  Strategy
	fallback Strategy
	logger   *zap.Logger
}

// NewGenerator selects the backend at construction time based on config
// presence. Without an active generative config only the fallback runs.
func NewGenerator(cfg config.AIConfig, logger *zap.Logger) *Generator {
	g := &Generator{
		fallback: newHeuristicFallback(),
		logger:   logger,
	}
	if cfg.Active() {
		g.backend = newOpenAIBackend(cfg)
		logger.Info("generative backend enabled", zap.String("model", cfg.Model))
	}
	return g
}

// NewGeneratorWithBackend wires an explicit backend strategy.
func NewGeneratorWithBackend(backend Strategy, logger *zap.Logger) *Generator {
	return &Generator{
		backend:  backend,
		fallback: newHeuristicFallback(),
		logger:   logger,
	}
}

// Generate returns a draft suggestion. It never fails: generative-backend
// unavailability is recovered locally via the deterministic fallback.
func (g *Generator) Generate(ctx context.Context, input Input) *Draft {
	if g.backend != nil {
		draft, err := g.backend.Generate(ctx, input)
		if err == nil && draft != nil {
			return draft
		}
		g.logger.Warn("generative backend failed, using fallback", zap.Error(err))
	}

	draft, _ := g.fallback.Generate(ctx, input)
	return draft
}
