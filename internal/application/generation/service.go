package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

// Service turns natural-language requests into validated command responses.
type Service struct {
	ConfigProvider   ports.ConfigProvider
	ClientFactory    ports.ClientFactory
	Resolver         ports.ProviderResolver
	Cache            ports.CacheRepository
	ContextCollector ports.ContextCollector
	Status           ports.StatusIndicator
	Logger           ports.Logger
}

// Options override configuration for a single request.
type Options struct {
	Model       string
	Temperature *float64
	MaxTokens   int
	NoCache     bool
}

// target is the resolved provider and sampling settings for one request.
type target struct {
	cfg         domain.Config
	provider    string
	model       string
	cacheModel  string
	temperature float64
	maxTokens   int
}

// GenerateCommand returns a single command for query, served from the cache
// when a fresh entry exists.
func (s *Service) GenerateCommand(ctx context.Context, query string, opts Options) (domain.CommandResponse, error) {
	if err := s.check(query); err != nil {
		return domain.CommandResponse{}, err
	}
	t, err := s.resolve(ctx, opts)
	if err != nil {
		return domain.CommandResponse{}, err
	}

	useCache := !opts.NoCache && s.Cache != nil
	if useCache {
		if cached, ok := s.Cache.Get(query, t.cacheModel); ok {
			s.Logger.Debug("cache hit", map[string]interface{}{"model": t.cacheModel})
			return cached, nil
		}
	}

	data := promptData{Query: query, Context: s.snapshot(ctx, t.cfg)}
	var reply commandReply
	if err := s.request(ctx, t, singleShape, data, t.maxTokens, "command_response", &reply); err != nil {
		return domain.CommandResponse{}, err
	}
	resp, err := reply.response()
	if err != nil {
		return domain.CommandResponse{}, err
	}

	if useCache {
		if err := s.Cache.Set(query, t.cacheModel, resp); err != nil {
			s.Logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return resp, nil
}

// RefineCommand adjusts original according to refinement. The cache is never
// consulted.
func (s *Service) RefineCommand(ctx context.Context, query, refinement, original string, opts Options) (domain.CommandResponse, error) {
	if err := s.check(query); err != nil {
		return domain.CommandResponse{}, err
	}
	if strings.TrimSpace(refinement) == "" {
		return domain.CommandResponse{}, errors.New("refinement request is empty")
	}
	t, err := s.resolve(ctx, opts)
	if err != nil {
		return domain.CommandResponse{}, err
	}
	data := promptData{
		Query:      query,
		Original:   original,
		Refinement: strings.TrimSpace(refinement),
		Context:    s.snapshot(ctx, t.cfg),
	}
	var reply commandReply
	if err := s.request(ctx, t, singleShape, data, t.maxTokens, "command_response", &reply); err != nil {
		return domain.CommandResponse{}, err
	}
	return reply.response()
}

// GenerateAlternatives asks for count distinct commands in one call. Fewer
// results than requested is not an error; invalid entries are dropped.
func (s *Service) GenerateAlternatives(ctx context.Context, query string, count int, opts Options) ([]domain.CommandResponse, error) {
	if err := s.check(query); err != nil {
		return nil, err
	}
	t, err := s.resolve(ctx, opts)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = t.cfg.AlternativesCount()
	}

	data := promptData{Query: query, Count: count, Context: s.snapshot(ctx, t.cfg)}
	var payload alternativesReply
	if err := s.request(ctx, t, alternativesShape, data, t.maxTokens*count, "command_alternatives", &payload); err != nil {
		return nil, err
	}

	out := make([]domain.CommandResponse, 0, count)
	for i, candidate := range payload.Commands {
		if len(out) == count {
			break
		}
		resp, err := candidate.response()
		if err != nil {
			s.Logger.Warn("dropping invalid alternative", map[string]interface{}{"index": i, "error": err.Error()})
			continue
		}
		out = append(out, resp)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable alternatives", domain.ErrInvalidResponse)
	}
	return out, nil
}

// GenerateMultiCommand decomposes query into ordered stages.
func (s *Service) GenerateMultiCommand(ctx context.Context, query string, opts Options) (domain.MultiCommandResponse, error) {
	if err := s.check(query); err != nil {
		return domain.MultiCommandResponse{}, err
	}
	t, err := s.resolve(ctx, opts)
	if err != nil {
		return domain.MultiCommandResponse{}, err
	}
	data := promptData{Query: query, Context: s.snapshot(ctx, t.cfg)}
	var reply multiReply
	if err := s.request(ctx, t, multiShape, data, t.maxTokens*3, "multi_command_response", &reply); err != nil {
		return domain.MultiCommandResponse{}, err
	}
	multi, err := reply.response()
	if err != nil {
		return domain.MultiCommandResponse{}, err
	}
	if !multi.CombinedMatchesStages() {
		s.Logger.Warn("combined command differs from the classified stages", map[string]interface{}{
			"combined": multi.CombinedCommand,
			"stages":   multi.JoinedStages(),
		})
	}
	return multi, nil
}

func (s *Service) check(query string) error {
	if s.ConfigProvider == nil || s.ClientFactory == nil || s.Logger == nil {
		return errors.New("generation.Service dependencies not satisfied")
	}
	if strings.TrimSpace(query) == "" {
		return errors.New("query is empty")
	}
	return nil
}

// resolve picks model and sampling settings: explicit options first, then
// configuration, then built-in defaults.
func (s *Service) resolve(ctx context.Context, opts Options) (target, error) {
	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		return target{}, fmt.Errorf("load config: %w", err)
	}
	t := target{
		cfg:         cfg,
		provider:    cfg.ActiveProviderName(),
		model:       cfg.ActiveModelName(),
		temperature: cfg.EffectiveTemperature(),
		maxTokens:   cfg.EffectiveMaxTokens(),
	}
	if model := strings.TrimSpace(opts.Model); model != "" {
		t.model = model
		if !configuredFor(cfg, t.provider, model) && s.Resolver != nil {
			t.provider = s.Resolver.ModelProvider(ctx, model)
		}
	}
	if opts.Temperature != nil {
		t.temperature = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		t.maxTokens = opts.MaxTokens
	}
	t.cacheModel = t.model
	if s.Resolver != nil {
		t.cacheModel = s.Resolver.FormatModelName(t.provider, t.model)
	}
	return t, nil
}

// configuredFor reports whether model already belongs to provider in config.
func configuredFor(cfg domain.Config, provider, model string) bool {
	if strings.HasPrefix(model, provider+"/") || model == cfg.ActiveModelName() {
		return true
	}
	settings, ok := cfg.ProviderSettingsFor(provider)
	if !ok {
		return false
	}
	for _, m := range settings.Models {
		if m == model {
			return true
		}
	}
	return false
}

func (s *Service) snapshot(ctx context.Context, cfg domain.Config) string {
	if s.ContextCollector == nil || !cfg.ContextEnabled() {
		return ""
	}
	snap, err := s.ContextCollector.Collect(ctx)
	if err != nil {
		s.Logger.Debug("context collection failed", map[string]interface{}{"error": err.Error()})
		return ""
	}
	return contextSnippet(&snap)
}

// request sends one prompt, preferring schema-constrained output and falling
// back to plain JSON only when the provider reports the capability missing.
func (s *Service) request(ctx context.Context, t target, shape string, data promptData, maxTokens int, schemaName string, out interface{}) error {
	client, err := s.ClientFactory.ForProvider(t.cfg, t.provider)
	if err != nil {
		return err
	}
	messages, err := buildMessages(shape, data)
	if err != nil {
		return err
	}
	schema, err := schemaFor(out)
	if err != nil {
		return err
	}
	req := ports.CompletionRequest{
		Model:       t.model,
		Messages:    messages,
		Temperature: t.temperature,
		MaxTokens:   maxTokens,
		Format:      ports.FormatJSONSchema,
		SchemaName:  schemaName,
		Schema:      schema,
	}

	if s.Status != nil {
		s.Status.Start("Generating command...")
		defer s.Status.Stop()
	}

	s.Logger.Info("calling provider", map[string]interface{}{
		"provider": client.Name(),
		"model":    t.model,
	})
	completion, err := client.Complete(ctx, req)
	if err == nil {
		err = completion.ParseStructured(out)
	}
	if err == nil || !errors.Is(err, domain.ErrStructuredOutputUnsupported) {
		return err
	}

	s.Logger.Debug("structured output unsupported, retrying with JSON mode", map[string]interface{}{
		"provider": client.Name(),
		"model":    t.model,
	})
	req.Format = ports.FormatJSONObject
	req.SchemaName = ""
	req.Schema = nil
	completion, err = client.Complete(ctx, req)
	if err != nil {
		return err
	}
	return decodeJSON(completion.Raw(), out)
}
