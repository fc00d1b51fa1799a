package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"contract-server/internal/models"
)

// requiredChallengesPointer is the fixed pointer resolved when a counter
// expression references the CompletedChallenges aggregate: the challenges it
// gates are part of the tree even though no tree listener enumerates them.
const requiredChallengesPointer = "$.RequiredChallenges"

// ProgressionAggregator resolves declarative listener descriptors against a
// live evaluation context into challenge-tree membership lists and counter
// data for UI assembly.
type ProgressionAggregator struct {
	evaluator Evaluator
	logger    *zap.Logger
}

// NewProgressionAggregator creates an aggregator over the external evaluator.
func NewProgressionAggregator(evaluator Evaluator, logger *zap.Logger) *ProgressionAggregator {
	return &ProgressionAggregator{
		evaluator: evaluator,
		logger:    logger.Named("ProgressionAggregator"),
	}
}

// Aggregate walks the listener map and produces the combined aggregate.
// Listener kinds without aggregate output are accepted and skipped, so
// catalogs may introduce new kinds without breaking older servers.
func (a *ProgressionAggregator) Aggregate(ctx context.Context, listeners map[string]models.Listener, evalContext interface{}) (*models.ChallengeAggregate, error) {
	out := &models.ChallengeAggregate{ChallengeTreeIDs: []string{}}
	seen := map[string]struct{}{}

	appendIDs := func(ids []string) {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out.ChallengeTreeIDs = append(out.ChallengeTreeIDs, id)
		}
	}

	for listenerID, listener := range listeners {
		log := a.logger.With(zap.String("listenerID", listenerID), zap.String("type", string(listener.Type)))
		switch listener.Type {
		case models.ListenerChallengeTree:
			ids, err := a.resolveIDList(ctx, listener.Comparand, evalContext)
			if err != nil {
				log.Error("Failed to resolve challenge tree comparand", zap.Error(err))
				return nil, err
			}
			appendIDs(ids)

		case models.ListenerChallengeCounter:
			count, err := a.resolveNumber(ctx, listener.Count, evalContext)
			if err != nil {
				log.Error("Failed to resolve counter count", zap.Error(err))
				return nil, err
			}
			total, err := a.resolveNumber(ctx, listener.Total, evalContext)
			if err != nil {
				log.Error("Failed to resolve counter total", zap.Error(err))
				return nil, err
			}
			out.CountData.Count = count
			out.CountData.Total = total

			// A counter keyed on the CompletedChallenges aggregate gates on
			// challenges that no tree listener enumerates directly.
			if expr, ok := listener.Count.(string); ok && strings.Contains(expr, "CompletedChallenges") {
				required, err := a.resolveIDList(ctx, requiredChallengesPointer, evalContext)
				if err != nil {
					log.Error("Failed to resolve required challenges", zap.Error(err))
					return nil, err
				}
				appendIDs(required)
			}

		case models.ListenerToggle,
			models.ListenerCustom,
			models.ListenerMatchArrays,
			models.ListenerObjectiveCounter,
			models.ListenerForceUpdate:
			// No aggregate output.

		default:
			log.Debug("Skipping unknown listener kind")
		}
	}

	return out, nil
}

// resolveIDList resolves a literal list or a pointer expression into a string
// id list.
func (a *ProgressionAggregator) resolveIDList(ctx context.Context, value interface{}, evalContext interface{}) ([]string, error) {
	if expr, ok := value.(string); ok {
		resolved, err := a.evaluator.Evaluate(ctx, expr, evalContext)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate pointer %q: %w", expr, err)
		}
		value = resolved
	}
	return toStringSlice(value)
}

// resolveNumber resolves a literal number or a pointer expression into a
// float64.
func (a *ProgressionAggregator) resolveNumber(ctx context.Context, value interface{}, evalContext interface{}) (float64, error) {
	if expr, ok := value.(string); ok {
		resolved, err := a.evaluator.Evaluate(ctx, expr, evalContext)
		if err != nil {
			return 0, fmt.Errorf("failed to evaluate pointer %q: %w", expr, err)
		}
		value = resolved
	}
	switch n := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("listener value %v (%T) is not numeric", value, value)
	}
}

func toStringSlice(value interface{}) ([]string, error) {
	switch list := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			id, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("challenge id %v (%T) is not a string", item, item)
			}
			out = append(out, id)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("listener value %v (%T) is not an id list", value, value)
	}
}
