package service

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/trace"

	"marketfeed/internal/domain"
	"marketfeed/internal/intel"
)

const defaultMessageLimit = 100

// ChatSource fetches raw messages for one channel.
type ChatSource interface {
	FetchMessages(ctx context.Context, channelID string, limit int) ([]domain.RawMessage, error)
}

// Channel names one chat channel and the extraction path it feeds.
type Channel struct {
	ID   string
	Kind domain.ChannelKind
}

// IntelService runs the chat-intelligence pipeline: fetch each
// configured channel, extract by channel kind, then summarize.
type IntelService struct {
	tracer             trace.Tracer
	chat               ChatSource
	extractor          *intel.Extractor
	aggregator         *intel.Aggregator
	channels           []Channel
	messageLimit       int
	highValueThreshold float64
}

func NewIntelService(
	tracer trace.Tracer,
	chat ChatSource,
	extractor *intel.Extractor,
	aggregator *intel.Aggregator,
	channels []Channel,
	highValueThreshold float64,
) *IntelService {
	return &IntelService{
		tracer:             tracer,
		chat:               chat,
		extractor:          extractor,
		aggregator:         aggregator,
		channels:           channels,
		messageLimit:       defaultMessageLimit,
		highValueThreshold: highValueThreshold,
	}
}

// Run executes one full pipeline pass. A channel that fails to fetch is
// recorded in the report's error manifest and the rest of the run
// proceeds; Run itself only fails when no channel is configured.
func (s *IntelService) Run(ctx context.Context) (*domain.IntelReport, error) {
	ctx, span := s.tracer.Start(ctx, "intel-service.run")
	defer span.End()

	if len(s.channels) == 0 {
		return nil, fmt.Errorf("no chat channels configured")
	}

	report := &domain.IntelReport{}
	for _, ch := range s.channels {
		messages, err := s.chat.FetchMessages(ctx, ch.ID, s.messageLimit)
		if err != nil {
			log.Printf("intel: fetch channel %s failed: %v", ch.ID, err)
			report.Errors = append(report.Errors, fmt.Sprintf("channel %s: %v", ch.ID, err))
			continue
		}

		switch ch.Kind {
		case domain.ChannelKindNFT:
			report.Transactions = append(report.Transactions, s.extractor.ExtractTransactions(messages)...)
		case domain.ChannelKindCommunity:
			report.Posts = append(report.Posts, s.extractor.ExtractPosts(messages)...)
		default:
			report.Errors = append(report.Errors, fmt.Sprintf("channel %s: unknown kind %q", ch.ID, ch.Kind))
		}
	}

	report.Summary = s.aggregator.Summarize(report.Transactions, report.Posts, s.highValueThreshold)
	return report, nil
}
