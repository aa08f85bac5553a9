package benchmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mwiater/chatbench/internal/logging"
	"github.com/mwiater/chatbench/internal/providers"
)

// ErrNoChunks is returned when a stream ends without delivering a single event.
var ErrNoChunks = errors.New("no streaming chunks received")

// charsPerToken is the heuristic used when the server reports no usage.
const charsPerToken = 4

// StreamOutcome is what one drained stream measured.
type StreamOutcome struct {
	TimeToFirstChunk *time.Duration
	ChunkCount       int
	TotalTokens      int
	TotalDuration    time.Duration
}

// GenerationTime is the span between the first chunk and stream completion, or the
// total duration when that span is zero.
func (o StreamOutcome) GenerationTime() time.Duration {
	if o.TimeToFirstChunk != nil {
		if span := o.TotalDuration - *o.TimeToFirstChunk; span > 0 {
			return span
		}
	}
	return o.TotalDuration
}

// ConsumeStream drains stream until the [DONE] sentinel or end of stream. start is
// the moment the request was dispatched. Token counts are estimated from delta
// content unless the server reports completion_tokens, which then wins for the
// whole call. A transport error discards the partial outcome.
func ConsumeStream(stream providers.EventStream, start time.Time) (StreamOutcome, error) {
	var (
		outcome    StreamOutcome
		estimated  int
		usageCount *int
	)

	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return StreamOutcome{}, fmt.Errorf("read stream: %w", err)
		}

		if outcome.TimeToFirstChunk == nil {
			ttfc := time.Since(start)
			outcome.TimeToFirstChunk = &ttfc
		}
		outcome.ChunkCount++

		if ev.Data == providers.DoneSentinel {
			break
		}

		var chunk providers.ChatCompletionResponse
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			logging.LogDebug("skipping undecodable stream payload: %v", err)
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta != nil {
				estimated += estimateTokens(choice.Delta.Content)
			}
		}
		if chunk.Usage != nil && chunk.Usage.CompletionTokens != nil {
			n := *chunk.Usage.CompletionTokens
			usageCount = &n
		}
	}

	outcome.TotalDuration = time.Since(start)
	if outcome.TimeToFirstChunk == nil {
		return StreamOutcome{}, fmt.Errorf("%w after %s", ErrNoChunks, outcome.TotalDuration)
	}

	outcome.TotalTokens = estimated
	if usageCount != nil {
		outcome.TotalTokens = *usageCount
	}
	return outcome, nil
}

// estimateTokens returns ceil(len(content)/4).
func estimateTokens(content string) int {
	return (len(content) + charsPerToken - 1) / charsPerToken
}
