package providers

import (
	"log/slog"

	"github.com/venkytv/riverside-connector/pkg/retry"
	"github.com/venkytv/riverside-connector/pkg/video"
	"github.com/venkytv/riverside-connector/pkg/video/riverside"
)

// InitializeBuiltinAdapters registers all built-in conferencing adapters
// with the factory
func InitializeBuiltinAdapters(factory *video.DefaultAdapterFactory, riversideConfig riverside.Config, shows riverside.ShowResolver, retryConfig *retry.Config, logger *slog.Logger) {
	// Register the Riverside adapter
	factory.RegisterAdapter(riverside.MeetingType, func(apiKey string) (video.ConferencingAdapter, error) {
		return riverside.NewAdapter(riversideConfig, apiKey, shows, retryConfig, logger), nil
	})
}
