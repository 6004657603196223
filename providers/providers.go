// Package providers registers every built-in provider with stream_archiver.DefaultProviderRegistry.
package providers

import (
	_ "github.com/alanbriolat/stream-archiver/providers/embed"
	_ "github.com/alanbriolat/stream-archiver/providers/raw"
)
